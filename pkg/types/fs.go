package types

import (
	"io"
	"io/fs"
)

// File is the subset of *os.File the tools need for streaming edits
type File interface {
	io.Reader
	io.Writer
	io.Closer
}

// FS is the filesystem interface used by every reconciliation operation
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	OpenFile(name string, flag int, perm fs.FileMode) (File, error)

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Symlink operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Ownership and permissions
	Chmod(name string, mode fs.FileMode) error
	Lchown(name string, uid, gid int) error

	// Other operations
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error

	// For filesystems without symlinks, Lstat falls back to Stat
	Lstat(name string) (fs.FileInfo, error)
}
