package mirror

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// Mirror copies and re-owns file trees
type Mirror struct {
	fs     types.FS
	logger zerolog.Logger
}

// New creates a mirror working on fsys
func New(fsys types.FS) *Mirror {
	return &Mirror{
		fs:     fsys,
		logger: logging.GetLogger("mirror"),
	}
}

// Overwrite replaces dst with a copy of src. Directories are copied
// recursively, symlinks are recreated rather than followed. Failures are
// logged and reported as false.
func (m *Mirror) Overwrite(src, dst string) bool {
	info, err := m.fs.Stat(src)
	if err != nil {
		m.logger.Error().Err(err).Str("src", src).Msg("source not readable")
		return false
	}

	if info.IsDir() {
		if existing, err := m.fs.Lstat(dst); err == nil {
			if err := m.remove(dst, existing); err != nil {
				m.logger.Error().Err(err).Str("dst", dst).Msg("cannot clear destination")
				return false
			}
		}
		if err := m.copyTree(src, dst, false); err != nil {
			m.logger.Error().Err(err).Str("src", src).Str("dst", dst).Msg("copy failed")
			return false
		}
		return true
	}

	if existing, err := m.fs.Lstat(dst); err == nil {
		if err := m.remove(dst, existing); err != nil {
			m.logger.Error().Err(err).Str("dst", dst).Msg("cannot clear destination")
			return false
		}
	}
	if err := m.copyEntry(src, dst); err != nil {
		m.logger.Error().Err(err).Str("src", src).Str("dst", dst).Msg("copy failed")
		return false
	}
	return true
}

// RCopy merges src into dst. An existing file is only replaced when the
// source copy is newer.
func (m *Mirror) RCopy(src, dst string) bool {
	info, err := m.fs.Stat(src)
	if err != nil {
		m.logger.Error().Err(err).Str("src", src).Msg("source not readable")
		return false
	}
	if !info.IsDir() {
		if m.newer(src, dst) {
			if err := m.copyEntry(src, dst); err != nil {
				m.logger.Error().Err(err).Str("src", src).Msg("copy failed")
				return false
			}
		}
		return true
	}
	if err := m.copyTree(src, dst, true); err != nil {
		m.logger.Error().Err(err).Str("src", src).Str("dst", dst).Msg("merge failed")
		return false
	}
	return true
}

// RChown gives path and everything below it to user. An empty group keeps
// the user's primary group.
func (m *Mirror) RChown(path, user, group string) error {
	uid, gid, err := system.LookupIDs(m.fs, user, group)
	if err != nil {
		return err
	}
	return m.RChownIDs(path, uid, gid)
}

// RChownIDs is RChown with numeric ids
func (m *Mirror) RChownIDs(path string, uid, gid int) error {
	return m.walk(path, func(p string, _ fs.FileInfo) error {
		if err := m.fs.Lchown(p, uid, gid); err != nil {
			return errors.Wrapf(err, errors.ErrPermission, "cannot chown %s", p)
		}
		return nil
	})
}

// RChmod sets mode on path and everything below it. Symlinks are skipped.
func (m *Mirror) RChmod(path string, mode os.FileMode) error {
	return m.walk(path, func(p string, info fs.FileInfo) error {
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if err := m.fs.Chmod(p, mode); err != nil {
			return errors.Wrapf(err, errors.ErrPermission, "cannot chmod %s", p)
		}
		return nil
	})
}

func (m *Mirror) walk(root string, fn func(string, fs.FileInfo) error) error {
	info, err := m.fs.Lstat(root)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileNotFound, "cannot stat %s", root)
	}
	if err := fn(root, info); err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := m.fs.ReadDir(root)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot list %s", root)
	}
	for _, e := range entries {
		if err := m.walk(filepath.Join(root, e.Name()), fn); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) copyTree(src, dst string, merge bool) error {
	info, err := m.fs.Stat(src)
	if err != nil {
		return err
	}
	if err := m.fs.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}

	entries, err := m.fs.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())

		li, err := m.fs.Lstat(s)
		if err != nil {
			return err
		}
		if li.IsDir() {
			if err := m.copyTree(s, d, merge); err != nil {
				return err
			}
			continue
		}
		if merge && !m.newer(s, d) {
			continue
		}
		if err := m.copyEntry(s, d); err != nil {
			return err
		}
	}
	return nil
}

// copyEntry copies one file or symlink, replacing whatever sits at dst
func (m *Mirror) copyEntry(src, dst string) error {
	info, err := m.fs.Lstat(src)
	if err != nil {
		return err
	}
	if err := m.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := m.fs.Readlink(src)
		if err != nil {
			return err
		}
		if existing, err := m.fs.Lstat(dst); err == nil {
			if err := m.remove(dst, existing); err != nil {
				return err
			}
		}
		return m.fs.Symlink(target, dst)
	}

	data, err := m.fs.ReadFile(src)
	if err != nil {
		return err
	}
	if existing, err := m.fs.Lstat(dst); err == nil && existing.Mode()&os.ModeSymlink != 0 {
		if err := m.fs.Remove(dst); err != nil {
			return err
		}
	}
	if err := m.fs.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return err
	}
	return m.fs.Chmod(dst, info.Mode().Perm())
}

func (m *Mirror) remove(path string, info fs.FileInfo) error {
	if info.IsDir() {
		return m.fs.RemoveAll(path)
	}
	return m.fs.Remove(path)
}

// newer reports whether src should replace dst
func (m *Mirror) newer(src, dst string) bool {
	di, err := m.fs.Lstat(dst)
	if err != nil {
		return true
	}
	si, err := m.fs.Lstat(src)
	if err != nil {
		return false
	}
	return si.ModTime().After(di.ModTime())
}
