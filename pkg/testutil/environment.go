package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/choopsit/toolz/pkg/filesystem"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
)

// EnvType defines the type of test environment
type EnvType int

const (
	EnvMemoryOnly EnvType = iota // Pure in-memory, no real filesystem
	EnvIsolated                  // Real filesystem in temp directory
)

// TestEnvironment provides a complete test environment with all dependencies
type TestEnvironment struct {
	// Root prefixes every path in an isolated environment. It is empty in
	// memory environments so absolute paths are used as-is.
	Root string
	Home string

	FS      types.FS
	Runner  *FakeRunner
	Profile *system.Profile

	Type EnvType

	t *testing.T
}

// NewTestEnvironment creates a new test environment
func NewTestEnvironment(t *testing.T, envType EnvType) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{
		t:      t,
		Type:   envType,
		Runner: NewFakeRunner(),
	}

	switch envType {
	case EnvMemoryOnly:
		env.FS = filesystem.NewMemory()
	case EnvIsolated:
		env.Root = t.TempDir()
		env.FS = filesystem.NewOS()
	}

	env.Home = env.Path("/home/tester")
	env.Profile = &system.Profile{
		DistroID:   "debian",
		VersionID:  "13",
		Codename:   "trixie",
		PrettyName: "Debian GNU/Linux 13 (trixie)",
		UID:        1000,
		User:       "tester",
		Home:       env.Home,
		Hostname:   "box",
		FQDN:       "box.home.lan",
	}

	if err := env.FS.MkdirAll(env.Home, 0755); err != nil {
		t.Fatalf("Failed to create home: %v", err)
	}

	return env
}

// AsRoot switches the profile to uid 0
func (env *TestEnvironment) AsRoot() *TestEnvironment {
	env.Profile.UID = 0
	env.Profile.User = "root"
	return env
}

// Path maps an absolute path into the environment
func (env *TestEnvironment) Path(p string) string {
	if env.Root == "" {
		return p
	}
	return filepath.Join(env.Root, p)
}

// WriteFile creates a file and its parent directories
func (env *TestEnvironment) WriteFile(path, content string) string {
	env.t.Helper()
	full := env.Path(path)
	if err := env.FS.MkdirAll(filepath.Dir(full), 0755); err != nil {
		env.t.Fatalf("Failed to create dir for %s: %v", full, err)
	}
	if err := env.FS.WriteFile(full, []byte(content), 0644); err != nil {
		env.t.Fatalf("Failed to write %s: %v", full, err)
	}
	return full
}

// ReadFile returns the content of a file or fails the test
func (env *TestEnvironment) ReadFile(path string) string {
	env.t.Helper()
	data, err := env.FS.ReadFile(env.Path(path))
	if err != nil {
		env.t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// Exists reports whether path exists without following symlinks
func (env *TestEnvironment) Exists(path string) bool {
	_, err := env.FS.Lstat(env.Path(path))
	return err == nil || !os.IsNotExist(err)
}
