// Package testutil provides utilities for testing toolz components.
//
// Key components:
//   - TestEnvironment: a filesystem, a scripted command runner and a system
//     profile wired together with cleanup
//   - FakeRunner: records every external command and serves scripted results
//   - Memory and isolated environments: afero in-memory FS for fast tests,
//     a real temp directory when behavior depends on the OS (symlinks, modes)
//
// All test data should be defined inline, not in external files.
package testutil
