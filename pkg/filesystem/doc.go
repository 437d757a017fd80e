// Package filesystem provides filesystem implementations for toolz.
//
// This package contains implementations of the types.FS interface,
// the real OS filesystem and an afero-backed one used by tests.
package filesystem
