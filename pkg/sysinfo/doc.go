// Package sysinfo reads the machine state shown by netinfo, df and fetch.
// Everything comes from /proc, /sys and a few config files through types.FS,
// so the collectors run the same against a memory filesystem.
package sysinfo
