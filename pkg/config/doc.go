// Package config handles configuration management for toolz.
// Defaults are embedded; they are overridden in order by the system file,
// the user file, an explicit file, TOOLZ_ environment variables and
// programmatic overrides.
package config
