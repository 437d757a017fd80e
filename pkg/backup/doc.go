// Package backup saves the user's home items, system configuration files
// and per-host extras into <dest>/<YYMM>_<hostname> with rsync.
package backup
