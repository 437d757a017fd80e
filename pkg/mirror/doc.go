// Package mirror keeps local copies in line with a source: plain trees
// through Overwrite and RCopy, repositories through Git.Sync. RChown and
// RChmod walk a tree and fix every entry one by one.
package mirror
