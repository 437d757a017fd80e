// Package types holds the small interfaces and enums shared by every
// reconciliation package: the filesystem abstraction and the step state.
package types
