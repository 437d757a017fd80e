// Package upgrade implements fullupdate: a full apt upgrade followed by
// cleanup and the optional theme, backup and information stages.
package upgrade
