// Package sysconf holds the system configuration rules applied by
// xfce-init and the tsm/deploy commands. Each rule inspects the live file,
// edits it through confpatch only when needed and reports the resulting
// types.State, so running a rule twice leaves the system untouched.
package sysconf
