// Package system describes the machine toolz runs on: distribution,
// invoking user, host naming and local accounts.
package system
