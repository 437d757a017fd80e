package sysconf

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/choopsit/toolz/pkg/confpatch"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
)

var swapLines = []string{"vm.swappiness=5", "vm.vfs_cache_pressure=50"}

// Swap lowers swappiness and reloads swap when the sysctl file changed
func (r *Rules) Swap(ctx context.Context) (types.State, error) {
	file := r.Paths.Swappiness
	if err := r.patch.Touch(file, 0644); err != nil {
		return types.StateFailed, err
	}
	state, err := r.patch.EnsureEach(file, swapLines)
	if err != nil {
		return state, err
	}
	return r.after(ctx, state,
		execx.Cmd("sysctl", "-p", file),
		execx.Cmd("swapoff", "-av"),
		execx.Cmd("swapon", "-av"),
	)
}

const rootLogin = "PermitRootLogin yes"

// SSHRootLogin allows root to log in over ssh through a drop-in
func (r *Rules) SSHRootLogin(ctx context.Context) (types.State, error) {
	pred := confpatch.HasPrefix(rootLogin)
	for _, file := range []string{r.Paths.SSHD, r.Paths.SSHDropIn} {
		ok, err := r.patch.Contains(file, pred)
		if err != nil {
			return types.StateFailed, err
		}
		if ok {
			return types.StateInSync, nil
		}
	}

	if err := r.patch.Touch(r.Paths.SSHDropIn, 0644); err != nil {
		return types.StateFailed, err
	}
	state, err := r.patch.EnsureBlock(r.Paths.SSHDropIn, pred, []string{
		"# Allow root user to connect on ssh",
		rootLogin,
	})
	if err != nil {
		return state, err
	}
	return r.after(ctx, state, execx.Cmd("systemctl", "restart", "ssh"))
}

// SourcesList drops cdrom and empty entries and enables contrib and
// non-free on every main component line
func (r *Rules) SourcesList() (types.State, error) {
	return r.patch.FilterMap(r.Paths.SourcesList, func(line string) (string, bool) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "#" || strings.Contains(line, "cdrom") {
			return "", false
		}
		if strings.HasSuffix(trimmed, " main") {
			return trimmed + " contrib non-free", true
		}
		return line, true
	})
}

// AddMount appends a labelled fstab entry unless the label is already there
func (r *Rules) AddMount(label, uuid, mountpoint, fstype, options string) (types.State, error) {
	marker := "#" + label
	return r.patch.EnsureBlock(r.Paths.Fstab, confpatch.Equals(marker), []string{
		"",
		marker,
		fmt.Sprintf("UUID=%s\t%s\t%s\t%s\t0\t0", uuid, mountpoint, fstype, options),
	})
}

// ApplyHostname writes the host name to /etc/hostname and /etc/hosts and
// sets it on the running system
func (r *Rules) ApplyHostname(ctx context.Context, name system.HostName) (types.State, error) {
	if !system.ValidHostname(name.String()) {
		return types.StateFailed, errors.Newf(errors.ErrInvalidInput, "Invalid hostname '%s'", name)
	}

	state := types.StateInSync
	current, err := r.fs.ReadFile(r.Paths.Hostname)
	if err != nil || strings.TrimSpace(string(current)) != name.Host {
		if err := r.fs.MkdirAll(filepath.Dir(r.Paths.Hostname), 0755); err != nil {
			return types.StateFailed, errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", filepath.Dir(r.Paths.Hostname))
		}
		if err := r.fs.WriteFile(r.Paths.Hostname, []byte(name.Host+"\n"), 0644); err != nil {
			return types.StateFailed, errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", r.Paths.Hostname)
		}
		state = types.StatePatched
	}

	line := HostsLine(name)
	pred := confpatch.HasPrefix("127.0.1.1")
	found, err := r.patch.Contains(r.Paths.Hosts, pred)
	if err != nil {
		return types.StateFailed, err
	}
	var hostsState types.State
	if found {
		hostsState, err = r.patch.ReplaceMatching(r.Paths.Hosts, pred, func(string) string { return line })
	} else {
		hostsState, err = r.patch.EnsureLine(r.Paths.Hosts, pred, line)
	}
	if err != nil {
		return hostsState, err
	}

	return r.after(ctx, state.Merge(hostsState), execx.Cmd("hostname", name.Host))
}

// HostsLine renders the 127.0.1.1 entry for name
func HostsLine(name system.HostName) string {
	if name.Domain == "" {
		return "127.0.1.1\t" + name.Host
	}
	return fmt.Sprintf("127.0.1.1\t%s\t%s", name.String(), name.Host)
}

// DefaultInterface returns the interface carrying the default route
func DefaultInterface(ctx context.Context, runner execx.Runner) (string, error) {
	res, err := runner.Run(ctx, execx.Cmd("ip", "route", "show", "default"))
	if err != nil {
		return "", err
	}
	fields := strings.Fields(res.Stdout)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "dev" {
			return fields[i+1], nil
		}
	}
	return "", errors.New(errors.ErrNotFound, "no default route")
}

// ReleaseInterface comments out the ifupdown stanza of the default interface
// so NetworkManager takes it over
func (r *Rules) ReleaseInterface(ctx context.Context) (types.State, error) {
	iface, err := DefaultInterface(ctx, r.runner)
	if err != nil {
		return types.StateFailed, err
	}
	r.logger.Debug().Str("iface", iface).Msg("releasing interface")

	pred := func(line string) bool {
		return strings.Contains(line, iface) && !strings.HasPrefix(strings.TrimSpace(line), "#")
	}
	return r.patch.ReplaceMatching(r.Paths.Interfaces, pred, func(line string) string {
		return "#" + line
	})
}
