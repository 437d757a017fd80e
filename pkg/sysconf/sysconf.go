package sysconf

import (
	"context"

	"github.com/choopsit/toolz/pkg/confpatch"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// Paths locates the configuration files the rules edit
type Paths struct {
	Swappiness      string
	SSHD            string
	SSHDropIn       string
	PulseDaemon     string
	Geoclue         string
	LightDM         string
	SourcesList     string
	Fstab           string
	Hostname        string
	Hosts           string
	Interfaces      string
	TransmissionDir string
}

// DefaultPaths returns the locations used on a Debian system
func DefaultPaths() Paths {
	return Paths{
		Swappiness:      "/etc/sysctl.d/99-swappiness.conf",
		SSHD:            "/etc/ssh/sshd_config",
		SSHDropIn:       "/etc/ssh/sshd_config.d/allow_root.conf",
		PulseDaemon:     "/etc/pulse/daemon.conf",
		Geoclue:         "/etc/geoclue/geoclue.conf",
		LightDM:         "/usr/share/lightdm/lightdm.conf.d/10_my.conf",
		SourcesList:     "/etc/apt/sources.list",
		Fstab:           "/etc/fstab",
		Hostname:        "/etc/hostname",
		Hosts:           "/etc/hosts",
		Interfaces:      "/etc/network/interfaces",
		TransmissionDir: "/etc/systemd/system/transmission-daemon.service.d",
	}
}

// Rules applies the system configuration rules
type Rules struct {
	Paths Paths

	fs     types.FS
	runner execx.Runner
	patch  *confpatch.Patcher
	logger zerolog.Logger
}

// New creates the rule set on top of a patcher sharing fsys
func New(fsys types.FS, runner execx.Runner, patch *confpatch.Patcher) *Rules {
	return &Rules{
		Paths:  DefaultPaths(),
		fs:     fsys,
		runner: runner,
		patch:  patch,
		logger: logging.GetLogger("sysconf"),
	}
}

// after runs cmds when state reports a change
func (r *Rules) after(ctx context.Context, state types.State, cmds ...execx.Command) (types.State, error) {
	if !state.Changed() {
		return state, nil
	}
	for _, c := range cmds {
		if _, err := r.runner.Run(ctx, c); err != nil {
			return types.StateFailed, err
		}
	}
	return state, nil
}
