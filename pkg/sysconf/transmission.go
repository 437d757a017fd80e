package sysconf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/types"
)

// TransmissionService is the systemd unit of the torrent daemon
const TransmissionService = "transmission-daemon"

// peerPortValue captures the key and separator of the "peer-port" entry
var peerPortValue = regexp.MustCompile(`("peer-port"\s*:\s*)\d+`)

// SetPeerPort rewrites the "peer-port" entry of a transmission settings.json.
// The daemon overwrites its settings on exit, so it must be stopped first.
func (r *Rules) SetPeerPort(settings string, port int) (types.State, error) {
	if port <= 0 || port > 65535 {
		return types.StateFailed, errors.Newf(errors.ErrInvalidInput, "invalid port %d", port)
	}
	value := "${1}" + strconv.Itoa(port)
	return r.patch.ReplaceMatching(settings, peerPortValue.MatchString,
		func(line string) string { return peerPortValue.ReplaceAllString(line, value) })
}

// TransmissionOverride runs the daemon as user through a systemd drop-in
func (r *Rules) TransmissionOverride(ctx context.Context, user string) (types.State, error) {
	conf := filepath.Join(r.Paths.TransmissionDir, "override.conf")
	want := []byte(fmt.Sprintf("[Service]\nUser=%s\n", user))

	if current, err := r.fs.ReadFile(conf); err == nil && bytes.Equal(current, want) {
		return types.StateInSync, nil
	}

	if _, err := r.runner.Run(ctx, execx.Cmd("systemctl", "stop", TransmissionService)); err != nil {
		return types.StateFailed, err
	}
	if err := r.fs.MkdirAll(r.Paths.TransmissionDir, 0755); err != nil {
		return types.StateFailed, errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", r.Paths.TransmissionDir)
	}
	if err := r.fs.WriteFile(conf, want, 0644); err != nil {
		return types.StateFailed, errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", conf)
	}
	return r.after(ctx, types.StatePatched,
		execx.Cmd("systemctl", "daemon-reload"),
		execx.Cmd("systemctl", "start", TransmissionService),
	)
}
