// Package tsm drives a local transmission-daemon through transmission-remote:
// queue display, adding and removing torrents, daemon restart and port checks.
package tsm

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/prompt"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/sysconf"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

const remote = "transmission-remote"

// Torrent is one queue entry
type Torrent struct {
	ID   int
	Done string
	Line string
}

// Manager runs the tsm sub-commands
type Manager struct {
	cfg        config.TSM
	adminGroup string
	fs         types.FS
	runner     execx.Runner
	asker      prompt.Asker
	printer    *style.Printer
	profile    *system.Profile
	rules      *sysconf.Rules
	logger     zerolog.Logger

	Now func() time.Time
}

// New creates a manager. Members of adminGroup may restart the daemon
// through sudo.
func New(cfg config.TSM, adminGroup string, fsys types.FS, runner execx.Runner, asker prompt.Asker,
	printer *style.Printer, profile *system.Profile, rules *sysconf.Rules) *Manager {
	return &Manager{
		cfg:        cfg,
		adminGroup: adminGroup,
		fs:         fsys,
		runner:     runner,
		asker:      asker,
		printer:    printer,
		profile:    profile,
		rules:      rules,
		logger:     logging.GetLogger("tsm"),
		Now:        time.Now,
	}
}

func (m *Manager) service() string {
	if m.cfg.Service != "" {
		return m.cfg.Service
	}
	return sysconf.TransmissionService
}

// SettingsPath locates the daemon settings of the current user
func (m *Manager) SettingsPath() string {
	return m.homePath(m.cfg.Settings)
}

func (m *Manager) homePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.profile.Home, p)
}

// ParseQueue extracts the torrents of a `transmission-remote -l` listing.
// Header and "Sum:" lines are ignored.
func ParseQueue(output string) []Torrent {
	var list []Torrent
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(fields[0], "*"))
		if err != nil {
			continue
		}
		list = append(list, Torrent{ID: id, Done: fields[1], Line: strings.TrimSpace(line)})
	}
	return list
}

// Queue returns the raw queue listing
func (m *Manager) Queue(ctx context.Context) (string, error) {
	res, err := m.runner.Run(ctx, execx.Cmd(remote, "-l"))
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Watch redraws the queue every refresh until ctx is cancelled
func (m *Manager) Watch(ctx context.Context, out io.Writer) error {
	refresh := m.cfg.Refresh
	if refresh <= 0 {
		refresh = 2 * time.Second
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		m.drawQueue(ctx, out)
		select {
		case <-ctx.Done():
			m.printer.Println()
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Manager) drawQueue(ctx context.Context, out io.Writer) {
	_, _ = io.WriteString(out, "\033[H\033[2J")
	now := m.Now().Format("Mon Jan 02, 15:04:05")
	m.printer.Printf("%s - %s\n", m.printer.Render("Heading", "Transmission queue"), m.printer.Render("Heading", now))

	queue, err := m.Queue(ctx)
	if err != nil {
		m.printer.Error("%s", execx.Describe(err))
	}
	for i, line := range strings.Split(strings.TrimRight(queue, "\n"), "\n") {
		if i == 0 {
			line = m.printer.Render("Key", line)
		}
		m.printer.Println(line)
	}
	m.printer.Printf("\n%s\n", m.printer.Render("Warning", "Press [Ctrl]+[C] to quit"))
}

// Add queues a torrent file and removes it once handed to the daemon
func (m *Manager) Add(ctx context.Context, file string) error {
	info, err := m.fs.Stat(file)
	if err != nil || info.IsDir() || filepath.Ext(file) != ".torrent" {
		return errors.Newf(errors.ErrInvalidInput, "'%s' is not a valid torrent file", file)
	}

	name := strings.TrimSuffix(filepath.Base(file), ".torrent")
	m.printer.Info("Adding '%s'...", name)
	if _, err := m.runner.Run(ctx, execx.Cmd(remote, "-a", file)); err != nil {
		return err
	}
	m.printer.OK("'%s' added to queue", file)

	if err := m.fs.Remove(file); err != nil {
		m.logger.Warn().Err(err).Str("file", file).Msg("cannot remove torrent file")
	}
	return nil
}

// AddAll queues every torrent file of the downloads folder
func (m *Manager) AddAll(ctx context.Context) error {
	dir := m.homePath(m.cfg.Downloads)
	entries, err := m.fs.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileNotFound, "cannot list '%s'", dir)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".torrent") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return errors.Newf(errors.ErrNotFound, "No torrent file in '%s'", dir)
	}
	sort.Strings(files)

	failed := 0
	for _, f := range files {
		if err := m.Add(ctx, f); err != nil {
			m.printer.Error("%s", execx.Describe(err))
			failed++
		}
	}
	if failed > 0 {
		return errors.Newf(errors.ErrCommandFailed, "%d torrent(s) not added", failed)
	}
	return nil
}

// Name asks the daemon for the name of torrent id
func (m *Manager) Name(ctx context.Context, id int) (string, error) {
	res, err := m.runner.Run(ctx, execx.Cmd(remote, "-t", strconv.Itoa(id), "-i"))
	if err != nil {
		return "", err
	}
	for _, line := range res.Lines() {
		if key, value, ok := strings.Cut(strings.TrimSpace(line), ":"); ok && key == "Name" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", errors.Newf(errors.ErrNotFound, "No torrent with ID %d", id)
}

// Delete removes torrent id and its downloaded data, then offers to
// restart the daemon so the remaining ids are renumbered
func (m *Manager) Delete(ctx context.Context, id int) error {
	queue, err := m.Queue(ctx)
	if err != nil {
		return err
	}
	if !hasID(ParseQueue(queue), id) {
		return errors.Newf(errors.ErrNotFound, "No torrent with ID %d", id)
	}
	if err := m.remove(ctx, id); err != nil {
		return err
	}
	return m.offerRestart(ctx)
}

// DeleteAll removes every queued torrent and its data
func (m *Manager) DeleteAll(ctx context.Context) error {
	queue, err := m.Queue(ctx)
	if err != nil {
		return err
	}
	list := ParseQueue(queue)
	if len(list) == 0 {
		m.printer.Info("Queue is empty")
		return nil
	}
	ok, err := m.asker.YesNo(fmt.Sprintf("Remove all %d torrent(s) and their data", len(list)), false)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrDeclined, "Nothing removed")
	}

	failed := 0
	for _, t := range list {
		if err := m.remove(ctx, t.ID); err != nil {
			m.printer.Error("%s", execx.Describe(err))
			failed++
		}
	}
	if failed > 0 {
		return errors.Newf(errors.ErrCommandFailed, "%d torrent(s) not removed", failed)
	}
	return m.offerRestart(ctx)
}

func (m *Manager) remove(ctx context.Context, id int) error {
	name, err := m.Name(ctx, id)
	if err != nil {
		return err
	}
	m.printer.Info("Removing '%s'...", name)
	if _, err := m.runner.Run(ctx, execx.Cmd(remote, "-t", strconv.Itoa(id), "-rad")); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "Failed to remove '%d: %s'", id, name)
	}
	m.printer.OK("'%d: %s' removed from queue", id, name)
	return nil
}

func (m *Manager) offerRestart(ctx context.Context) error {
	restart, err := m.asker.YesNo("Restart daemon to reorder IDs", false)
	if err != nil || !restart {
		return err
	}
	return m.Restart(ctx)
}

func hasID(list []Torrent, id int) bool {
	for _, t := range list {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Restart restarts the daemon, through sudo for admin group members
func (m *Manager) Restart(ctx context.Context) error {
	if err := m.authorize(); err != nil {
		return err
	}
	m.printer.Info("Restarting daemon...")
	return m.systemctl(ctx, "restart")
}

func (m *Manager) authorize() error {
	if m.profile.IsRoot() {
		return nil
	}
	ok, err := system.InGroup(m.fs, m.profile.User, m.adminGroup)
	if err != nil {
		m.logger.Debug().Err(err).Msg("group lookup failed")
	}
	if !ok {
		return errors.Newf(errors.ErrPermission, "'%s' can not restart %s", m.profile.User, m.service())
	}
	return nil
}

var pastTense = map[string]string{"restart": "restarted", "start": "started", "stop": "stopped"}

func (m *Manager) systemctl(ctx context.Context, action string) error {
	cmd := execx.Elevate(m.profile.IsRoot(), execx.Cmd("systemctl", action, m.service()))
	if _, err := m.runner.Run(ctx, cmd); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "Failed to %s %s", action, m.service())
	}
	m.printer.OK("%s %s", m.service(), pastTense[action])
	return nil
}

// Status shows the systemd status of the daemon
func (m *Manager) Status(ctx context.Context) error {
	m.printer.Heading("Daemon status:")
	res, err := m.runner.Run(ctx, execx.Cmd("systemctl", "status", "--no-pager", m.service()))
	m.printer.Printf("%s", res.Stdout)
	// systemctl status exits 3 for an inactive unit, which is still a status
	if err != nil && res.ExitCode != 3 {
		return err
	}
	return nil
}

// TestPort asks the daemon whether its peer port is reachable
func (m *Manager) TestPort(ctx context.Context) error {
	settings, err := LoadSettings(m.fs, m.SettingsPath())
	if err != nil {
		return err
	}
	if settings.PeerPort == 0 {
		return errors.New(errors.ErrNotFound, "Can not find port in transmission-daemon config")
	}

	m.printer.Heading("Transmission-daemon status:")
	m.printer.Info("Testing port '%d'...", settings.PeerPort)
	res, err := m.runner.Run(ctx, execx.Cmd(remote, "-pt"))
	if err != nil {
		return err
	}
	m.printer.Printf("%s", res.Stdout)
	return nil
}

// SetPort writes port into the settings file. The daemon rewrites its
// settings when it stops, so it is stopped around the edit.
func (m *Manager) SetPort(ctx context.Context, port int) (types.State, error) {
	if port == 0 {
		port = m.cfg.PeerPort
	}
	path := m.SettingsPath()
	settings, err := LoadSettings(m.fs, path)
	if err != nil {
		return types.StateFailed, err
	}
	if settings.PeerPort == port {
		m.printer.OK("Peer port already set to %d", port)
		return types.StateInSync, nil
	}
	if err := m.authorize(); err != nil {
		return types.StateFailed, err
	}

	if err := m.systemctl(ctx, "stop"); err != nil {
		return types.StateFailed, err
	}
	state, err := m.rules.SetPeerPort(path, port)
	if startErr := m.systemctl(ctx, "start"); startErr != nil && err == nil {
		return types.StateFailed, startErr
	}
	if err != nil {
		return state, err
	}
	m.printer.OK("Peer port set to %d", port)
	return state, nil
}
