package tsm

import (
	"bytes"
	"context"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/confpatch"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/prompt"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/sysconf"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/testutil"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queue = `    ID   Done       Have  ETA           Up    Down  Ratio  Status       Name
     1   100%    1.46 GB  Done         0.0     0.0    1.2  Idle         debian-13.1.0-amd64-netinst.iso
     4*   45%  120.0 MB  10 min       0.0   512.0    0.0  Up & Down    clonezilla-live-3.2.2-15-amd64.iso
Sum:           1.58 GB               0.0   512.0
`

const settingsJSON = `{
    "download-dir": "/home/tester/Downloads",
    "peer-port": 51413,
    "rpc-enabled": true,
    "rpc-port": 9091,
}
`

func newManager(t *testing.T, answers string) (*Manager, *testutil.TestEnvironment, *bytes.Buffer) {
	t.Helper()
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	env.WriteFile(system.GroupPath, "sudo:x:27:tester\n")
	env.WriteFile(system.PasswdPath, "tester:x:1000:1000::/home/tester:/bin/bash\n")

	cfg := config.TSM{
		Settings:  ".config/transmission-daemon/settings.json",
		Downloads: "Downloads",
		PeerPort:  57413,
		Refresh:   time.Second,
		Service:   "transmission-daemon",
	}
	var out bytes.Buffer
	rules := sysconf.New(env.FS, env.Runner, confpatch.New(env.FS, "/tmp"))
	m := New(cfg, "sudo", env.FS, env.Runner, prompt.New(strings.NewReader(answers), &out),
		style.NewPlainPrinter(&out), env.Profile, rules)
	m.Now = func() time.Time { return time.Date(2025, 8, 9, 21, 30, 0, 0, time.UTC) }
	return m, env, &out
}

func TestParseQueue(t *testing.T) {
	list := ParseQueue(queue)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].ID)
	assert.Equal(t, "100%", list[0].Done)
	assert.Equal(t, 4, list[1].ID)
	assert.Empty(t, ParseQueue("    ID   Done  Have  ETA  Up  Down  Ratio  Status  Name\nSum:  None  0.0  0.0\n"))
}

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings([]byte(settingsJSON))
	require.NoError(t, err)
	assert.Equal(t, 51413, s.PeerPort)
	assert.Equal(t, 9091, s.RPCPort)
	assert.True(t, s.RPCEnabled)

	_, err = ParseSettings([]byte("{\"peer-port\": }"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
}

func TestWatchStopsOnCancel(t *testing.T) {
	m, env, out := newManager(t, "")
	env.Runner.On("transmission-remote -l", queue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Watch(ctx, out))

	assert.Contains(t, out.String(), "Transmission queue - Sat Aug 09, 21:30:00")
	assert.Contains(t, out.String(), "debian-13.1.0-amd64-netinst.iso")
	assert.Contains(t, out.String(), "Press [Ctrl]+[C] to quit")
}

func TestAdd(t *testing.T) {
	m, env, out := newManager(t, "")
	file := env.WriteFile("/home/tester/Downloads/debian.torrent", "d8:announce")

	require.NoError(t, m.Add(context.Background(), file))
	assert.Equal(t, []string{"transmission-remote -a /home/tester/Downloads/debian.torrent"}, env.Runner.Lines())
	assert.False(t, env.Exists(file))
	assert.Contains(t, out.String(), "I: Adding 'debian'...")

	err := m.Add(context.Background(), "/home/tester/notes.txt")
	assert.Equal(t, "'/home/tester/notes.txt' is not a valid torrent file", errors.Message(err))
}

func TestAddAll(t *testing.T) {
	m, env, _ := newManager(t, "")
	env.WriteFile("/home/tester/Downloads/b.torrent", "")
	env.WriteFile("/home/tester/Downloads/a.torrent", "")
	env.WriteFile("/home/tester/Downloads/readme.txt", "")

	require.NoError(t, m.AddAll(context.Background()))
	assert.Equal(t, []string{
		"transmission-remote -a /home/tester/Downloads/a.torrent",
		"transmission-remote -a /home/tester/Downloads/b.torrent",
	}, env.Runner.Lines())

	err := m.AddAll(context.Background())
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestDelete(t *testing.T) {
	m, env, out := newManager(t, "y\n")
	env.Runner.On("transmission-remote -l", queue)
	env.Runner.On("transmission-remote -t 4 -i", "NAME\n  Id: 4\n  Name: clonezilla-live-3.2.2-15-amd64.iso\n  Hash: abc\n")

	require.NoError(t, m.Delete(context.Background(), 4))
	assert.True(t, env.Runner.Ran("transmission-remote -t 4 -rad"))
	assert.True(t, env.Runner.Ran("sudo systemctl restart transmission-daemon"))
	assert.Contains(t, out.String(), "OK: '4: clonezilla-live-3.2.2-15-amd64.iso' removed from queue")
	assert.Contains(t, out.String(), "OK: transmission-daemon restarted")

	err := m.Delete(context.Background(), 9)
	assert.Equal(t, "No torrent with ID 9", errors.Message(err))
}

func TestDeleteAll(t *testing.T) {
	m, env, out := newManager(t, "y\nn\n")
	env.Runner.On("transmission-remote -l", queue)
	env.Runner.On("transmission-remote -t 1 -i", "  Name: one\n")
	env.Runner.On("transmission-remote -t 4 -i", "  Name: four\n")

	require.NoError(t, m.DeleteAll(context.Background()))
	assert.Contains(t, out.String(), "Remove all 2 torrent(s) and their data")
	assert.Equal(t, 1, env.Runner.Count("transmission-remote -t 1 -rad"))
	assert.Equal(t, 1, env.Runner.Count("transmission-remote -t 4 -rad"))
	assert.Zero(t, env.Runner.Count("sudo systemctl"))
}

func TestDeleteAllDeclined(t *testing.T) {
	m, env, _ := newManager(t, "n\n")
	env.Runner.On("transmission-remote -l", queue)

	err := m.DeleteAll(context.Background())
	assert.True(t, errors.IsErrorCode(err, errors.ErrDeclined), "got %v", err)
	assert.Equal(t, []string{"transmission-remote -l"}, env.Runner.Lines())
}

func TestRestartUnauthorized(t *testing.T) {
	m, env, _ := newManager(t, "")
	env.WriteFile(system.GroupPath, "sudo:x:27:\n")

	err := m.Restart(context.Background())
	assert.True(t, errors.IsErrorCode(err, errors.ErrPermission))
	assert.Empty(t, env.Runner.Lines())
}

func TestStatusInactive(t *testing.T) {
	m, env, out := newManager(t, "")
	env.Runner.Fail("systemctl status", 3, "")

	require.NoError(t, m.Status(context.Background()))
	assert.Contains(t, out.String(), "Daemon status:")
}

func TestTestPort(t *testing.T) {
	m, env, out := newManager(t, "")
	err := m.TestPort(context.Background())
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileNotFound))

	env.WriteFile("/home/tester/.config/transmission-daemon/settings.json", settingsJSON)
	env.Runner.On("transmission-remote -pt", "Port is open: Yes\n")
	require.NoError(t, m.TestPort(context.Background()))
	assert.Contains(t, out.String(), "I: Testing port '51413'...")
	assert.Contains(t, out.String(), "Port is open: Yes")
}

func TestSetPort(t *testing.T) {
	m, env, _ := newManager(t, "")
	settings := env.WriteFile("/home/tester/.config/transmission-daemon/settings.json", settingsJSON)

	state, err := m.SetPort(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, types.StatePatched, state)
	assert.Contains(t, env.ReadFile(settings), `    "peer-port": 57413,`)
	assert.Equal(t, []string{
		"sudo systemctl stop transmission-daemon",
		"sudo systemctl start transmission-daemon",
	}, env.Runner.Lines())

	env.Runner.Reset()
	state, err = m.SetPort(context.Background(), 57413)
	require.NoError(t, err)
	assert.Equal(t, types.StateInSync, state)
	assert.Empty(t, env.Runner.Lines())
}

// readOnlyFS refuses every whole-file write
type readOnlyFS struct {
	types.FS
}

func (readOnlyFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return &fs.PathError{Op: "write", Path: name, Err: fs.ErrPermission}
}

func TestSetPortRestartsDaemonOnWriteFailure(t *testing.T) {
	m, env, _ := newManager(t, "")
	settings := env.WriteFile("/home/tester/.config/transmission-daemon/settings.json", settingsJSON)
	m.rules = sysconf.New(env.FS, env.Runner, confpatch.New(readOnlyFS{env.FS}, "/tmp"))

	state, err := m.SetPort(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, types.StateFailed, state)
	assert.Equal(t, settingsJSON, env.ReadFile(settings))
	assert.Equal(t, []string{
		"sudo systemctl stop transmission-daemon",
		"sudo systemctl start transmission-daemon",
	}, env.Runner.Lines())
}
