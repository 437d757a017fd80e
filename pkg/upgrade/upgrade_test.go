package upgrade

import (
	"bytes"
	"context"
	"testing"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/pkgmgr"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpgrader(t *testing.T) (*Upgrader, *testutil.TestEnvironment, *bytes.Buffer) {
	t.Helper()
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	apt, err := pkgmgr.New(env.Runner, env.Profile, []string{"debian"})
	require.NoError(t, err)
	var out bytes.Buffer
	return New(apt, env.FS, style.NewPlainPrinter(&out), env.Profile), env, &out
}

func TestRunSequence(t *testing.T) {
	u, env, _ := newUpgrader(t)
	env.Runner.On("dpkg -l", "rc  oldpkg  1.0  amd64  gone\n")
	env.Runner.On("apt list ?obsolete", "Listing...\nlibfoo1/now 1.2 amd64 [installed,local]\n")

	require.NoError(t, u.Run(context.Background(), Options{CleanObsolete: true}))

	var apt []string
	for _, l := range env.Runner.Lines() {
		if l != "dpkg -l" && l != "apt list ?obsolete" {
			apt = append(apt, l)
		}
	}
	assert.Equal(t, []string{
		"sudo apt update",
		"sudo apt full-upgrade",
		"sudo apt purge libfoo1 -y",
		"sudo apt autoremove --purge -y",
		"sudo apt purge oldpkg",
		"sudo apt autoremove --purge",
		"sudo apt autoclean",
		"sudo apt clean",
	}, apt)
}

func TestRunWithoutObsolete(t *testing.T) {
	u, env, _ := newUpgrader(t)
	require.NoError(t, u.Run(context.Background(), Options{}))
	assert.False(t, env.Runner.Ran("apt list"))
}

func TestRunStopsOnUpgradeFailure(t *testing.T) {
	u, env, _ := newUpgrader(t)
	env.Runner.Fail("sudo apt full-upgrade", 100, "E: Could not get lock")

	called := false
	err := u.Run(context.Background(), Options{Info: func(context.Context) error { called = true; return nil }})
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
	assert.False(t, called)
	assert.False(t, env.Runner.Ran("sudo apt autoclean"))
}

func TestRemoveXSessionFiles(t *testing.T) {
	u, env, _ := newUpgrader(t)
	env.WriteFile("/home/tester/.xsession-errors", "noise")
	env.WriteFile("/home/tester/.xsession-errors.old", "noise")
	env.WriteFile("/home/tester/.xsessionrc", "keep? no")
	env.WriteFile("/home/tester/.profile", "")

	require.NoError(t, u.RemoveXSessionFiles())
	assert.False(t, env.Exists("/home/tester/.xsession-errors"))
	assert.False(t, env.Exists("/home/tester/.xsession-errors.old"))
	assert.False(t, env.Exists("/home/tester/.xsessionrc"))
	assert.True(t, env.Exists("/home/tester/.profile"))
}

func TestBackupOnlyWhenMounted(t *testing.T) {
	u, env, out := newUpgrader(t)
	env.WriteFile(system.MountsPath, "/dev/sda1 / ext4 rw 0 0\n")

	var backedUp string
	opts := Options{
		BackupFolder: "/backup",
		Backup:       func(_ context.Context, folder string) error { backedUp = folder; return nil },
	}

	err := u.Run(context.Background(), opts)
	assert.Error(t, err)
	assert.Empty(t, backedUp)
	assert.Contains(t, out.String(), "E: '/backup' not mounted")

	env.WriteFile(system.MountsPath, "/dev/sda1 / ext4 rw 0 0\n/dev/sdb1 /backup btrfs rw 0 0\n")
	require.NoError(t, u.Run(context.Background(), opts))
	assert.Equal(t, "/backup", backedUp)
}

func TestHooksRunInOrder(t *testing.T) {
	u, env, _ := newUpgrader(t)
	env.WriteFile(system.MountsPath, "/dev/sdb1 /backup btrfs rw 0 0\n")

	var order []string
	hook := func(name string) Hook {
		return func(context.Context) error { order = append(order, name); return nil }
	}
	err := u.Run(context.Background(), Options{
		Themes:       hook("themes"),
		BackupFolder: "/backup",
		Backup:       func(context.Context, string) error { order = append(order, "backup"); return nil },
		Info:         hook("info"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"themes", "backup", "info"}, order)
}
