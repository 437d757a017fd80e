package themes

import (
	"bytes"
	"context"
	"testing"

	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/mirror"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prereqStub struct {
	calls [][]string
	err   error
}

func (p *prereqStub) Ensure(_ context.Context, pkgs []string) error {
	p.calls = append(p.calls, pkgs)
	return p.err
}

func testConfig() config.Themes {
	return config.Themes{
		BaseURL:          "https://github.com/vinceliuice/",
		WorkDir:          "/tmp",
		GTKPrerequisites: []string{"gtk2-engines-murrine", "gtk2-engines-pixbuf"},
		GTK:              []config.Theme{{Name: "Mojave-gtk-theme", Color: "dark"}},
		Cursors:          []config.Theme{{Name: "McMojave-cursors"}},
	}
}

func newUpdater(t *testing.T, cfg config.Themes) (*Updater, *testutil.TestEnvironment, *prereqStub, *bytes.Buffer) {
	t.Helper()
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly).AsRoot()
	pre := &prereqStub{}
	var out bytes.Buffer
	u := New(cfg, mirror.NewGit(env.Runner, env.FS), pre, env.Runner, style.NewPlainPrinter(&out))
	return u, env, pre, &out
}

func TestValidColor(t *testing.T) {
	for _, c := range []string{"", "dark", "light"} {
		assert.NoError(t, ValidColor(c), c)
	}
	err := ValidColor("purple")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestRun(t *testing.T) {
	u, env, pre, out := newUpdater(t, testConfig())

	require.NoError(t, u.Run(context.Background()))
	assert.Equal(t, []string{
		"git clone -q https://github.com/vinceliuice/Mojave-gtk-theme.git /tmp/Mojave-gtk-theme",
		"/tmp/Mojave-gtk-theme/install.sh -c dark",
		"git clone -q https://github.com/vinceliuice/McMojave-cursors.git /tmp/McMojave-cursors",
		"/tmp/McMojave-cursors/install.sh",
	}, env.Runner.Lines())
	assert.Equal(t, [][]string{{"gtk2-engines-murrine", "gtk2-engines-pixbuf"}}, pre.calls)
	assert.Equal(t, "/tmp/Mojave-gtk-theme", env.Runner.Calls()[1].Dir)
	assert.Contains(t, out.String(), "OK: Mojave-gtk-theme updated")
	assert.Contains(t, out.String(), "OK: McMojave-cursors updated")
}

func TestRunPullsExistingClone(t *testing.T) {
	u, env, _, _ := newUpdater(t, testConfig())
	require.NoError(t, env.FS.MkdirAll("/tmp/McMojave-cursors/.git", 0755))

	require.NoError(t, u.Run(context.Background()))
	assert.True(t, env.Runner.Ran("git -C /tmp/McMojave-cursors pull -q --no-rebase"))
}

func TestRunInvalidColor(t *testing.T) {
	cfg := testConfig()
	cfg.GTK[0].Color = "purple"
	u, env, _, out := newUpdater(t, cfg)

	err := u.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "1 theme(s) failed to update", errors.Message(err))
	assert.Contains(t, out.String(), "E: Invalid color 'purple'")
	assert.False(t, env.Runner.Ran("git clone -q https://github.com/vinceliuice/Mojave-gtk-theme.git"))
	assert.True(t, env.Runner.Ran("/tmp/McMojave-cursors/install.sh"))
}

func TestInstallScriptFailure(t *testing.T) {
	u, env, _, _ := newUpdater(t, testConfig())
	env.Runner.Fail("/tmp/McMojave-cursors/install.sh", 1, "")

	err := u.Install(context.Background(), config.Theme{Name: "McMojave-cursors"}, Cursors)
	assert.Equal(t, "McMojave-cursors failed to install", errors.Message(err))
}
