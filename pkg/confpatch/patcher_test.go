package confpatch

import (
	"strings"
	"testing"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/testutil"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, path, content string) (*testutil.TestEnvironment, *Patcher) {
	t.Helper()
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	if content != "" || path != "" {
		env.WriteFile(path, content)
	}
	return env, New(env.FS, "/tmp")
}

func TestPredicates(t *testing.T) {
	assert.True(t, HasPrefix("vm.")("vm.swappiness=5"))
	assert.False(t, HasPrefix("vm.")("# vm.swappiness=5"))
	assert.True(t, Contains("flat-volumes")("; flat-volumes = yes"))
	assert.True(t, Equals("[Seat:*]")("[Seat:*]  "))
	assert.False(t, Equals("[Seat:*]")(" [Seat:*]"))
	assert.True(t, Any(HasPrefix("a"), HasPrefix("b"))("bee"))
	assert.False(t, Any()("anything"))
}

func TestEnsureLineIdempotent(t *testing.T) {
	env, p := setup(t, "/etc/sysctl.d/99-swappiness.conf", "# tuning\n")
	file := "/etc/sysctl.d/99-swappiness.conf"

	state, err := p.EnsureLine(file, HasPrefix("vm.swappiness="), "vm.swappiness=5")
	require.NoError(t, err)
	assert.Equal(t, types.StatePatched, state)
	once := env.ReadFile(file)

	state, err = p.EnsureLine(file, HasPrefix("vm.swappiness="), "vm.swappiness=5")
	require.NoError(t, err)
	assert.Equal(t, types.StateInSync, state)
	assert.Equal(t, once, env.ReadFile(file))
	assert.Equal(t, "# tuning\nvm.swappiness=5\n", once)
}

func TestEnsureLineMissingFinalNewline(t *testing.T) {
	env, p := setup(t, "/etc/app.conf", "a=1")

	_, err := p.EnsureLine("/etc/app.conf", HasPrefix("b="), "b=2")
	require.NoError(t, err)
	assert.Equal(t, "a=1\nb=2\n", env.ReadFile("/etc/app.conf"))
}

func TestEnsureLineMissingFile(t *testing.T) {
	env, p := setup(t, "", "")

	state, err := p.EnsureLine("/etc/nope.conf", HasPrefix("x"), "x")
	require.Error(t, err)
	assert.Equal(t, types.StateFailed, state)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileNotFound))
	assert.False(t, env.Exists("/etc/nope.conf"), "must not create the file")
}

func TestEnsureBlock(t *testing.T) {
	env, p := setup(t, "/etc/geoclue/geoclue.conf", "[agent]\nwhitelist=\n")
	file := "/etc/geoclue/geoclue.conf"
	block := []string{"", "[redshift]", "allowed=true", "system=false", "users="}

	state, err := p.EnsureBlock(file, Contains("redshift"), block)
	require.NoError(t, err)
	assert.Equal(t, types.StatePatched, state)
	assert.Equal(t, "[agent]\nwhitelist=\n\n[redshift]\nallowed=true\nsystem=false\nusers=\n", env.ReadFile(file))

	state, err = p.EnsureBlock(file, Contains("redshift"), block)
	require.NoError(t, err)
	assert.Equal(t, types.StateInSync, state)
}

func TestEnsureEach(t *testing.T) {
	env, p := setup(t, "/etc/lightdm.conf", "[Seat:*]\nautologin=\n")
	file := "/etc/lightdm.conf"
	lines := []string{"[Seat:*]", "greeter-hide-users=false", "[Greeter]", "draw-user-backgrounds=true"}

	state, err := p.EnsureEach(file, lines)
	require.NoError(t, err)
	assert.Equal(t, types.StatePatched, state)
	assert.Equal(t, "[Seat:*]\nautologin=\ngreeter-hide-users=false\n[Greeter]\ndraw-user-backgrounds=true\n", env.ReadFile(file))

	state, err = p.EnsureEach(file, lines)
	require.NoError(t, err)
	assert.Equal(t, types.StateInSync, state)
}

func TestReplaceMatchingPulseAudio(t *testing.T) {
	original := "# daemon.conf\n; high-priority = yes\nflat-volumes = yes\n; resample-method = speex\n"
	env, p := setup(t, "/etc/pulse/daemon.conf", original)
	file := "/etc/pulse/daemon.conf"
	setNo := func(string) string { return "flat-volumes = no" }

	state, err := p.ReplaceMatching(file, Contains("flat-volumes"), setNo)
	require.NoError(t, err)
	assert.Equal(t, types.StatePatched, state)

	got := env.ReadFile(file)
	assert.Equal(t, "# daemon.conf\n; high-priority = yes\nflat-volumes = no\n; resample-method = speex\n", got)

	before := strings.Split(original, "\n")
	after := strings.Split(got, "\n")
	require.Len(t, after, len(before))
	for i := range before {
		if !strings.Contains(before[i], "flat-volumes") {
			assert.Equal(t, before[i], after[i], "line %d changed", i)
		}
	}

	state, err = p.ReplaceMatching(file, Contains("flat-volumes"), setNo)
	require.NoError(t, err)
	assert.Equal(t, types.StateInSync, state)
	assert.Equal(t, got, env.ReadFile(file))
}

func TestReplaceMatchingKeepsMissingNewline(t *testing.T) {
	env, p := setup(t, "/etc/x.conf", "a\nkey=1")

	_, err := p.ReplaceMatching("/etc/x.conf", HasPrefix("key="), func(string) string { return "key=2" })
	require.NoError(t, err)
	assert.Equal(t, "a\nkey=2", env.ReadFile("/etc/x.conf"))
}

func TestReplaceMatchingCleansSnapshot(t *testing.T) {
	env, p := setup(t, "/etc/x.conf", "key=1\n")

	_, err := p.ReplaceMatching("/etc/x.conf", HasPrefix("key="), func(string) string { return "key=2" })
	require.NoError(t, err)

	entries, err := env.FS.ReadDir("/tmp")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFilterMapSourcesList(t *testing.T) {
	original := "#\n" +
		"deb cdrom:[Debian GNU/Linux 13]/ trixie main\n" +
		"\n" +
		"deb http://deb.debian.org/debian/ trixie main\n" +
		"deb http://security.debian.org/debian-security trixie-security main contrib non-free\n"
	env, p := setup(t, "/etc/apt/sources.list", original)

	fn := func(line string) (string, bool) {
		if strings.Contains(line, "cdrom") || line == "#" || strings.TrimSpace(line) == "" {
			return "", false
		}
		if strings.HasSuffix(line, " main") {
			return line + " contrib non-free", true
		}
		return line, true
	}

	state, err := p.FilterMap("/etc/apt/sources.list", fn)
	require.NoError(t, err)
	assert.Equal(t, types.StatePatched, state)
	assert.Equal(t, "deb http://deb.debian.org/debian/ trixie main contrib non-free\n"+
		"deb http://security.debian.org/debian-security trixie-security main contrib non-free\n",
		env.ReadFile("/etc/apt/sources.list"))

	state, err = p.FilterMap("/etc/apt/sources.list", fn)
	require.NoError(t, err)
	assert.Equal(t, types.StateInSync, state)
}

func TestContains(t *testing.T) {
	_, p := setup(t, "/etc/ssh/sshd_config", "Port 22\nPermitRootLogin yes\n")

	ok, err := p.Contains("/etc/ssh/sshd_config", HasPrefix("PermitRootLogin yes"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Contains("/etc/ssh/missing", HasPrefix("PermitRootLogin yes"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTouch(t *testing.T) {
	env, p := setup(t, "", "")

	require.NoError(t, p.Touch("/etc/sysctl.d/99-swappiness.conf", 0644))
	assert.Equal(t, "", env.ReadFile("/etc/sysctl.d/99-swappiness.conf"))

	env.WriteFile("/etc/sysctl.d/99-swappiness.conf", "keep\n")
	require.NoError(t, p.Touch("/etc/sysctl.d/99-swappiness.conf", 0644))
	assert.Equal(t, "keep\n", env.ReadFile("/etc/sysctl.d/99-swappiness.conf"))
}

func TestIsolatedFilesystem(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)
	file := env.WriteFile("/etc/pulse/daemon.conf", "flat-volumes = yes\n")
	p := New(env.FS, env.Path("/tmp"))

	state, err := p.ReplaceMatching(file, Contains("flat-volumes"), func(string) string { return "flat-volumes = no" })
	require.NoError(t, err)
	assert.Equal(t, types.StatePatched, state)
	assert.Equal(t, "flat-volumes = no\n", env.ReadFile("/etc/pulse/daemon.conf"))
}
