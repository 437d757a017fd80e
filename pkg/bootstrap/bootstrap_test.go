package bootstrap

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

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

type fakePackages struct {
	installed []string
	purged    []string
	arches    []string
}

func (f *fakePackages) Install(_ context.Context, pkgs []string, _ bool) error {
	f.installed = append(f.installed, pkgs...)
	return nil
}

func (f *fakePackages) Purge(_ context.Context, pkgs []string, _ bool) error {
	f.purged = append(f.purged, pkgs...)
	return nil
}

func (f *fakePackages) AddArchitecture(_ context.Context, arch string) error {
	f.arches = append(f.arches, arch)
	return nil
}

type fakeThemes struct{ runs int }

func (f *fakeThemes) Run(context.Context) error {
	f.runs++
	return nil
}

type fakeFetcher struct{ fs types.FS }

func (f fakeFetcher) Download(_ context.Context, url, dest string) error {
	if err := f.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return f.fs.WriteFile(dest, []byte("\" "+url+"\n"), 0644)
}

func testConfig() config.Bootstrap {
	return config.Bootstrap{
		Groups:     []string{"sudo"},
		Editor:     "/usr/bin/vim.basic",
		VimPlugURL: "https://plug.test/plug.vim",
		Packages:   []string{"vim", "git"},
		Purge:      []string{"nano"},
		Nvidia:     []string{"nvidia-driver"},
		Optional: []config.Optional{
			{Name: "virt-manager", Question: "Install Virtual Machine Manager", Packages: []string{"virt-manager"}, Group: "libvirt", SkipOnVM: true},
			{Name: "steam", Question: "Install Steam", Packages: []string{"steam"}, I386: true},
		},
		Mounts: map[string][]config.Mount{
			"newbox": {{Label: "backup", UUID: "5a127881", Mountpoint: "/backup", FSType: "btrfs", Options: "defaults,auto"}},
		},
	}
}

type harness struct {
	env    *testutil.TestEnvironment
	boot   *Bootstrap
	pkgs   *fakePackages
	themes *fakeThemes
	out    *bytes.Buffer
}

func newHarness(t *testing.T, answers string, root bool) *harness {
	t.Helper()
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	if root {
		env.AsRoot()
	}
	env.WriteFile(system.PasswdPath, "root:x:0:0:root:/root:/bin/bash\nalice:x:1001:1001::/home/alice:/bin/bash\n")
	env.WriteFile(system.GroupPath, "root:x:0:\nsudo:x:27:\nalice:x:1001:\n")
	env.WriteFile("/home/alice/.bashrc", "# old\n")
	env.WriteFile("/home/alice/.bash_aliases", "alias g=git\n")
	env.WriteFile("/etc/apt/sources.list", "deb cdrom:[Debian]/ trixie main\ndeb http://deb.debian.org/debian trixie main\n")
	env.WriteFile("/etc/hosts", "127.0.0.1\tlocalhost\n127.0.1.1\tbox.home.lan\tbox\n")
	env.WriteFile("/etc/fstab", "# /etc/fstab\n")

	h := &harness{env: env, pkgs: &fakePackages{}, themes: &fakeThemes{}, out: &bytes.Buffer{}}
	rules := sysconf.New(env.FS, env.Runner, confpatch.New(env.FS, "/tmp"))
	h.boot = New(testConfig(), system.Releases{Stable: "trixie", Obsolete: []string{"buster"}}, Deps{
		FS:       env.FS,
		Runner:   env.Runner,
		Asker:    prompt.New(strings.NewReader(answers), h.out),
		Printer:  style.NewPlainPrinter(h.out),
		Profile:  env.Profile,
		Packages: h.pkgs,
		Themes:   h.themes,
		Rules:    rules,
		Fetcher:  fakeFetcher{fs: env.FS},
	})
	return h
}

func TestRun(t *testing.T) {
	answers := strings.Join([]string{
		"n",               // keep hostname
		"newbox.home.lan", // new hostname
		"y",               // virt-manager
		"n",               // steam
		"",                // alice to sudo
		"n",               // alice to libvirt
		"y",               // personalize alice
		"y",               // confirm
		"n",               // reboot
	}, "\n") + "\n"
	h := newHarness(t, answers, true)
	env := h.env
	env.Runner.On("lspci", "01:00.0 VGA compatible controller: NVIDIA Corporation GA104\n")

	require.NoError(t, h.boot.Run(context.Background()))

	assert.Equal(t, []string{"vim", "git", "nvidia-driver", "virt-manager"}, h.pkgs.installed)
	assert.Equal(t, []string{"i386"}, h.pkgs.arches)
	assert.Equal(t, []string{"nano"}, h.pkgs.purged)
	assert.Equal(t, 1, h.themes.runs)

	assert.Equal(t, "deb http://deb.debian.org/debian trixie main contrib non-free\n", env.ReadFile("/etc/apt/sources.list"))
	assert.Equal(t, "newbox\n", env.ReadFile("/etc/hostname"))
	assert.Contains(t, env.ReadFile("/etc/hosts"), "127.0.1.1\tnewbox.home.lan\tnewbox")

	assert.True(t, env.Runner.Ran("adduser alice sudo"))
	assert.False(t, env.Runner.Ran("adduser alice libvirt"))
	assert.True(t, env.Runner.Ran("update-alternatives --set editor /usr/bin/vim.basic"))
	assert.Equal(t, 1, env.Runner.Count("vim +PlugInstall +qall"))
	assert.False(t, env.Runner.Ran("reboot"))

	assert.Contains(t, env.ReadFile("/root/.config/bash/bashrc"), "/root/.config/bash/bashrc")
	assert.Contains(t, env.ReadFile("/etc/skel/.config/bash/bashrc"), "~/.config/bash/bashrc")
	assert.True(t, env.Exists("/etc/skel/.vim/vimrc"))
	assert.True(t, env.Exists("/root/.vim/autoload/plug.vim"))

	assert.Equal(t, "alias g=git\n", env.ReadFile("/home/alice/.config/bash/aliases"))
	assert.False(t, env.Exists("/home/alice/.bashrc"))
	assert.False(t, env.Exists("/home/alice/.bash_aliases"))
	assert.Contains(t, env.ReadFile("/home/alice/.profile"), ".config/bash/bashrc")

	assert.Contains(t, env.ReadFile("/etc/fstab"), "#backup\nUUID=5a127881\t/backup\tbtrfs\tdefaults,auto\t0\t0\n")
	assert.True(t, env.Exists("/backup"))

	text := h.out.String()
	assert.Contains(t, text, "New hostname/FQDN: newbox.home.lan")
	assert.Contains(t, text, "  - 'alice' to 'sudo'")
	assert.Contains(t, text, "W: pulseaudio not configured")
	assert.Contains(t, text, "OK: Xfce personalization applied for alice")
	assert.Contains(t, text, "OK: Xfce desktop installed")
}

func TestRunDeclined(t *testing.T) {
	h := newHarness(t, "\nn\nn\nn\nn\nn\n", true)

	require.NoError(t, h.boot.Run(context.Background()))

	assert.Empty(t, h.pkgs.installed)
	assert.Zero(t, h.themes.runs)
	assert.False(t, h.env.Exists("/etc/hostname"))
	assert.Contains(t, h.out.String(), "W: No user added to any group")
	assert.Contains(t, h.out.String(), "W: Nothing done")
}

func TestRunNeedsRoot(t *testing.T) {
	h := newHarness(t, "", false)
	err := h.boot.Run(context.Background())
	assert.True(t, errors.IsErrorCode(err, errors.ErrPermission))
}

func TestAskOnVM(t *testing.T) {
	h := newHarness(t, "n\nbad_name\nnewbox\ny\nn\nn\n", true)
	h.env.Runner.On("lspci", "00:02.0 VGA compatible controller: InnoTek VirtualBox Graphics Adapter\n")

	c, err := h.boot.Ask(context.Background())
	require.NoError(t, err)

	assert.True(t, c.Rename)
	assert.Equal(t, system.HostName{Host: "newbox"}, c.Host)
	require.Len(t, c.Optional, 1)
	assert.Equal(t, "steam", c.Optional[0].Name)
	assert.True(t, c.I386)
	assert.Equal(t, []string{"vim", "git", "steam"}, c.Packages)
	assert.Empty(t, c.Memberships)
	assert.Empty(t, c.Personalize)
	assert.NotContains(t, h.out.String(), "Virtual Machine Manager")
}

func TestPersonalizeKeepsUserFiles(t *testing.T) {
	h := newHarness(t, "", true)
	h.env.WriteFile("/home/alice/.vimrc", "set nocompatible\n")
	h.env.WriteFile("/home/alice/.bash_history", "ls\n")

	require.NoError(t, h.boot.Personalize(context.Background(), "/home/alice"))

	assert.False(t, h.env.Exists("/home/alice/.vimrc"))
	assert.Equal(t, "ls\n", h.env.ReadFile("/home/alice/.config/bash/history"))
	assert.Contains(t, h.env.ReadFile("/home/alice/.vim/vimrc"), "plug#begin")
	assert.Equal(t, "\" https://plug.test/plug.vim\n", h.env.ReadFile("/home/alice/.vim/autoload/plug.vim"))
	assert.False(t, h.env.Runner.Ran("vim"))
}
