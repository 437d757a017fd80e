package usbkey

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/prompt"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCreator(t *testing.T, answers string, images ...config.Image) (*Creator, *testutil.TestEnvironment, *bytes.Buffer) {
	t.Helper()
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly).AsRoot()
	env.WriteFile(system.MountsPath, "/dev/nvme0n1p2 / ext4 rw 0 0\n/dev/sdc1 /media/usb vfat rw 0 0\n")
	env.WriteFile("/dev/sdb", "")

	cfg := config.USBKey{
		WorkDir:   "/tmp",
		BlockSize: "4M",
		Images:    images,
		Live: config.Live{
			DefaultUser: "liveuser",
			Keyboard:    "fr",
			Timezone:    "Europe/Paris",
			Mirror:      "http://deb.debian.org/debian/",
			Packages:    []string{"live-boot", "live-config", "vim"},
		},
	}
	releases := system.Releases{Stable: "trixie", Testing: "forky"}

	var out bytes.Buffer
	dl := NewDownloader(env.FS, &out)
	dl.Progress = false
	c := New(cfg, releases, env.FS, env.Runner, prompt.New(strings.NewReader(answers), &out),
		style.NewPlainPrinter(&out), dl)
	c.Now = func() time.Time { return time.Date(2025, 10, 4, 12, 0, 0, 0, time.UTC) }
	return c, env, &out
}

func TestDevicePath(t *testing.T) {
	assert.Equal(t, "/dev/sdb", DevicePath("sdb"))
	assert.Equal(t, "/dev/sdb", DevicePath("/dev/sdb"))
}

func TestCheckDevice(t *testing.T) {
	ctx := context.Background()
	c, env, _ := newCreator(t, "")

	dev, err := c.CheckDevice(ctx, "sdb")
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdb", dev)

	_, err = c.CheckDevice(ctx, "sdz")
	assert.Equal(t, "No device 'sdz' available", errors.Message(err))

	env.WriteFile("/dev/sdc", "")
	_, err = c.CheckDevice(ctx, "sdc")
	assert.Equal(t, "'sdc' is mounted", errors.Message(err))

	env.Runner.On("pvs", "  /dev/sdb1\n")
	_, err = c.CheckDevice(ctx, "sdb")
	assert.Equal(t, "'sdb' is used for LVM", errors.Message(err))

	env.Runner.On("pvs", "")
	env.Runner.On("btrfs filesystem show", "Label: 'backup'  uuid: 5a12\n\tdevid    1 size 1.82TiB used 1.10TiB path /dev/sdb\n")
	_, err = c.CheckDevice(ctx, "sdb")
	assert.Equal(t, "'sdb' is used for btrfs volume", errors.Message(err))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/debian.iso" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ISO-9660"))
	}))
	defer srv.Close()

	c, env, _ := newCreator(t, "")
	env.WriteFile("/tmp/debian.iso", "an older, longer image")

	require.NoError(t, c.download.Download(context.Background(), srv.URL+"/debian.iso", "/tmp/debian.iso"))
	assert.Equal(t, "ISO-9660", env.ReadFile("/tmp/debian.iso"))

	err := c.download.Download(context.Background(), srv.URL+"/missing.iso", "/tmp/missing.iso")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
}

func TestDownloadInterruptedRemovesImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		_, _ = w.Write([]byte("ISO-9660 partial"))
	}))
	defer srv.Close()

	c, env, _ := newCreator(t, "")
	env.WriteFile("/tmp/debian.iso", "an older image")

	err := c.download.Download(context.Background(), srv.URL+"/debian.iso", "/tmp/debian.iso")
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileWrite), "got %v", err)
	assert.False(t, env.Exists("/tmp/debian.iso"))
}

func TestRunCatalogImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("clonezilla"))
	}))
	defer srv.Close()

	images := []config.Image{
		{Name: "Debian stable netinstall", Version: "13.1.0", URL: srv.URL + "/debian.iso", File: "debian.iso"},
		{Name: "Clonezilla live", Version: "3.2.2-15", URL: srv.URL + "/clonezilla.iso", File: "clonezilla.iso"},
	}
	c, env, out := newCreator(t, "2\n", images...)
	assert.Equal(t, []string{"Debian stable netinstall", "Clonezilla live", CustomLive}, c.Formats())

	require.NoError(t, c.Run(context.Background(), "sdb", false))
	assert.Equal(t, "clonezilla", env.ReadFile("/tmp/clonezilla.iso"))
	assert.True(t, env.Runner.Ran("dd bs=4M if=/tmp/clonezilla.iso of=/dev/sdb conv=fdatasync status=progress"))
	assert.Contains(t, out.String(), "OK: Bootable Clonezilla live 3.2.2-15 USB key created")
}

func TestAskLive(t *testing.T) {
	c, _, out := newCreator(t, "2\nlab-live\n\nn\n\n\n\n\n")

	s, err := c.AskLive()
	require.NoError(t, err)
	assert.Equal(t, "trixie", s.Codename)
	assert.Equal(t, "trixie-custom", s.Hostname)
	assert.Equal(t, "liveuser", s.User)
	assert.Equal(t, "251004", s.Build)
	assert.Contains(t, out.String(), "Custom live hostname [forky-custom] ? ")
}

func TestValidLiveUser(t *testing.T) {
	assert.NoError(t, ValidLiveUser("liveuser"))
	assert.Error(t, ValidLiveUser("Live User"))
	assert.Error(t, ValidLiveUser("0day"))
}

func TestBuildLive(t *testing.T) {
	c, env, _ := newCreator(t, "")
	s := LiveSettings{
		Codename: "trixie", Hostname: "box-live", User: "liveuser",
		Keyboard: "fr", Timezone: "Europe/Paris", Mirror: "http://deb.debian.org/debian/",
		Packages: []string{"live-boot", "vim"}, Build: "251004",
	}
	work := c.WorkFolder(s)
	assert.Equal(t, "/tmp/trixie_livebuild_251004", work)
	env.WriteFile(work+"/stale", "")

	env.Runner.OnFunc("lb build", func(cmd execx.Command) (execx.Result, error) {
		env.WriteFile(cmd.Dir+"/live-image-amd64.hybrid.iso", "iso")
		return execx.Result{}, nil
	})

	iso, err := c.BuildLive(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, work+"/live-image-amd64.hybrid.iso", iso)
	assert.False(t, env.Exists(work+"/stale"))
	assert.Equal(t, "live-boot\nvim\n", env.ReadFile(work+"/config/package-lists/live.list.chroot"))
	assert.Contains(t, env.ReadFile(work+"/config/build"), "Distribution-Chroot: trixie\n")
	assert.Contains(t, env.ReadFile(work+"/config/build"), "Configuration-Version: 1:251004\n")

	auto := env.ReadFile(work + "/auto/config")
	assert.Contains(t, auto, `--distribution "trixie"`)
	assert.Contains(t, auto, "username=liveuser user-fullname=liveuser hostname=box-live")
	info, err := env.FS.Stat(work + "/auto/config")
	require.NoError(t, err)
	assert.Equal(t, "-rwxr-xr-x", info.Mode().Perm().String())

	calls := env.Runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "lb config", calls[0].String())
	assert.Equal(t, work, calls[0].Dir)
	assert.True(t, calls[1].Interactive)
}

func TestBuildLiveWithoutISO(t *testing.T) {
	c, _, _ := newCreator(t, "")
	_, err := c.BuildLive(context.Background(), LiveSettings{Codename: "sid", Build: "251004"})
	assert.Equal(t, "Can not find ISO image in '/tmp/sid_livebuild_251004'", errors.Message(err))
}

func TestDeployWipesPartitions(t *testing.T) {
	c, env, _ := newCreator(t, "")
	env.WriteFile("/dev/sdb1", "")
	env.WriteFile("/dev/sdb2", "")

	require.NoError(t, c.Deploy(context.Background(), "/tmp/custom.iso", "/dev/sdb"))
	assert.Equal(t, []string{
		"wipefs -a /dev/sdb2",
		"wipefs -a /dev/sdb1",
		"wipefs -a /dev/sdb",
		"partprobe /dev/sdb",
		"dd bs=4M if=/tmp/custom.iso of=/dev/sdb conv=fdatasync status=progress",
	}, env.Runner.Lines())
}
