package usbkey

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/system"
)

// LiveBuildExamples holds the auto scripts shipped by live-build
const LiveBuildExamples = "/usr/share/doc/live-build/examples/auto"

var liveUser = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,30}$`)

// LiveSettings parameterize a custom live image
type LiveSettings struct {
	Codename string
	Hostname string
	User     string
	Keyboard string
	Timezone string
	Mirror   string
	Packages []string
	// Build stamps the image, as YYMMDD
	Build string
}

var buildTemplate = template.Must(template.New("build").Parse(`[Image]
Architecture: amd64
Archive-Areas: main contrib non-free non-free-firmware
Distribution-Chroot: {{.Codename}}
Distribution-Binary: {{.Codename}}
Mirror-Bootstrap: {{.Mirror}}

[FIXME]
Configuration-Version: 1:{{.Build}}
Name: {{.Codename}}-custom
`))

var autoConfigTemplate = template.Must(template.New("auto/config").Parse(`#!/bin/sh

set -e

lb config noauto \
    --architectures "amd64" \
    --distribution "{{.Codename}}" \
    --linux-flavours "amd64" \
    --archive-areas "main contrib non-free non-free-firmware" \
    --linux-packages "linux-image" \
    --firmware-binary "true" \
    --firmware-chroot "true" \
    --ignore-system-defaults \
    --bootappend-live "boot=live persistence components autologin \
        username={{.User}} user-fullname={{.User}} hostname={{.Hostname}} \
        keyboard-layouts={{.Keyboard}} keyboard-model=pc105 timezone={{.Timezone}} utc=yes" \
    --debian-installer "live" \
    --debian-installer-gui "true" \
    "${@}"
`))

// Render fills the build and auto/config templates
func (s LiveSettings) Render() (build, autoConfig []byte, err error) {
	var b, a bytes.Buffer
	if err := buildTemplate.Execute(&b, s); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrInternal, "cannot render live-build config")
	}
	if err := autoConfigTemplate.Execute(&a, s); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrInternal, "cannot render auto/config")
	}
	return b.Bytes(), a.Bytes(), nil
}

// ValidLiveUser checks a live session user name
func ValidLiveUser(name string) error {
	if !liveUser.MatchString(name) {
		return errors.Newf(errors.ErrInvalidInput, "Invalid username '%s'", name)
	}
	return nil
}

// AskLive asks for codename, hostname and user until the operator confirms
func (c *Creator) AskLive() (LiveSettings, error) {
	codenames := []string{c.releases.Stable, c.releases.Testing, "sid"}
	for attempt := 0; attempt < 3; attempt++ {
		choice, err := c.asker.Choose("Available Debian codenames:", codenames, 0)
		if err != nil {
			return LiveSettings{}, err
		}
		s := LiveSettings{
			Codename: codenames[choice],
			Keyboard: c.cfg.Live.Keyboard,
			Timezone: c.cfg.Live.Timezone,
			Mirror:   c.cfg.Live.Mirror,
			Packages: c.cfg.Live.Packages,
			Build:    c.Now().Format("060102"),
		}

		s.Hostname, err = c.asker.Input("Custom live hostname", s.Codename+"-custom", func(v string) error {
			if !system.ValidHostname(v) {
				return errors.Newf(errors.ErrInvalidInput, "Invalid hostname '%s'", v)
			}
			return nil
		})
		if err != nil {
			return LiveSettings{}, err
		}
		s.User, err = c.asker.Input("Custom live username", c.cfg.Live.DefaultUser, ValidLiveUser)
		if err != nil {
			return LiveSettings{}, err
		}

		c.printer.Heading("Custom Debian live settings:")
		c.printer.Field("  - Codename", 12, s.Codename)
		c.printer.Field("  - Hostname", 12, s.Hostname)
		c.printer.Field("  - User", 12, s.User)
		ok, err := c.asker.YesNo("Confirm configuration", true)
		if err != nil {
			return LiveSettings{}, err
		}
		if ok {
			return s, nil
		}
	}
	return LiveSettings{}, errors.New(errors.ErrDeclined, "Custom live configuration not confirmed")
}

// WorkFolder is where the image of s is built
func (c *Creator) WorkFolder(s LiveSettings) string {
	return filepath.Join(c.cfg.WorkDir, s.Codename+"_livebuild_"+s.Build)
}

// BuildLive prepares a live-build tree, runs lb config and lb build and
// returns the produced ISO
func (c *Creator) BuildLive(ctx context.Context, s LiveSettings) (string, error) {
	c.printer.Warn("Grab a tea. It will take some time...")
	c.printer.Info("Preparing build...")

	work := c.WorkFolder(s)
	if err := c.fs.RemoveAll(work); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileWrite, "cannot clean %s", work)
	}
	if err := c.fs.MkdirAll(filepath.Join(work, "config", "package-lists"), 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", work)
	}

	build, autoConfig, err := s.Render()
	if err != nil {
		return "", err
	}

	auto := filepath.Join(work, "auto")
	if _, err := c.fs.Stat(LiveBuildExamples); err == nil {
		c.mirror.Overwrite(LiveBuildExamples, auto)
	}
	if err := c.fs.MkdirAll(auto, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", auto)
	}

	files := []struct {
		path string
		data []byte
		perm os.FileMode
	}{
		{filepath.Join(work, "config", "package-lists", "live.list.chroot"), []byte(strings.Join(s.Packages, "\n") + "\n"), 0644},
		{filepath.Join(work, "config", "build"), build, 0644},
		{filepath.Join(auto, "config"), autoConfig, 0755},
	}
	for _, f := range files {
		if err := c.fs.WriteFile(f.path, f.data, f.perm); err != nil {
			return "", errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", f.path)
		}
		if err := c.fs.Chmod(f.path, f.perm); err != nil {
			return "", errors.Wrapf(err, errors.ErrFileWrite, "cannot chmod %s", f.path)
		}
	}

	c.printer.Info("Building ISO image...")
	for _, args := range [][]string{{"config"}, {"build"}} {
		cmd := execx.Live("lb", args...)
		cmd.Dir = work
		if _, err := c.runner.Run(ctx, cmd); err != nil {
			return "", errors.Wrap(err, errors.ErrCommandFailed, "Failed to build custom ISO image")
		}
	}

	entries, err := c.fs.ReadDir(work)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "cannot list %s", work)
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".iso" {
			iso := filepath.Join(work, e.Name())
			c.printer.OK("ISO image built: '%s'", iso)
			return iso, nil
		}
	}
	return "", errors.Newf(errors.ErrNotFound, "Can not find ISO image in '%s'", work)
}
