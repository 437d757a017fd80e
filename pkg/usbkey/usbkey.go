// Package usbkey writes bootable USB keys: a downloaded installer or live
// ISO from the configured catalog, or a custom Debian live image built on
// the spot with live-build.
package usbkey

import (
	"context"
	"path/filepath"
	"time"

	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/mirror"
	"github.com/choopsit/toolz/pkg/prompt"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// CustomLive is the catalog entry building a live image locally
const CustomLive = "Custom Debian live"

// Creator writes images to a device
type Creator struct {
	cfg      config.USBKey
	releases system.Releases
	fs       types.FS
	runner   execx.Runner
	asker    prompt.Asker
	printer  *style.Printer
	mirror   *mirror.Mirror
	download *Downloader
	logger   zerolog.Logger

	Now func() time.Time
}

// New creates a creator
func New(cfg config.USBKey, releases system.Releases, fsys types.FS, runner execx.Runner,
	asker prompt.Asker, printer *style.Printer, download *Downloader) *Creator {
	return &Creator{
		cfg:      cfg,
		releases: releases,
		fs:       fsys,
		runner:   runner,
		asker:    asker,
		printer:  printer,
		mirror:   mirror.New(fsys),
		download: download,
		logger:   logging.GetLogger("usbkey"),
		Now:      time.Now,
	}
}

// Formats lists the catalog labels offered to the operator, the custom
// live build last
func (c *Creator) Formats() []string {
	formats := make([]string, 0, len(c.cfg.Images)+1)
	for _, img := range c.cfg.Images {
		formats = append(formats, img.Name)
	}
	return append(formats, CustomLive)
}

// Run checks the device, asks for a format and writes it. live skips the
// question and goes straight to the custom build.
func (c *Creator) Run(ctx context.Context, device string, live bool) error {
	dev, err := c.CheckDevice(ctx, device)
	if err != nil {
		return err
	}

	choice := len(c.cfg.Images)
	if !live {
		choice, err = c.asker.Choose("Available bootable USB key format:", c.Formats(), -1)
		if err != nil {
			return err
		}
	}
	if choice < len(c.cfg.Images) {
		return c.WriteImage(ctx, c.cfg.Images[choice], dev)
	}

	settings, err := c.AskLive()
	if err != nil {
		return err
	}
	iso, err := c.BuildLive(ctx, settings)
	if err != nil {
		return err
	}
	if err := c.Deploy(ctx, iso, dev); err != nil {
		return err
	}
	c.printer.OK("USB key is ready")
	return nil
}

// WriteImage downloads a catalog image and copies it to dev
func (c *Creator) WriteImage(ctx context.Context, img config.Image, dev string) error {
	iso := filepath.Join(c.cfg.WorkDir, img.File)
	label := img.Name + " " + img.Version

	c.printer.Info("Downloading %s ISO...", label)
	if err := c.download.Download(ctx, img.URL, iso); err != nil {
		return err
	}

	c.printer.Info("Creating %s bootable USB key...", label)
	if err := c.dd(ctx, iso, dev); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "Failed to create %s USB key", label)
	}
	c.printer.OK("Bootable %s USB key created", label)
	return nil
}

// Deploy wipes dev and copies iso onto it
func (c *Creator) Deploy(ctx context.Context, iso, dev string) error {
	if err := c.Wipe(ctx, dev); err != nil {
		return err
	}
	c.printer.Info("Putting iso image '%s' on '%s'...", iso, dev)
	if err := c.dd(ctx, iso, dev); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "Failed to deploy '%s' on '%s'", iso, dev)
	}
	c.printer.OK("'%s' deployed on '%s'", iso, dev)
	return nil
}

func (c *Creator) dd(ctx context.Context, iso, dev string) error {
	bs := c.cfg.BlockSize
	if bs == "" {
		bs = "4M"
	}
	_, err := c.runner.Run(ctx, execx.Live("dd", "bs="+bs, "if="+iso, "of="+dev, "conv=fdatasync", "status=progress"))
	return err
}
