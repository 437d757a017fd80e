package usbkey

import (
	"context"
	"strconv"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/system"
)

// DevicePath turns "sdb" or "/dev/sdb" into "/dev/sdb"
func DevicePath(name string) string {
	if strings.HasPrefix(name, "/dev/") {
		return name
	}
	return "/dev/" + strings.TrimPrefix(name, "/")
}

// CheckDevice makes sure the device exists and holds nothing in use: no
// mounted partition, no LVM physical volume, no btrfs member
func (c *Creator) CheckDevice(ctx context.Context, name string) (string, error) {
	dev := DevicePath(name)
	if _, err := c.fs.Stat(dev); err != nil {
		return "", errors.Newf(errors.ErrNotFound, "No device '%s' available", name)
	}

	mounted, err := system.DeviceMounted(c.fs, dev)
	if err != nil {
		return "", err
	}
	if mounted {
		return "", errors.Newf(errors.ErrInvalidInput, "'%s' is mounted", name)
	}

	res, err := c.runner.Run(ctx, execx.Cmd("pvs", "--noheadings", "-o", "pv_name"))
	if err != nil {
		return "", err
	}
	if strings.Contains(res.Stdout, dev) {
		return "", errors.Newf(errors.ErrInvalidInput, "'%s' is used for LVM", name)
	}

	res, err = c.runner.Run(ctx, execx.Cmd("btrfs", "filesystem", "show"))
	if err != nil {
		return "", err
	}
	if strings.Contains(res.Stdout, dev) {
		return "", errors.Newf(errors.ErrInvalidInput, "'%s' is used for btrfs volume", name)
	}
	return dev, nil
}

// partitions lists the existing numbered partitions of dev, highest first
func (c *Creator) partitions(dev string) []string {
	var parts []string
	for i := 1; i <= 16; i++ {
		p := dev + strconv.Itoa(i)
		if _, err := c.fs.Stat(p); err != nil {
			break
		}
		parts = append([]string{p}, parts...)
	}
	return parts
}

// Wipe clears partition and device signatures so the image starts clean
func (c *Creator) Wipe(ctx context.Context, dev string) error {
	parts := c.partitions(dev)
	if len(parts) == 0 {
		return nil
	}
	c.printer.Info("Cleaning USB key...")
	for _, p := range append(parts, dev) {
		if _, err := c.runner.Run(ctx, execx.Cmd("wipefs", "-a", p)); err != nil {
			return err
		}
	}
	_, err := c.runner.Run(ctx, execx.Cmd("partprobe", dev))
	return err
}
