package sysinfo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"golang.org/x/sys/unix"
)

var (
	diskFS = regexp.MustCompile(`^(ext.*|btrfs|lvm.*|xfs|zfs|ntfs.*|vfat|exfat|fuseblk|nfs|nfs4|cifs)$`)
	tmpFS  = regexp.MustCompile(`^.*tmpfs$`)
)

// Usage is the space accounting of one filesystem in bytes
type Usage struct {
	Total uint64
	Free  uint64
	Used  uint64
}

// Percent returns used space as an integer percentage
func (u Usage) Percent() int {
	if u.Total == 0 {
		return 0
	}
	return int(u.Used * 100 / u.Total)
}

// StatFunc reports the usage of the filesystem holding path
type StatFunc func(path string) (Usage, error)

// Statfs asks the kernel for filesystem usage
func Statfs(path string) (Usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Usage{}, errors.Wrapf(err, errors.ErrFileAccess, "statfs %s", path)
	}
	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	free := st.Bavail * bsize
	return Usage{Total: total, Free: free, Used: total - st.Bfree*bsize}, nil
}

// Filesystem is a mounted filesystem with its usage
type Filesystem struct {
	system.Mount
	Usage
}

// Filesystems lists the mounted disk filesystems, plus tmpfs ones when all
// is set
func Filesystems(fsys types.FS, stat StatFunc, all bool) ([]Filesystem, error) {
	mounts, err := system.ReadMounts(fsys)
	if err != nil {
		return nil, err
	}
	var out []Filesystem
	for _, m := range mounts {
		if !diskFS.MatchString(m.FSType) && !(all && tmpFS.MatchString(m.FSType)) {
			continue
		}
		u, err := stat(m.Point)
		if err != nil || u.Total == 0 {
			continue
		}
		out = append(out, Filesystem{Mount: m, Usage: u})
	}
	return out, nil
}

// HumanSize formats a byte count in GB, or TB past 1024 GB, like the
// other figures of the df line
func HumanSize(total uint64) (string, float64) {
	factor := float64(1 << 30)
	if float64(total)/factor > 1024 {
		return "TB", factor * 1024
	}
	return "GB", factor
}

// PrintFilesystems renders one block per filesystem with a usage bar
func PrintFilesystems(p *style.Printer, list []Filesystem) {
	p.Heading("Filesystems:")
	for _, f := range list {
		unit, factor := HumanSize(f.Total)
		total := float64(f.Total) / factor
		used := float64(f.Used) / factor
		free := float64(f.Free) / factor

		p.Printf("-%s:\n", p.Render("Key", f.Device))
		p.Printf("  %s %s\t%s %s\n", p.Render("Key", "type:"), f.FSType, p.Render("Key", "mounted on:"), f.Point)

		share := fmt.Sprintf("%.1f/%.1f%s", used, total, unit)
		p.Printf("  %s %3d%% %13s - %8s free\n",
			p.Bar(float64(f.Percent()), 40), f.Percent(), share, fmt.Sprintf("%.1f%s", free, unit))
	}
	p.Println()
}

// FormatUsageLine is the plain text of the bar line, used by fetch for the
// root filesystem
func FormatUsageLine(u Usage) string {
	unit, factor := HumanSize(u.Total)
	return strings.TrimSpace(fmt.Sprintf("%.1f/%.1f%s (%d%%)",
		float64(u.Used)/factor, float64(u.Total)/factor, unit, u.Percent()))
}
