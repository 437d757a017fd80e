package sysinfo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/pkgmgr"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"golang.org/x/sys/unix"
)

// Kernel and desktop files read by fetch
const (
	ProcUptime  = "/proc/uptime"
	ProcMeminfo = "/proc/meminfo"
	ProcCPUInfo = "/proc/cpuinfo"
	XSettings   = ".config/xfce4/xfconf/xfce-perchannel-xml/xsettings.xml"
)

// Fetch is the system summary printed by fetch
type Fetch struct {
	User      string
	Host      string
	OS        string
	Kernel    string
	Uptime    time.Duration
	Packages  int
	Shell     string
	Desktop   string
	GTKTheme  string
	IconTheme string
	CPU       string
	Threads   int
	MemUsed   uint64
	MemTotal  uint64
	Root      Usage
}

// Env is the subset of the process environment fetch looks at
type Env struct {
	Shell   string
	Desktop string
}

// Collector gathers a Fetch from the live system
type Collector struct {
	fs      types.FS
	runner  execx.Runner
	profile *system.Profile
	stat    StatFunc
	uname   func() (string, string)
}

// NewCollector creates a collector reading the running kernel
func NewCollector(fsys types.FS, runner execx.Runner, profile *system.Profile) *Collector {
	return &Collector{fs: fsys, runner: runner, profile: profile, stat: Statfs, uname: Uname}
}

// Uname returns the kernel release and machine architecture
func Uname() (string, string) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", ""
	}
	return unix.ByteSliceToString(u.Release[:]), unix.ByteSliceToString(u.Machine[:])
}

// Collect builds the summary. Missing sources leave their field empty.
func (c *Collector) Collect(ctx context.Context, env Env) Fetch {
	release, machine := c.uname()
	f := Fetch{
		User:    c.profile.User,
		Host:    c.profile.Hostname,
		OS:      strings.TrimSpace(c.profile.PrettyName + " " + machine),
		Kernel:  release,
		Desktop: env.Desktop,
	}
	if env.Shell != "" {
		f.Shell = filepath.Base(env.Shell)
	}

	if data, err := c.fs.ReadFile(ProcUptime); err == nil {
		f.Uptime = ParseUptime(data)
	}
	if data, err := c.fs.ReadFile(ProcMeminfo); err == nil {
		f.MemTotal, f.MemUsed = ParseMeminfo(data)
	}
	if data, err := c.fs.ReadFile(ProcCPUInfo); err == nil {
		f.CPU, f.Threads = ParseCPUInfo(data)
	}
	if res, err := c.runner.Run(ctx, execx.Cmd("dpkg", "-l")); err == nil {
		f.Packages = len(pkgmgr.ParseDpkgList(res.Stdout, pkgmgr.StatusInstalled))
	}
	if data, err := c.fs.ReadFile(filepath.Join(c.profile.Home, XSettings)); err == nil {
		f.GTKTheme, f.IconTheme = ParseXSettings(data)
	}
	if u, err := c.stat("/"); err == nil {
		f.Root = u
	}
	return f
}

// ParseUptime reads the first field of /proc/uptime
func ParseUptime(data []byte) time.Duration {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ParseMeminfo returns total and used memory in bytes
func ParseMeminfo(data []byte) (uint64, uint64) {
	values := map[string]uint64{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		kb, err := strconv.ParseUint(fields[0], 10, 64)
		if err == nil {
			values[key] = kb * 1024
		}
	}
	total := values["MemTotal"]
	avail, ok := values["MemAvailable"]
	if !ok {
		avail = values["MemFree"] + values["Buffers"] + values["Cached"]
	}
	if avail > total {
		return total, 0
	}
	return total, total - avail
}

// ParseCPUInfo returns the CPU model and its thread count
func ParseCPUInfo(data []byte) (string, int) {
	var model string
	threads := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "model name" {
			continue
		}
		threads++
		model = strings.TrimSpace(value)
	}
	return model, threads
}

// ParseXSettings extracts the GTK and icon theme names from an xfconf
// xsettings channel
func ParseXSettings(data []byte) (string, string) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", ""
	}
	var gtk, icons string
	for _, p := range doc.FindElements("//property[@name='Net']/property") {
		switch p.SelectAttrValue("name", "") {
		case "ThemeName":
			gtk = p.SelectAttrValue("value", "")
		case "IconThemeName":
			icons = p.SelectAttrValue("value", "")
		}
	}
	return gtk, icons
}

// FormatUptime renders d as "3 days, 4:05:06"
func FormatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	rest := d - time.Duration(days)*24*time.Hour
	h := int(rest.Hours())
	m := int(rest.Minutes()) % 60
	s := int(rest.Seconds()) % 60
	clock := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	}
	return fmt.Sprintf("%d days, %s", days, clock)
}

// PrintFetch renders the summary
func PrintFetch(p *style.Printer, f Fetch) {
	p.Printf("%s@%s\n", p.Render("Warning", f.User), p.Render("Warning", f.Host))
	p.Field("OS", 9, f.OS)
	p.Field("Kernel", 9, f.Kernel)
	p.Field("Uptime", 9, FormatUptime(f.Uptime))
	p.Field("Packages", 9, strconv.Itoa(f.Packages))
	p.Field("Shell", 9, f.Shell)
	if f.Desktop != "" {
		p.Field("DE", 9, f.Desktop)
	}
	if f.GTKTheme != "" || f.IconTheme != "" {
		p.Field("Icons", 9, f.IconTheme)
		p.Field("GTK-theme", 9, f.GTKTheme)
	}
	if f.CPU != "" {
		p.Field("CPU", 9, fmt.Sprintf("%s (%d threads)", f.CPU, f.Threads))
	}
	if f.MemTotal > 0 {
		pct := float64(f.MemUsed) * 100 / float64(f.MemTotal)
		p.Field("Memory", 9, fmt.Sprintf("%s %dMiB/%dMiB", p.Bar(pct, 20), f.MemUsed>>20, f.MemTotal>>20))
	}
	if f.Root.Total > 0 {
		p.Field("Disk", 9, fmt.Sprintf("%s %s", p.Bar(float64(f.Root.Percent()), 20), FormatUsageLine(f.Root)))
	}
	p.Println()
}
