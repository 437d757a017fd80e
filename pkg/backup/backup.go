package backup

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/prompt"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// Group is one set of sources saved together and reported on one line
type Group struct {
	Name    string
	Sources []string
	Saved   []string
	Errors  int
}

// Report is the outcome of a backup run
type Report struct {
	Folder string
	Groups []Group
}

// Errors sums the failures of every group
func (r Report) Errors() int {
	n := 0
	for _, g := range r.Groups {
		n += g.Errors
	}
	return n
}

// Backup mirrors home and configuration files into a dated folder with rsync
type Backup struct {
	cfg     config.Backup
	fs      types.FS
	runner  execx.Runner
	asker   prompt.Asker
	printer *style.Printer
	profile *system.Profile
	logger  zerolog.Logger

	// Now is replaced in tests
	Now func() time.Time
}

// New creates a backup runner
func New(cfg config.Backup, fsys types.FS, runner execx.Runner, asker prompt.Asker, printer *style.Printer, profile *system.Profile) *Backup {
	return &Backup{
		cfg:     cfg,
		fs:      fsys,
		runner:  runner,
		asker:   asker,
		printer: printer,
		profile: profile,
		logger:  logging.GetLogger("backup"),
		Now:     time.Now,
	}
}

// CheckDestination refuses system paths and offers to create a missing
// destination, world-writable so every user can back up into it
func (b *Backup) CheckDestination(dest string) error {
	clean := filepath.Clean(dest)
	for _, f := range b.cfg.Forbidden {
		if clean == filepath.Clean(f) {
			return errors.Newf(errors.ErrInvalidInput, "Invalid folder '%s'", dest).WithDetail("folder", dest)
		}
	}

	info, err := b.fs.Stat(clean)
	if err == nil {
		if !info.IsDir() {
			return errors.Newf(errors.ErrInvalidInput, "'%s' exists but is not a folder", dest)
		}
		return nil
	}

	b.printer.Warn("'%s' does not exist yet", dest)
	ok, err := b.asker.YesNo("Create it", true)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(errors.ErrDeclined, "'%s' not created", dest)
	}
	if err := b.fs.MkdirAll(clean, 0777); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", dest)
	}
	if err := b.fs.Chmod(clean, 0777); err != nil {
		return errors.Wrapf(err, errors.ErrPermission, "cannot chmod %s", dest)
	}
	return nil
}

// Folder returns <dest>/<YYMM>_<hostname>
func (b *Backup) Folder(dest string) string {
	return filepath.Join(dest, b.Now().Format("0601")+"_"+b.profile.Hostname)
}

// Groups lists what a run saves for the current user and host
func (b *Backup) Groups() []Group {
	home := Group{Name: "home"}
	for _, item := range b.cfg.HomeItems {
		home.Sources = append(home.Sources, filepath.Join(b.profile.Home, item))
	}
	groups := []Group{home, {Name: "config", Sources: b.cfg.ConfigFiles}}
	if extra := b.cfg.Extra[b.profile.Hostname]; len(extra) > 0 {
		groups = append(groups, Group{Name: "extra", Sources: extra})
	}
	return groups
}

// Run saves every existing source below the dated folder, mirroring its
// parent path. A failing item is counted and the run goes on.
func (b *Backup) Run(ctx context.Context, dest string) (Report, error) {
	done := logging.LogOperationStart(b.logger, "backup")
	defer done()

	report := Report{Folder: b.Folder(dest)}
	if err := b.fs.MkdirAll(report.Folder, 0755); err != nil {
		return report, errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", report.Folder)
	}

	for _, g := range b.Groups() {
		for _, src := range g.Sources {
			if _, err := b.fs.Lstat(src); err != nil {
				continue
			}
			g.Saved = append(g.Saved, src)
			if err := b.save(ctx, src, report.Folder); err != nil {
				b.logger.Warn().Err(err).Str("src", src).Msg("backup item failed")
				g.Errors++
			}
		}
		report.Groups = append(report.Groups, g)
		b.print(report.Folder, g)
	}
	return report, nil
}

func (b *Backup) save(ctx context.Context, src, folder string) error {
	dst := filepath.Join(folder, filepath.Dir(src))
	if err := b.fs.MkdirAll(dst, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create %s", dst)
	}
	args := append(append([]string{}, b.cfg.RsyncFlags...), src, dst+"/")
	_, err := b.runner.Run(ctx, execx.Cmd("rsync", args...))
	return err
}

func (b *Backup) print(folder string, g Group) {
	count := b.printer.Render("OK", "0")
	if g.Errors > 0 {
		count = b.printer.Render("Error", strconv.Itoa(g.Errors))
	}
	switch g.Name {
	case "home":
		b.printer.OK("%s's home backed up in '%s' with %s error(s)", b.profile.User, folder+b.profile.Home, count)
	case "config":
		b.printer.OK("Config files backed up in '%s' with %s error(s)", folder, count)
	default:
		if len(g.Saved) == 0 {
			return
		}
		b.printer.OK("'%s' backed up in '%s' with %s error(s)", strings.Join(g.Saved, "', '"), folder, count)
	}
}
