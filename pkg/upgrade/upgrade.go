package upgrade

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/rs/zerolog"
)

// PackageManager is what a full upgrade needs from apt
type PackageManager interface {
	Upgrade(ctx context.Context, yes bool) error
	PurgeObsolete(ctx context.Context, yes bool) error
	Clean(ctx context.Context, yes bool) error
}

// Hook is an optional stage run after the package upgrade
type Hook func(ctx context.Context) error

// Options select the optional stages
type Options struct {
	CleanObsolete bool
	// Yes answers apt's questions
	Yes bool
	// BackupFolder is only backed up to when it is a mount point
	BackupFolder string

	Themes Hook
	Backup func(ctx context.Context, folder string) error
	Info   Hook
}

// Upgrader runs the full update sequence
type Upgrader struct {
	pkgs    PackageManager
	fs      types.FS
	printer *style.Printer
	profile *system.Profile
	logger  zerolog.Logger
}

// New creates an upgrader
func New(pkgs PackageManager, fsys types.FS, printer *style.Printer, profile *system.Profile) *Upgrader {
	return &Upgrader{
		pkgs:    pkgs,
		fs:      fsys,
		printer: printer,
		profile: profile,
		logger:  logging.GetLogger("upgrade"),
	}
}

// Run upgrades the system, cleans up, then runs the enabled hooks. A failing
// hook is reported and the next one still runs.
func (u *Upgrader) Run(ctx context.Context, opts Options) error {
	u.printer.Heading("System upgrade:")
	if err := u.pkgs.Upgrade(ctx, opts.Yes); err != nil {
		return err
	}
	if opts.CleanObsolete {
		if err := u.pkgs.PurgeObsolete(ctx, true); err != nil {
			return err
		}
	}
	if err := u.pkgs.Clean(ctx, opts.Yes); err != nil {
		return err
	}
	if err := u.RemoveXSessionFiles(); err != nil {
		u.printer.Warn("%s", errors.Message(err))
	}
	u.printer.Println()

	var failed int
	if opts.Themes != nil {
		u.printer.Heading("Themes upgrade:")
		if err := opts.Themes(ctx); err != nil {
			u.printer.Error("%s", errors.Message(err))
			failed++
		}
	}
	if opts.Backup != nil && opts.BackupFolder != "" {
		u.printer.Heading("Backup:")
		if err := u.backup(ctx, opts); err != nil {
			u.printer.Error("%s", errors.Message(err))
			failed++
		}
	}
	if opts.Info != nil {
		u.printer.Heading("System informations:")
		if err := opts.Info(ctx); err != nil {
			u.printer.Error("%s", errors.Message(err))
			failed++
		}
	}

	if failed > 0 {
		return errors.Newf(errors.ErrCommandFailed, "%d post-upgrade stage(s) failed", failed)
	}
	return nil
}

func (u *Upgrader) backup(ctx context.Context, opts Options) error {
	mounted, err := system.IsMountPoint(u.fs, opts.BackupFolder)
	if err != nil {
		return err
	}
	if !mounted {
		return errors.Newf(errors.ErrNotFound, "'%s' not mounted", opts.BackupFolder)
	}
	return opts.Backup(ctx, opts.BackupFolder)
}

// RemoveXSessionFiles deletes ~/.xsession-errors and friends
func (u *Upgrader) RemoveXSessionFiles() error {
	entries, err := u.fs.ReadDir(u.profile.Home)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot list %s", u.profile.Home)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".xsession") {
			continue
		}
		p := filepath.Join(u.profile.Home, e.Name())
		if err := u.fs.Remove(p); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "cannot remove %s", p)
		}
		u.logger.Debug().Str("file", p).Msg("removed")
	}
	return nil
}
