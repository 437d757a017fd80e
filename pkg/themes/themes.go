// Package themes installs GTK and cursor themes from their git
// repositories by running the install script each of them ships.
package themes

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/mirror"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/rs/zerolog"
)

// Kind tells GTK themes, which need build prerequisites and accept a
// color variant, from cursor themes
type Kind int

const (
	GTK Kind = iota
	Cursors
)

// Prerequisites installs missing packages
type Prerequisites interface {
	Ensure(ctx context.Context, pkgs []string) error
}

// Updater refreshes the configured themes
type Updater struct {
	cfg     config.Themes
	git     *mirror.Git
	prereq  Prerequisites
	runner  execx.Runner
	printer *style.Printer
	logger  zerolog.Logger
}

// New creates an updater
func New(cfg config.Themes, git *mirror.Git, prereq Prerequisites, runner execx.Runner, printer *style.Printer) *Updater {
	return &Updater{
		cfg:     cfg,
		git:     git,
		prereq:  prereq,
		runner:  runner,
		printer: printer,
		logger:  logging.GetLogger("themes"),
	}
}

// ValidColor accepts an empty color or one of the two variants
func ValidColor(color string) error {
	switch color {
	case "", "dark", "light":
		return nil
	}
	return errors.Newf(errors.ErrInvalidInput, "Invalid color '%s'", color)
}

// Run installs every configured theme. A failing theme is reported and the
// others are still installed.
func (u *Updater) Run(ctx context.Context) error {
	failed := 0
	install := func(t config.Theme, kind Kind) {
		if err := u.Install(ctx, t, kind); err != nil {
			u.printer.Error("%s", execx.Describe(err))
			failed++
		}
	}
	for _, t := range u.cfg.GTK {
		install(t, GTK)
	}
	for _, t := range u.cfg.Cursors {
		install(t, Cursors)
	}
	if failed > 0 {
		return errors.Newf(errors.ErrCommandFailed, "%d theme(s) failed to update", failed)
	}
	return nil
}

// Install syncs one theme repository into the work dir and runs its
// install.sh
func (u *Updater) Install(ctx context.Context, t config.Theme, kind Kind) error {
	if kind == GTK {
		if err := ValidColor(t.Color); err != nil {
			return err
		}
	}

	url := strings.TrimSuffix(u.cfg.BaseURL, "/") + "/" + t.Name + ".git"
	folder := filepath.Join(u.cfg.WorkDir, t.Name)
	state, err := u.git.Sync(ctx, url, folder)
	if err != nil {
		return err
	}
	u.logger.Debug().Str("theme", t.Name).Str("state", string(state)).Msg("Theme repository synced")

	cmd := execx.Cmd(filepath.Join(folder, "install.sh"))
	cmd.Dir = folder
	if kind == GTK {
		if err := u.prereq.Ensure(ctx, u.cfg.GTKPrerequisites); err != nil {
			return err
		}
		if t.Color != "" {
			cmd.Args = []string{"-c", t.Color}
		}
	}
	if _, err := u.runner.Run(ctx, cmd); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "%s failed to install", t.Name)
	}
	u.printer.OK("%s updated", t.Name)
	return nil
}
