package toolz

import (
	"context"
	"os"
	"path/filepath"

	"github.com/choopsit/toolz/pkg/backup"
	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/debpkg"
	"github.com/choopsit/toolz/pkg/deploy"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/mirror"
	"github.com/choopsit/toolz/pkg/sysinfo"
	"github.com/choopsit/toolz/pkg/themes"
	"github.com/choopsit/toolz/pkg/upgrade"
	"github.com/spf13/cobra"
)

func (a *app) backup() *backup.Backup {
	return backup.New(a.cfg.Backup, a.fs, a.runner, a.asker, a.printer, a.profile)
}

func (a *app) themes() (*themes.Updater, error) {
	r, err := a.resolver()
	if err != nil {
		return nil, err
	}
	return themes.New(a.cfg.Themes, mirror.NewGit(a.runner, a.fs), r, a.runner, a.printer), nil
}

func (a *app) fetch(ctx context.Context) sysinfo.Fetch {
	return sysinfo.NewCollector(a.fs, a.runner, a.profile).Collect(ctx, sysinfo.Env{
		Shell:   os.Getenv("SHELL"),
		Desktop: os.Getenv("XDG_CURRENT_DESKTOP"),
	})
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "backup [DEST]",
		Short:   MsgBackupShort,
		Long:    MsgBackupLong,
		GroupID: "files",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := a.cfg.Backup.Folder
			if len(args) == 1 {
				dest = args[0]
			}
			if dest == "" {
				return errors.New(errors.ErrInvalidInput, MsgErrNoBackupDest)
			}
			if err := a.ensure(cmd, a.cfg.Backup.Prerequisites...); err != nil {
				return err
			}

			b := a.backup()
			if err := b.CheckDestination(dest); err != nil {
				return err
			}
			_, err := b.Run(cmd.Context(), dest)
			return err
		},
	}
}

func newFullUpdateCmd(a *app) *cobra.Command {
	var obsolete bool
	cmd := &cobra.Command{
		Use:     "fullupdate",
		Short:   MsgFullUpdateShort,
		Long:    MsgFullUpdateLong,
		GroupID: "system",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apt, err := a.apt()
			if err != nil {
				return err
			}

			opts := upgrade.Options{
				CleanObsolete: obsolete,
				Yes:           a.yes,
				BackupFolder:  a.cfg.Backup.Folder,
				Backup: func(ctx context.Context, folder string) error {
					if err := a.ensure(cmd, a.cfg.Backup.Prerequisites...); err != nil {
						return err
					}
					_, err := a.backup().Run(ctx, folder)
					return err
				},
				Info: func(ctx context.Context) error {
					sysinfo.PrintFetch(a.printer, a.fetch(ctx))
					return nil
				},
			}
			if a.profile.IsRoot() {
				opts.Themes = func(ctx context.Context) error {
					u, err := a.themes()
					if err != nil {
						return err
					}
					return u.Run(ctx)
				}
			}

			return upgrade.New(apt, a.fs, a.printer, a.profile).Run(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVarP(&obsolete, "obsolete", "o", false, MsgFlagObsolete)
	return cmd
}

// sudoUser is the operator behind sudo, or the current user
func (a *app) sudoUser() (string, string) {
	if user := os.Getenv("SUDO_USER"); user != "" && user != "root" {
		return user, filepath.Join("/home", user)
	}
	return a.profile.User, a.profile.Home
}

func newDeployCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "deploy [SRC]",
		Short:       MsgDeployShort,
		GroupID:     "files",
		Args:        cobra.MaximumNArgs(1),
		Annotations: rootOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "."
			if len(args) == 1 {
				src = args[0]
			}
			user, home := a.sudoUser()
			d := deploy.New(a.cfg.Deploy, a.fs, mirror.New(a.fs), a.rules(), a.printer)
			_, err := d.Run(src, user, home)
			return err
		},
	}
}

func newPkgBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "pkgbuild FOLDER",
		Short:       MsgPkgBuildShort,
		GroupID:     "system",
		Args:        cobra.ExactArgs(1),
		Annotations: rootOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := debpkg.New(a.fs, a.runner, mirror.New(a.fs), a.printer).Build(cmd.Context(), args[0])
			return err
		},
	}
}

func newThemesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "themes",
		Short:       MsgThemesShort,
		GroupID:     "system",
		Args:        cobra.NoArgs,
		Annotations: rootOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensure(cmd, "git"); err != nil {
				return err
			}
			u, err := a.themes()
			if err != nil {
				return err
			}
			a.printer.Heading("Themes upgrade:")
			return u.Run(cmd.Context())
		},
	}
}

func newStatMyGitsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "statmygits [STOCK]",
		Short:   MsgStatMyGitsShort,
		GroupID: "files",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stock := config.HomePath(a.profile.Home, a.cfg.Git.Stock)
			if len(args) == 1 {
				stock = args[0]
			}
			if err := a.ensure(cmd, "git"); err != nil {
				return err
			}
			statuses, err := mirror.NewGit(a.runner, a.fs).StatusAll(cmd.Context(), stock)
			if err != nil {
				return err
			}
			mirror.PrintStatus(a.printer, statuses)
			return nil
		},
	}
}
