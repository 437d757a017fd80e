package toolz

import (
	"fmt"
	"os"

	"github.com/choopsit/toolz/internal/version"
	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/confpatch"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/mirror"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/spf13/cobra"
)

// showHelp runs command groups, so unknown subcommands are errors
func showHelp(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// reportState prints whether name was changed
func (a *app) reportState(name string, state types.State) {
	if state.Changed() {
		a.printer.OK(MsgPatched, name)
		return
	}
	a.printer.Info(MsgInSync, name)
}

func newPrereqCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "prereq PACKAGE...",
		Short:   MsgPrereqShort,
		GroupID: "system",
		Args:    cobra.MinimumNArgs(1),
		Example: "  toolz prereq rsync git",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}
			state, err := r.Reconcile(cmd.Context(), args)
			if err != nil {
				return err
			}
			if !state.Changed() {
				a.printer.OK(MsgPrereqOK)
			}
			return nil
		},
	}
}

func newPatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patch",
		Short:   MsgPatchShort,
		Long:    MsgPatchLong,
		GroupID: "files",
		Args:    cobra.NoArgs,
		RunE:    showHelp,
	}

	var prefix string
	ensure := &cobra.Command{
		Use:     "ensure-line FILE LINE",
		Short:   MsgEnsureLineShort,
		Args:    cobra.ExactArgs(2),
		Example: "  toolz patch ensure-line /etc/sysctl.d/99-swappiness.conf vm.swappiness=5 --prefix vm.swappiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, line := args[0], args[1]
			pred := confpatch.Equals(line)
			if prefix != "" {
				pred = confpatch.HasPrefix(prefix)
			}
			state, err := confpatch.New(a.fs, os.TempDir()).EnsureLine(file, pred, line)
			if err != nil {
				return err
			}
			a.reportState(file, state)
			return nil
		},
	}
	ensure.Flags().StringVar(&prefix, "prefix", "", MsgFlagPrefix)

	var asPrefix bool
	replace := &cobra.Command{
		Use:     "replace FILE PATTERN REPLACEMENT",
		Short:   MsgReplaceShort,
		Args:    cobra.ExactArgs(3),
		Example: "  toolz patch replace /etc/pulse/daemon.conf flat-volumes 'flat-volumes = no'",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, pattern, replacement := args[0], args[1], args[2]
			pred := confpatch.Contains(pattern)
			if asPrefix {
				pred = confpatch.HasPrefix(pattern)
			}
			state, err := confpatch.New(a.fs, os.TempDir()).ReplaceMatching(file, pred, func(string) string {
				return replacement
			})
			if err != nil {
				return err
			}
			a.reportState(file, state)
			return nil
		},
	}
	replace.Flags().BoolVar(&asPrefix, "prefix", false, MsgFlagPattern)

	cmd.AddCommand(ensure, replace)
	return cmd
}

func newMirrorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mirror",
		Short:   MsgMirrorShort,
		GroupID: "files",
		Args:    cobra.NoArgs,
		RunE:    showHelp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "overwrite SRC DST",
		Short: MsgOverwriteShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]
			if !mirror.New(a.fs).Overwrite(src, dst) {
				return errors.Newf(errors.ErrFileWrite, MsgErrMirror, src, dst)
			}
			a.printer.OK(MsgMirrored, src, dst)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "git URL FOLDER",
		Short:   MsgGitShort,
		Args:    cobra.ExactArgs(2),
		Example: "  toolz mirror git https://github.com/vinceliuice/Mojave-gtk-theme.git /tmp/Mojave-gtk-theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensure(cmd, "git"); err != nil {
				return err
			}
			folder := args[1]
			state, err := mirror.NewGit(a.runner, a.fs).Sync(cmd.Context(), args[0], folder)
			if err != nil {
				return err
			}
			if state.Changed() {
				a.printer.OK(MsgSynced, folder)
			} else {
				a.printer.Info(MsgInSync, folder)
			}
			return nil
		},
	})
	return cmd
}

func newGenConfigCmd(a *app) *cobra.Command {
	var effective bool
	cmd := &cobra.Command{
		Use:         "genconfig",
		Short:       MsgGenConfigShort,
		GroupID:     "misc",
		Args:        cobra.NoArgs,
		Annotations: bare(),
		Example: `  toolz genconfig > ~/.config/toolz/config.toml   # commented defaults
  toolz genconfig --effective                       # merged configuration`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !effective {
				_, err := fmt.Fprint(out, config.GenerateCommented())
				return err
			}
			k, err := config.NewLoader(a.configFile).Koanf()
			if err != nil {
				return err
			}
			data, err := config.Generate(k)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&effective, "effective", false, MsgFlagEffective)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       MsgVersionShort,
		GroupID:     "misc",
		Args:        cobra.NoArgs,
		Annotations: bare(),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), MsgVersionFormat, version.Version, version.Commit, version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		GroupID:               "misc",
		Annotations:           bare(),
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			default:
				return cmd.Root().GenFishCompletion(out, true)
			}
		},
	}
}
