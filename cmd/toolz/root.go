package toolz

import (
	"embed"
	"io/fs"
	"os"

	"github.com/choopsit/toolz/internal/version"
	"github.com/choopsit/toolz/pkg/cobrax/topics"
	"github.com/choopsit/toolz/pkg/config"
	"github.com/choopsit/toolz/pkg/confpatch"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/execx"
	"github.com/choopsit/toolz/pkg/filesystem"
	"github.com/choopsit/toolz/pkg/logging"
	"github.com/choopsit/toolz/pkg/pkgmgr"
	"github.com/choopsit/toolz/pkg/prereq"
	"github.com/choopsit/toolz/pkg/prompt"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/sysconf"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
	"github.com/spf13/cobra"
)

//go:embed topics
var topicFiles embed.FS

// Command annotations read by the setup hook
const (
	annotationBare = "toolz/bare" // no system profile needed
	annotationRoot = "toolz/root" // root privileges required
)

// app carries what the commands share. Nil collaborators are built by
// setup, so tests can provide their own.
type app struct {
	verbosity  int
	configFile string
	yes        bool

	cfg     *config.Config
	fs      types.FS
	runner  execx.Runner
	profile *system.Profile
	printer *style.Printer
	asker   prompt.Asker
}

// NewRootCmd creates the toolz command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	initTemplateFormatting()

	rootCmd := &cobra.Command{
		Use:     "toolz",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errors.New(errors.ErrInvalidInput, MsgErrNoCommand)
		},
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, MsgFlagYes)

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddGroup(&cobra.Group{ID: "system", Title: "SYSTEM:"})
	rootCmd.AddGroup(&cobra.Group{ID: "files", Title: "FILES:"})
	rootCmd.AddGroup(&cobra.Group{ID: "info", Title: "INFORMATION:"})
	rootCmd.AddGroup(&cobra.Group{ID: "services", Title: "SERVICES:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(
		newPrereqCmd(a),
		newFullUpdateCmd(a),
		newThemesCmd(a),
		newUSBKeyCmd(a),
		newXfceInitCmd(a),
		newPkgBuildCmd(a),

		newPatchCmd(a),
		newMirrorCmd(a),
		newBackupCmd(a),
		newDeployCmd(a),
		newStatMyGitsCmd(a),

		newNetInfoCmd(a),
		newDfCmd(a),
		newFetchCmd(a),

		newTSMCmd(a),
		newVBoxCmd(a),

		newGenConfigCmd(a),
		newVersionCmd(),
		newCompletionCmd(),
	)

	source, err := fs.Sub(topicFiles, "topics")
	if err == nil {
		_, _ = topics.InitializeWithOptions(rootCmd, source, topics.Options{
			Extensions: []string{".md"},
			Renderer:   topics.NewGlamourRenderer(),
		})
	}
	rootCmd.SetHelpCommandGroupID("misc")
	for _, c := range rootCmd.Commands() {
		if c.Name() == "topics" {
			c.Annotations = bare()
			c.GroupID = "misc"
		}
	}

	return rootCmd
}

// setup loads the configuration and, unless the command is bare, the
// system profile and the collaborators built on it
func (a *app) setup(cmd *cobra.Command) error {
	logging.SetupLogger(a.verbosity)
	logging.LogCommand(logging.GetLogger("cmd"), cmd.CommandPath(), os.Args[1:])

	if a.cfg == nil {
		cfg, err := config.Load(a.configFile)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if cmd.Name() == "help" || hasAnnotation(cmd, annotationBare) {
		return nil
	}

	if a.fs == nil {
		a.fs = filesystem.NewOS()
	}
	if a.runner == nil {
		a.runner = execx.NewExecRunner()
	}
	if a.profile == nil {
		profile, err := system.LoadProfile(cmd.Context(), a.fs, a.runner, a.cfg.System)
		if err != nil {
			return err
		}
		a.profile = profile
	}
	if a.printer == nil {
		a.printer = style.NewPrinter(cmd.OutOrStdout())
	}
	if a.asker == nil {
		a.asker = prompt.New(cmd.InOrStdin(), cmd.OutOrStdout(),
			prompt.WithMaxRetries(a.cfg.Prompt.MaxRetries),
			prompt.WithAssumeYes(a.yes))
	}

	if hasAnnotation(cmd, annotationRoot) {
		return system.RequireRoot(a.profile)
	}
	return nil
}

func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[key]; ok {
			return true
		}
	}
	return false
}

func bare() map[string]string {
	return map[string]string{annotationBare: "true"}
}

func rootOnly() map[string]string {
	return map[string]string{annotationRoot: "true"}
}

func (a *app) apt() (*pkgmgr.Apt, error) {
	return pkgmgr.New(a.runner, a.profile, a.cfg.Packages.SupportedDistros)
}

func (a *app) resolver() (*prereq.Resolver, error) {
	apt, err := a.apt()
	if err != nil {
		return nil, err
	}
	return prereq.New(apt, a.asker, a.printer, a.fs, a.profile, a.cfg.Packages.AdminGroup), nil
}

// ensure installs the packages a command depends on
func (a *app) ensure(cmd *cobra.Command, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	r, err := a.resolver()
	if err != nil {
		return err
	}
	return r.Ensure(cmd.Context(), pkgs)
}

func (a *app) rules() *sysconf.Rules {
	return sysconf.New(a.fs, a.runner, confpatch.New(a.fs, os.TempDir()))
}
