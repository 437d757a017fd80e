package toolz

import (
	"strconv"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/tsm"
	"github.com/choopsit/toolz/pkg/vbox"
	"github.com/spf13/cobra"
)

// tsmRun wraps a tsm action, making sure the daemon is installed first
func (a *app) tsmRun(fn func(cmd *cobra.Command, m *tsm.Manager, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.ensure(cmd, "transmission-daemon"); err != nil {
			return err
		}
		m := tsm.New(a.cfg.TSM, a.cfg.Packages.AdminGroup, a.fs, a.runner, a.asker, a.printer, a.profile, a.rules())
		return fn(cmd, m, args)
	}
}

func newTSMCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tsm",
		Short:   MsgTSMShort,
		GroupID: "services",
		Args:    cobra.NoArgs,
		RunE:    showHelp,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "watch",
			Short: MsgWatchShort,
			Args:  cobra.NoArgs,
			RunE: a.tsmRun(func(cmd *cobra.Command, m *tsm.Manager, args []string) error {
				return m.Watch(cmd.Context(), cmd.OutOrStdout())
			}),
		},
		&cobra.Command{
			Use:   "add FILE",
			Short: MsgAddShort,
			Args:  cobra.ExactArgs(1),
			RunE: a.tsmRun(func(cmd *cobra.Command, m *tsm.Manager, args []string) error {
				return m.Add(cmd.Context(), args[0])
			}),
		},
		&cobra.Command{
			Use:   "add-all",
			Short: MsgAddAllShort,
			Args:  cobra.NoArgs,
			RunE: a.tsmRun(func(cmd *cobra.Command, m *tsm.Manager, args []string) error {
				return m.AddAll(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: MsgDeleteShort,
			Args:  cobra.ExactArgs(1),
			RunE: a.tsmRun(func(cmd *cobra.Command, m *tsm.Manager, args []string) error {
				id, err := strconv.Atoi(args[0])
				if err != nil || id < 1 {
					return errors.Newf(errors.ErrInvalidInput, MsgErrInvalidID, args[0])
				}
				return m.Delete(cmd.Context(), id)
			}),
		},
		&cobra.Command{
			Use:   "delete-all",
			Short: MsgDeleteAllShort,
			Args:  cobra.NoArgs,
			RunE: a.tsmRun(func(cmd *cobra.Command, m *tsm.Manager, args []string) error {
				return m.DeleteAll(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "restart",
			Short: MsgRestartShort,
			Args:  cobra.NoArgs,
			RunE: a.tsmRun(func(cmd *cobra.Command, m *tsm.Manager, args []string) error {
				return m.Restart(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: MsgStatusShort,
			Args:  cobra.NoArgs,
			RunE: a.tsmRun(func(cmd *cobra.Command, m *tsm.Manager, args []string) error {
				return m.Status(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "test-port",
			Short: MsgTestPortShort,
			Args:  cobra.NoArgs,
			RunE: a.tsmRun(func(cmd *cobra.Command, m *tsm.Manager, args []string) error {
				return m.TestPort(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "set-port [PORT]",
			Short: MsgSetPortShort,
			Long:  MsgSetPortShort + ", the configured peer port by default.",
			Args:  cobra.MaximumNArgs(1),
			RunE: a.tsmRun(func(cmd *cobra.Command, m *tsm.Manager, args []string) error {
				port := 0
				if len(args) == 1 {
					p, err := strconv.Atoi(args[0])
					if err != nil || p < 1 || p > 65535 {
						return errors.Newf(errors.ErrInvalidInput, MsgErrInvalidPort, args[0])
					}
					port = p
				}
				_, err := m.SetPort(cmd.Context(), port)
				return err
			}),
		},
	)
	return cmd
}

func (a *app) vbox(cmd *cobra.Command) (*vbox.Manager, error) {
	apt, err := a.apt()
	if err != nil {
		return nil, err
	}
	m := vbox.New(a.cfg.VBox, a.fs, a.runner, apt, a.printer, a.profile)
	if err := m.RequireVirtualBox(cmd.Context()); err != nil {
		return nil, err
	}
	return m, nil
}

func newVBoxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vbox",
		Short:   MsgVBoxShort,
		GroupID: "services",
		Args:    cobra.NoArgs,
		RunE:    showHelp,
	}

	group := func(args []string) string {
		if len(args) == 1 {
			return args[0]
		}
		return ""
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: MsgVBoxListShort,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.vbox(cmd)
				if err != nil {
					return err
				}
				return m.List(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "start [GROUP]",
			Short: MsgVBoxStartShort,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.vbox(cmd)
				if err != nil {
					return err
				}
				return m.Start(cmd.Context(), group(args))
			},
		},
		&cobra.Command{
			Use:   "stop [GROUP]",
			Short: MsgVBoxStopShort,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.vbox(cmd)
				if err != nil {
					return err
				}
				return m.Stop(cmd.Context(), group(args))
			},
		},
	)
	return cmd
}
