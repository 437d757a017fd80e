package toolz

import (
	"github.com/choopsit/toolz/pkg/sysinfo"
	"github.com/spf13/cobra"
)

func newNetInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "netinfo",
		Short:   MsgNetInfoShort,
		GroupID: "info",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := sysinfo.CollectNet(a.fs, a.profile, sysinfo.LocalIPv4)
			if err != nil {
				return err
			}
			sysinfo.PrintNet(a.printer, info)
			return nil
		},
	}
}

func newDfCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "df",
		Short:   MsgDfShort,
		GroupID: "info",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := sysinfo.Filesystems(a.fs, sysinfo.Statfs, all)
			if err != nil {
				return err
			}
			sysinfo.PrintFilesystems(a.printer, list)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, MsgFlagAll)
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "fetch",
		Short:   MsgFetchShort,
		GroupID: "info",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			sysinfo.PrintFetch(a.printer, a.fetch(cmd.Context()))
		},
	}
}
