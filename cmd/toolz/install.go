package toolz

import (
	"github.com/choopsit/toolz/pkg/bootstrap"
	"github.com/choopsit/toolz/pkg/usbkey"
	"github.com/spf13/cobra"
)

func newUSBKeyCmd(a *app) *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:         "usbkey DEVICE",
		Short:       MsgUSBKeyShort,
		Long:        MsgUSBKeyLong,
		GroupID:     "system",
		Args:        cobra.ExactArgs(1),
		Annotations: rootOnly(),
		Example: `  toolz usbkey sdb          # write a catalog image
  toolz usbkey sdb --live   # build and write a Debian live system`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensure(cmd, a.cfg.USBKey.Prerequisites...); err != nil {
				return err
			}
			download := usbkey.NewDownloader(a.fs, cmd.OutOrStdout())
			c := usbkey.New(a.cfg.USBKey, a.cfg.System, a.fs, a.runner, a.asker, a.printer, download)
			return c.Run(cmd.Context(), args[0], live)
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, MsgFlagLive)
	return cmd
}

func newXfceInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "xfce-init",
		Short:   MsgXfceInitShort,
		Long:    MsgXfceInitLong,
		GroupID: "system",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apt, err := a.apt()
			if err != nil {
				return err
			}
			u, err := a.themes()
			if err != nil {
				return err
			}
			b := bootstrap.New(a.cfg.Bootstrap, a.cfg.System, bootstrap.Deps{
				FS:       a.fs,
				Runner:   a.runner,
				Asker:    a.asker,
				Printer:  a.printer,
				Profile:  a.profile,
				Packages: apt,
				Themes:   u,
				Rules:    a.rules(),
				Fetcher:  usbkey.NewDownloader(a.fs, cmd.OutOrStdout()),
			})
			return b.Run(cmd.Context())
		},
	}
}
