package main

import (
	"os"
	"os/signal"
	"syscall"

	"warnboard/internal/ui/cli"

	"github.com/spf13/cobra"
)

func tuiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui <job>",
		Short: "Browse the builds of a job in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := openRuntime(opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			return cli.Run(ctx, rt.dashboard, args[0], opts.cfg.UI.MaxRows)
		},
	}
}
