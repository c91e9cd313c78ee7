package main

import (
	"fmt"

	"warnboard/internal/data/importer"

	"github.com/spf13/cobra"
)

func importCmd(opts *rootOptions) *cobra.Command {
	var (
		concurrency int
		noProgress  bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import job snapshots (JSON or YAML) into the history store",
		Long: `Import job snapshots into the history store. Files are decoded in parallel and
jobs that appear in several files are merged; a later build with the same number wins.

Examples:
  warnboard import snapshots/core.json
  warnboard import --concurrency 8 snapshots/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := importer.LoadFiles(cmd.Context(), args, importer.Options{
				Concurrency: concurrency,
				Progress:    importer.NewProgress(!noProgress, opts.stderr, len(args), "decoding"),
			})
			if err != nil {
				return err
			}

			rt, err := openRuntime(opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.dashboard.Import(cmd.Context(), jobs)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "imported %d jobs (%d builds", len(res.Jobs), res.Builds)
			if res.Inconsistent > 0 {
				fmt.Fprintf(opts.stdout, ", %d results with inconsistent counts", res.Inconsistent)
			}
			fmt.Fprintln(opts.stdout, ")")
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Number of files decoded in parallel")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}
