package main

import (
	"fmt"
	"text/tabwriter"

	"warnboard/internal/data/query"

	"github.com/spf13/cobra"
)

func jobsCmd(opts *rootOptions) *cobra.Command {
	var where string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List the jobs in the history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := query.ParseWhere(where)
			if err != nil {
				return err
			}
			rt, err := openRuntime(opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			jobs, err := rt.dashboard.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			jobs = filter.Filter(jobs)
			w := tabwriter.NewWriter(opts.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBUILDS\tLATEST\tSTATUS")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", j.Name, j.BuildCount, j.LatestBuild, j.Status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&where, "where", "", `Filter jobs, e.g. "builds > 3 AND status = 'FAILURE'"`)
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <job>",
		Short: "Delete a job and its builds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.adapter.DeleteJob(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}
