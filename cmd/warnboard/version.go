package main

import (
	"fmt"
	goruntime "runtime"

	"warnboard/internal/shared/version"

	"github.com/spf13/cobra"
)

func versionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			if opts.verbose {
				fmt.Fprintf(opts.stdout, "warnboard version %s (%s %s/%s)\n",
					version.Version, goruntime.Version(), goruntime.GOOS, goruntime.GOARCH)
				return
			}
			fmt.Fprintf(opts.stdout, "warnboard version %s\n", version.Version)
		},
	}
}
