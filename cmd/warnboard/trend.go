package main

import (
	"fmt"
	"strings"

	"warnboard/internal/core/ports"
	"warnboard/internal/engine/chart"
	"warnboard/internal/shared/util"
	"warnboard/internal/ui/report"

	"github.com/spf13/cobra"
)

type trendFlags struct {
	tool          string
	metric        string
	newVsFixed    bool
	build         int
	maxBuilds     int
	maxAgeDays    int
	useBuildLabel bool
	format        string
	output        string
	inject        string
	marker        string
}

func trendCmd(opts *rootOptions) *cobra.Command {
	var f trendFlags
	cmd := &cobra.Command{
		Use:   "trend <job>",
		Short: "Render a trend chart of a job as TSV, JSON or Markdown",
		Long: `Render a trend chart of a job.

By default one line per tool is drawn with the total number of issues per build.
--new-vs-fixed draws the new and fixed counts instead, and --build charts a single
build per tool. Window flags override the [chart] section of the config.

Examples:
  warnboard trend core
  warnboard trend core --tool CheckStyle --metric new --format json
  warnboard trend core --new-vs-fixed --max-builds 10 --inject README.md --marker trend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			req := ports.TrendRequest{Job: args[0], Tool: f.tool, Metric: f.metric}
			flags := cmd.Flags()
			if flags.Changed("max-builds") {
				req.Window.MaxBuilds = &f.maxBuilds
			}
			if flags.Changed("max-age-days") {
				req.Window.MaxAgeDays = &f.maxAgeDays
			}
			if flags.Changed("use-build-label") {
				req.Window.UseBuildLabel = &f.useBuildLabel
			}

			var m chart.Model
			switch {
			case flags.Changed("build"):
				m, err = rt.dashboard.BuildSummary(cmd.Context(), args[0], f.build)
			case f.newVsFixed:
				m, err = rt.dashboard.NewVersusFixed(cmd.Context(), req)
			default:
				m, err = rt.dashboard.ToolTrend(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			return writeChart(opts, f, m)
		},
	}
	cmd.Flags().StringVar(&f.tool, "tool", "", "Restrict the chart to one tool name")
	cmd.Flags().StringVar(&f.metric, "metric", "total", "Per-tool value: total, new or fixed")
	cmd.Flags().BoolVar(&f.newVsFixed, "new-vs-fixed", false, "Chart new versus fixed issues")
	cmd.Flags().IntVar(&f.build, "build", 0, "Chart the per-tool summary of one build")
	cmd.Flags().IntVar(&f.maxBuilds, "max-builds", 0, "Keep only the newest N builds (0 = all)")
	cmd.Flags().IntVar(&f.maxAgeDays, "max-age-days", 0, "Drop builds older than N days before the newest (0 = all)")
	cmd.Flags().BoolVar(&f.useBuildLabel, "use-build-label", false, "Use build labels on the x-axis")
	cmd.Flags().StringVarP(&f.format, "format", "f", "tsv", "Output format: tsv, json or markdown")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&f.inject, "inject", "", "Replace the marked block of this Markdown file with the chart table")
	cmd.Flags().StringVar(&f.marker, "marker", "trend", "Marker name used with --inject")
	return cmd
}

func writeChart(opts *rootOptions, f trendFlags, m chart.Model) error {
	if f.inject != "" {
		table, err := report.RenderChartMarkdown(m)
		if err != nil {
			return err
		}
		if err := report.InjectChart(f.inject, f.marker, table); err != nil {
			return err
		}
		fmt.Fprintf(opts.stdout, "updated %s (%s)\n", f.inject, f.marker)
		return nil
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(f.format) {
	case "tsv":
		data, err = report.RenderChartTSV(m)
	case "json":
		data, err = report.RenderChartJSON(m)
		data = append(data, '\n')
	case "markdown", "md":
		var s string
		s, err = report.RenderChartMarkdown(m)
		data = []byte(s)
	default:
		return fmt.Errorf("unsupported format %q (want tsv, json or markdown)", f.format)
	}
	if err != nil {
		return err
	}

	if f.output != "" {
		return util.WriteFileWithDirs(f.output, data, 0o644)
	}
	_, err = opts.stdout.Write(data)
	return err
}
