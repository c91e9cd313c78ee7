package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"warnboard/internal/core/app"
	"warnboard/internal/core/config"
	"warnboard/internal/data/history"
	"warnboard/internal/shared/version"
	"warnboard/internal/ui/cli"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	fromFile bool
	closeLog func()
	stdout   io.Writer
	stderr   io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr, closeLog: func() {}}

	root := &cobra.Command{
		Use:   "warnboard",
		Short: "warnboard - static analysis warnings dashboard",
		Long: `warnboard keeps the static analysis results of CI builds and turns them into
issue tables and trend charts, served over HTTP or browsed in a terminal.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, fromFile, err := loadConfig(opts.configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.fromFile = fromFile
			opts.closeLog = cli.ConfigureLogging(opts.stderr, cmd.Name() == "tui", opts.verbose, cfg.UI.LogFile)
			if !fromFile {
				slog.Debug("config file not found, using defaults", "path", opts.configPath)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			opts.closeLog()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(serveCmd(opts))
	root.AddCommand(importCmd(opts))
	root.AddCommand(trendCmd(opts))
	root.AddCommand(tuiCmd(opts))
	root.AddCommand(jobsCmd(opts))
	root.AddCommand(versionCmd(opts))
	return root
}

// loadConfig reads path. A missing file at the default location falls back to defaults;
// an explicitly requested file must exist.
func loadConfig(path string, explicit bool) (*config.Config, bool, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return config.Default(), false, nil
	}
	return nil, false, err
}

type runtime struct {
	store     *history.Store
	adapter   *history.Adapter
	dashboard *app.Dashboard
}

func openRuntime(cfg *config.Config) (*runtime, error) {
	store, err := history.OpenWithTimeout(cfg.DB.Path, cfg.DB.BusyTimeout)
	if err != nil {
		if history.IsCorruptError(err) {
			return nil, fmt.Errorf("history database %s is unreadable, move it aside to start fresh: %w", cfg.DB.Path, err)
		}
		return nil, err
	}
	slog.Debug("history store opened", "path", store.Path())
	adapter := history.NewAdapter(store)
	dash, err := app.NewDashboard(adapter, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &runtime{store: store, adapter: adapter, dashboard: dash}, nil
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		slog.Warn("close history store", "error", err)
	}
}
