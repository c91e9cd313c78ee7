package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"warnboard/internal/core/app"
	"warnboard/internal/core/config"
	"warnboard/internal/shared/observability"
	"warnboard/internal/shared/version"
	"warnboard/internal/ui/web"

	"github.com/spf13/cobra"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Server.Address = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
				Enabled:     cfg.Observability.EnableTracing,
				Endpoint:    cfg.Observability.OTLPEndpoint,
				Insecure:    cfg.Observability.OTLPInsecure,
				ServiceName: cfg.Observability.ServiceName,
				SampleRatio: cfg.Observability.SampleRatio,
				Version:     version.Version,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					slog.Warn("flush traces", "error", err)
				}
			}()

			rt, err := openRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			inbox, err := startInbox(ctx, cfg.Inbox, rt.dashboard)
			if err != nil {
				return err
			}
			defer inbox.Close()

			if opts.fromFile {
				watcher := config.NewWatcher(opts.configPath, func(next *config.Config) {
					if err := rt.dashboard.ApplyConfig(next); err != nil {
						slog.Error("apply reloaded config", "error", err)
						return
					}
					inbox.Reload(next.Inbox)
					slog.Info("dashboard settings reloaded")
				})
				if err := watcher.Start(ctx); err != nil {
					slog.Warn("config watcher disabled", "error", err)
				} else {
					defer watcher.Stop()
				}
			}

			srv, err := web.NewServer(rt.dashboard, app.NewHealthService(rt.adapter), web.Options{
				Server:        cfg.Server,
				RateLimit:     cfg.RateLimit,
				EnableMetrics: cfg.Observability.EnableMetrics,
			})
			if err != nil {
				return err
			}
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.address)")
	return cmd
}
