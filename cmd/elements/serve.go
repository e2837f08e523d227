package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/vango-dev/elements/pkg/server"
	"github.com/vango-dev/elements/pkg/telemetry"
)

func serveCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [source...]",
		Short: "Load declaration documents and serve the inspection API",
		Long: `Load every declaration document, then serve the inspection API.
Definitions, declarations, and whole documents can be posted while the
server runs; lifecycle events stream on /events.

Examples:
  elements serve ./widgets
  elements serve --addr 127.0.0.1:9090 --metrics=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, c, cmd, args)
		},
	}

	cmd.Flags().String("addr", "", "address to listen on")
	cmd.Flags().Float64("rate-limit", 0, "mutating requests per second")
	cmd.Flags().Int("burst", 0, "mutating request burst")
	cmd.Flags().Bool("metrics", true, "serve Prometheus metrics on /metrics")
	cmd.Flags().Bool("tracing", false, "export OpenTelemetry spans")
	c.bind(cmd, map[string]string{
		"server.addr":      "addr",
		"server.rateLimit": "rate-limit",
		"server.burst":     "burst",
		"metrics.enabled":  "metrics",
		"tracing.enabled":  "tracing",
	})
	return cmd
}

func runServe(ctx context.Context, c *cli, cmd *cobra.Command, args []string) error {
	rt, err := newEnv(c.cfg, c.logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.close(context.WithoutCancel(ctx))

	if _, err := rt.load(ctx, c.sources(args)); err != nil {
		// Documents that failed are reported; the server still starts
		// with whatever resolved.
		c.logger.Error("some declaration documents failed", "error", err)
	}

	opts := []server.Option{
		server.WithLogger(c.logger),
		server.WithLoader(rt.loader),
	}
	if rt.registry != nil {
		httpMetrics := telemetry.NewHTTPMetrics(
			telemetry.WithRegistry(rt.registry),
			telemetry.WithNamespace(c.cfg.Metrics.Namespace))
		opts = append(opts,
			server.WithMiddleware(httpMetrics.Middleware),
			server.WithMetricsHandler(telemetry.Handler(rt.registry)))
	}
	if rt.tracing.Enabled() {
		opts = append(opts, server.WithMiddleware(telemetry.HTTPTracing(rt.tracing.Tracer())))
	}
	srv := server.New(rt.engine, &server.Config{
		Addr:            c.cfg.Server.Addr,
		RateLimit:       rate.Limit(c.cfg.Server.RateLimit),
		Burst:           c.cfg.Server.Burst,
		ShutdownTimeout: c.cfg.Server.ShutdownTimeout,
	}, opts...)
	return srv.Run(ctx)
}
