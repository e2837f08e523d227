package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/elements/internal/config"
	"github.com/vango-dev/elements/pkg/declare"
	"github.com/vango-dev/elements/pkg/element"
	"github.com/vango-dev/elements/pkg/loader"
	"github.com/vango-dev/elements/pkg/platform"
	"github.com/vango-dev/elements/pkg/telemetry"
)

// env is the wired engine and its collaborators.
type env struct {
	platform *platform.Document
	engine   *element.Engine
	loader   *loader.Loader
	sheets   *declare.CachedFetcher
	registry *prometheus.Registry
	tracing  *telemetry.Provider
	logger   *slog.Logger
}

// newEnv builds the engine described by cfg. Trace output goes to
// traceOut.
func newEnv(cfg *config.Config, logger *slog.Logger, traceOut io.Writer) (*env, error) {
	rt := &env{logger: logger}

	tp, err := telemetry.NewProvider(telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Writer:      traceOut,
		ServiceName: "elements",
	})
	if err != nil {
		return nil, err
	}
	rt.tracing = tp
	tracing := telemetry.NewTracing(tp.Tracer())

	rt.platform = platform.New(
		platform.WithTags(cfg.Platform.Tags...),
		platform.WithLogger(logger),
	)
	rt.sheets = declare.DefaultFetcher(cfg.SheetsRoot(), cfg.Sheets.CacheTTL, logger)

	opts := []element.Option{
		element.WithLogger(logger),
		element.WithTransforms(declare.Pipeline(rt.sheets)...),
		element.WithLossyDefinitionWait(cfg.Ledger.Lossy),
	}
	if tp.Enabled() {
		opts = append(opts, element.WithObserver(tracing))
	}
	if cfg.Metrics.Enabled {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, element.WithObserver(telemetry.NewMetrics(
			telemetry.WithNamespace(cfg.Metrics.Namespace),
			telemetry.WithRegistry(rt.registry),
		)))
	}
	rt.engine = element.New(rt.platform, opts...)

	loaderOpts := []loader.Option{
		loader.WithLogger(logger),
		loader.WithConcurrency(cfg.Loader.Concurrency),
		loader.WithRegion(cfg.Loader.Region),
	}
	if tp.Enabled() {
		loaderOpts = append(loaderOpts, loader.WithFetchTracer(tracing))
	}
	rt.loader = loader.New(rt.engine, loaderOpts...)
	return rt, nil
}

// load applies every source. Document and registration failures are
// logged and returned joined; the caller decides whether they are
// fatal.
func (rt *env) load(ctx context.Context, sources []string) (*loader.Report, error) {
	if len(sources) == 0 {
		rt.logger.Warn("no declaration sources configured")
		return &loader.Report{}, nil
	}
	return rt.loader.Load(ctx, sources...)
}

func (rt *env) close(ctx context.Context) error {
	var errs []error
	if rt.tracing != nil {
		errs = append(errs, rt.tracing.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
