package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/elements/pkg/element"
)

// TracerName names the tracer used for engine spans.
const TracerName = "github.com/vango-dev/elements"

// Span names.
const (
	SpanCompose = "element.compose"
	SpanDefine  = "element.define"
	SpanFetch   = "loader.fetch"
)

// TracingConfig configures the trace provider.
type TracingConfig struct {
	// Enabled controls whether tracing is active. When false, a no-op
	// tracer is returned.
	Enabled bool

	// Exporter is "stdout" or "none".
	Exporter string

	// Writer receives stdout exporter output (default: os.Stdout).
	Writer io.Writer

	// ServiceName identifies this service in traces.
	ServiceName string
}

// Provider wraps the OpenTelemetry tracer provider.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider creates the trace provider described by cfg and installs it
// as the global provider when tracing is enabled.
func NewProvider(cfg TracingConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(TracerName)}, nil
	}

	var opts []sdktrace.TracerProviderOption
	switch cfg.Exporter {
	case "stdout":
		exopts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Writer != nil {
			exopts = append(exopts, stdouttrace.WithWriter(cfg.Writer))
		}
		exporter, err := stdouttrace.New(exopts...)
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "elements"
	}
	opts = append(opts, sdktrace.WithResource(resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	)))

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Provider{provider: provider, tracer: provider.Tracer(TracerName)}, nil
}

// Tracer returns the configured tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are recorded.
func (p *Provider) Enabled() bool {
	return p.provider != nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

// Tracing records engine activity as spans.
type Tracing struct {
	tracer trace.Tracer
}

// NewTracing returns a Tracing observer using tracer.
func NewTracing(tracer trace.Tracer) *Tracing {
	return &Tracing{tracer: tracer}
}

// Observe implements element.Observer. Definitions get their own span;
// other events are added to the span active in ctx.
func (t *Tracing) Observe(ctx context.Context, ev element.Event) {
	attrs := eventAttributes(ev)
	if ev.Kind == element.EventDefined {
		_, span := t.tracer.Start(ctx, SpanDefine, trace.WithAttributes(attrs...))
		span.End()
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("element."+string(ev.Kind), trace.WithAttributes(attrs...))
}

// StartCompose implements element.Observer.
func (t *Tracing) StartCompose(ctx context.Context, name string) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, SpanCompose,
		trace.WithAttributes(attribute.String("element.name", name)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// StartFetch starts a loader.fetch span for a document source.
func (t *Tracing) StartFetch(ctx context.Context, source string) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, SpanFetch,
		trace.WithAttributes(attribute.String("loader.source", source)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func eventAttributes(ev element.Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("element.name", ev.Name),
		attribute.String("element.status", ev.Status.String()),
	}
	if ev.RequestID != "" {
		attrs = append(attrs, attribute.String("element.request_id", ev.RequestID))
	}
	if ev.Extends != "" {
		attrs = append(attrs, attribute.String("element.extends", ev.Extends))
	}
	if ev.WaitingOn != "" {
		attrs = append(attrs, attribute.String("element.waiting_on", ev.WaitingOn))
	}
	return attrs
}
