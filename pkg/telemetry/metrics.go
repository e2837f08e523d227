package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/elements/pkg/element"
)

// MetricsConfig configures the engine metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "elements").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for compose duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the engine metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "elements",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Pending request reasons.
const (
	ReasonDefinition = "definition"
	ReasonSupertype  = "supertype"
)

// Metrics records engine activity in Prometheus.
type Metrics struct {
	definitions     prometheus.Counter
	registrations   *prometheus.CounterVec
	pending         *prometheus.GaugeVec
	composeDuration *prometheus.HistogramVec
}

// NewMetrics registers the engine metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		definitions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "definitions_total",
			Help:        "Total number of definitions stored",
			ConstLabels: config.ConstLabels,
		}),

		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "registrations_total",
			Help:        "Total number of finished registration requests by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		pending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "pending_requests",
			Help:        "Number of suspended registration requests by the dependency they wait for",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		composeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "compose_duration_seconds",
			Help:        "Prototype composition and native registration duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),
	}
}

// Observe implements element.Observer.
func (m *Metrics) Observe(_ context.Context, ev element.Event) {
	switch ev.Kind {
	case element.EventDefined:
		m.definitions.Inc()
	case element.EventSuspended:
		if reason := reasonFor(ev.Status); reason != "" {
			m.pending.WithLabelValues(reason).Inc()
		}
	case element.EventResumed:
		if reason := reasonFor(ev.Status); reason != "" {
			m.pending.WithLabelValues(reason).Dec()
		}
	case element.EventRegistered, element.EventFailed:
		m.registrations.WithLabelValues(string(ev.Kind)).Inc()
	case element.EventReset:
		m.pending.WithLabelValues(ReasonDefinition).Set(0)
		m.pending.WithLabelValues(ReasonSupertype).Set(0)
	}
}

// StartCompose implements element.Observer.
func (m *Metrics) StartCompose(ctx context.Context, _ string) (context.Context, func(error)) {
	start := time.Now()
	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		m.composeDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

func reasonFor(s element.Status) string {
	switch s {
	case element.StatusAwaitingDefinition:
		return ReasonDefinition
	case element.StatusAwaitingSupertype:
		return ReasonSupertype
	}
	return ""
}

// Handler serves the metrics gathered by g. A nil gatherer serves the
// default registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
