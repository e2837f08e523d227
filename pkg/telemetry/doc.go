// Package telemetry observes the registration engine with Prometheus
// metrics and OpenTelemetry traces. Both Metrics and Tracing implement
// element.Observer:
//
//	m := telemetry.NewMetrics(telemetry.WithNamespace("elements"))
//	tp, _ := telemetry.NewProvider(telemetry.TracingConfig{Enabled: true, Exporter: "stdout"})
//	eng := element.New(doc,
//	    element.WithObserver(m),
//	    element.WithObserver(telemetry.NewTracing(tp.Tracer())),
//	)
//
// Metrics collected:
//   - elements_definitions_total: definitions stored
//   - elements_registrations_total: finished registrations by status
//   - elements_pending_requests: suspended requests by reason
//   - elements_compose_duration_seconds: composition latency by outcome
//
// HTTPMetrics and HTTPTracing instrument the inspection API. They label
// requests by chi route pattern, so they must run inside a chi router.
package telemetry
