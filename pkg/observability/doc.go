// Package observability provides logging, Prometheus metrics, OpenTelemetry
// tracing, health checks and graceful shutdown for the events client and the
// webhook receiver.
//
// # Logging
//
// Loggers are plain logrus loggers. Components accept a *logrus.Logger and
// fall back to a default one when it is nil:
//
//	logger := observability.NewLogger("debug", observability.FormatJSON, os.Stderr)
//	entry := observability.EntryFromContext(ctx, logger)
//	entry.WithField("registration_id", id).Info("polling journal")
//
// EntryFromContext adds trace_id and span_id when the context carries a
// recording span.
//
// # Metrics
//
// NewMetrics registers every collector on the given registry. A nil *Metrics
// is accepted by all components and records nothing:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// # Tracing
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "ioevents-webhook",
//		Insecure:    true,
//	}, logger)
//	defer providers.Shutdown(ctx)
//
// Spans are started from Tracer(): journal.poll around each journal fetch and
// signature.verify around each webhook verification. OTelMetrics records
// cursor store operations on the OTLP metrics pipeline.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version,
//		observability.Probe{Name: "cursor_store", Critical: true, Check: pingStore},
//		observability.Probe{Name: "key_cache", Check: pingCache},
//	)
//	observability.RegisterHealthRoutes(router, checker)
//
// A failing critical probe makes the service unhealthy; any other failure only
// degrades it.
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/journal: Poll metrics and spans
//   - pkg/signature: Verification metrics and spans
package observability
