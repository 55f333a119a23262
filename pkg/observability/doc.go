// Package observability provides structured logging, Prometheus metrics, OpenTelemetry tracing,
// health probes, and graceful shutdown for the teamseats worker.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("subscription_id", sub.ID).Info("seat quantity updated")
//
// Context-aware logging:
//
//	ctx = observability.WithSubscriptionID(ctx, sub.ID.String())
//	observability.Enrich(ctx, logger).WithError(err).Warn("upcoming invoice unavailable")
//
// Enrich also adds trace_id and span_id when ctx carries a recording span. Components
// accept a nil *Logger and fall back to NewNopLogger.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordTransition("cancel", "ok")
//
// Recording methods are no-ops on a nil *Metrics.
//
// # Health and Metrics Endpoints
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	router := observability.NewOpsRouter(checker, registry, logger)
//
// serves /healthz, /readyz and /metrics behind request-ID and panic-recovery middleware.
//
// # Graceful Shutdown
//
//	shutdown := observability.NewShutdownManager(logger, server, 30*time.Second)
//	shutdown.Register("postgres", func(context.Context) error { return db.Close() })
//	err := shutdown.WaitForShutdown(ctx)
//
// # OpenTelemetry
//
//	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "teamseats",
//		SampleRatio: 0.2,
//	}, logger)
//	defer observability.ShutdownTracing(ctx, tp, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/async: Panic-safe background tasks
package observability
