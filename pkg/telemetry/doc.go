// Package telemetry provides observability instrumentation for the
// Modulaur extension host.
//
// The telemetry package integrates structured logging (zerolog),
// distributed tracing (OpenTelemetry), metrics (Prometheus), and event
// publishing into a unified system for monitoring and debugging
// extension discovery, loading, and resolution.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system feeding the plugin-status surface
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "modulaur"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("loader")
//	logger = logger.WithExtension("notes", "1.2.0")
//	logger.Info("Loading extension bundle")
//	logger.WithError(err).Error("Load failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Spans cover the three long-running operations of the subsystem:
// manifest scans, extension loads, and type resolutions.
//
//	ctx, span := tel.Tracer.StartLoadSpan(ctx, "notes", "1.2.0")
//	defer span.End()
//
// # Metrics
//
// Counters and gauges track scans, skipped manifests, loads by result,
// registry entry counts per kind, overrides, and resolution misses.
// The metrics endpoint serves the Prometheus exposition format.
//
// # Events
//
// Lifecycle events (extension.loaded, extension.failed,
// registry.override, resolution.miss, ...) are published to subscribers
// so the host UI can show plugin status without scraping logs.
package telemetry
