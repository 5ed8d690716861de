package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the Modulaur extension host.
type Metrics struct {
	config MetricsConfig

	// Scan metrics
	scansTotal   *prometheus.CounterVec
	scanDuration prometheus.Histogram
	scanSkips    *prometheus.CounterVec

	// Load metrics
	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	reloadsTotal *prometheus.CounterVec

	// Registry metrics
	registryEntries   *prometheus.GaugeVec
	registryOverrides *prometheus.CounterVec

	// Resolution metrics
	resolutions      *prometheus.CounterVec
	resolutionMisses *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	// System metrics
	extensionsDiscovered prometheus.Gauge
	extensionsFailed     prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Scan metrics
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "manifest_scans_total",
				Help:      "Total number of manifest directory scans",
			},
			[]string{"status"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "manifest_scan_duration_seconds",
				Help:      "Duration of manifest directory scans in seconds",
				Buckets:   buckets,
			},
		),
		scanSkips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "manifest_scan_skips_total",
				Help:      "Total number of directories skipped during scans",
			},
			[]string{"reason"},
		),

		// Load metrics
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extension_loads_total",
				Help:      "Total number of extension load attempts",
			},
			[]string{"result"},
		),
		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extension_load_duration_seconds",
				Help:      "Duration of extension loads in seconds",
				Buckets:   buckets,
			},
			[]string{"result"},
		),
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extension_reloads_total",
				Help:      "Total number of extension reloads",
			},
			[]string{"result"},
		),

		// Registry metrics
		registryEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_entries",
				Help:      "Current number of entries per type registry",
			},
			[]string{"kind"},
		),
		registryOverrides: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_overrides_total",
				Help:      "Total number of registrations that replaced an existing entry",
			},
			[]string{"kind", "collision"},
		),

		// Resolution metrics
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of type resolutions",
			},
			[]string{"kind"},
		),
		resolutionMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_misses_total",
				Help:      "Total number of type resolutions that fell back",
			},
			[]string{"kind", "reason"},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),

		// System metrics
		extensionsDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "extensions_discovered",
				Help:      "Current number of discovered extension manifests",
			},
		),
		extensionsFailed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "extensions_failed",
				Help:      "Current number of extensions in failed state",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.scanSkips,
		m.loadsTotal,
		m.loadDuration,
		m.reloadsTotal,
		m.registryEntries,
		m.registryOverrides,
		m.resolutions,
		m.resolutionMisses,
		m.errorsByClass,
		m.extensionsDiscovered,
		m.extensionsFailed,
	)

	return m, nil
}

// Scan Metrics

// RecordScan records a completed manifest scan with its duration.
func (m *Metrics) RecordScan(status string, duration time.Duration, discovered int) {
	if m.scansTotal == nil {
		return
	}
	m.scansTotal.WithLabelValues(status).Inc()
	m.scanDuration.Observe(duration.Seconds())
	m.extensionsDiscovered.Set(float64(discovered))
}

// RecordScanSkip records a directory skipped during a scan.
func (m *Metrics) RecordScanSkip(reason string) {
	if m.scanSkips == nil {
		return
	}
	m.scanSkips.WithLabelValues(reason).Inc()
}

// Load Metrics

// RecordLoad records an extension load attempt with its result.
func (m *Metrics) RecordLoad(result string, duration time.Duration) {
	if m.loadsTotal == nil {
		return
	}
	m.loadsTotal.WithLabelValues(result).Inc()
	m.loadDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordReload records an extension reload with its result.
func (m *Metrics) RecordReload(result string) {
	if m.reloadsTotal == nil {
		return
	}
	m.reloadsTotal.WithLabelValues(result).Inc()
}

// SetFailedExtensions sets the current number of failed extensions.
func (m *Metrics) SetFailedExtensions(count float64) {
	if m.extensionsFailed == nil {
		return
	}
	m.extensionsFailed.Set(count)
}

// Registry Metrics

// SetRegistryEntries sets the current entry count for one registry kind.
func (m *Metrics) SetRegistryEntries(kind string, count float64) {
	if m.registryEntries == nil {
		return
	}
	m.registryEntries.WithLabelValues(kind).Set(count)
}

// RecordRegistryOverride records a registration that replaced an
// existing entry. collision is "builtin-override" or "extension".
func (m *Metrics) RecordRegistryOverride(kind, collision string) {
	if m.registryOverrides == nil {
		return
	}
	m.registryOverrides.WithLabelValues(kind, collision).Inc()
}

// Resolution Metrics

// RecordResolution records a successful type resolution.
func (m *Metrics) RecordResolution(kind string) {
	if m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(kind).Inc()
}

// RecordResolutionMiss records a resolution that produced a fallback.
func (m *Metrics) RecordResolutionMiss(kind, reason string) {
	if m.resolutionMisses == nil {
		return
	}
	m.resolutionMisses.WithLabelValues(kind, reason).Inc()
}

// Error Metrics

// RecordError records an error by class.
func (m *Metrics) RecordError(errorClass string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
