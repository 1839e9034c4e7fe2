// Package metrics provides Prometheus metrics for the tracker service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the tracker service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingestion
	eventsTracked  prometheus.Counter
	eventsRejected *prometheus.CounterVec
	eventsClients  *prometheus.CounterVec

	// Aggregation
	statsComputed      prometheus.Counter
	aggregationLatency prometheus.Histogram

	// Event store
	storeAppendLatency  prometheus.Histogram
	storeLoadLatency    prometheus.Histogram
	storeCorruptRecords prometheus.Gauge
	storeRecords        prometheus.Gauge
	storeClears         prometheus.Counter
	storeFallbacks      prometheus.Counter
	exports             prometheus.Counter

	// Admin credential checks
	authFailures *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        DefaultNamespace,
		subsystem:        DefaultSubsystem,
		histogramBuckets: DefaultLatencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool {
	return m.enabled
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.eventsTracked = m.counter("tracked_total", "Total number of events accepted and stored")
	m.eventsRejected = m.counterVec("rejected_total", "Total number of ingestion requests rejected, by reason", "reason")
	m.eventsClients = m.counterVec("tracked_by_client_total", "Total number of events accepted, by client device type", "device_type")

	m.statsComputed = m.counter("stats_computed_total", "Total number of statistics summaries computed")
	m.aggregationLatency = m.histogram("aggregation_latency_milliseconds",
		"Time spent aggregating the full event set in milliseconds", m.histogramBuckets)

	m.storeAppendLatency = m.histogram("store_append_latency_milliseconds",
		"Event store append latency in milliseconds", m.histogramBuckets)
	m.storeLoadLatency = m.histogram("store_load_latency_milliseconds",
		"Event store full-scan latency in milliseconds", m.histogramBuckets)
	m.storeCorruptRecords = m.gauge("store_corrupt_records",
		"Number of unreadable stored records skipped by the last load")
	m.storeRecords = m.gauge("store_records", "Number of stored events as of the last load or count")
	m.storeClears = m.counter("store_clears_total", "Total number of administrative store wipes")
	m.storeFallbacks = m.counter("store_fallbacks_total",
		"Number of times the configured storage directory was unusable and the fallback was used")
	m.exports = m.counter("exports_total", "Total number of raw log exports served")

	m.authFailures = m.counterVec("auth_failures_total", "Admin credential mismatches by endpoint", "endpoint")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordEventTracked increments the accepted events counter.
func RecordEventTracked() {
	if globalManager.enabled {
		globalManager.eventsTracked.Inc()
	}
}

// RecordEventClient counts an accepted event under its client device type.
func RecordEventClient(deviceType string) {
	if globalManager.enabled {
		globalManager.eventsClients.WithLabelValues(deviceType).Inc()
	}
}

// RecordEventRejected increments the rejected ingestion counter for reason.
func RecordEventRejected(reason string) {
	if globalManager.enabled {
		globalManager.eventsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordStatsComputed counts one summary computation and its latency.
func RecordStatsComputed(latencyMs float64) {
	if globalManager.enabled {
		globalManager.statsComputed.Inc()
		globalManager.aggregationLatency.Observe(latencyMs)
	}
}

// RecordStoreAppendLatency records event store append latency.
func RecordStoreAppendLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeAppendLatency.Observe(latencyMs)
	}
}

// RecordStoreLoad records a full load: its latency and the number of events returned.
func RecordStoreLoad(latencyMs float64, records int) {
	if globalManager.enabled {
		globalManager.storeLoadLatency.Observe(latencyMs)
		globalManager.storeRecords.Set(float64(records))
	}
}

// UpdateStoreRecords sets the stored events gauge.
func UpdateStoreRecords(records int) {
	if globalManager.enabled {
		globalManager.storeRecords.Set(float64(records))
	}
}

// RecordStoreCorruptRecords sets the number of records the last load skipped.
// Every load rescans the whole store, so the value is replaced, not added.
func RecordStoreCorruptRecords(n int) {
	if globalManager.enabled {
		globalManager.storeCorruptRecords.Set(float64(n))
	}
}

// RecordStoreClear increments the store wipe counter.
func RecordStoreClear() {
	if globalManager.enabled {
		globalManager.storeClears.Inc()
		globalManager.storeRecords.Set(0)
	}
}

// RecordStoreFallback increments the storage fallback counter.
func RecordStoreFallback() {
	if globalManager.enabled {
		globalManager.storeFallbacks.Inc()
	}
}

// RecordExport increments the export counter.
func RecordExport() {
	if globalManager.enabled {
		globalManager.exports.Inc()
	}
}

// RecordAuthFailure increments the credential mismatch counter for endpoint.
func RecordAuthFailure(endpoint string) {
	if globalManager.enabled {
		globalManager.authFailures.WithLabelValues(endpoint).Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Global returns the process-wide manager.
func Global() *Manager {
	return globalManager
}
