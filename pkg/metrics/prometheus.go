package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the bingo service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	enabled         bool
	refreshInterval time.Duration
	constLabels     map[string]string
	metricPrefix    string
	registry        prometheus.Registerer

	// Classification
	classifyRequests        *prometheus.CounterVec
	classifyLatency         prometheus.Histogram
	classifyTransportErrors prometheus.Counter
	classifyParseErrors     prometheus.Counter
	classifyRejectedIDs     prometheus.Counter

	// Rate limiting
	rateLimitRejections prometheus.Counter
	rateLimitRemaining  prometheus.Gauge

	// Board
	bingoWins    prometheus.Counter
	matchedTiles prometheus.Gauge

	// Versions
	versionsSaved     prometheus.Counter
	versionsDeleted   prometheus.Counter
	versionsTotal     prometheus.Gauge
	storageErrors     *prometheus.CounterVec
	repositoryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "bingo",
		subsystem:       "board",
		latencyBuckets:  prometheus.DefBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		constLabels:     make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often callers should push gauge snapshots.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string { return m.metricPrefix + n }

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}

	m.classifyRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("classify_requests_total"),
			Help:        "Classification requests by outcome",
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)

	m.classifyLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("classify_latency_milliseconds"),
		Help:        "Latency of outbound classification calls in milliseconds",
		Buckets:     []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		ConstLabels: labels,
	})

	m.classifyTransportErrors = counter("classify_transport_errors_total", "Classification calls that failed in transport")
	m.classifyParseErrors = counter("classify_parse_errors_total", "Classification answers that could not be parsed")
	m.classifyRejectedIDs = counter("classify_rejected_ids_total", "Matched ids dropped for being outside the board")

	m.rateLimitRejections = counter("rate_limit_rejections_total", "Submissions refused by the rate limiter")
	m.rateLimitRemaining = gauge("rate_limit_remaining", "Requests left in the current window")

	m.bingoWins = counter("bingo_wins_total", "Submissions that produced a bingo")
	m.matchedTiles = gauge("matched_tiles", "Matched tiles on the current board, including the special tile")

	m.versionsSaved = counter("versions_saved_total", "Saved editor versions")
	m.versionsDeleted = counter("versions_deleted_total", "Deleted editor versions")
	m.versionsTotal = gauge("versions_total", "Editor versions currently stored")

	m.storageErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("storage_errors_total"),
			Help:        "Key-value backend failures by operation",
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	m.repositoryLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("repository_latency_milliseconds"),
			Help:        "Version store operation latency in milliseconds",
			Buckets:     m.latencyBuckets,
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.latencyBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Total number of errors by endpoint",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Classification outcomes.
const (
	OutcomeMatched     = "matched"
	OutcomeParseError  = "parse_error"
	OutcomeTransport   = "transport_error"
	OutcomeRateLimited = "rate_limited"
)

// RecordClassifyRequest counts a submission by outcome.
func RecordClassifyRequest(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.classifyRequests.WithLabelValues(outcome).Inc()
}

// RecordClassifyLatency records the outbound call latency in milliseconds.
func RecordClassifyLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.classifyLatency.Observe(latencyMs)
}

// RecordClassifyTransportError increments the transport error counter.
func RecordClassifyTransportError() {
	if !globalManager.enabled {
		return
	}
	globalManager.classifyTransportErrors.Inc()
}

// RecordClassifyParseError increments the parse error counter.
func RecordClassifyParseError() {
	if !globalManager.enabled {
		return
	}
	globalManager.classifyParseErrors.Inc()
}

// RecordClassifyRejectedIDs adds n out-of-range ids.
func RecordClassifyRejectedIDs(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.classifyRejectedIDs.Add(float64(n))
}

// RecordRateLimitRejection increments the limiter rejection counter.
func RecordRateLimitRejection() {
	if !globalManager.enabled {
		return
	}
	globalManager.rateLimitRejections.Inc()
}

// UpdateRateLimitRemaining sets the remaining request budget.
func UpdateRateLimitRemaining(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.rateLimitRemaining.Set(float64(n))
}

// RecordBingo increments the bingo counter.
func RecordBingo() {
	if !globalManager.enabled {
		return
	}
	globalManager.bingoWins.Inc()
}

// UpdateMatchedTiles sets the number of matched tiles on the board.
func UpdateMatchedTiles(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.matchedTiles.Set(float64(n))
}

// RecordVersionSaved increments the saved versions counter.
func RecordVersionSaved() {
	if !globalManager.enabled {
		return
	}
	globalManager.versionsSaved.Inc()
}

// RecordVersionDeleted increments the deleted versions counter.
func RecordVersionDeleted() {
	if !globalManager.enabled {
		return
	}
	globalManager.versionsDeleted.Inc()
}

// UpdateVersionsTotal sets the number of stored versions.
func UpdateVersionsTotal(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.versionsTotal.Set(float64(n))
}

// RecordStorageError counts a backend failure for operation.
func RecordStorageError(operation string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storageErrors.WithLabelValues(operation).Inc()
}

// RecordRepositoryLatency records a version store operation latency.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
