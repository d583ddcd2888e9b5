package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeline_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Session Metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timeline_sessions_active",
			Help: "Number of open editing sessions",
		},
	)

	SessionsOpenedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timeline_sessions_opened_total",
			Help: "Total number of editing sessions opened",
		},
	)

	// Edit Metrics
	EditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_edits_total",
			Help: "Total number of committed timeline edits",
		},
		[]string{"op"},
	)

	EditRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_edit_rejections_total",
			Help: "Total number of edits rejected by validation",
		},
		[]string{"op"},
	)

	GesturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_gestures_total",
			Help: "Total number of finished gestures",
		},
		[]string{"kind", "outcome"},
	)

	HistoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_history_operations_total",
			Help: "Total number of undo and redo operations",
		},
		[]string{"operation", "status"},
	)

	// Playback Metrics
	PreloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timeline_preloads_total",
			Help: "Total number of clips preloaded on the secondary port",
		},
	)

	HandoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_handoffs_total",
			Help: "Total number of clip handoffs by load path",
		},
		[]string{"path"},
	)

	DegradedClipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timeline_degraded_clips_total",
			Help: "Total number of clips whose media failed to load",
		},
	)

	// Export Metrics
	ExportJobsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timeline_export_jobs_created_total",
			Help: "Total number of export jobs created",
		},
	)

	ExportJobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_export_jobs_completed_total",
			Help: "Total number of finished export jobs",
		},
		[]string{"status"},
	)

	ExportJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timeline_export_jobs_in_progress",
			Help: "Number of export jobs currently being rendered",
		},
	)

	ExportQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timeline_export_queue_depth",
			Help: "Messages waiting in the export queues",
		},
		[]string{"queue"},
	)

	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timeline_export_duration_seconds",
			Help:    "Export job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
	)

	ContractViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timeline_render_contract_violations_total",
			Help: "Total number of render responses that did not match the result schema",
		},
	)

	// Persistence Metrics
	AutoSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_autosaves_total",
			Help: "Total number of background project saves",
		},
		[]string{"status"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeline_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeline_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordSessionOpened records a new editing session
func RecordSessionOpened() {
	SessionsOpenedTotal.Inc()
	SessionsActive.Inc()
}

// RecordSessionClosed records an editing session being closed or evicted
func RecordSessionClosed() {
	SessionsActive.Dec()
}

// RecordEdit records a committed edit or, when rejected, a validation failure
func RecordEdit(op string, rejected bool) {
	if rejected {
		EditRejectionsTotal.WithLabelValues(op).Inc()
		return
	}
	EditsTotal.WithLabelValues(op).Inc()
}

// RecordGesture records how a gesture ended: committed, rejected or cancelled
func RecordGesture(kind, outcome string) {
	GesturesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordHistory records an undo or redo, noting when there was nothing to do
func RecordHistory(operation string, applied bool) {
	status := "applied"
	if !applied {
		status = "noop"
	}
	HistoryOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordPreload records a preload on the secondary port
func RecordPreload() {
	PreloadsTotal.Inc()
}

// RecordHandoff records a clip switch, warm when served by the preloaded port
func RecordHandoff(warm bool) {
	path := "cold"
	if warm {
		path = "warm"
	}
	HandoffsTotal.WithLabelValues(path).Inc()
}

// RecordDegradedClip records a media load failure
func RecordDegradedClip() {
	DegradedClipsTotal.Inc()
}

// RecordExportCreated records a new export job
func RecordExportCreated() {
	ExportJobsCreatedTotal.Inc()
}

// RecordExportCompleted records a finished export job
func RecordExportCompleted(status string, duration float64) {
	ExportJobsCompletedTotal.WithLabelValues(status).Inc()
	ExportDuration.Observe(duration)
}

// RecordQueueDepth records the backlog of the export and dead letter queues
func RecordQueueDepth(pending, dead int) {
	ExportQueueDepth.WithLabelValues("exports").Set(float64(pending))
	ExportQueueDepth.WithLabelValues("dead_letter").Set(float64(dead))
}

// RecordContractViolation records a malformed render response
func RecordContractViolation() {
	ContractViolationsTotal.Inc()
}

// RecordAutoSave records the outcome of a background save
func RecordAutoSave(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AutoSavesTotal.WithLabelValues(status).Inc()
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// PlaybackObserver forwards scheduler events to the playback counters
type PlaybackObserver struct{}

func (PlaybackObserver) Preloaded(string)       { RecordPreload() }
func (PlaybackObserver) Handoff(warm bool)      { RecordHandoff(warm) }
func (PlaybackObserver) Degraded(string, error) { RecordDegradedClip() }
