package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	queueSize    *prometheus.GaugeVec
	enqueueTotal *prometheus.CounterVec
	dequeueTotal *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	clearedTotal *prometheus.CounterVec

	activeSessions  prometheus.Gauge
	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	rendersTotal    *prometheus.CounterVec
	reactionsTotal  *prometheus.CounterVec
	filterToggles   *prometheus.CounterVec
	cleanupFailures *prometheus.CounterVec
	commandsTotal   *prometheus.CounterVec
	catalogEntries  prometheus.Gauge
	catalogReloads  *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			queueSize: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "pagebot_queue_size",
					Help: "Current queue size by lane.",
				},
				[]string{"lane"},
			),
			enqueueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_enqueue_total",
					Help: "Total enqueue operations by lane.",
				},
				[]string{"lane"},
			),
			dequeueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_dequeue_total",
					Help: "Total dequeue/completion operations by lane and status.",
				},
				[]string{"lane", "status"},
			),
			taskDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pagebot_task_duration_seconds",
					Help:    "Task execution duration in seconds by lane.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"lane"},
			),
			clearedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_queue_cleared_total",
					Help: "Queued commands dropped before running, by lane.",
				},
				[]string{"lane"},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "pagebot_active_sessions",
					Help: "Pagination sessions currently running.",
				},
			),
			sessionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_sessions_total",
					Help: "Finished pagination sessions by end reason.",
				},
				[]string{"reason"},
			),
			sessionDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "pagebot_session_duration_seconds",
					Help:    "Pagination session lifetime in seconds.",
					Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
				},
			),
			rendersTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_renders_total",
					Help: "Page renders by kind (send, edit).",
				},
				[]string{"kind"},
			),
			reactionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_reactions_total",
					Help: "Accepted reaction triggers by operation.",
				},
				[]string{"operation"},
			),
			filterToggles: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_filter_toggles_total",
					Help: "Filter toggles by resulting active category.",
				},
				[]string{"category"},
			),
			cleanupFailures: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_cleanup_failures_total",
					Help: "Swallowed reaction cleanup failures by call (remove, clear).",
				},
				[]string{"call"},
			),
			commandsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_commands_total",
					Help: "Command invocations by platform, command and status.",
				},
				[]string{"platform", "command", "status"},
			),
			catalogEntries: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "pagebot_catalog_entries",
					Help: "Characters currently loaded in the catalog.",
				},
			),
			catalogReloads: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_catalog_reloads_total",
					Help: "Catalog reloads by status.",
				},
				[]string{"status"},
			),
			transportErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pagebot_transport_errors_total",
					Help: "Chat platform call failures by platform and call.",
				},
				[]string{"platform", "call"},
			),
		}

		prometheus.MustRegister(
			m.queueSize,
			m.enqueueTotal,
			m.dequeueTotal,
			m.taskDuration,
			m.clearedTotal,
			m.activeSessions,
			m.sessionsTotal,
			m.sessionDuration,
			m.rendersTotal,
			m.reactionsTotal,
			m.filterToggles,
			m.cleanupFailures,
			m.commandsTotal,
			m.catalogEntries,
			m.catalogReloads,
			m.transportErrors,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordQueueEnqueue(lane string, queueSize int) {
	m := getMetrics()
	m.enqueueTotal.WithLabelValues(lane).Inc()
	m.queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

func SetQueueSize(lane string, queueSize int) {
	m := getMetrics()
	m.queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

func RecordQueueCompletion(lane string, duration time.Duration, success bool, queueSize int) {
	m := getMetrics()
	m.dequeueTotal.WithLabelValues(lane, status(success)).Inc()
	m.taskDuration.WithLabelValues(lane).Observe(duration.Seconds())
	m.queueSize.WithLabelValues(lane).Set(float64(queueSize))
}

func RecordQueueCleared(lane string, cleared int) {
	getMetrics().clearedTotal.WithLabelValues(lane).Add(float64(cleared))
}

func RecordSessionStart() {
	getMetrics().activeSessions.Inc()
}

func RecordSessionEnd(reason string, duration time.Duration) {
	m := getMetrics()
	m.activeSessions.Dec()
	m.sessionsTotal.WithLabelValues(reason).Inc()
	m.sessionDuration.Observe(duration.Seconds())
}

func RecordRender(kind string) {
	getMetrics().rendersTotal.WithLabelValues(kind).Inc()
}

func RecordReaction(operation string) {
	getMetrics().reactionsTotal.WithLabelValues(operation).Inc()
}

func RecordFilterToggle(category string) {
	getMetrics().filterToggles.WithLabelValues(category).Inc()
}

func RecordCleanupFailure(call string) {
	getMetrics().cleanupFailures.WithLabelValues(call).Inc()
}

func RecordCommand(platform, command string, success bool) {
	getMetrics().commandsTotal.WithLabelValues(platform, command, status(success)).Inc()
}

func RecordCatalogReload(entries int, success bool) {
	m := getMetrics()
	m.catalogReloads.WithLabelValues(status(success)).Inc()
	if success {
		m.catalogEntries.Set(float64(entries))
	}
}

func RecordTransportError(platform, call string) {
	getMetrics().transportErrors.WithLabelValues(platform, call).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
