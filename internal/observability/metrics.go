// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	FeedRequests *prometheus.CounterVec
	FeedLatency  *prometheus.HistogramVec
	BreakerState *prometheus.GaugeVec

	// Ingest metrics
	DaysIngested    prometheus.Counter
	LastIngestedDay prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	WarningsTotal     *prometheus.CounterVec

	// Latest index values
	LatestActivity   prometheus.Gauge
	LatestIntent     prometheus.Gauge
	LatestConfidence prometheus.Gauge

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSClients      prometheus.Gauge
	WSMessagesSent prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "whale_index_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		FeedRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "requests_total",
			Help:      "Upstream feed requests by feed and status",
		}, []string{"feed", "status"}),
		FeedLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "request_latency_seconds",
			Help:      "Upstream feed request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feed"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per feed (0 closed, 1 half-open, 2 open)",
		}, []string{"feed"}),

		DaysIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "days_stored_total",
			Help:      "Total number of daily metric rows stored",
		}),
		LastIngestedDay: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "last_day_timestamp",
			Help:      "Unix timestamp of the most recent stored day",
		}),

		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of engine runs by status",
		}, []string{"status"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Engine stage duration in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"stage"}),
		WarningsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "warnings_total",
			Help:      "Non-fatal computation warnings by kind and component",
		}, []string{"kind", "component"}),

		LatestActivity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "activity",
			Help:      "Latest Activity Index value",
		}),
		LatestIntent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "intent",
			Help:      "Latest Intent Index value",
		}),
		LatestConfidence: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "confidence",
			Help:      "Latest confidence score",
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result (hit, miss)",
		}, []string{"result"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected WebSocket clients",
		}),
		WSMessagesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "messages_sent_total",
			Help:      "Snapshots delivered to WebSocket clients",
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordFeedRequest records one upstream feed call.
func RecordFeedRequest(feed, status string, seconds float64) {
	DefaultMetrics.FeedRequests.WithLabelValues(feed, status).Inc()
	DefaultMetrics.FeedLatency.WithLabelValues(feed).Observe(seconds)
}

// SetBreakerState records a circuit breaker transition.
func SetBreakerState(feed string, state int) {
	DefaultMetrics.BreakerState.WithLabelValues(feed).Set(float64(state))
}

// RecordIngest records stored days and the newest stored day.
func RecordIngest(days int, lastDayUnix int64) {
	DefaultMetrics.DaysIngested.Add(float64(days))
	if lastDayUnix > 0 {
		DefaultMetrics.LastIngestedDay.Set(float64(lastDayUnix))
	}
}

// RecordPipelineRun records an engine run.
func RecordPipelineRun(status string) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(status).Inc()
}

// RecordStage records the duration of one engine stage.
func RecordStage(stage string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordWarning counts a non-fatal computation warning.
func RecordWarning(kind, component string) {
	DefaultMetrics.WarningsTotal.WithLabelValues(kind, component).Inc()
}

// SetLatestIndex updates the latest index gauges.
func SetLatestIndex(activity, intent int, confidence float64) {
	DefaultMetrics.LatestActivity.Set(float64(activity))
	DefaultMetrics.LatestIntent.Set(float64(intent))
	DefaultMetrics.LatestConfidence.Set(confidence)
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// SetWSClients updates the connected client gauge.
func SetWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}

// RecordWSMessage counts one delivered snapshot.
func RecordWSMessage() {
	DefaultMetrics.WSMessagesSent.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRefresh marks a successful refresh.
func RecordRefresh(unix int64) {
	DefaultMetrics.LastSuccessfulRefresh.Set(float64(unix))
}
