package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	XPAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_xp_awarded_total",
			Help: "XP awarded to learners, by event type",
		},
		[]string{"event"},
	)

	ProgressEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_events_total",
			Help: "Accepted progress events, by event type",
		},
		[]string{"event"},
	)

	PersistenceFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_persistence_fallbacks_total",
			Help: "Saves that reached only the local copy",
		},
	)

	PendingSyncs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "progress_pending_syncs",
			Help: "Learners whose latest record is not yet in the document store",
		},
	)

	ActivityDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_events_dropped_total",
			Help: "Activity events dropped because the buffer was full",
		},
	)

	CodeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code_runs_total",
			Help: "Code execution requests, by outcome",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			XPAwarded,
			ProgressEvents,
			PersistenceFallbacks,
			PendingSyncs,
			ActivityDropped,
			CodeRuns,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
