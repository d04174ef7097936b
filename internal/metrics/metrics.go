package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the API and worker.
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// Notifications counts webhook notifications by outcome (accepted, ignored, rejected).
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "omnikassa_notifications_total", Help: "Processor notifications by outcome."},
		[]string{"outcome"},
	)
	// ReconcileRuns counts reconciliation runs by result.
	ReconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "omnikassa_reconcile_runs_total", Help: "Reconciliation runs by result."},
		[]string{"result"},
	)
	// ReconcileRows counts order result rows by disposition (applied, unresolved).
	ReconcileRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "omnikassa_reconcile_rows_total", Help: "Order result rows by disposition."},
		[]string{"disposition"},
	)
	// TokenRefreshes counts access token refreshes by result.
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "omnikassa_token_refreshes_total", Help: "Access token refreshes by result."},
		[]string{"result"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration, Notifications, ReconcileRuns, ReconcileRows, TokenRefreshes)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// ObserveReconcile records the outcome of one reconciliation run.
func ObserveReconcile(result string, applied, unresolved int) {
	ReconcileRuns.WithLabelValues(result).Inc()
	ReconcileRows.WithLabelValues("applied").Add(float64(applied))
	ReconcileRows.WithLabelValues("unresolved").Add(float64(unresolved))
}
