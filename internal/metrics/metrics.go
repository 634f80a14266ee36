package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordercore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ordercore_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	couponValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordercore_coupon_validations_total",
			Help: "Coupon service calls by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	reconcilePasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordercore_reconcile_passes_total",
			Help: "Background coupon reconciliation passes by kind and result",
		},
		[]string{"kind", "result"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordercore_order_operations_total",
			Help: "Order submissions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	openSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ordercore_open_sessions",
			Help: "Order-creation sessions currently open",
		},
	)
)

// PrometheusMiddleware collects request counters and latencies.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
	}
}

func RecordCouponValidation(endpoint, result string) {
	couponValidations.WithLabelValues(endpoint, result).Inc()
}

func RecordReconcilePass(kind, result string) {
	reconcilePasses.WithLabelValues(kind, result).Inc()
}

func RecordOrderOperation(operation, outcome string) {
	orderOperations.WithLabelValues(operation, outcome).Inc()
}

func SessionOpened() {
	openSessions.Inc()
}

func SessionClosed() {
	openSessions.Dec()
}
