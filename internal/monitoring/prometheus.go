package monitoring

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	storeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tugasku_store_operations_total",
			Help: "Storage operations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	storeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tugasku_store_operation_duration_seconds",
			Help:    "Storage operation latency including connection acquisition",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	taskMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tugasku_task_mutations_total",
			Help: "Task mutations by kind and result",
		},
		[]string{"kind", "result"},
	)

	entityFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tugasku_task_fallbacks_total",
			Help: "Defaults substituted while normalizing task input",
		},
		[]string{"field"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tugasku_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tugasku_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tugasku_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)
)

func RecordStoreOperation(op, outcome string, d time.Duration) {
	storeOperations.WithLabelValues(op, outcome).Inc()
	storeDuration.WithLabelValues(op).Observe(d.Seconds())
}

func RecordTaskMutation(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	taskMutations.WithLabelValues(kind, result).Inc()
}

func RecordFallback(field string) {
	entityFallbacks.WithLabelValues(field).Inc()
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
