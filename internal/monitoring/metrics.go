package monitoring

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestStats is the JSON view of served requests. Latency histograms and
// in-flight counts live in the prometheus collectors.
type RequestStats struct {
	Requests  int64            `json:"requests"`
	Errors    int64            `json:"errors"`
	AvgMillis float64          `json:"avg_duration_ms"`
	Statuses  map[string]int64 `json:"statuses"`
	Routes    map[string]int64 `json:"routes"`
}

type requestRecorder struct {
	mu      sync.Mutex
	stats   RequestStats
	total   time.Duration
	started time.Time
}

var requests = &requestRecorder{
	stats: RequestStats{
		Statuses: make(map[string]int64),
		Routes:   make(map[string]int64),
	},
	started: time.Now(),
}

func (r *requestRecorder) observe(route string, status int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Requests++
	if status >= 400 {
		r.stats.Errors++
	}
	r.total += d
	r.stats.AvgMillis = float64(r.total.Microseconds()) / 1000 / float64(r.stats.Requests)
	r.stats.Statuses[strconv.Itoa(status)]++
	r.stats.Routes[route]++
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()

		c.Next()

		httpInFlight.Dec()
		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(duration.Seconds())
		requests.observe(c.Request.Method+" "+route, status, duration)
	}
}

// GetRequestStats returns a copy of the request counters.
func GetRequestStats() RequestStats {
	requests.mu.Lock()
	defer requests.mu.Unlock()

	stats := requests.stats
	stats.Statuses = make(map[string]int64, len(requests.stats.Statuses))
	for k, v := range requests.stats.Statuses {
		stats.Statuses[k] = v
	}
	stats.Routes = make(map[string]int64, len(requests.stats.Routes))
	for k, v := range requests.stats.Routes {
		stats.Routes[k] = v
	}
	return stats
}

type ProcessStats struct {
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
	HeapMB     uint64 `json:"heap_mb"`
	NumGC      uint32 `json:"num_gc"`
}

func GetProcessStats() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ProcessStats{
		Uptime:     time.Since(requests.started).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapMB:     m.HeapAlloc / 1024 / 1024,
		NumGC:      m.NumGC,
	}
}

// MetricsHandler serves the JSON metrics view. extra is merged into the
// response under its own keys, e.g. connection or cache statistics.
func MetricsHandler(extra func() gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"application": GetRequestStats(),
			"system":      GetProcessStats(),
			"timestamp":   time.Now(),
		}
		if extra != nil {
			for k, v := range extra() {
				response[k] = v
			}
		}

		c.JSON(http.StatusOK, response)
	}
}
