package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP collectors. The path label is the route template (raw path only for
// unmatched requests) so run IDs and handles never become label values.
var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outreach_http_requests_inflight",
			Help: "HTTP requests being served.",
		},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_http_response_size_bytes",
			Help:    "HTTP response body size by method and route.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
		},
		[]string{"method", "path"},
	)

	// httpRejections counts requests stopped by middleware, by error code.
	httpRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_http_rejections_total",
			Help: "Requests rejected by middleware, by error code.",
		},
		[]string{"code"},
	)

	idemReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_http_idempotent_replays_total",
			Help: "POST requests answered from a stored idempotency record.",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, httpRejections, idemReplays)
}

// Metrics records request count, latency, in-flight gauge and response size.
// Mount GET /metrics with promhttp separately.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		method, path := c.Request.Method, routePath(c)
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// size is -1 when nothing was written
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

// reject writes the API error envelope, counts the rejection and stops the
// chain.
func reject(c *gin.Context, status int, code, msg string) {
	httpRejections.WithLabelValues(code).Inc()
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.GetString(requestIDKey),
		"code":       code,
		"message":    msg,
	})
}
