package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client-side instrumentation for the request dispatcher and refresh
// coordinator. Collectors are registered on the default registry so the
// dev server's /metrics endpoint picks them up alongside process metrics.
var (
	// RequestsTotal counts dispatched portal API requests by method and
	// final HTTP status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ampm",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Portal API requests by method and final status code.",
	}, []string{"method", "code"})

	// RefreshTotal counts token refresh attempts by outcome (ok, failed).
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ampm",
		Subsystem: "client",
		Name:      "refresh_total",
		Help:      "Session refresh attempts by outcome.",
	}, []string{"outcome"})

	// RetriesTotal counts requests replayed after a successful refresh.
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ampm",
		Subsystem: "client",
		Name:      "retries_total",
		Help:      "Requests retried once after a token refresh.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ampm",
		Subsystem: "devserver",
		Name:      "request_duration_seconds",
		Help:      "Dev server request latency by method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "code"})
)

// ObserveRequest records a dispatched client request.
func ObserveRequest(method string, code int) {
	RequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ObserveRefresh records a refresh attempt outcome.
func ObserveRefresh(ok bool) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	RefreshTotal.WithLabelValues(outcome).Inc()
}

// Middleware instruments dev server requests.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requestDuration.
			WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
