// Package metrics exposes Prometheus instrumentation for store operations
// and the HTTP transport, mirroring how the rest of the codebase wires
// promauto metrics behind a package-level Init call.
package metrics

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	storeOpLatency *prometheus.HistogramVec
	storeOpErrors  *prometheus.CounterVec

	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
)

var validLabelKey = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseLabels parses a comma-separated list of key=value pairs into
// Prometheus constant labels, with ${VAR} environment expansion.
func ParseLabels(s string) (prometheus.Labels, error) {
	s = os.Expand(s, os.Getenv)
	if s == "" {
		return nil, nil
	}
	labels := prometheus.Labels{}
	for _, pair := range strings.Split(s, ",") {
		idx := strings.IndexByte(pair, '=')
		if idx < 0 {
			return nil, fmt.Errorf("invalid label %q: expected key=value", pair)
		}
		k, v := pair[:idx], pair[idx+1:]
		if !validLabelKey.MatchString(k) {
			return nil, fmt.Errorf("invalid label key %q: must match [a-zA-Z_][a-zA-Z0-9_]*", k)
		}
		labels[k] = v
	}
	return labels, nil
}

var initOnce sync.Once

// Init registers all metrics with the given constant labels. Safe to call
// more than once; only the first call registers anything.
func Init(constLabels prometheus.Labels) {
	initOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(constLabels, prometheus.DefaultRegisterer)
		f := promauto.With(reg)

		httpRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
			Name: "memstore_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"})

		httpRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memstore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		storeOpLatency = f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memstore_store_operation_duration_seconds",
			Help:    "Store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"})

		storeOpErrors = f.NewCounterVec(prometheus.CounterOpts{
			Name: "memstore_store_operation_errors_total",
			Help: "Total store operation errors",
		}, []string{"operation"})

		cacheHitsTotal = f.NewCounter(prometheus.CounterOpts{
			Name: "memstore_cache_hits_total",
			Help: "Total Get-path cache hits",
		})

		cacheMissesTotal = f.NewCounter(prometheus.CounterOpts{
			Name: "memstore_cache_misses_total",
			Help: "Total Get-path cache misses",
		})
	})
}

// ObserveStoreOp records latency and, on error, an error counter for a
// named store operation (get, put, delete, search, list_namespaces).
func ObserveStoreOp(operation string, start time.Time, err error) {
	if storeOpLatency == nil {
		return
	}
	storeOpLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		storeOpErrors.WithLabelValues(operation).Inc()
	}
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	if cacheHitsTotal != nil {
		cacheHitsTotal.Inc()
	}
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	if cacheMissesTotal != nil {
		cacheMissesTotal.Inc()
	}
}

// GinMiddleware records HTTP request count and latency for every request.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpRequestsTotal == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration.Seconds())
	}
}
