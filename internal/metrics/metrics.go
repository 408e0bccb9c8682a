package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Histogram: proxy HTTP latency in seconds.
	ProxyLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wca_proxy_latency_seconds",
			Help:    "HTTP request latency for the proxy in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15, 30, 60, 180},
		},
		[]string{"path", "method", "status_code"},
	)

	// Counter: backend generation calls by outcome (ok | error).
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wca_backend_requests_total",
			Help: "Total number of backend generation calls by outcome.",
		},
		[]string{"outcome"},
	)

	// Histogram: backend generation latency in seconds.
	BackendLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wca_backend_latency_seconds",
			Help:    "Backend generation call latency in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		},
	)

	// Counter: synthetic stream chunks written to clients.
	StreamChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wca_stream_chunks_total",
			Help: "Total number of SSE content chunks written to clients.",
		},
	)

	// Counter: bearer token lookups served from the token cache.
	TokenCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wca_token_cache_hits_total",
			Help: "Total number of IAM token cache hits.",
		},
	)

	registerOnce sync.Once
)

// Register is called once in main() to register metrics. Extra calls are
// no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ProxyLatencySeconds,
			BackendRequestsTotal,
			BackendLatencySeconds,
			StreamChunksTotal,
			TokenCacheHitsTotal,
		)
	})
}

// ObserveBackend records one backend call.
func ObserveBackend(start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BackendRequestsTotal.WithLabelValues(outcome).Inc()
	BackendLatencySeconds.Observe(time.Since(start).Seconds())
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures proxy latency for each HTTP request. For streamed
// responses this covers the whole stream.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		ProxyLatencySeconds.
			WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.statusCode = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying Flusher.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
