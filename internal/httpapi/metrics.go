package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmpool",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llmpool",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern and method",
			Buckets:   []float64{.005, .025, .1, .5, 1, 2.5, 10, 30, 120},
		},
		[]string{"path", "method"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "llmpool",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "HTTP requests currently being served, by method",
		},
		[]string{"method"},
	)

	apiErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmpool",
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Pool and backend errors returned to clients, by mapped status",
		},
		[]string{"status"},
	)

	backpressureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmpool",
			Subsystem: "http",
			Name:      "backpressure_total",
			Help:      "Requests rejected with 429 because a worker queue was full",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, apiErrorsTotal, backpressureTotal)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus. Install it with
// Router.Use so the route pattern is known once the handler returns.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inflight := httpInflight.WithLabelValues(r.Method)
		inflight.Inc()
		defer inflight.Dec()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(sr.status)).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routePattern returns the matched chi pattern. Unmatched requests share one
// label so worker IDs never leak into label values.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// IncrementBackpressure counts a 429 response.
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	backpressureTotal.WithLabelValues(reason).Inc()
}

func countError(status int) {
	apiErrorsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}
