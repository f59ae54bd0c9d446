package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skypass_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skypass_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	geometryQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skypass_geometry_queries_total",
			Help: "Look-angle evaluations by result.",
		},
		[]string{"result"},
	)

	passSearchSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skypass_pass_search_duration_seconds",
			Help:    "Time spent finding visibility events for one object.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	samplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skypass_trajectory_samples_total",
			Help: "Trajectory samples produced.",
		},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skypass_trajectory_cache_requests_total",
			Help: "Trajectory cache lookups by result.",
		},
		[]string{"result"},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skypass_trajectory_cache_entries",
			Help: "Trajectories held in the cache.",
		},
	)

	cacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skypass_trajectory_cache_evictions_total",
			Help: "Trajectories evicted from the cache.",
		},
	)

	catalogEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skypass_catalog_entries",
			Help: "Entries in the loaded catalog.",
		},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skypass_catalog_age_seconds",
			Help: "Seconds since the loaded catalog file was written.",
		},
	)

	activeStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skypass_active_streams",
			Help: "Open trajectory SSE streams.",
		},
	)

	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skypass_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(geometryQueriesTotal)
	prometheus.MustRegister(passSearchSeconds)
	prometheus.MustRegister(samplesTotal)
	prometheus.MustRegister(cacheRequestsTotal)
	prometheus.MustRegister(cacheEntries)
	prometheus.MustRegister(cacheEvictionsTotal)
	prometheus.MustRegister(catalogEntries)
	prometheus.MustRegister(catalogAgeSeconds)
	prometheus.MustRegister(activeStreams)
	prometheus.MustRegister(rateLimitedTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncGeometryQueries counts one look-angle evaluation ("ok" or "error").
func IncGeometryQueries(result string) {
	geometryQueriesTotal.WithLabelValues(result).Inc()
}

// ObservePassSearch records how long one object's event search took.
func ObservePassSearch(d time.Duration) {
	passSearchSeconds.Observe(d.Seconds())
}

// AddSamples counts produced trajectory samples.
func AddSamples(n int) {
	samplesTotal.Add(float64(n))
}

// IncCache counts a trajectory cache lookup ("hit" or "miss").
func IncCache(result string) {
	cacheRequestsTotal.WithLabelValues(result).Inc()
}

// SetCacheEntries publishes the current cache size.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// AddCacheEvictions counts evicted cache entries.
func AddCacheEvictions(n int) {
	cacheEvictionsTotal.Add(float64(n))
}

// SetCatalog records the size and age of the loaded catalog.
func SetCatalog(entries int, ageSeconds float64) {
	catalogEntries.Set(float64(entries))
	catalogAgeSeconds.Set(ageSeconds)
}

// StreamOpened and StreamClosed track open SSE streams.
func StreamOpened() { activeStreams.Inc() }

func StreamClosed() { activeStreams.Dec() }

// IncRateLimited counts a rejected request.
func IncRateLimited(path string) {
	rateLimitedTotal.WithLabelValues(normalizeRoute(path)).Inc()
}

var knownRoutes = map[string]bool{
	"/":                         true,
	"/healthz":                  true,
	"/readyz":                   true,
	"/metrics":                  true,
	"/api/v1/catalog":           true,
	"/api/v1/passes":            true,
	"/api/v1/trajectory":        true,
	"/api/v1/trajectory/stream": true,
}

// normalizeRoute maps a request path to a bounded label set so scanners
// cannot blow up series cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush passes through so event streams work behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
