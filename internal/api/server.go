// Package api serves pass predictions and trajectories over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smurphboy/Sat-Track/internal/auth"
	"github.com/smurphboy/Sat-Track/internal/cache"
	"github.com/smurphboy/Sat-Track/internal/health"
	"github.com/smurphboy/Sat-Track/internal/httputil"
	"github.com/smurphboy/Sat-Track/internal/metrics"
	"github.com/smurphboy/Sat-Track/internal/passes"
	"github.com/smurphboy/Sat-Track/internal/stream"
	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/transform"
)

// Defaults fill in request parameters the client leaves out.
type Defaults struct {
	Observer     *transform.Observer // nil: lat and lon are required
	MinElevation *float64            // nil: min_elevation is required
	Window       time.Duration       // end = start + Window when end is omitted
	Step         time.Duration       // trajectory sampling step
	SearchStep   time.Duration       // coarse pass search step
	MaxSamples   int                 // per trajectory request
	Workers      int                 // concurrent objects in a passes request
}

// Options holds the server's dependencies.
type Options struct {
	Addr       string
	Logger     *slog.Logger
	Auth       auth.Config
	Store      *tle.Store
	Cache      *cache.TrajectoryCache
	Finder     *passes.Finder
	Limiter    *httputil.IPRateLimiter // nil disables per-client rate limiting
	TrustProxy bool
	Stream     stream.Config
	Defaults   Defaults
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	store      *tle.Store
	cache      *cache.TrajectoryCache
	finder     *passes.Finder
	defaults   Defaults
	now        func() time.Time
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options) *Server {
	s := &Server{
		logger:   opts.Logger,
		store:    opts.Store,
		cache:    opts.Cache,
		finder:   opts.Finder,
		defaults: opts.Defaults,
		now:      time.Now,
	}
	if s.finder == nil {
		s.finder = passes.NewFinder(opts.Logger)
	}

	opts.Stream.TrustProxy = opts.TrustProxy
	streams := stream.NewHandler(s.planTrajectory, s.writeError, opts.Stream, opts.Logger.With("component", "stream"))

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool { return s.store.Get() != nil }))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/v1/passes", s.handlePasses)
	mux.HandleFunc("GET /api/v1/trajectory", s.handleTrajectory)
	mux.HandleFunc("GET /api/v1/trajectory/stream", streams.HandleTrajectory)

	// Build middleware chain: metrics -> logging -> rate limit -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)
	if opts.Limiter != nil {
		handler = apiOnly(opts.Limiter.Middleware(opts.TrustProxy, func(r *http.Request) {
			metrics.IncRateLimited(r.URL.Path)
		}), handler)
	}
	handler = loggingMiddleware(opts.Logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// apiOnly applies mw to /api/ paths and passes probes and metrics straight
// through to next.
func apiOnly(mw func(http.Handler) http.Handler, next http.Handler) http.Handler {
	wrapped := mw(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			wrapped.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
