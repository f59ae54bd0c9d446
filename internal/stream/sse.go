// Package stream implements Server-Sent Events (SSE) delivery of a sampled
// trajectory. Clients connect via GET /api/v1/trajectory/stream with the same
// parameters as /api/v1/trajectory and receive one message per instant.
//
// SSE message format:
//
//	data: {"type":"metadata","object":"ISS (ZARYA)","norad_id":25544,"count":612,...}\n\n
//	data: {"type":"sample","index":0,"time":"2024-03-02T18:10:05Z","azimuth":231.4,...}\n\n
//	data: {"type":"end","count":612}\n\n
//
// With pace=realtime each sample is held until its instant arrives, so a
// client can drive an antenna rotator directly. Keep-alive comments (:\n\n)
// are sent every KeepaliveInterval while waiting.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/smurphboy/Sat-Track/internal/geometry"
	"github.com/smurphboy/Sat-Track/internal/httputil"
	"github.com/smurphboy/Sat-Track/internal/metrics"
	"github.com/smurphboy/Sat-Track/internal/passes"
	"github.com/smurphboy/Sat-Track/internal/report"
	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/trajectory"
	"github.com/smurphboy/Sat-Track/internal/transform"
)

// Config holds streaming limits.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxConcurrent      int           // Max concurrent streams overall (default: 1000).
	BandwidthLimit     int           // Bytes per second per stream; 0 disables throttling.
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Take the client address from proxy headers.
}

// Plan is a resolved trajectory request: what to sample and over which
// interval.
type Plan struct {
	Entry    tle.Entry
	Observer transform.Observer
	Geometry geometry.Geometry
	Start    time.Time
	End      time.Time
	Step     time.Duration
	Pass     *passes.Pass // nil for an explicit interval
}

// Planner resolves a request into a Plan. It is expected to enforce any
// sample budget.
type Planner func(r *http.Request) (Plan, error)

// ErrorWriter writes a JSON error response for a Planner failure.
type ErrorWriter func(w http.ResponseWriter, err error)

// Handler manages SSE streaming connections.
type Handler struct {
	plan     Planner
	writeErr ErrorWriter
	config   Config
	limiter  *streamLimiter
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(plan Planner, writeErr ErrorWriter, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 10
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		plan:     plan,
		writeErr: writeErr,
		config:   config,
		limiter:  newStreamLimiter(config.MaxConcurrentPerIP, config.MaxConcurrent),
		logger:   logger,
	}
}

// HandleTrajectory serves the SSE trajectory stream.
// GET /api/v1/trajectory/stream?name=ISS%20(ZARYA)&pass=0&min_elevation=10&pace=realtime
func (h *Handler) HandleTrajectory(w http.ResponseWriter, r *http.Request) {
	var realtime bool
	switch pace := r.URL.Query().Get("pace"); pace {
	case "", "fast":
	case "realtime":
		realtime = true
	default:
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid pace %q, must be fast or realtime", pace))
		return
	}

	plan, err := h.plan(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	// Rate limiting: enforce concurrent stream limits.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if err := h.limiter.acquire(ip); err != nil {
		metrics.IncRateLimited(r.URL.Path)
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
			"error", err,
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, err.Error())
		return
	}

	metrics.StreamOpened()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"object", plan.Entry.Name,
		"start", plan.Start,
		"end", plan.End,
		"realtime", realtime,
	)

	c := &client{w: w, ip: ip, logger: h.logger}

	// Cleanup on disconnect: release the slot and update metrics.
	defer func() {
		h.limiter.release(ip)
		metrics.StreamClosed()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"messages", c.messagesSent,
			"bytes", c.bytesSent,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}
	c.flusher = flusher
	c.rc = rc
	if h.config.BandwidthLimit > 0 {
		c.bandwidth = rate.NewLimiter(rate.Limit(h.config.BandwidthLimit), h.config.BandwidthLimit)
	}

	// Send jittered retry interval (3-7s) to prevent thundering-herd
	// reconnection storms when the server restarts.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	ctx := r.Context()
	doc := report.NewDocument(plan.Entry, plan.Observer, plan.Start, plan.End, plan.Step, plan.Pass, nil)
	meta := metadataMessage{
		Type:        "metadata",
		Object:      doc.Object,
		NORADID:     doc.NORADID,
		Title:       doc.Title,
		Start:       doc.Start,
		End:         doc.End,
		StepSeconds: doc.StepSeconds,
		Count:       trajectory.Count(plan.Start, plan.End, plan.Step),
		Pass:        doc.Pass,
		Realtime:    realtime,
	}
	if err := c.sendJSON(ctx, meta); err != nil {
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	sent := 0
	defer func() { metrics.AddSamples(sent) }()

	for s, err := range trajectory.Samples(plan.Geometry, plan.Start, plan.End, plan.Step) {
		if err != nil {
			h.logger.Warn("stream sampling failed", "remote_ip", ip, "object", plan.Entry.Name, "error", err)
			c.sendJSON(ctx, errorMessage{Type: "error", Error: err.Error()})
			return
		}
		if realtime {
			if err := h.waitUntil(ctx, c, s.Time); err != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := c.sendJSON(ctx, sampleMessage{Type: "sample", Index: sent, Sample: s}); err != nil {
			h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
			return
		}
		sent++
	}

	if err := c.sendJSON(ctx, endMessage{Type: "end", Count: sent}); err != nil {
		h.logger.Warn("stream send error (end)", "remote_ip", ip, "error", err)
	}
}

// waitUntil blocks until t, sending keep-alive comments while it waits.
func (h *Handler) waitUntil(ctx context.Context, c *client, t time.Time) error {
	for {
		d := time.Until(t)
		if d <= 0 {
			return nil
		}

		timer := time.NewTimer(min(d, h.config.KeepaliveInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if time.Until(t) > 0 {
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive error", "remote_ip", c.ip, "error", err)
				return err
			}
		}
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type        string             `json:"type"`
	Object      string             `json:"object"`
	NORADID     int                `json:"norad_id"`
	Title       string             `json:"title"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	StepSeconds float64            `json:"step_seconds"`
	Count       int                `json:"count"`
	Pass        *report.PassExport `json:"pass,omitempty"`
	Realtime    bool               `json:"realtime"`
}

type sampleMessage struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	trajectory.Sample
}

type endMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
