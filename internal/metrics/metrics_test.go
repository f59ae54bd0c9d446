package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/catalog", "/api/v1/catalog"},
		{"/api/v1/passes", "/api/v1/passes"},
		{"/api/v1/trajectory", "/api/v1/trajectory"},
		{"/api/v1/trajectory/stream", "/api/v1/trajectory/stream"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/passes", "other"},
		{"/api/v1/passes/25544", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418"))
	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/scan/"+strings.Repeat("x", 3), nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418"))
	if after-before != 3 {
		t.Errorf("counted %v requests, want 3", after-before)
	}
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(samplesTotal)
	AddSamples(42)
	if got := testutil.ToFloat64(samplesTotal) - before; got != 42 {
		t.Errorf("samples delta = %v, want 42", got)
	}

	hits := testutil.ToFloat64(cacheRequestsTotal.WithLabelValues("hit"))
	IncCache("hit")
	if got := testutil.ToFloat64(cacheRequestsTotal.WithLabelValues("hit")) - hits; got != 1 {
		t.Errorf("cache hit delta = %v, want 1", got)
	}

	SetCatalog(7, 120)
	if got := testutil.ToFloat64(catalogEntries); got != 7 {
		t.Errorf("catalog entries = %v, want 7", got)
	}

	StreamOpened()
	StreamOpened()
	StreamClosed()
	if got := testutil.ToFloat64(activeStreams); got != 1 {
		t.Errorf("active streams = %v, want 1", got)
	}
	StreamClosed()
}
