package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitMiddleware(t *testing.T) {
	l := NewIPRateLimiter(0.01, 2)
	var limited int
	h := l.Middleware(false, func(*http.Request) { limited++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/v1/passes", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := range 2 {
		if rec := do("1.2.3.4:1000"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}

	rec := do("1.2.3.4:1001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-limit status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
		t.Errorf("body = %v, %v", body, err)
	}
	if limited != 1 {
		t.Errorf("onLimit called %d times", limited)
	}

	if rec := do("5.6.7.8:1000"); rec.Code != http.StatusNoContent {
		t.Errorf("other client limited: %d", rec.Code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	l.Limiter("1.1.1.1")
	l.Limiter("2.2.2.2")

	l.mu.Lock()
	l.clients["1.1.1.1"].lastSeen = time.Now().Add(-time.Hour)
	l.mu.Unlock()

	if n := l.Sweep(); n != 1 {
		t.Errorf("Sweep left %d clients, want 1", n)
	}
	if l.Limiter("2.2.2.2") == nil {
		t.Error("active client dropped")
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, "bad start")
	if rec.Code != http.StatusBadRequest || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("status=%d type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if got := rec.Body.String(); got != "{\"error\":\"bad start\"}\n" {
		t.Errorf("body = %q", got)
	}
}
