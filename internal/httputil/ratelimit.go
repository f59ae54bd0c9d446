package httputil

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	r       rate.Limit
	b       int
	idle    time.Duration
}

// NewIPRateLimiter allows each client perSecond requests with bursts of up
// to burst. Buckets idle for ten minutes are forgotten by Sweep.
func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		clients: make(map[string]*clientLimiter),
		r:       rate.Limit(perSecond),
		b:       burst,
		idle:    10 * time.Minute,
	}
}

// Limiter returns the bucket for ip, creating it if needed.
func (l *IPRateLimiter) Limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter
}

// Sweep drops buckets not used within the idle period and returns how many
// remain.
func (l *IPRateLimiter) Sweep() int {
	cutoff := time.Now().Add(-l.idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
	return len(l.clients)
}

// Middleware rejects requests from clients over their rate with 429 and a
// Retry-After header. onLimit, if non-nil, is called for each rejection.
func (l *IPRateLimiter) Middleware(trustProxy bool, onLimit func(*http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lim := l.Limiter(ClientIP(r, trustProxy))
			res := lim.Reserve()
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				if onLimit != nil {
					onLimit(r)
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
