package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// CredentialThrottle guards the signup and login routes: each client IP may
// attempt at most rate requests per second, with bursts of up to burst
// requests after a quiet period. Exhausted clients get 429.
func CredentialThrottle(rate float64, burst int) func(http.Handler) http.Handler {
	t := &throttle{
		clients: make(map[string]*allowance),
		rate:    rate,
		burst:   float64(burst),
	}
	go t.evictIdle()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.take(clientIP(r)) {
				http.Error(w, "too many attempts", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// throttle refills each client's allowance continuously rather than on a
// fixed window, so a burst after silence passes but a steady flood does not.
type throttle struct {
	mu      sync.Mutex
	clients map[string]*allowance
	rate    float64
	burst   float64
}

type allowance struct {
	remaining float64
	seen      time.Time
}

func (t *throttle) take(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	c, ok := t.clients[ip]
	if !ok {
		c = &allowance{remaining: t.burst, seen: now}
		t.clients[ip] = c
	} else {
		c.remaining += now.Sub(c.seen).Seconds() * t.rate
		if c.remaining > t.burst {
			c.remaining = t.burst
		}
		c.seen = now
	}
	if c.remaining < 1 {
		return false
	}
	c.remaining--
	return true
}

// evictIdle drops clients not seen for a while so the map stays bounded.
func (t *throttle) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		t.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for ip, c := range t.clients {
			if c.seen.Before(cutoff) {
				delete(t.clients, ip)
			}
		}
		t.mu.Unlock()
	}
}

// clientIP keys the throttle on the address alone; chi's RealIP middleware
// has already folded forwarding headers into RemoteAddr by this point, and
// keeping the ephemeral port would give every connection a fresh allowance.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
