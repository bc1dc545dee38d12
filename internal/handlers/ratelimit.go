package handlers

import (
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// RateLimiter bounds how often a client may trigger provider lookups.
type RateLimiter interface {
	Allow(key string) bool
}

// retryAdvisor is implemented by limiters that can tell a rejected client
// when to come back.
type retryAdvisor interface {
	RetryAfter(key string) time.Duration
}

// guardRate reports whether the request may proceed. Rejected requests get a
// 429 response, with Retry-After when the limiter can estimate it.
func guardRate(w http.ResponseWriter, r *http.Request, limiter RateLimiter, scope string) bool {
	if limiter == nil {
		return true
	}

	key := scope + ":" + clientIP(r)
	if limiter.Allow(key) {
		return true
	}

	if advisor, ok := limiter.(retryAdvisor); ok {
		if wait := advisor.RetryAfter(key); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
	}
	respondError(r.Context(), w, http.StatusTooManyRequests, "too many requests")
	return false
}

// clientIP prefers the first valid address a proxy reported and falls back to
// the connection's remote address.
func clientIP(r *http.Request) string {
	for _, header := range []string{"X-Real-IP", "X-Forwarded-For"} {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		first, _, _ := strings.Cut(value, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}
	return remote
}
