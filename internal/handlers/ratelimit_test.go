package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type advisingLimiter struct {
	keys []string
	wait time.Duration
}

func (l *advisingLimiter) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return false
}

func (l *advisingLimiter) RetryAfter(string) time.Duration { return l.wait }

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "remote addr", remote: "192.0.2.1:5050", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
		{name: "forwarded chain", remote: "10.0.0.1:80", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, want: "203.0.113.9"},
		{name: "real ip wins", remote: "10.0.0.1:80", headers: map[string]string{"X-Real-IP": "198.51.100.4", "X-Forwarded-For": "203.0.113.9"}, want: "198.51.100.4"},
		{name: "garbage forwarded", remote: "10.0.0.1:80", headers: map[string]string{"X-Forwarded-For": "not-an-ip"}, want: "10.0.0.1"},
		{name: "ipv6", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "empty", remote: "", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Fatalf("clientIP() = %q want %q", got, tt.want)
			}
		})
	}
}

func TestGuardRateSetsRetryAfter(t *testing.T) {
	limiter := &advisingLimiter{wait: 1500 * time.Millisecond}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/blocks/b/view", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	rec := httptest.NewRecorder()

	if guardRate(rec, req, limiter, "view") {
		t.Fatal("expected request to be rejected")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2 got %q", got)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "view:192.0.2.7" {
		t.Fatalf("unexpected limiter keys %v", limiter.keys)
	}

	rec = httptest.NewRecorder()
	if guardRate(rec, req, denyLimiter{}, "view") {
		t.Fatal("expected request to be rejected")
	}
	if rec.Header().Get("Retry-After") != "" {
		t.Fatal("limiters without advice must not set Retry-After")
	}

	if !guardRate(httptest.NewRecorder(), req, nil, "view") {
		t.Fatal("expected nil limiter to allow")
	}
}
