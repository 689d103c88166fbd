package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterResetsAfterWindow(t *testing.T) {
	l := newLimiter(2)
	clock := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	allowed := func(ip string) bool {
		ok, _ := l.Allow(ip)
		return ok
	}
	if !allowed("1.2.3.4") || !allowed("1.2.3.4") {
		t.Fatal("expected first two requests allowed")
	}
	clock = clock.Add(20 * time.Second)
	ok, wait := l.Allow("1.2.3.4")
	if ok {
		t.Fatal("expected third request limited")
	}
	if wait != 40*time.Second {
		t.Fatalf("expected 40s until reset, got %s", wait)
	}
	if !allowed("5.6.7.8") {
		t.Fatal("expected other client allowed")
	}
	clock = clock.Add(41 * time.Second)
	if !allowed("1.2.3.4") {
		t.Fatal("expected allowance after window reset")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := map[time.Duration]int{
		0:                      1,
		300 * time.Millisecond: 1,
		40 * time.Second:       40,
		40*time.Second + 1:     41,
	}
	for wait, want := range cases {
		if got := retryAfterSeconds(wait); got != want {
			t.Fatalf("retryAfterSeconds(%s): expected %d, got %d", wait, want, got)
		}
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	r.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Fatalf("expected forwarded client, got %q", got)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	h.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("expected caller id kept, got %q / %q", seen, rec.Header().Get("X-Request-Id"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 36 || rec.Header().Get("X-Request-Id") != seen {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
}

func TestRecoveryReturns500(t *testing.T) {
	h := withRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := withRateLimit(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
		if want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After from the fresh window, got %q", rec.Header().Get("Retry-After"))
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach handler")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/ranking", nil))
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight response %d %v", rec.Code, rec.Header())
	}
}
