package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(t *testing.T, h http.Handler, remoteAddr string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/pause", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRateLimiter_EnforcesLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Stop()
	h := limitedHandler(rl)

	for i := 0; i < 3; i++ {
		if code := hit(t, h, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := hit(t, h, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the limit, got %d", code)
	}

	// A different client is unaffected.
	if code := hit(t, h, "10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("expected other IP to pass, got %d", code)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)
	defer rl.Stop()
	h := limitedHandler(rl)

	if code := hit(t, h, "10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := hit(t, h, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 inside the window, got %d", code)
	}

	time.Sleep(30 * time.Millisecond)

	if code := hit(t, h, "10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("expected a fresh window to pass, got %d", code)
	}
}

func TestRateLimiter_KeepsLimitingAfterStop(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()

	// The limiter still limits after Stop; only the cleanup goroutine ends.
	h := limitedHandler(rl)
	if code := hit(t, h, "10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("expected stopped limiter to keep serving, got %d", code)
	}
	if code := hit(t, h, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("expected stopped limiter to keep limiting, got %d", code)
	}
}
