package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterBurstThenThrottle(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("burst requests should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("third rapid request should be throttled")
	}
	// Other clients keep their own bucket.
	if !rl.Allow("10.0.0.2") {
		t.Fatal("a different IP should not be throttled")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/appointments", nil)
	req.RemoteAddr = "10.0.0.3:1234"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be throttled, got %d", second.Code)
	}
}
