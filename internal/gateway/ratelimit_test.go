package gateway

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestRateLimiter_Middleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects over burst with retry hint", func(t *testing.T) {
		limiter := NewRateLimiter(0.5, 2, testLogger())
		handler := limiter.Middleware(ok)

		codes := make([]int, 3)
		var last *httptest.ResponseRecorder
		for i := range codes {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			last = httptest.NewRecorder()
			handler.ServeHTTP(last, req)
			codes[i] = last.Code
		}

		if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
			t.Errorf("expected burst of 2 allowed, got %v", codes)
		}
		if codes[2] != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", codes[2])
		}
		retry, err := strconv.Atoi(last.Header().Get("Retry-After"))
		if err != nil || retry < 1 || retry > 2 {
			t.Errorf("expected Retry-After between 1 and 2, got %q", last.Header().Get("Retry-After"))
		}
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		limiter := NewRateLimiter(0.1, 1, testLogger())
		handler := limiter.Middleware(ok)

		for _, addr := range []string{"10.0.0.1:1234", "10.0.0.2:1234"} {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200 for %s, got %d", addr, rec.Code)
			}
		}
	})

	t.Run("changing the bearer token does not reset the limit", func(t *testing.T) {
		limiter := NewRateLimiter(0.1, 1, testLogger())
		handler := limiter.Middleware(ok)

		passed := 0
		for i := 0; i < 50; i++ {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			req.RemoteAddr = "10.0.0.9:4000"
			req.Header.Set("Authorization", fmt.Sprintf("Bearer fake-%d", i))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code == http.StatusOK {
				passed++
			}
		}

		if passed != 1 {
			t.Errorf("expected 1 request allowed, got %d", passed)
		}
		if limiter.clients() != 1 {
			t.Errorf("expected 1 tracked client, got %d", limiter.clients())
		}
	})

	t.Run("evicts idle clients", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		limiter := NewRateLimiter(1, 1, testLogger())
		limiter.now = func() time.Time { return now }
		handler := limiter.Middleware(ok)

		for i := 0; i < 20; i++ {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			req.RemoteAddr = fmt.Sprintf("10.0.1.%d:5000", i)
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}
		if limiter.clients() != 20 {
			t.Fatalf("expected 20 tracked clients, got %d", limiter.clients())
		}

		now = now.Add(idleTTL + time.Second)
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.RemoteAddr = "10.0.2.1:5000"
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if limiter.clients() != 1 {
			t.Errorf("expected idle clients evicted, got %d tracked", limiter.clients())
		}
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		delay    time.Duration
		expected int
	}{
		{10 * time.Millisecond, 1},
		{1500 * time.Millisecond, 2},
		{time.Hour, 60},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.delay); got != tt.expected {
			t.Errorf("expected %d for %s, got %d", tt.expected, tt.delay, got)
		}
	}
}
