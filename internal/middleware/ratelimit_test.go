package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiter(t *testing.T, cfg RateLimiterConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)
	return rl
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewRateLimiterConfig(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 10)
	if cfg.GeneralRate != rate.Limit(2) || cfg.GeneralBurst != 120 {
		t.Errorf("general = %v/%d, want 2/120", cfg.GeneralRate, cfg.GeneralBurst)
	}
	if cfg.LoginBurst != 10 {
		t.Errorf("login burst = %d, want 10", cfg.LoginBurst)
	}
	if DefaultRateLimiterConfig() != cfg {
		t.Error("default config should be 120/min general and 10/min login")
	}
}

func TestGeneralMiddleware_LimitsPerUser(t *testing.T) {
	rl := testRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    2,
		LoginRate:       rate.Limit(1),
		LoginBurst:      1,
		CleanupInterval: time.Hour,
	})
	handler := rl.GeneralMiddleware()(okHandler())

	do := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do("user-a"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := do("user-a")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1000" {
		t.Errorf("Retry-After = %q, want %q", w.Header().Get("Retry-After"), "1000")
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q", body.Code)
	}

	if w := do("user-b"); w.Code != http.StatusOK {
		t.Errorf("other user status = %d, want 200", w.Code)
	}
	if n := rl.GeneralLimiterCount(); n != 2 {
		t.Errorf("limiter count = %d, want 2", n)
	}
}

func TestGeneralMiddleware_RequiresUserID(t *testing.T) {
	rl := testRateLimiter(t, DefaultRateLimiterConfig())
	w := httptest.NewRecorder()
	rl.GeneralMiddleware()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLoginMiddleware_LimitsPerIP(t *testing.T) {
	rl := testRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    1,
		LoginRate:       rate.Limit(10.0 / 60.0),
		LoginBurst:      1,
		CleanupInterval: time.Hour,
	})
	handler := rl.LoginMiddleware()(okHandler())

	do := func(remoteAddr, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
		req.RemoteAddr = remoteAddr
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("10.0.0.1:1234", ""); code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", code)
	}
	if code := do("10.0.0.1:5678", ""); code != http.StatusTooManyRequests {
		t.Errorf("same IP status = %d, want 429", code)
	}
	if code := do("10.0.0.1:1234", "203.0.113.9, 10.0.0.1"); code != http.StatusOK {
		t.Errorf("forwarded client status = %d, want 200", code)
	}
	if n := rl.LoginLimiterCount(); n != 2 {
		t.Errorf("limiter count = %d, want 2", n)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"RemoteAddrのホスト部", "192.0.2.1:4321", "", "192.0.2.1"},
		{"X-Forwarded-Forの先頭", "192.0.2.1:4321", " 198.51.100.7 , 192.0.2.1", "198.51.100.7"},
		{"ポートなし", "192.0.2.1", "", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_CleanupEvictsStaleEntries(t *testing.T) {
	rl := testRateLimiter(t, RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    1,
		LoginRate:       rate.Limit(1),
		LoginBurst:      1,
		CleanupInterval: time.Hour,
	})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	rl.general.allow("stale", base)
	rl.login.allow("192.0.2.1", base)
	rl.general.allow("fresh", base.Add(90*time.Minute))

	rl.now = func() time.Time { return base.Add(150 * time.Minute) }
	rl.cleanup()

	if n := rl.GeneralLimiterCount(); n != 1 {
		t.Errorf("general count = %d, want 1", n)
	}
	if n := rl.LoginLimiterCount(); n != 0 {
		t.Errorf("login count = %d, want 0", n)
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := testRateLimiter(t, DefaultRateLimiterConfig())
	handler := rl.GeneralMiddleware()(okHandler())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(ContextWithUserID(req.Context(), "user-a"))
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	if n := rl.GeneralLimiterCount(); n != 1 {
		t.Errorf("limiter count = %d, want 1", n)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}
