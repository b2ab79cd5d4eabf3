package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type stubLimiter struct {
	counts map[string]int64
	limits map[string]int64
}

func newStubLimiter() *stubLimiter {
	return &stubLimiter{counts: map[string]int64{}, limits: map[string]int64{}}
}

func (s *stubLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	s.counts[scope]++
	s.limits[scope] = limit
	return s.counts[scope] <= limit, s.counts[scope], nil
}

func loginRequest(email string) *http.Request {
	body := `{"email":"` + email + `","password":"hunter2secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:51000"
	return req
}

func testPolicy() AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		Scope:      "auth:login",
		Window:     time.Minute,
		IPLimit:    3,
		EmailLimit: 2,
	}
}

func TestAuthRateLimitBlocksEmailBeforeIP(t *testing.T) {
	limiter := newStubLimiter()
	calls := 0
	handler := AuthRateLimit(limiter, testPolicy(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, loginRequest("ogrenci@example.com"))
		if resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i+1, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("ogrenci@example.com"))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", calls)
	}
}

func TestAuthRateLimitScopesEmailCaseInsensitively(t *testing.T) {
	limiter := newStubLimiter()
	handler := AuthRateLimit(limiter, testPolicy(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, email := range []string{"Ogrenci@Example.com", "ogrenci@example.com"} {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, loginRequest(email))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("OGRENCI@example.com"))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected shared email bucket to block, got %d", resp.Code)
	}
}

func TestAuthRateLimitRestoresBodyForHandler(t *testing.T) {
	limiter := newStubLimiter()
	var seen string
	handler := AuthRateLimit(limiter, testPolicy(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		seen = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("ogrenci@example.com"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(seen, "ogrenci@example.com") {
		t.Fatalf("expected downstream handler to see body, got %q", seen)
	}
}

func TestAuthRateLimitDisabledWithoutWindow(t *testing.T) {
	limiter := newStubLimiter()
	policy := AuthRateLimitPolicy{Scope: "auth:login"}
	calls := 0
	handler := AuthRateLimit(limiter, policy, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, loginRequest("ogrenci@example.com"))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", resp.Code)
		}
	}
	if calls != 5 {
		t.Fatalf("expected every request through, got %d", calls)
	}
}
