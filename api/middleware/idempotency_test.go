package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubIdempotencyStore struct {
	values map[string]string
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{values: map[string]string{}}
}

func (s *stubIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *stubIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *stubIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func checkoutRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyRequiresHeaderOnGuardedRoute(t *testing.T) {
	handler := Idempotency(newStubIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, checkoutRequest(`{"provider":"paytr"}`, ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestIdempotencyIgnoresUnguardedRoute(t *testing.T) {
	calls := 0
	handler := Idempotency(newStubIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected pass-through, got status %d calls %d", resp.Code, calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newStubIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"order_id":"SH1"}}`))
	}))

	body := `{"provider":"paytr"}`

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest(body, "key-1"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequest(body, "key-1"))
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Body.String() != `{"data":{"order_id":"SH1"}}` {
		t.Fatalf("unexpected replayed body %q", second.Body.String())
	}
	if got := second.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected replayed content type, got %q", got)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newStubIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest(`{"provider":"paytr"}`, "key-1"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequest(`{"provider":"iyzico"}`, "key-1"))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", second.Code)
	}
}
