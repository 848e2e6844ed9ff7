package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"airwatch/internal/types"
)

type fixedRateLimitStore struct {
	result  RateLimitResult
	err     error
	lastKey string
	limit   int
	window  time.Duration
}

func (s *fixedRateLimitStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	s.lastKey, s.limit, s.window = key, limit, window
	return s.result, s.err
}

func newRateLimitedServer(t *testing.T, store RateLimitStore) *Server {
	t.Helper()
	srv := newTestServer(t)
	srv.Config.Security.RateLimitRPS = 2
	srv.Config.Security.RateLimitBurst = 4
	srv.RateLimitStore = store
	return srv
}

func serveRateLimited(srv *Server, req *http.Request) (*httptest.ResponseRecorder, bool) {
	called := false
	rec := httptest.NewRecorder()
	srv.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)
	return rec, called
}

func TestRateLimit_AllowedSetsHeaders(t *testing.T) {
	store := &fixedRateLimitStore{result: RateLimitResult{Allowed: true, Remaining: 3, ResetAt: time.Unix(1700000000, 0)}}
	srv := newRateLimitedServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/assessment", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	rec, called := serveRateLimited(srv, req)

	if !called {
		t.Fatal("next handler not called")
	}
	if store.lastKey != "192.0.2.10" {
		t.Errorf("key = %q", store.lastKey)
	}
	if store.limit != 4 || store.window != 2*time.Second {
		t.Errorf("limit/window = %d/%v, want 4/2s", store.limit, store.window)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "4" || rec.Header().Get("X-RateLimit-Remaining") != "3" {
		t.Errorf("headers = %v", rec.Header())
	}
	if rec.Header().Get("X-RateLimit-Reset") != "1700000000" {
		t.Errorf("reset = %q", rec.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_DeniedReturns429(t *testing.T) {
	store := &fixedRateLimitStore{result: RateLimitResult{Allowed: false, ResetAt: time.Now().Add(3 * time.Second)}}
	srv := newRateLimitedServer(t, store)

	rec, called := serveRateLimited(srv, httptest.NewRequest(http.MethodPost, "/v1/evaluate", nil))

	if called {
		t.Error("next handler should not run")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if resp := decodeError(t, rec); resp.Error.Code != string(types.ErrCodeRateLimit) {
		t.Errorf("code = %q", resp.Error.Code)
	}
}

func TestRateLimit_FailsOpenOnStoreError(t *testing.T) {
	srv := newRateLimitedServer(t, &fixedRateLimitStore{err: errors.New("down")})
	_, called := serveRateLimited(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("store error should fail open")
	}
}

func TestRateLimit_DisabledByConfig(t *testing.T) {
	store := &fixedRateLimitStore{}
	srv := newRateLimitedServer(t, store)
	srv.Config.Security.RateLimitRPS = 0

	_, called := serveRateLimited(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if !called || store.lastKey != "" {
		t.Error("zero RPS should bypass the store")
	}
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:1234"
	if got := extractClientIP(req); got != "10.1.1.1" {
		t.Errorf("RemoteAddr ip = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := extractClientIP(req); got != "203.0.113.5" {
		t.Errorf("XFF ip = %q", got)
	}
}
