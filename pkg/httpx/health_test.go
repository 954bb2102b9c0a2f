package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ghuser/productcatalog/pkg/httpx"
)

type stubChecker struct{ err error }

func (s *stubChecker) Ping(_ context.Context) error { return s.err }

func serveHealth(t *testing.T, checks httpx.HealthChecks) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	httpx.HealthHandler(checks).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rr.Code, resp
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	code, resp := serveHealth(t, httpx.HealthChecks{
		Redis:    &stubChecker{},
		EventBus: &stubChecker{},
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp["status"] != "ok" {
		t.Errorf("status: got %q, want %q", resp["status"], "ok")
	}
}

func TestHealthHandler_RedisDown(t *testing.T) {
	code, resp := serveHealth(t, httpx.HealthChecks{
		Redis:    &stubChecker{err: errors.New("conn refused")},
		EventBus: &stubChecker{},
	})
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if resp["status"] != "degraded" || resp["redis"] != "unreachable" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHealthHandler_EventBusDown(t *testing.T) {
	code, resp := serveHealth(t, httpx.HealthChecks{
		Redis:    &stubChecker{},
		EventBus: &stubChecker{err: errors.New("db down")},
	})
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if resp["event_bus"] != "unreachable" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHealthHandler_RedisDisabled(t *testing.T) {
	code, resp := serveHealth(t, httpx.HealthChecks{
		EventBus: &stubChecker{},
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp["redis"] != "disabled" {
		t.Errorf("redis: got %q, want %q", resp["redis"], "disabled")
	}
}

func TestHealthHandler_AllDown(t *testing.T) {
	code, resp := serveHealth(t, httpx.HealthChecks{
		Redis:    &stubChecker{err: errors.New("x")},
		EventBus: &stubChecker{err: errors.New("y")},
	})
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if resp["redis"] != "unreachable" || resp["event_bus"] != "unreachable" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHealthHandler_ContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	httpx.HealthHandler(httpx.HealthChecks{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type: got %q", ct)
	}
}
