package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthHandlersHealthz(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(30 * time.Second)
	handlers := NewHealthHandlers(
		WithHealthBuildInfo(BuildInfo{
			Version:     "1.0.0",
			CommitSHA:   "abc123",
			Environment: "prod",
			StartedAt:   start,
		}),
		WithHealthClock(func() time.Time { return now }),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	handlers.Healthz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["status"] != HealthStatusOK {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["version"] != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %v", body["version"])
	}
	if body["commitSha"] != "abc123" {
		t.Fatalf("expected commit abc123, got %v", body["commitSha"])
	}
	if body["environment"] != "prod" {
		t.Fatalf("expected environment prod, got %v", body["environment"])
	}
	if body["uptime"] != "30s" {
		t.Fatalf("expected uptime 30s, got %v", body["uptime"])
	}
}

func TestHealthHandlersReadyzSuccess(t *testing.T) {
	handlers := NewHealthHandlers(
		WithHealthCheck("postgres", func(context.Context) error { return nil }),
		WithHealthCheck("pubsub", func(context.Context) error { return nil }),
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()

	handlers.Readyz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body struct {
		Status string                 `json:"status"`
		Checks map[string]checkResult `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Status != HealthStatusOK {
		t.Fatalf("expected ok status, got %s", body.Status)
	}
	if len(body.Checks) != 2 {
		t.Fatalf("expected two checks, got %d", len(body.Checks))
	}
	if body.Checks["postgres"].Status != HealthStatusOK {
		t.Fatalf("expected postgres ok, got %+v", body.Checks["postgres"])
	}
}

func TestHealthHandlersReadyzDegraded(t *testing.T) {
	handlers := NewHealthHandlers(
		WithHealthCheck("postgres", func(context.Context) error { return nil }),
		WithHealthCheck("kafka", func(context.Context) error { return errors.New("broker unreachable") }),
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()

	handlers.Readyz(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}

	var body struct {
		Status  string                 `json:"status"`
		Checks  map[string]checkResult `json:"checks"`
		Details []string               `json:"details"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Status != HealthStatusDegraded {
		t.Fatalf("expected degraded status, got %s", body.Status)
	}
	if body.Checks["kafka"].Error != "broker unreachable" {
		t.Fatalf("expected kafka error, got %+v", body.Checks["kafka"])
	}
	if len(body.Details) != 1 || body.Details[0] != "kafka: broker unreachable" {
		t.Fatalf("unexpected details %v", body.Details)
	}
}

func TestHealthHandlersReadyzCheckTimeout(t *testing.T) {
	handlers := NewHealthHandlers(
		WithHealthCheckTimeout(10*time.Millisecond),
		WithHealthCheck("slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()

	handlers.Readyz(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}
