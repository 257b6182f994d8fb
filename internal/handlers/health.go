package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/httpx"
)

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"

	defaultCheckTimeout = 3 * time.Second
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// HealthHandlers serves liveness and readiness endpoints.
type HealthHandlers struct {
	build        BuildInfo
	checks       map[string]HealthCheck
	checkTimeout time.Duration
	clock        func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo sets the build metadata reported by /healthz.
func WithHealthBuildInfo(info BuildInfo) HealthOption {
	return func(h *HealthHandlers) { h.build = info }
}

// WithHealthCheck registers a readiness probe under name.
func WithHealthCheck(name string, check HealthCheck) HealthOption {
	return func(h *HealthHandlers) {
		if name != "" && check != nil {
			h.checks[name] = check
		}
	}
}

// WithHealthCheckTimeout bounds each readiness probe.
func WithHealthCheckTimeout(timeout time.Duration) HealthOption {
	return func(h *HealthHandlers) {
		if timeout > 0 {
			h.checkTimeout = timeout
		}
	}
}

// WithHealthClock overrides the time source.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs HealthHandlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		checks:       make(map[string]HealthCheck),
		checkTimeout: defaultCheckTimeout,
		clock:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

// Healthz reports liveness without touching dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	now := h.clock()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      HealthStatusOK,
		"version":     h.build.Version,
		"commitSha":   h.build.CommitSHA,
		"environment": h.build.Environment,
		"uptime":      now.Sub(h.build.StartedAt).Round(time.Second).String(),
		"timestamp":   now.UTC().Format(time.RFC3339),
	})
}

type checkResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Readyz runs every registered probe concurrently and reports 503 if any fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]checkResult, len(h.checks))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
			defer cancel()

			start := h.clock()
			err := check(ctx)
			result := checkResult{Status: HealthStatusOK, LatencyMS: h.clock().Sub(start).Milliseconds()}
			if err != nil {
				result.Status = HealthStatusDegraded
				result.Error = err.Error()
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := HealthStatusOK
	details := []string{}
	for name, result := range results {
		if result.Status != HealthStatusOK {
			status = HealthStatusDegraded
			details = append(details, fmt.Sprintf("%s: %s", name, result.Error))
		}
	}
	sort.Strings(details)

	code := http.StatusOK
	if status != HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, map[string]any{
		"status":      status,
		"checks":      results,
		"details":     details,
		"generatedAt": h.clock().UTC().Format(time.RFC3339),
	})
}
