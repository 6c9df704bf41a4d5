package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// HealthChecker is an optional dependency (cache, object storage) whose
// state is reported but never fails readiness.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc struct {
	ComponentName string
	Fn            func(ctx context.Context) error
}

// Name returns ComponentName.
func (f CheckFunc) Name() string { return f.ComponentName }

// Check calls Fn.
func (f CheckFunc) Check(ctx context.Context) error { return f.Fn(ctx) }

// LocaleReporter snapshots the locale slots.
type LocaleReporter interface {
	Locales() []nlu.LocaleStatus
}

// HealthHandler handles the probe endpoints.
type HealthHandler struct {
	locales  LocaleReporter
	checkers []HealthChecker
	version  string
	startAt  time.Time
	timeout  time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version string, locales LocaleReporter, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		locales:  locales,
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		timeout:  5 * time.Second,
	}
}

// LivenessResponse is the body of GET /healthz.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the body of GET /readyz.
type ReadinessResponse struct {
	Status     string                         `json:"status"`
	Locales    []nlu.LocaleStatus             `json:"locales"`
	Components map[string]nlu.ComponentHealth `json:"components,omitempty"`
}

// Liveness handles GET /healthz. Always 200 while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz. It answers 503 only when a locale failed
// to load; loading locales and unhealthy optional components are reported
// as "degraded" with 200.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := ReadinessResponse{Status: "ready"}
	if h.locales != nil {
		resp.Locales = h.locales.Locales()
	}
	resp.Components = h.checkAll(ctx)

	failed := false
	for _, l := range resp.Locales {
		switch l.State {
		case nlu.LocaleFailed:
			failed = true
		case nlu.LocaleLoading:
			resp.Status = "degraded"
		}
	}
	for _, comp := range resp.Components {
		if comp.Status != nlu.HealthUp {
			resp.Status = "degraded"
		}
	}

	if failed {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// checkAll runs all checkers concurrently.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]nlu.ComponentHealth {
	if len(h.checkers) == 0 {
		return nil
	}
	results := make(map[string]nlu.ComponentHealth, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(hc HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := hc.Check(ctx)
			ch := nlu.ComponentHealth{
				Name:    hc.Name(),
				Status:  nlu.HealthUp,
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				ch.Status = nlu.HealthDown
				ch.Message = err.Error()
			}

			mu.Lock()
			results[hc.Name()] = ch
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

//Personal.AI order the ending
