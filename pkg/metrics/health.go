package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the overall health state.
type HealthStatus string

const (
	// HealthStatusHealthy indicates all checks are passing.
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusUnhealthy indicates one or more checks are failing.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckFunc performs a health check. Returns nil if healthy.
type CheckFunc func() error

// HealthCheck aggregates named health checks and key metrics into a
// JSON health endpoint.
type HealthCheck struct {
	mu        sync.RWMutex
	checks    map[string]CheckFunc
	collector *Collector
	startTime time.Time
	version   string
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Metrics   *HealthMetrics         `json:"metrics,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthMetrics contains key metrics for health monitoring.
type HealthMetrics struct {
	SessionsActive uint64 `json:"sessions_active"`
	SessionsTotal  uint64 `json:"sessions_total"`
	BytesSent      uint64 `json:"bytes_sent"`
	BytesReceived  uint64 `json:"bytes_received"`
	AuthFailures   uint64 `json:"auth_failures"`
}

// NewHealthCheck creates a new health check instance.
func NewHealthCheck(collector *Collector, version string) *HealthCheck {
	return &HealthCheck{
		checks:    make(map[string]CheckFunc),
		collector: collector,
		startTime: time.Now(),
		version:   version,
	}
}

// AddCheck registers a named health check.
func (h *HealthCheck) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Run executes all checks and returns the aggregate response.
func (h *HealthCheck) Run() HealthResponse {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, fn := range h.checks {
		checks[name] = fn
	}
	h.mu.RUnlock()

	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(h.startTime).String(),
		Version:   h.version,
		Checks:    make(map[string]CheckResult, len(checks)),
	}

	for name, fn := range checks {
		start := time.Now()
		err := fn()
		result := CheckResult{
			Status:  HealthStatusHealthy,
			Latency: time.Since(start).String(),
		}
		if err != nil {
			result.Status = HealthStatusUnhealthy
			result.Message = err.Error()
			resp.Status = HealthStatusUnhealthy
		}
		resp.Checks[name] = result
	}

	if h.collector != nil {
		snap := h.collector.Snapshot()
		resp.Metrics = &HealthMetrics{
			SessionsActive: snap.SessionsActive,
			SessionsTotal:  snap.SessionsTotal,
			BytesSent:      snap.BytesSent,
			BytesReceived:  snap.BytesReceived,
			AuthFailures:   snap.AuthFailures,
		}
	}

	return resp
}

// Handler returns an http.Handler serving the health check as JSON.
// Returns 503 when any check fails.
func (h *HealthCheck) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := h.Run()

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	})
}

// ObservabilityServer serves /metrics and /healthz.
type ObservabilityServer struct {
	server *http.Server
}

// NewObservabilityServer wires a Prometheus exporter and health check
// into an HTTP server on addr.
func NewObservabilityServer(addr string, collector *Collector, health *HealthCheck, namespace string) *ObservabilityServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewPrometheusExporter(collector, namespace).Handler())
	if health != nil {
		mux.Handle("/healthz", health.Handler())
	}

	return &ObservabilityServer{server: newHTTPServer(addr, mux)}
}

// Start begins serving. Blocks until the server stops.
func (s *ObservabilityServer) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *ObservabilityServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
