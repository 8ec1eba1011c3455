package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultProbeTimeout bounds a readiness check
const DefaultProbeTimeout = 5 * time.Second

// Probe checks one dependency. A failing critical probe makes the service
// unhealthy; any other failing probe only degrades it.
type Probe struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// HealthChecker runs probes for the readiness endpoint
type HealthChecker struct {
	version string
	probes  []Probe
	started time.Time
	timeout time.Duration
}

// NewHealthChecker creates a checker over probes
func NewHealthChecker(version string, probes ...Probe) *HealthChecker {
	return &HealthChecker{
		version: version,
		probes:  probes,
		started: time.Now(),
		timeout: DefaultProbeTimeout,
	}
}

// HealthStatus is the body of the health endpoints
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Uptime       string                      `json:"uptime,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the outcome of one probe
type DependencyStatus struct {
	Status    string  `json:"status"`
	Critical  bool    `json:"critical"`
	Message   string  `json:"message,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

// Liveness reports healthy while the process serves requests
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

// Readiness runs every probe; 503 only when unhealthy
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeStatus(w, code, status)
}

// Check runs all probes concurrently
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	results := make([]DependencyStatus, len(h.probes))

	var wg sync.WaitGroup
	for i, probe := range h.probes {
		wg.Add(1)
		go func(i int, probe Probe) {
			defer wg.Done()
			results[i] = runProbe(ctx, probe)
		}(i, probe)
	}
	wg.Wait()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
	}
	if len(results) > 0 {
		status.Dependencies = make(map[string]DependencyStatus, len(results))
	}
	for i, result := range results {
		status.Dependencies[h.probes[i].Name] = result
		if result.Status == StatusHealthy {
			continue
		}
		if result.Critical {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}
	return status
}

// Names lists the probe names, sorted
func (h *HealthChecker) Names() []string {
	names := make([]string, 0, len(h.probes))
	for _, p := range h.probes {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func runProbe(ctx context.Context, probe Probe) DependencyStatus {
	start := time.Now()
	err := probe.Check(ctx)
	result := DependencyStatus{
		Status:    StatusHealthy,
		Critical:  probe.Critical,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

func writeStatus(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// RegisterHealthRoutes registers the health endpoints
func RegisterHealthRoutes(router *mux.Router, checker *HealthChecker) {
	router.HandleFunc("/health", checker.Readiness).Methods(http.MethodGet)
	router.HandleFunc("/health/live", checker.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", checker.Readiness).Methods(http.MethodGet)
}
