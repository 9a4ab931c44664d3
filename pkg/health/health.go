// Package health provides Kubernetes-style liveness and readiness probes.
//
// Checks run on demand when a probe endpoint is hit, each bounded by its own
// timeout. Readiness additionally gates on a manual flag so the server can
// pull itself out of rotation before a graceful shutdown.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Service evaluates liveness and readiness checks for probe endpoints.
type Service struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New returns a Service in the not-ready state. Call SetReady(true) once
// startup has finished.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a check for /livez. Liveness failures mean the
// process itself is broken (goroutine leaks, deadlocks).
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check for /readyz. Readiness failures mean
// the server cannot currently serve traffic (database down, cache cold).
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness flag. Graceful shutdown sets it to
// false first so load balancers stop routing before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the manual flag is set and every readiness check
// passes right now.
func (s *Service) IsReady(ctx context.Context) bool {
	if !s.ready.Load() {
		return false
	}
	s.mu.RLock()
	checks := s.readiness
	s.mu.RUnlock()
	_, healthy := runChecks(ctx, checks)
	return healthy
}

// LiveEndpoint serves /livez: 200 when every liveness check passes, 503
// otherwise. The body lists every check by name so probes can tell which
// component failed.
func (s *Service) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checks := s.liveness
	s.mu.RUnlock()

	results, healthy := runChecks(r.Context(), checks)
	writeProbe(w, results, healthy)
}

// ReadyEndpoint serves /readyz. The manual flag counts as a failing check
// so a draining server reports why it is out of rotation.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checks := s.readiness
	s.mu.RUnlock()

	results, healthy := runChecks(r.Context(), checks)
	if !s.ready.Load() {
		results["_readiness"] = "service is not ready"
		healthy = false
	}
	writeProbe(w, results, healthy)
}

// runChecks evaluates every check and records "ok" or the error message
// under the check's name.
func runChecks(ctx context.Context, checks []check) (map[string]string, bool) {
	results := make(map[string]string, len(checks))
	healthy := true
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()
		if err != nil {
			results[c.name] = err.Error()
			healthy = false
		} else {
			results[c.name] = "ok"
		}
	}
	return results, healthy
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeProbe(w http.ResponseWriter, results map[string]string, healthy bool) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeResponse{Status: "ok", Checks: results}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
