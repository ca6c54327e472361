// Package health aggregates component availability probes for the health
// endpoint.
package health

import "context"

// Pinger checks store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks embedding provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// Status is the aggregated service status.
type Status string

const (
	// Healthy means every probed component answered.
	Healthy Status = "ok"
	// Degraded means at least one component failed its probe.
	Degraded Status = "degraded"
)

// CheckResult is one component's probe outcome.
type CheckResult string

const (
	// CheckOK marks a passing probe.
	CheckOK CheckResult = "ok"
	// CheckError marks a failing probe.
	CheckError CheckResult = "error"
)

// Report is the health endpoint payload.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs availability probes.
type Service struct {
	store    Pinger
	embedder ProviderChecker
}

// New creates a health service. embedder may be nil when no provider
// probe is configured.
func New(store Pinger, embedder ProviderChecker) *Service {
	return &Service{store: store, embedder: embedder}
}

// Check probes the store and the embedding provider and aggregates the
// results. Any failing probe degrades the overall status.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		"redis": probe(s.store.Ping(ctx)),
	}
	if s.embedder != nil {
		checks["embedding"] = probe(s.embedder.HealthCheck(ctx))
	}

	status := Healthy
	for _, r := range checks {
		if r == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func probe(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
