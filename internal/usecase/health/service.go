package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check is one component's health check outcome. Detail carries the
// failure reason and is empty for passing checks.
type Check struct {
	Component string
	Status    CheckResult
	Detail    string
}

// Report aggregates health check results in a stable component order.
type Report struct {
	Status Status
	Checks []Check
}

// Service coordinates readiness checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil when the provider
// exposes no health endpoint.
func New(db DBPinger, embedding EmbeddingChecker) *Service {
	return &Service{db: db, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make([]Check, 0, 2)

	checks = append(checks, runCheck(ctx, "database", s.db.Ping))
	if s.embedding != nil {
		checks = append(checks, runCheck(ctx, "embedding", s.embedding.HealthCheck))
	}

	status := Healthy
	for _, c := range checks {
		if c.Status == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func runCheck(ctx context.Context, component string, fn func(context.Context) error) Check {
	if err := fn(ctx); err != nil {
		return Check{Component: component, Status: CheckError, Detail: err.Error()}
	}
	return Check{Component: component, Status: CheckOK}
}
