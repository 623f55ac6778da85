package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the retriever answers searches but an optional part fails.
	Degraded Status = "degraded"
	// Unhealthy indicates searches cannot return anything.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	corpus CorpusCounter
	answer AnswerChecker
}

// New creates a Service. answer can be nil.
func New(corpus CorpusCounter, answer AnswerChecker) *Service {
	return &Service{corpus: corpus, answer: answer}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	status := Healthy
	if s.corpus.Len() == 0 {
		checks["corpus"] = CheckError
		status = Unhealthy
	} else {
		checks["corpus"] = CheckOK
	}

	if s.answer != nil {
		if err := s.answer.HealthCheck(ctx); err != nil {
			checks["answer"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["answer"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
