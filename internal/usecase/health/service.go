package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates storage is unreachable.
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
	storage StoragePinger
	ocr     OCRChecker
}

// New creates a Service. ocr can be nil.
func New(storage StoragePinger, ocr OCRChecker) *Service {
	return &Service{storage: storage, ocr: ocr}
}

// Check runs health checks against all components. Without storage nothing
// works, so a storage failure is Unhealthy; an OCR failure only degrades.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.storage.Ping(ctx); err != nil {
		checks["storage"] = CheckError
		status = Unhealthy
	} else {
		checks["storage"] = CheckOK
	}

	if s.ocr != nil {
		if err := s.ocr.HealthCheck(ctx); err != nil {
			checks["ocr"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["ocr"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
