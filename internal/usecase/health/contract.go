package health

import "context"

// StoragePinger checks document storage availability.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// OCRChecker checks that page recognition is usable.
type OCRChecker interface {
	HealthCheck(ctx context.Context) error
}
