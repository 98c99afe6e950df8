package weather

import (
	"context"
)

// ForecastProvider abstracts the upstream forecast API client. Fetch issues
// exactly one outbound call; data and error are mutually exclusive, and the
// metadata is populated on both paths. The retryAttempt counter is supplied
// by the caller purely for log and error-log annotation.
type ForecastProvider interface {
	Name() string
	Fetch(ctx context.Context, req ForecastRequest, retryAttempt int) (*ForecastData, ExtractionMetadata, error)
}

// BronzeStore is the contract the warehouse bronze loader must satisfy.
// LoadToBronze reports success as a boolean; a failed insert has already
// been rolled back and logged by the implementation.
type BronzeStore interface {
	LoadToBronze(ctx context.Context, req ForecastRequest, data *ForecastData, meta ExtractionMetadata) bool
}

// ErrorRecorder persists failed extraction attempts for later inspection.
// Record is best-effort: its own persistence failure is logged and reported
// as false, never raised, so it can never mask the original error.
type ErrorRecorder interface {
	Record(ctx context.Context, errType ErrorType, message string, latitude, longitude float64, httpStatus *int, requestParams map[string]any, retryAttempt int) bool
}
