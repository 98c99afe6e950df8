package weather

import (
	"context"

	"go.uber.org/zap"
)

// Service orchestrates one extraction attempt: fetch from the provider, then
// hand the result to the bronze loader or the error recorder.
type Service struct {
	provider ForecastProvider
	bronze   BronzeStore
	recorder ErrorRecorder
	log      *zap.SugaredLogger
}

// NewService creates a new Service.
func NewService(provider ForecastProvider, bronze BronzeStore, recorder ErrorRecorder, log *zap.SugaredLogger) *Service {
	return &Service{
		provider: provider,
		bronze:   bronze,
		recorder: recorder,
		log:      log,
	}
}

// ExtractAndLoad runs one extraction attempt for a location and stages the
// result in the bronze layer. Extraction failures are classified, recorded
// best-effort, and returned unmodified; they are never swallowed here.
func (s *Service) ExtractAndLoad(ctx context.Context, loc Location, hourlyVariables []string, forecastDays int, retryAttempt int) error {
	req := NewForecastRequest(loc, hourlyVariables, forecastDays)

	data, meta, err := s.provider.Fetch(ctx, req, retryAttempt)
	if err != nil {
		errType := Classify(err)
		s.log.Errorw("extraction failed",
			"location", loc.Key(),
			"error_type", string(errType),
			"retry_attempt", retryAttempt,
			"error", err,
		)
		if s.recorder != nil {
			if ok := s.recorder.Record(ctx, errType, err.Error(), req.Latitude, req.Longitude, StatusCodeOf(err), req.Params(), retryAttempt); !ok {
				s.log.Warnw("failed to record extraction error; original error still propagates",
					"location", loc.Key(), "error_type", string(errType))
			}
		}
		return err
	}

	s.log.Infow("extraction succeeded",
		"location", loc.Key(),
		"hours", len(data.Times),
		"response_time_ms", meta.ResponseTimeMS,
	)

	if ok := s.bronze.LoadToBronze(ctx, req, data, meta); !ok {
		err := NewPersistenceError("bronze insert failed for "+loc.Key(), nil)
		s.log.Errorw("bronze load failed", "location", loc.Key(), "error", err)
		return err
	}
	return nil
}
