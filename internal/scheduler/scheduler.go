package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/brighttanat/weather-warehouse-etl/internal/warehouse"
	"github.com/brighttanat/weather-warehouse-etl/internal/weather"
)

// Scheduler runs the daily extraction job and the incremental silver
// transform. Each location extraction is an independent invocation with its
// own timeout; a failed location never blocks the others. Retry policy stays
// here with the caller, not in the forecast client.
type Scheduler struct {
	scheduler         *gocron.Scheduler
	service           *weather.Service
	transformer       *warehouse.SilverTransformer
	locations         []weather.Location
	hourlyVariables   []string
	forecastDays      int
	extractCron       string
	transformInterval time.Duration
	log               *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(
	service *weather.Service,
	transformer *warehouse.SilverTransformer,
	locations []weather.Location,
	hourlyVariables []string,
	forecastDays int,
	extractCron string,
	transformInterval time.Duration,
	log *zap.SugaredLogger,
) *Scheduler {
	return &Scheduler{
		scheduler:         gocron.NewScheduler(time.UTC),
		service:           service,
		transformer:       transformer,
		locations:         locations,
		hourlyVariables:   hourlyVariables,
		forecastDays:      forecastDays,
		extractCron:       extractCron,
		transformInterval: transformInterval,
		log:               log,
	}
}

// Start schedules both jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.log.Info("scheduler: no locations configured; nothing to schedule")
		return nil
	}

	if _, err := s.scheduler.Cron(s.extractCron).Do(s.runExtraction); err != nil {
		return err
	}

	minutes := int(s.transformInterval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}
	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.runTransform); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Infow("scheduler started",
		"extract_cron", s.extractCron,
		"transform_interval", s.transformInterval,
		"locations", len(s.locations),
	)
	return nil
}

// RunExtractionNow triggers the extraction job outside the schedule, used by
// the manual HTTP trigger. It returns the number of failed locations.
func (s *Scheduler) RunExtractionNow(ctx context.Context) int {
	return s.extractAll(ctx)
}

func (s *Scheduler) runExtraction() {
	s.log.Info("scheduler: running extraction job")
	failed := s.extractAll(context.Background())
	s.log.Infow("scheduler: extraction job completed", "failed_locations", failed)
}

func (s *Scheduler) extractAll(ctx context.Context) int {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)

	for _, loc := range s.locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := s.service.ExtractAndLoad(callCtx, loc, s.hourlyVariables, s.forecastDays, 0); err != nil {
				s.log.Errorw("scheduler: extraction failed", "location", loc.Key(), "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return failed
}

func (s *Scheduler) runTransform() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.transformer.Transform(ctx, nil, nil)
	if err != nil {
		s.log.Errorw("scheduler: incremental silver transform failed", "error", err)
		return
	}
	s.log.Infow("scheduler: incremental silver transform completed",
		"rows_affected", result.RowsAffected,
		"total_silver_rows", result.TotalSilverRows,
	)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
