package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/brighttanat/weather-warehouse-etl/internal/warehouse"
	"github.com/brighttanat/weather-warehouse-etl/internal/weather"
)

var validate = validator.New()

// ExtractionRunner triggers an immediate extraction run over all configured
// locations and reports how many of them failed.
type ExtractionRunner interface {
	RunExtractionNow(ctx context.Context) int
}

// RegisterRoutes wires the control-surface handlers into the Fiber app.
// These endpoints stand in for the manual workflow triggers of the
// surrounding orchestration layer.
func RegisterRoutes(app *fiber.App, extractor ExtractionRunner, transformer *warehouse.SilverTransformer, runner *warehouse.BackfillRunner, wh *warehouse.Warehouse) {
	v1 := app.Group("/api/v1")

	v1.Post("/extract", func(c *fiber.Ctx) error {
		failed := extractor.RunExtractionNow(c.Context())
		return c.JSON(fiber.Map{
			"status":           "completed",
			"failed_locations": failed,
		})
	})

	v1.Post("/silver/transform", func(c *fiber.Ctx) error {
		var req transformRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := transformer.Transform(c.Context(), req.start, req.end)
		if err != nil {
			return transformStatusError(err)
		}
		return c.JSON(result)
	})

	v1.Post("/silver/backfill", func(c *fiber.Ctx) error {
		var req transformRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		backfill, err := runner.Backfill(c.Context(), req.start, req.end)
		if err != nil {
			return transformStatusError(err)
		}

		verify, err := runner.Verify(c.Context(), backfill)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{
			"backfill": backfill,
			"verify":   verify,
		})
	})

	v1.Get("/observations", func(c *fiber.Ctx) error {
		var req observationsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var observations []warehouse.SilverObservation
		err := wh.DB().WithContext(c.Context()).
			Where("location_name = ? AND observation_timestamp >= ? AND observation_timestamp <= ?",
				req.Location, req.From, req.To).
			Order("observation_timestamp").
			Find(&observations).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch observations")
		}
		if len(observations) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no observations for requested range")
		}

		return c.JSON(fiber.Map{
			"location":     req.Location,
			"from":         req.From,
			"to":           req.To,
			"observations": observations,
		})
	})
}

// transformStatusError maps pipeline errors to HTTP statuses: data quality
// problems surface as 422, everything else as 500.
func transformStatusError(err error) error {
	if weather.Classify(err) == weather.ErrorTypeDataQuality {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

// transformRequest holds the optional time window of a transform or
// backfill trigger. Both bounds are independently optional.
type transformRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	start *time.Time
	end   *time.Time
}

func (r *transformRequest) bind(c *fiber.Ctx) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(r); err != nil {
			return err
		}
	}

	if r.StartDate != "" {
		t, err := parseTime(r.StartDate)
		if err != nil {
			return err
		}
		r.start = &t
	}
	if r.EndDate != "" {
		t, err := parseTime(r.EndDate)
		if err != nil {
			return err
		}
		r.end = &t
	}

	if r.start != nil && r.end != nil && r.end.Before(*r.start) {
		return errors.New("end_date must not be before start_date")
	}
	return nil
}

// observationsQuery holds query parameters for the silver read endpoint.
type observationsQuery struct {
	Location string    `validate:"required"`
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (q *observationsQuery) bind(c *fiber.Ctx) error {
	q.Location = c.Query("location")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	q.From = from
	q.To = to
	return nil
}

// parseTime tries RFC3339, a bare date-time without zone, and Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
