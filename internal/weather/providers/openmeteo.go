package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/brighttanat/weather-warehouse-etl/internal/weather"
)

// DefaultForecastURL is the fixed Open-Meteo forecast endpoint.
const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

// hourlyTimeLayout is the local-time format Open-Meteo uses in the hourly
// time array when no explicit timeformat is requested.
const hourlyTimeLayout = "2006-01-02T15:04"

// OpenMeteoClient implements the weather.ForecastProvider interface for the
// Open-Meteo forecast API. It issues exactly one outbound call per Fetch;
// retry policy belongs to the caller. The circuit breaker only sheds calls
// while the upstream is known to be failing.
type OpenMeteoClient struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     *zap.SugaredLogger
}

func NewOpenMeteoClient(client *http.Client, baseURL string, log *zap.SugaredLogger) *OpenMeteoClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	if baseURL == "" {
		baseURL = DefaultForecastURL
	}

	return &OpenMeteoClient{
		name:    "openmeteo",
		baseURL: baseURL,
		client:  client,
		circuit: cb,
		log:     log,
	}
}

func (c *OpenMeteoClient) Name() string {
	return c.name
}

// Endpoint returns the forecast URL this client talks to, for error-log rows.
func (c *OpenMeteoClient) Endpoint() string {
	return c.baseURL
}

// Fetch extracts one forecast. The returned metadata is populated on success
// and failure alike; data and error are mutually exclusive.
func (c *OpenMeteoClient) Fetch(ctx context.Context, req weather.ForecastRequest, retryAttempt int) (*weather.ForecastData, weather.ExtractionMetadata, error) {
	requestStart := time.Now().UTC()
	meta := weather.ExtractionMetadata{RetrievalTime: requestStart}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		meta.ResponseTimeMS = elapsedMS(requestStart)
		return nil, meta, weather.NewRequestError("failed to build forecast request", 0, err)
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, execErr := c.client.Do(httpReq)
		if execErr != nil {
			return nil, weather.NewRequestError("forecast API call failed", 0, execErr)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, weather.NewRequestError(
				fmt.Sprintf("forecast API returned status %d", resp.StatusCode),
				resp.StatusCode,
				errors.New(strings.TrimSpace(string(body))),
			)
		}
		return resp, nil
	})
	meta.ResponseTimeMS = elapsedMS(requestStart)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = weather.NewRequestError("forecast API circuit breaker open", 0, err)
		}
		c.log.Warnw("forecast fetch failed",
			"location", req.LocationName, "retry_attempt", retryAttempt, "error", err)
		return nil, meta, err
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	data, err := c.parseResponse(resp.Body, req)
	if err != nil {
		c.log.Warnw("forecast response rejected",
			"location", req.LocationName, "retry_attempt", retryAttempt, "error", err)
		return nil, meta, err
	}

	c.log.Infow("forecast fetched",
		"location", req.LocationName,
		"hours", len(data.Times),
		"response_time_ms", meta.ResponseTimeMS,
	)
	return data, meta, nil
}

func (c *OpenMeteoClient) buildRequest(ctx context.Context, req weather.ForecastRequest) (*http.Request, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
	values.Set("timezone", req.Timezone)
	values.Set("hourly", strings.Join(req.Variables(), ","))
	values.Set("forecast_days", strconv.Itoa(req.ForecastDays))

	u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
	return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
}

// parseResponse decodes and validates the response body, aligning all
// requested variables to the shared hourly time axis.
func (c *OpenMeteoClient) parseResponse(body io.Reader, req weather.ForecastRequest) (*weather.ForecastData, error) {
	var payload struct {
		Latitude             float64                    `json:"latitude"`
		Longitude            float64                    `json:"longitude"`
		Elevation            float64                    `json:"elevation"`
		Timezone             string                     `json:"timezone"`
		TimezoneAbbreviation string                     `json:"timezone_abbreviation"`
		UTCOffsetSeconds     int                        `json:"utc_offset_seconds"`
		Hourly               map[string]json.RawMessage `json:"hourly"`
	}

	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, weather.NewValidationError("API returned empty response", nil)
		}
		return nil, weather.NewValidationError("failed to decode API response", err)
	}

	if len(payload.Hourly) == 0 {
		return nil, weather.NewValidationError("missing 'hourly' data in API response", nil)
	}

	rawTimes, ok := payload.Hourly["time"]
	if !ok {
		return nil, weather.NewValidationError("missing 'hourly.time' axis in API response", nil)
	}

	var timeStrings []string
	if err := json.Unmarshal(rawTimes, &timeStrings); err != nil {
		return nil, weather.NewValidationError("malformed 'hourly.time' axis", err)
	}
	if len(timeStrings) == 0 {
		return nil, weather.NewValidationError("'hourly' data is empty in API response", nil)
	}

	times, err := parseTimeAxis(timeStrings, payload.TimezoneAbbreviation, payload.UTCOffsetSeconds)
	if err != nil {
		return nil, err
	}

	hourly := make(map[string][]float64, len(req.Variables()))
	for _, name := range req.Variables() {
		raw, ok := payload.Hourly[name]
		if !ok {
			return nil, weather.NewValidationError(
				fmt.Sprintf("requested variable %q missing from API response", name), nil)
		}
		var values []float64
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, weather.NewValidationError(
				fmt.Sprintf("malformed series for variable %q", name), err)
		}
		if len(values) != len(times) {
			return nil, weather.NewValidationError(
				fmt.Sprintf("variable %q has %d values for %d time slots", name, len(values), len(times)), nil)
		}
		hourly[name] = values
	}

	return &weather.ForecastData{
		Latitude:             payload.Latitude,
		Longitude:            payload.Longitude,
		Elevation:            payload.Elevation,
		Timezone:             payload.Timezone,
		TimezoneAbbreviation: payload.TimezoneAbbreviation,
		UTCOffsetSeconds:     payload.UTCOffsetSeconds,
		Times:                times,
		Hourly:               hourly,
	}, nil
}

// parseTimeAxis converts the local-time strings to UTC instants and verifies
// the axis is uniform and gap-free. The axis is half-open by construction:
// it covers [start, start+len*interval) and never contains the end instant.
func parseTimeAxis(timeStrings []string, tzAbbrev string, utcOffsetSeconds int) ([]time.Time, error) {
	loc := time.FixedZone(tzAbbrev, utcOffsetSeconds)

	times := make([]time.Time, len(timeStrings))
	for i, s := range timeStrings {
		t, err := time.ParseInLocation(hourlyTimeLayout, s, loc)
		if err != nil {
			return nil, weather.NewValidationError(
				fmt.Sprintf("unparseable hourly timestamp %q", s), err)
		}
		times[i] = t.UTC()
	}

	if len(times) > 1 {
		interval := times[1].Sub(times[0])
		if interval <= 0 {
			return nil, weather.NewValidationError("hourly time axis is not increasing", nil)
		}
		for i := 2; i < len(times); i++ {
			if times[i].Sub(times[i-1]) != interval {
				return nil, weather.NewValidationError(
					fmt.Sprintf("gap in hourly time axis at index %d", i), nil)
			}
		}
	}
	return times, nil
}

func elapsedMS(start time.Time) float64 {
	ms := float64(time.Since(start).Microseconds()) / 1000.0
	return math.Round(ms*100) / 100
}

var _ weather.ForecastProvider = (*OpenMeteoClient)(nil)
