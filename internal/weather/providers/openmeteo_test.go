package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/brighttanat/weather-warehouse-etl/internal/weather"
)

var bangkok = weather.Location{Name: "Bangkok", Latitude: 13.754, Longitude: 100.5014, Timezone: "Asia/Bangkok"}

// bangkokBody renders an Open-Meteo style response with the given number of
// hourly slots starting at local midnight.
func bangkokBody(hours int) string {
	times := make([]string, hours)
	values := make([]string, hours)
	for i := 0; i < hours; i++ {
		times[i] = fmt.Sprintf(`"2026-01-01T%02d:00"`, i)
		values[i] = fmt.Sprintf("%0.1f", 25.0+float64(i)*0.1)
	}
	return fmt.Sprintf(`{
		"latitude": 13.75,
		"longitude": 100.5,
		"elevation": 7.0,
		"utc_offset_seconds": 25200,
		"timezone": "Asia/Bangkok",
		"timezone_abbreviation": "+07",
		"hourly": {
			"time": [%s],
			"temperature_2m": [%s]
		}
	}`, strings.Join(times, ","), strings.Join(values, ","))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenMeteoClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewOpenMeteoClient(server.Client(), server.URL, zap.NewNop().Sugar())
	return client, server
}

func TestFetchBangkokSingleVariable(t *testing.T) {
	var gotQuery map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, bangkokBody(24))
	})

	req := weather.NewForecastRequest(bangkok, []string{"temperature_2m"}, 7)
	data, meta, err := client.Fetch(context.Background(), req, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The five essential query parameters and nothing else.
	for _, key := range []string{"latitude", "longitude", "timezone", "hourly", "forecast_days"} {
		if _, ok := gotQuery[key]; !ok {
			t.Errorf("missing query parameter %q", key)
		}
	}
	if len(gotQuery) != 5 {
		t.Errorf("expected 5 query parameters, got %d: %v", len(gotQuery), gotQuery)
	}
	if gotQuery["hourly"] != "temperature_2m" {
		t.Errorf("hourly = %q, want temperature_2m", gotQuery["hourly"])
	}

	if len(data.Hourly) != 1 {
		t.Fatalf("expected exactly one hourly series, got %d", len(data.Hourly))
	}
	series, ok := data.Hourly["temperature_2m"]
	if !ok {
		t.Fatal("missing temperature_2m series")
	}
	if len(series) != len(data.Times) {
		t.Fatalf("series length %d does not match time axis length %d", len(series), len(data.Times))
	}
	if len(data.Times) != 24 {
		t.Fatalf("expected 24 hourly slots, got %d", len(data.Times))
	}

	// Local midnight at UTC+7 is 17:00 the previous day in UTC.
	wantFirst := time.Date(2025, 12, 31, 17, 0, 0, 0, time.UTC)
	if !data.Times[0].Equal(wantFirst) {
		t.Errorf("first axis instant = %v, want %v", data.Times[0], wantFirst)
	}

	if meta.RetrievalTime.IsZero() {
		t.Error("metadata retrieval time not set")
	}
	if meta.ResponseTimeMS < 0 {
		t.Errorf("negative response time %v", meta.ResponseTimeMS)
	}
}

// The axis is half-open: for a declared range it covers
// (endTime - startTime) / interval slots and never the end instant.
func TestTimeAxisHalfOpen(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	interval := time.Hour

	var strs []string
	for ts := start; ts.Before(end); ts = ts.Add(interval) {
		strs = append(strs, ts.Format(hourlyTimeLayout))
	}

	times, err := parseTimeAxis(strs, "GMT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantLen := int(end.Sub(start) / interval)
	if len(times) != wantLen {
		t.Fatalf("axis length = %d, want (end-start)/interval = %d", len(times), wantLen)
	}
	for _, ts := range times {
		if !ts.Before(end) {
			t.Fatalf("axis contains excluded end instant %v", ts)
		}
	}
}

func TestFetchEmptyResponseIsValidationError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// 200 with an empty body: the call succeeded, the content did not.
	})

	req := weather.NewForecastRequest(bangkok, []string{"temperature_2m"}, 7)
	_, _, err := client.Fetch(context.Background(), req, 0)
	if got := weather.Classify(err); got != weather.ErrorTypeValidation {
		t.Fatalf("empty response classified as %s, want %s (err: %v)", got, weather.ErrorTypeValidation, err)
	}
}

func TestFetchMissingHourlyIsValidationError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"latitude": 13.75, "longitude": 100.5}`)
	})

	req := weather.NewForecastRequest(bangkok, []string{"temperature_2m"}, 7)
	_, _, err := client.Fetch(context.Background(), req, 0)
	if got := weather.Classify(err); got != weather.ErrorTypeValidation {
		t.Fatalf("missing hourly classified as %s, want %s", got, weather.ErrorTypeValidation)
	}
}

func TestFetchServerErrorIsRequestError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	req := weather.NewForecastRequest(bangkok, []string{"temperature_2m"}, 7)
	_, meta, err := client.Fetch(context.Background(), req, 0)
	if got := weather.Classify(err); got != weather.ErrorTypeRequest {
		t.Fatalf("server error classified as %s, want %s", got, weather.ErrorTypeRequest)
	}

	var wErr *weather.Error
	if !errors.As(err, &wErr) || wErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d attached to error, got %+v", http.StatusBadGateway, err)
	}
	if meta.RetrievalTime.IsZero() {
		t.Error("metadata must be populated on failure too")
	}
}

func TestFetchSeriesLengthMismatchIsValidationError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"utc_offset_seconds": 0,
			"timezone_abbreviation": "GMT",
			"hourly": {
				"time": ["2026-01-01T00:00", "2026-01-01T01:00"],
				"temperature_2m": [25.0]
			}
		}`)
	})

	req := weather.NewForecastRequest(bangkok, []string{"temperature_2m"}, 7)
	_, _, err := client.Fetch(context.Background(), req, 0)
	if got := weather.Classify(err); got != weather.ErrorTypeValidation {
		t.Fatalf("length mismatch classified as %s, want %s", got, weather.ErrorTypeValidation)
	}
}

func TestFetchGapInAxisIsValidationError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"utc_offset_seconds": 0,
			"timezone_abbreviation": "GMT",
			"hourly": {
				"time": ["2026-01-01T00:00", "2026-01-01T01:00", "2026-01-01T03:00"],
				"temperature_2m": [25.0, 25.1, 25.2]
			}
		}`)
	})

	req := weather.NewForecastRequest(bangkok, []string{"temperature_2m"}, 7)
	_, _, err := client.Fetch(context.Background(), req, 0)
	if got := weather.Classify(err); got != weather.ErrorTypeValidation {
		t.Fatalf("gapped axis classified as %s, want %s", got, weather.ErrorTypeValidation)
	}
}

func TestFetchDefaultsToTemperatureVariable(t *testing.T) {
	var hourlyParam string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hourlyParam = r.URL.Query().Get("hourly")
		fmt.Fprint(w, bangkokBody(2))
	})

	req := weather.NewForecastRequest(bangkok, nil, 7)
	data, _, err := client.Fetch(context.Background(), req, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hourlyParam != "temperature_2m" {
		t.Errorf("hourly param = %q, want temperature_2m", hourlyParam)
	}
	if _, ok := data.Hourly["temperature_2m"]; !ok {
		t.Error("missing default temperature_2m series")
	}
}
