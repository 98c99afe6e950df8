package weather

import (
	"time"
)

// DefaultHourlyVariable is requested when a ForecastRequest carries no
// explicit variable list.
const DefaultHourlyVariable = "temperature_2m"

// Location represents a place we extract forecasts for.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// Key returns a canonical string key for this location in logs and maps.
func (l Location) Key() string {
	return l.Name + ":" + l.Timezone
}

// ForecastRequest is the immutable set of parameters for one extraction
// attempt. Construct a fresh value per attempt; the variable list is copied
// so no package-level default can alias across calls.
type ForecastRequest struct {
	Latitude        float64
	Longitude       float64
	LocationName    string
	Timezone        string
	HourlyVariables []string
	ForecastDays    int
}

// NewForecastRequest builds a request for a configured location.
func NewForecastRequest(loc Location, hourlyVariables []string, forecastDays int) ForecastRequest {
	vars := make([]string, len(hourlyVariables))
	copy(vars, hourlyVariables)
	return ForecastRequest{
		Latitude:        loc.Latitude,
		Longitude:       loc.Longitude,
		LocationName:    loc.Name,
		Timezone:        loc.Timezone,
		HourlyVariables: vars,
		ForecastDays:    forecastDays,
	}
}

// Variables returns the requested hourly variables, falling back to the
// single default variable when none were supplied.
func (r ForecastRequest) Variables() []string {
	if len(r.HourlyVariables) == 0 {
		return []string{DefaultHourlyVariable}
	}
	return r.HourlyVariables
}

// Params returns the five essential query parameters as a generic map, used
// for error-log request_params and for the bronze payload.
func (r ForecastRequest) Params() map[string]any {
	return map[string]any{
		"latitude":      r.Latitude,
		"longitude":     r.Longitude,
		"timezone":      r.Timezone,
		"hourly":        r.Variables(),
		"forecast_days": r.ForecastDays,
	}
}

// ForecastData is the parsed, validated body of a successful extraction.
// Times is the shared hourly axis in UTC: uniform interval, gap-free, and
// half-open (the end instant of the covered range is excluded). Every series
// in Hourly has exactly len(Times) entries.
type ForecastData struct {
	Latitude             float64
	Longitude            float64
	Elevation            float64
	Timezone             string
	TimezoneAbbreviation string
	UTCOffsetSeconds     int
	Times                []time.Time
	Hourly               map[string][]float64
}

// Payload flattens the forecast into the nested structure persisted to the
// bronze layer. Times are left as time.Time values here; the bronze loader
// normalizes them to canonical text before storage.
func (d *ForecastData) Payload(req ForecastRequest) map[string]any {
	hourly := make(map[string]any, len(d.Hourly)+1)
	times := make([]any, len(d.Times))
	for i, t := range d.Times {
		times[i] = t
	}
	hourly["time"] = times
	for name, values := range d.Hourly {
		series := make([]any, len(values))
		for i, v := range values {
			series[i] = v
		}
		hourly[name] = series
	}

	return map[string]any{
		"latitude":              d.Latitude,
		"longitude":             d.Longitude,
		"timezone":              d.Timezone,
		"forecast_days":         req.ForecastDays,
		"timezone_abbreviation": d.TimezoneAbbreviation,
		"utc_offset_seconds":    d.UTCOffsetSeconds,
		"elevation":             d.Elevation,
		"hourly":                hourly,
	}
}

// ExtractionMetadata carries retrieval audit data for one extraction attempt.
// It is produced on success and failure alike.
type ExtractionMetadata struct {
	RetrievalTime  time.Time // always UTC
	ResponseTimeMS float64
}
