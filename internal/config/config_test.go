package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_WAREHOUSE_DB", "weather")
	t.Setenv("POSTGRES_WAREHOUSE_USER", "etl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Warehouse.Host != "localhost" || cfg.Warehouse.Port != 5432 {
		t.Errorf("warehouse defaults = %s:%d, want localhost:5432", cfg.Warehouse.Host, cfg.Warehouse.Port)
	}
	if cfg.ForecastDays != 7 {
		t.Errorf("forecast days = %d, want 7", cfg.ForecastDays)
	}
	if cfg.ExtractCron != "0 6 * * *" {
		t.Errorf("extract cron = %q, want daily 06:00", cfg.ExtractCron)
	}
	if cfg.TransformInterval != time.Hour {
		t.Errorf("transform interval = %v, want 1h", cfg.TransformInterval)
	}
	if len(cfg.HourlyVariables) != len(defaultHourlyVariables) {
		t.Errorf("hourly variables = %v, want the default set", cfg.HourlyVariables)
	}
	if len(cfg.Locations) != 1 || cfg.Locations[0].Name != "Bangkok" {
		t.Errorf("locations = %v, want the Bangkok default", cfg.Locations)
	}
}

func TestLoadRequiresWarehouseCredentials(t *testing.T) {
	t.Setenv("POSTGRES_WAREHOUSE_DB", "")
	t.Setenv("POSTGRES_WAREHOUSE_USER", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when warehouse database and user are unset")
	}
}

func TestLoadLocationsMultiple(t *testing.T) {
	t.Setenv("WEATHER_LOCATIONS", "Bangkok:13.754:100.5014:Asia/Bangkok, Chiang Mai:18.7883:98.9853:Asia/Bangkok")

	locs, err := loadLocations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(locs))
	}
	if locs[1].Name != "Chiang Mai" || locs[1].Latitude != 18.7883 {
		t.Errorf("second location = %+v", locs[1])
	}
}

func TestLoadLocationsRejectsMalformedEntry(t *testing.T) {
	tests := []string{
		"Bangkok:13.754:100.5014",
		"Bangkok:north:100.5014:Asia/Bangkok",
		"Bangkok:13.754:east:Asia/Bangkok",
	}
	for _, raw := range tests {
		t.Setenv("WEATHER_LOCATIONS", raw)
		if _, err := loadLocations(); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

// Locations with empty coordinates need the geocoding API, which needs a key.
func TestLoadLocationsWithoutCoordinatesRequiresGeocoderKey(t *testing.T) {
	t.Setenv("WEATHER_LOCATIONS", "Bangkok:::Asia/Bangkok")
	t.Setenv("GEOCODER_API_KEY", "")

	if _, err := loadLocations(); err == nil {
		t.Fatal("expected error without GEOCODER_API_KEY")
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" temperature_2m, precipitation ,,weather_code ")
	want := []string{"temperature_2m", "precipitation", "weather_code"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
