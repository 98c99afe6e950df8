package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/brighttanat/weather-warehouse-etl/internal/warehouse"
	"github.com/brighttanat/weather-warehouse-etl/internal/weather"
)

// defaultHourlyVariables is the scheduled extraction's variable set. A
// per-request override always gets its own copy via ForecastRequest.
var defaultHourlyVariables = []string{
	"temperature_2m",
	"apparent_temperature",
	"relative_humidity_2m",
	"precipitation",
	"precipitation_probability",
	"weather_code",
	"wind_speed_10m",
	"wind_direction_10m",
}

type AppConfig struct {
	Warehouse warehouse.Config

	// Locations to extract forecasts for.
	Locations []weather.Location

	// HourlyVariables requested from the forecast API.
	HourlyVariables []string

	// ForecastDays is the forecast horizon.
	ForecastDays int

	// ExtractCron schedules the daily extraction job.
	ExtractCron string

	// TransformInterval controls how often the incremental silver transform runs.
	TransformInterval time.Duration

	// ForecastURL overrides the upstream endpoint (used by tests and self-hosted mirrors).
	ForecastURL string

	Port  string
	Debug bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	port, err := strconv.Atoi(getenvDefault("POSTGRES_WAREHOUSE_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid POSTGRES_WAREHOUSE_PORT: %w", err)
	}
	cfg.Warehouse = warehouse.Config{
		Host:     getenvDefault("POSTGRES_WAREHOUSE_HOST", "localhost"),
		Port:     port,
		Database: os.Getenv("POSTGRES_WAREHOUSE_DB"),
		User:     os.Getenv("POSTGRES_WAREHOUSE_USER"),
		Password: os.Getenv("POSTGRES_WAREHOUSE_PASSWORD"),
	}
	if cfg.Warehouse.Database == "" || cfg.Warehouse.User == "" {
		return nil, fmt.Errorf("POSTGRES_WAREHOUSE_DB and POSTGRES_WAREHOUSE_USER are required")
	}

	if vars := os.Getenv("HOURLY_VARIABLES"); vars != "" {
		cfg.HourlyVariables = splitAndTrim(vars)
	} else {
		cfg.HourlyVariables = append([]string(nil), defaultHourlyVariables...)
	}

	cfg.ForecastDays = getenvInt("FORECAST_DAYS", 7)
	cfg.ExtractCron = getenvDefault("EXTRACT_CRON", "0 6 * * *")

	intervalStr := getenvDefault("TRANSFORM_INTERVAL", "1h")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSFORM_INTERVAL: %w", err)
	}
	cfg.TransformInterval = interval

	cfg.ForecastURL = os.Getenv("FORECAST_URL")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.Debug = getenvDefault("DEBUG", "false") == "true"

	locs, err := loadLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// loadLocations parses WEATHER_LOCATIONS, a comma-separated list of
// name:lat:lon:timezone entries. An entry with empty coordinates is resolved
// through the geocoding API, which requires GEOCODER_API_KEY.
func loadLocations() ([]weather.Location, error) {
	raw := getenvDefault("WEATHER_LOCATIONS", "Bangkok:13.754:100.5014:Asia/Bangkok")

	var locs []weather.Location
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid WEATHER_LOCATIONS entry %q; want name:lat:lon:timezone", entry)
		}

		loc := weather.Location{
			Name:     parts[0],
			Timezone: parts[3],
		}

		if parts[1] == "" || parts[2] == "" {
			lat, lon, err := geocodeCity(loc.Name)
			if err != nil {
				return nil, fmt.Errorf("failed to geocode %q: %w", loc.Name, err)
			}
			loc.Latitude = lat
			loc.Longitude = lon
		} else {
			lat, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid latitude in WEATHER_LOCATIONS entry %q: %w", entry, err)
			}
			lon, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid longitude in WEATHER_LOCATIONS entry %q: %w", entry, err)
			}
			loc.Latitude = lat
			loc.Longitude = lon
		}

		locs = append(locs, loc)
	}

	return locs, nil
}

func geocodeCity(city string) (float64, float64, error) {
	key := os.Getenv("GEOCODER_API_KEY")
	if key == "" {
		return 0, 0, fmt.Errorf("GEOCODER_API_KEY is required for locations without coordinates")
	}
	geocoder.ApiKey = key

	result, err := geocoder.Geocoding(geocoder.Address{City: city})
	if err != nil {
		return 0, 0, err
	}
	return result.Latitude, result.Longitude, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
