package warehouse

// Warehouse DDL, applied on every start. The bronze layer is append-only
// staging; the silver layer enforces one row per (location, observation hour).
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS bronze`,
	`CREATE SCHEMA IF NOT EXISTS silver`,
	`CREATE TABLE IF NOT EXISTS bronze.weather_raw (
		id                 BIGSERIAL PRIMARY KEY,
		request_id         UUID NOT NULL,
		location_name      TEXT NOT NULL,
		latitude           DOUBLE PRECISION NOT NULL,
		longitude          DOUBLE PRECISION NOT NULL,
		timezone           TEXT NOT NULL,
		api_retrieval_time TIMESTAMPTZ NOT NULL,
		response_time_ms   DOUBLE PRECISION NOT NULL,
		raw_api_response   JSONB NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_weather_raw_created_at
		ON bronze.weather_raw (created_at)`,
	`CREATE TABLE IF NOT EXISTS bronze.api_error_log (
		id               BIGSERIAL PRIMARY KEY,
		api_endpoint     TEXT NOT NULL,
		error_type       TEXT NOT NULL,
		error_message    TEXT NOT NULL,
		http_status_code INT,
		request_params   JSONB,
		latitude         DOUBLE PRECISION,
		longitude        DOUBLE PRECISION,
		retry_attempt    INT NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS silver.weather_observations (
		id                            BIGSERIAL PRIMARY KEY,
		location_name                 TEXT NOT NULL,
		observation_timestamp         TIMESTAMPTZ NOT NULL,
		temperature_2m_celsius        NUMERIC,
		apparent_temperature_celsius  NUMERIC,
		relative_humidity_2m_pct      NUMERIC,
		precipitation_mm              NUMERIC,
		precipitation_probability_pct NUMERIC,
		weather_code                  INT,
		wind_speed_10m_kmh            NUMERIC,
		wind_direction_10m_deg        NUMERIC,
		transformed_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at                    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT weather_observations_location_hour_key
			UNIQUE (location_name, observation_timestamp)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_weather_observations_transformed_at
		ON silver.weather_observations (transformed_at)`,
}
