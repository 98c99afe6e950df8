package warehouse

import (
	"time"

	"gorm.io/datatypes"
)

// BronzeRecord is one row in the append-only bronze staging table. One row
// per extraction attempt; never updated or deleted.
type BronzeRecord struct {
	ID               uint64         `gorm:"primaryKey" json:"-"`
	RequestID        string         `gorm:"type:uuid;column:request_id" json:"request_id"`
	LocationName     string         `gorm:"column:location_name" json:"location_name"`
	Latitude         float64        `gorm:"column:latitude" json:"latitude"`
	Longitude        float64        `gorm:"column:longitude" json:"longitude"`
	Timezone         string         `gorm:"column:timezone" json:"timezone"`
	APIRetrievalTime time.Time      `gorm:"column:api_retrieval_time" json:"api_retrieval_time"`
	ResponseTimeMS   float64        `gorm:"column:response_time_ms" json:"response_time_ms"`
	RawAPIResponse   datatypes.JSON `gorm:"type:jsonb;column:raw_api_response" json:"raw_api_response"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (BronzeRecord) TableName() string { return "bronze.weather_raw" }

// APIErrorLog is one row per failed extraction attempt. Append-only.
type APIErrorLog struct {
	ID             uint64         `gorm:"primaryKey" json:"-"`
	APIEndpoint    string         `gorm:"column:api_endpoint" json:"api_endpoint"`
	ErrorType      string         `gorm:"column:error_type" json:"error_type"`
	ErrorMessage   string         `gorm:"column:error_message" json:"error_message"`
	HTTPStatusCode *int           `gorm:"column:http_status_code" json:"http_status_code,omitempty"`
	RequestParams  datatypes.JSON `gorm:"type:jsonb;column:request_params" json:"request_params,omitempty"`
	Latitude       float64        `gorm:"column:latitude" json:"latitude"`
	Longitude      float64        `gorm:"column:longitude" json:"longitude"`
	RetryAttempt   int            `gorm:"column:retry_attempt" json:"retry_attempt"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (APIErrorLog) TableName() string { return "bronze.api_error_log" }

// SilverObservation is one typed row per (location, observation hour).
// Measurement columns are pointers so missing variables stay NULL.
type SilverObservation struct {
	ID                         uint64    `gorm:"primaryKey" json:"-"`
	LocationName               string    `gorm:"column:location_name" json:"location_name"`
	ObservationTimestamp       time.Time `gorm:"column:observation_timestamp" json:"observation_timestamp"`
	Temperature2MCelsius       *float64  `gorm:"column:temperature_2m_celsius" json:"temperature_2m_celsius,omitempty"`
	ApparentTemperatureCelsius *float64  `gorm:"column:apparent_temperature_celsius" json:"apparent_temperature_celsius,omitempty"`
	RelativeHumidity2MPct      *float64  `gorm:"column:relative_humidity_2m_pct" json:"relative_humidity_2m_pct,omitempty"`
	PrecipitationMM            *float64  `gorm:"column:precipitation_mm" json:"precipitation_mm,omitempty"`
	PrecipitationProbability   *float64  `gorm:"column:precipitation_probability_pct" json:"precipitation_probability_pct,omitempty"`
	WeatherCode                *int      `gorm:"column:weather_code" json:"weather_code,omitempty"`
	WindSpeed10MKmh            *float64  `gorm:"column:wind_speed_10m_kmh" json:"wind_speed_10m_kmh,omitempty"`
	WindDirection10MDeg        *float64  `gorm:"column:wind_direction_10m_deg" json:"wind_direction_10m_deg,omitempty"`
	TransformedAt              time.Time `gorm:"column:transformed_at" json:"transformed_at"`
	CreatedAt                  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (SilverObservation) TableName() string { return "silver.weather_observations" }
