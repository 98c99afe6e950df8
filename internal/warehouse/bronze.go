package warehouse

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brighttanat/weather-warehouse-etl/internal/weather"
)

// maxErrorMessageLength bounds error-log row size; longer messages are cut
// and marked with an ellipsis.
const maxErrorMessageLength = 1000

// BronzeLoader stages raw normalized forecast payloads into
// bronze.weather_raw. Inserts are all-or-nothing: the whole normalized
// response is stored in one transaction or no row is written.
type BronzeLoader struct {
	w *Warehouse
}

func NewBronzeLoader(w *Warehouse) *BronzeLoader {
	return &BronzeLoader{w: w}
}

// LoadToBronze persists one successful extraction. Failures are rolled back
// and logged; the caller decides how to react based on the boolean.
func (l *BronzeLoader) LoadToBronze(ctx context.Context, req weather.ForecastRequest, data *weather.ForecastData, meta weather.ExtractionMetadata) bool {
	payload := NormalizeValue(data.Payload(req))
	raw, err := json.Marshal(payload)
	if err != nil {
		l.w.log.Errorw("bronze load failed: payload not serializable",
			"location", req.LocationName, "error", err)
		return false
	}

	record := BronzeRecord{
		RequestID:        uuid.NewString(),
		LocationName:     req.LocationName,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Timezone:         req.Timezone,
		APIRetrievalTime: meta.RetrievalTime,
		ResponseTimeMS:   meta.ResponseTimeMS,
		RawAPIResponse:   datatypes.JSON(raw),
	}

	err = l.w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&record).Error
	})
	if err != nil {
		l.w.log.Errorw("bronze insert failed; transaction rolled back",
			"location", req.LocationName, "error", err)
		return false
	}

	l.w.log.Infow("bronze row inserted",
		"location", req.LocationName,
		"request_id", record.RequestID,
		"hours", len(data.Times),
	)
	return true
}

// ErrorRecorder persists failed extraction attempts to bronze.api_error_log.
type ErrorRecorder struct {
	w        *Warehouse
	endpoint string
}

func NewErrorRecorder(w *Warehouse, endpoint string) *ErrorRecorder {
	return &ErrorRecorder{w: w, endpoint: endpoint}
}

// Record writes one error-log row. Its own persistence failure is logged and
// reported as false so the original extraction error is never masked.
func (r *ErrorRecorder) Record(ctx context.Context, errType weather.ErrorType, message string, latitude, longitude float64, httpStatus *int, requestParams map[string]any, retryAttempt int) bool {
	var params datatypes.JSON
	if requestParams != nil {
		raw, err := json.Marshal(NormalizeValue(requestParams))
		if err == nil {
			params = datatypes.JSON(raw)
		}
	}

	row := APIErrorLog{
		APIEndpoint:    r.endpoint,
		ErrorType:      string(errType),
		ErrorMessage:   truncateMessage(message, maxErrorMessageLength),
		HTTPStatusCode: httpStatus,
		RequestParams:  params,
		Latitude:       latitude,
		Longitude:      longitude,
		RetryAttempt:   retryAttempt,
	}

	err := r.w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		r.w.log.Errorw("failed to write api_error_log row",
			"log_error", err,
			"original_error_type", string(errType),
			"original_error", message,
		)
		return false
	}

	r.w.log.Infow("extraction error logged to warehouse", "error_type", string(errType))
	return true
}

// truncateMessage cuts on a rune boundary: a byte-level slice could split a
// multi-byte rune and produce invalid UTF-8 the database would reject.
func truncateMessage(message string, maxLength int) string {
	if len(message) <= maxLength {
		return message
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut] + "..."
}
