package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/brighttanat/weather-warehouse-etl/internal/weather"
)

// incrementalPredicate is the default window for the scheduled transform:
// bronze rows ingested in the last hour.
const incrementalPredicate = `w.created_at > NOW() - INTERVAL '1 hour'`

// transformStatement expands the bronze JSONB hourly arrays into typed silver
// rows. The %s placeholder receives the window predicate; the first bind
// parameter is the transform timestamp, shared with the validation queries.
//
// Consecutive extractions for one location carry overlapping forecast
// horizons, so a window can yield the same (location, hour) key from several
// bronze rows. Postgres rejects a multi-row insert that hits the same
// conflict target twice in one statement, so the source is collapsed to one
// row per key first, most recent bronze row winning; the upsert then handles
// keys already present in silver and makes re-execution idempotent.
const transformStatement = `
INSERT INTO silver.weather_observations (
	location_name,
	observation_timestamp,
	temperature_2m_celsius,
	apparent_temperature_celsius,
	relative_humidity_2m_pct,
	precipitation_mm,
	precipitation_probability_pct,
	weather_code,
	wind_speed_10m_kmh,
	wind_direction_10m_deg,
	transformed_at
)
SELECT DISTINCT ON (w.location_name, t.value)
	w.location_name,
	t.value::timestamptz,
	(w.raw_api_response->'hourly'->'temperature_2m'->>((t.ord - 1)::int))::numeric,
	(w.raw_api_response->'hourly'->'apparent_temperature'->>((t.ord - 1)::int))::numeric,
	(w.raw_api_response->'hourly'->'relative_humidity_2m'->>((t.ord - 1)::int))::numeric,
	(w.raw_api_response->'hourly'->'precipitation'->>((t.ord - 1)::int))::numeric,
	(w.raw_api_response->'hourly'->'precipitation_probability'->>((t.ord - 1)::int))::numeric,
	(w.raw_api_response->'hourly'->'weather_code'->>((t.ord - 1)::int))::numeric::int,
	(w.raw_api_response->'hourly'->'wind_speed_10m'->>((t.ord - 1)::int))::numeric,
	(w.raw_api_response->'hourly'->'wind_direction_10m'->>((t.ord - 1)::int))::numeric,
	?::timestamptz
FROM bronze.weather_raw w
CROSS JOIN LATERAL jsonb_array_elements_text(w.raw_api_response->'hourly'->'time')
	WITH ORDINALITY AS t(value, ord)
WHERE %s
ORDER BY w.location_name, t.value, w.created_at DESC
ON CONFLICT (location_name, observation_timestamp) DO UPDATE SET
	temperature_2m_celsius        = EXCLUDED.temperature_2m_celsius,
	apparent_temperature_celsius  = EXCLUDED.apparent_temperature_celsius,
	relative_humidity_2m_pct      = EXCLUDED.relative_humidity_2m_pct,
	precipitation_mm              = EXCLUDED.precipitation_mm,
	precipitation_probability_pct = EXCLUDED.precipitation_probability_pct,
	weather_code                  = EXCLUDED.weather_code,
	wind_speed_10m_kmh            = EXCLUDED.wind_speed_10m_kmh,
	wind_direction_10m_deg        = EXCLUDED.wind_direction_10m_deg,
	transformed_at                = EXCLUDED.transformed_at`

// window is a time filter over bronze.created_at. When incremental is set
// and both bounds are nil, the default last-hour predicate applies; backfill
// windows replace that predicate entirely, so exactly one filter is ever
// active.
type window struct {
	start       *time.Time
	end         *time.Time
	incremental bool
}

// clause renders the window as a parameterized predicate. The bounds are
// bind parameters, never interpolated text.
func (win window) clause() (string, []any) {
	switch {
	case win.start != nil && win.end != nil:
		return `w.created_at >= ? AND w.created_at <= ?`, []any{*win.start, *win.end}
	case win.start != nil:
		return `w.created_at >= ?`, []any{*win.start}
	case win.end != nil:
		return `w.created_at <= ?`, []any{*win.end}
	case win.incremental:
		return incrementalPredicate, nil
	default:
		return `1=1`, nil
	}
}

// TransformResult reports one bronze-to-silver transformation.
type TransformResult struct {
	RowsAffected    int64 `json:"rows_affected"`
	TotalSilverRows int64 `json:"total_silver_rows"`
}

// SilverTransformer runs the set-based bronze-to-silver transformation and
// the post-transform data quality checks.
type SilverTransformer struct {
	w *Warehouse
}

func NewSilverTransformer(w *Warehouse) *SilverTransformer {
	return &SilverTransformer{w: w}
}

// Transform processes bronze rows in the given window. Nil bounds fall back
// to the incremental last-hour window used by the scheduled path.
func (t *SilverTransformer) Transform(ctx context.Context, windowStart, windowEnd *time.Time) (TransformResult, error) {
	return t.run(ctx, window{start: windowStart, end: windowEnd, incremental: true})
}

// run executes the transform statement over win, then validates the rows it
// produced. A statement failure rolls back and skips validation. The rows are
// stamped with stampedAt, and validation scopes to the same value, so the
// checks cover exactly this run regardless of database clock skew.
func (t *SilverTransformer) run(ctx context.Context, win window) (TransformResult, error) {
	stampedAt := time.Now().UTC()
	predicate, args := win.clause()

	bronzeCount, err := t.w.Count(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM bronze.weather_raw w WHERE %s`, predicate), args...)
	if err != nil {
		return TransformResult{}, weather.NewTransformError("failed to count bronze window", err)
	}

	affected, err := t.w.Exec(ctx, fmt.Sprintf(transformStatement, predicate),
		append([]any{stampedAt}, args...)...)
	if err != nil {
		transformErr := weather.NewTransformError("silver transform statement failed", err)
		t.w.log.Errorw("silver transform failed; transaction rolled back", "error", transformErr)
		return TransformResult{}, transformErr
	}

	total, err := t.w.Count(ctx, `SELECT COUNT(*) FROM silver.weather_observations`)
	if err != nil {
		return TransformResult{}, weather.NewTransformError("failed to count silver rows", err)
	}

	result := TransformResult{RowsAffected: affected, TotalSilverRows: total}
	t.w.log.Infow("silver transform completed",
		"bronze_rows_in_window", bronzeCount,
		"rows_affected", affected,
		"total_silver_rows", total,
	)

	if affected == 0 && bronzeCount > 0 {
		t.w.log.Warnw("transform produced no silver rows for a non-empty bronze window",
			"bronze_rows_in_window", bronzeCount)
	}

	if err := t.validate(ctx, stampedAt); err != nil {
		return result, err
	}
	return result, nil
}

// validate runs the data quality checks over the rows this transform
// produced, identified by the transform timestamp bound into the insert.
// Any null in a required column or any duplicate (observation hour,
// location) group is a hard failure.
func (t *SilverTransformer) validate(ctx context.Context, since time.Time) error {
	var nullTimes, nullTemps int64
	row := t.w.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) FILTER (WHERE observation_timestamp IS NULL),
			COUNT(*) FILTER (WHERE temperature_2m_celsius IS NULL)
		FROM silver.weather_observations
		WHERE transformed_at >= ?`, since).Row()
	if err := row.Scan(&nullTimes, &nullTemps); err != nil {
		return weather.NewTransformError("null-count validation query failed", err)
	}

	t.w.log.Infow("silver null counts", "null_timestamps", nullTimes, "null_temperatures", nullTemps)

	if nullTimes > 0 {
		err := weather.NewDataQualityError(
			fmt.Sprintf("found %d silver rows with null observation_timestamp", nullTimes))
		t.w.log.Errorw("silver validation failed", "error", err)
		return err
	}
	if nullTemps > 0 {
		err := weather.NewDataQualityError(
			fmt.Sprintf("found %d silver rows with null temperature_2m_celsius", nullTemps))
		t.w.log.Errorw("silver validation failed", "error", err)
		return err
	}

	duplicates, err := t.w.Count(ctx, `
		SELECT COUNT(*) FROM (
			SELECT observation_timestamp, location_name
			FROM silver.weather_observations
			WHERE transformed_at >= ?
			GROUP BY observation_timestamp, location_name
			HAVING COUNT(*) > 1
		) duplicates`, since)
	if err != nil {
		return weather.NewTransformError("duplicate-count validation query failed", err)
	}
	if duplicates > 0 {
		qErr := weather.NewDataQualityError(
			fmt.Sprintf("found %d duplicate (observation hour, location) groups", duplicates))
		t.w.log.Errorw("silver validation failed", "error", qErr)
		return qErr
	}

	t.w.log.Info("silver validation passed")
	return nil
}
