package warehouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValueDeepNesting(t *testing.T) {
	retrieved := time.Date(2026, 1, 15, 6, 30, 0, 0, time.FixedZone("+07", 7*3600))

	input := map[string]any{
		"timezone_abbreviation": []byte("+07"),
		"metadata": map[string]any{
			"api_retrieval_time": retrieved,
			"nested": []any{
				[]byte("deep bytes"),
				map[string]any{
					"deeper_time": retrieved,
				},
			},
		},
		"hourly": map[string]any{
			"time":           []any{retrieved, retrieved.Add(time.Hour)},
			"temperature_2m": []any{28.4, 28.9},
		},
		"elevation": 7.0,
	}

	out, ok := NormalizeValue(input).(map[string]any)
	require.True(t, ok, "normalized root must stay a map")

	assert.Equal(t, "+07", out["timezone_abbreviation"])
	assert.Equal(t, 7.0, out["elevation"])

	meta := out["metadata"].(map[string]any)
	assert.Equal(t, "2026-01-14T23:30:00Z", meta["api_retrieval_time"])

	nested := meta["nested"].([]any)
	assert.Equal(t, "deep bytes", nested[0])
	assert.Equal(t, "2026-01-14T23:30:00Z", nested[1].(map[string]any)["deeper_time"])

	hourly := out["hourly"].(map[string]any)
	times := hourly["time"].([]any)
	require.Len(t, times, 2, "sequence length preserved")
	assert.Equal(t, "2026-01-14T23:30:00Z", times[0])
	assert.Equal(t, "2026-01-15T00:30:00Z", times[1])

	temps := hourly["temperature_2m"].([]any)
	assert.Equal(t, []any{28.4, 28.9}, temps, "scalar sequences pass through in order")
}

func TestNormalizeValueScalars(t *testing.T) {
	assert.Equal(t, "plain", NormalizeValue("plain"))
	assert.Equal(t, 42, NormalizeValue(42))
	assert.Equal(t, "bytes", NormalizeValue([]byte("bytes")))
	assert.Nil(t, NormalizeValue(nil))

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-01T12:00:00Z", NormalizeValue(ts))
	assert.Equal(t, "2026-03-01T12:00:00Z", NormalizeValue(&ts))
	assert.Nil(t, NormalizeValue((*time.Time)(nil)))
}

func TestNormalizeValueDoesNotMutateInput(t *testing.T) {
	input := map[string]any{
		"raw": []byte("abc"),
	}
	_ = NormalizeValue(input)
	_, stillBytes := input["raw"].([]byte)
	assert.True(t, stillBytes, "normalization must copy, not mutate")
}
