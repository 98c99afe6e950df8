package warehouse

import (
	"time"
)

// NormalizeValue returns a copy of v in which byte slices become UTF-8 text
// and timestamps become RFC 3339 UTC text, applied recursively through maps
// and slices at any depth. Mapping keys and sequence order are preserved;
// values of any other type pass through unchanged.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = NormalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeValue(item)
		}
		return out
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.RFC3339)
	default:
		return v
	}
}
