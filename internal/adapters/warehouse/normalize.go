package warehouse

import (
	"math"
	"time"
)

// Normalize converts result rows into JSON-safe records: nil, NaN and ±Inf
// become null, timestamps become ISO-8601 strings, byte slices become
// strings, and everything else passes through unchanged.
func Normalize(rows []Row) []map[string]any {
	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]any, len(row))
		for col, v := range row {
			record[col] = normalizeValue(v)
		}
		records = append(records, record)
	}
	return records
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return val.Format(time.RFC3339)
	case *time.Time:
		if val == nil || val.IsZero() {
			return nil
		}
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	default:
		return v
	}
}
