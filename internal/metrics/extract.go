package metrics

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coursemetrics/metrics-warehouse/internal/adapters/warehouse"
)

// Candidate column lists, version 1. Extraction tries each name in order,
// case-insensitively, and the first non-null match wins. The lists encode the
// column naming conventions of the catalog's query builders; queries are not
// forced into a canonical column contract, so extending a list is the way to
// onboard a query with new column names.
var valueCandidates = map[Type][]string{
	TypePercentage: {"rate", "percentage", "ratio", "dormant_rate", "activation_rate", "churn_rate", "dunning_recovery_rate"},
	TypeRatio:      {"ratio", "cac_to_ltv_ratio", "value"},
	TypeCount:      {"total", "count", "total_leads", "total_users"},
	TypeCurrency:   {"amount", "revenue", "spend", "value"},
	TypeList:       {"event_count", "count"},
	TypePareto:     {"count"},
}

var defaultValueCandidates = []string{"value", "total", "count"}

var numeratorCandidates = []string{
	"numerator", "dormant_users", "activated_users", "canceled_subscriptions",
	"recovered", "conversions", "total_leads",
}

var denominatorCandidates = []string{
	"denominator", "total_users", "total_cancels", "failed",
}

// extractValue picks the metric value from a row using the per-type candidate
// order. A miss is not an error: it returns nil, distinguishing "ran but
// produced no usable field" from "failed to run".
func extractValue(row warehouse.Row, t Type) *float64 {
	candidates, ok := valueCandidates[t]
	if !ok {
		candidates = defaultValueCandidates
	}
	for _, col := range candidates {
		v, found := row.Lookup(col)
		if !found || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return floatPtr(f)
		}
	}
	return nil
}

func extractNumerator(row warehouse.Row) int64 {
	return extractInt(row, numeratorCandidates)
}

func extractDenominator(row warehouse.Row) int64 {
	return extractInt(row, denominatorCandidates)
}

func extractInt(row warehouse.Row, candidates []string) int64 {
	for _, col := range candidates {
		v, found := row.Lookup(col)
		if !found || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return int64(f)
		}
	}
	return 0
}

// toFloat coerces the scalar types drivers hand back for numeric columns.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case decimal.Decimal:
		return val.InexactFloat64(), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(val), 64)
		return f, err == nil
	case time.Time, bool:
		return 0, false
	default:
		return 0, false
	}
}

// firstFloat returns the named cell of the first row as a float, or 0 when
// the result is empty or the cell is not numeric. Used by derived
// computations whose queries return a single scalar.
func firstFloat(res *warehouse.Result, column string) float64 {
	if res == nil || res.Empty() {
		return 0
	}
	if v, ok := res.Rows[0].Lookup(column); ok && v != nil {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return 0
}
