package metrics

import (
	"context"
	"time"
)

// Type classifies how a metric's value is extracted and presented.
type Type string

const (
	TypePercentage Type = "percentage"
	TypeRatio      Type = "ratio"
	TypeCount      Type = "count"
	TypeCurrency   Type = "currency"
	TypeList       Type = "list"
	TypePareto     Type = "pareto"
)

// Status reports the outcome of a metric computation.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusMissing Status = "missing"
	StatusError   Status = "error"
)

// QueryBuilder produces the summary query text for a date range.
type QueryBuilder func(start, end time.Time) string

// DetailsBuilder produces the details query text for a date range and
// metric-specific string parameters.
type DetailsBuilder func(start, end time.Time, params map[string]string) string

// ComputeFunc computes a derived metric that cannot be expressed as a single
// summary query. It runs under the same caching, timing and failure-isolation
// rules as query-backed metrics.
type ComputeFunc func(ctx context.Context, rt Runtime, start, end time.Time) (*Result, error)

// Definition describes one metric in the catalog. Definitions are registered
// once at startup and never mutated afterwards. Exactly one of SummaryQuery
// or Compute must be set.
type Definition struct {
	Key         string
	Title       string
	Description string
	Category    string
	Type        Type

	SummaryQuery QueryBuilder
	DetailsQuery DetailsBuilder
	Compute      ComputeFunc

	// Display metadata, passed through to the catalog endpoint.
	Color      string
	Icon       string
	Trend      string
	TrendValue string
}

// Result is the uniform output of a metric computation.
type Result struct {
	Value         *float64         `json:"value"`
	Numerator     int64            `json:"numerator"`
	Denominator   int64            `json:"denominator"`
	Status        Status           `json:"status"`
	Message       string           `json:"message"`
	Data          []map[string]any `json:"data"`
	Cached        bool             `json:"cached"`
	ExecutionTime *float64         `json:"executionTime"`
}

func floatPtr(v float64) *float64 {
	return &v
}

// errorResult builds the uniform error-status result used whenever a
// computation fails locally.
func errorResult(message string) *Result {
	return &Result{
		Value:       nil,
		Numerator:   0,
		Denominator: 0,
		Status:      StatusError,
		Message:     message,
	}
}
