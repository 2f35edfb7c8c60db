package warehouse

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coursemetrics/metrics-warehouse/internal/observability"
	"github.com/coursemetrics/metrics-warehouse/pkg/logger"
)

// Executor runs raw query text over a session and measures latency. It does
// not retry and does not cache; every execution is bounded by the configured
// per-query timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a query executor with the given per-query upper bound.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute runs queryText on sess and returns the full tabular result.
// Failures are wrapped in *QueryError carrying a truncated copy of the query.
func (e *Executor) Execute(ctx context.Context, sess *Session, queryText string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()

	rows, err := sess.DB().QueryxContext(ctx, queryText)
	if err != nil {
		return nil, e.fail(sess, queryText, time.Since(start), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, e.fail(sess, queryText, time.Since(start), err)
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, e.fail(sess, queryText, time.Since(start), err)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, e.fail(sess, queryText, time.Since(start), err)
	}

	elapsed := time.Since(start)
	result.Elapsed = elapsed.Seconds()

	observability.QueryDuration.WithLabelValues("ok").Observe(result.Elapsed)
	observability.QueriesTotal.WithLabelValues("ok").Inc()
	logger.Debug("query executed",
		zap.Int64("session_id", sess.ID()),
		zap.Duration("elapsed", elapsed),
		zap.Int("rows", len(result.Rows)),
	)

	return result, nil
}

func (e *Executor) fail(sess *Session, queryText string, elapsed time.Duration, err error) error {
	observability.QueryDuration.WithLabelValues("error").Observe(elapsed.Seconds())
	observability.QueriesTotal.WithLabelValues("error").Inc()
	logger.Error("query execution failed",
		zap.Int64("session_id", sess.ID()),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	)
	return &QueryError{
		Query:   truncateQuery(queryText),
		Elapsed: elapsed.Seconds(),
		Err:     err,
	}
}
