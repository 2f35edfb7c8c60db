package warehouse

import "fmt"

// queryPreviewLen bounds the amount of query text carried in a QueryError.
const queryPreviewLen = 200

// ConnectionError reports a failure to establish or refresh a warehouse
// session. It is fatal for the request that triggered it; callers must not
// assume a partial session exists.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("warehouse connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError reports a failed query execution. It carries a truncated copy of
// the query text for diagnostics and the measured execution time in seconds.
type QueryError struct {
	Query   string
	Elapsed float64
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query execution failed after %.2fs: %v", e.Elapsed, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func truncateQuery(query string) string {
	if len(query) <= queryPreviewLen {
		return query
	}
	return query[:queryPreviewLen] + "..."
}
