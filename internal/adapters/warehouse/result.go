package warehouse

import (
	"sort"
	"strings"
)

// Row is a single result row mapping column names to driver values.
type Row map[string]any

// Lookup returns the value of the first column whose name matches
// case-insensitively. The warehouse may upper-case identifiers regardless of
// how the query cased them, so exact-name access is unreliable. When several
// case-variants of the same name are present, the fallback scans column names
// in byte order so repeated lookups always resolve to the same column.
func (r Row) Lookup(name string) (any, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	cols := make([]string, 0, len(r))
	for col := range r {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if strings.EqualFold(col, name) {
			return r[col], true
		}
	}
	return nil, false
}

// Result is the tabular output of one query execution.
type Result struct {
	Columns []string
	Rows    []Row
	// Elapsed is the wall-clock execution time in seconds.
	Elapsed float64
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool {
	return len(r.Rows) == 0
}
