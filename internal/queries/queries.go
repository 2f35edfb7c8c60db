// Package queries holds the business SQL for every catalog metric. Each
// builder returns opaque query text for a date range; the computation engine
// never inspects or rewrites it.
package queries

import "time"

func day(t time.Time) string {
	return t.Format("2006-01-02")
}

func iso(t time.Time) string {
	return t.Format(time.RFC3339)
}
