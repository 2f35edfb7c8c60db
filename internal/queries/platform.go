package queries

import (
	"fmt"
	"time"
)

// PlatformBreakdownSummary returns the top platforms by event count.
func PlatformBreakdownSummary(start, end time.Time) string {
	return fmt.Sprintf(`
    SELECT
        CONTEXT_USER_AGENT_DATA_PLATFORM as platform,
        COUNT(*) as event_count,
        COUNT(DISTINCT USER_ID) as unique_users
    FROM PAGE_VIEW
    WHERE TIMESTAMP >= '%s'
    AND TIMESTAMP <= '%s'
    AND CONTEXT_USER_AGENT_DATA_PLATFORM IS NOT NULL
    GROUP BY CONTEXT_USER_AGENT_DATA_PLATFORM
    ORDER BY event_count DESC
    LIMIT 5
    `, iso(start), iso(end))
}

// PlatformBreakdownDetails returns the per-day platform breakdown.
func PlatformBreakdownDetails(start, end time.Time, _ map[string]string) string {
	return fmt.Sprintf(`
    SELECT
        CONTEXT_USER_AGENT_DATA_PLATFORM as platform,
        COUNT(*) as event_count,
        COUNT(DISTINCT USER_ID) as unique_users,
        DATE(TIMESTAMP) as date
    FROM PAGE_VIEW
    WHERE TIMESTAMP >= '%s'
    AND TIMESTAMP <= '%s'
    AND CONTEXT_USER_AGENT_DATA_PLATFORM IS NOT NULL
    GROUP BY CONTEXT_USER_AGENT_DATA_PLATFORM, DATE(TIMESTAMP)
    ORDER BY event_count DESC
    `, iso(start), iso(end))
}
