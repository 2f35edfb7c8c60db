package queries

import (
	"fmt"
	"time"
)

// ActivationSummary measures new users performing a key action within 24
// hours of their first event.
func ActivationSummary(start, end time.Time) string {
	return fmt.Sprintf(`
    WITH new_users AS (
        SELECT ANONYMOUS_ID, MIN(ORIGINAL_TIMESTAMP) as first_event_date
        FROM TRACKS
        WHERE ORIGINAL_TIMESTAMP >= '%s'
          AND ORIGINAL_TIMESTAMP <= '%s'
        GROUP BY ANONYMOUS_ID
    ),
    activated_users AS (
        SELECT nu.ANONYMOUS_ID, CASE WHEN COUNT(t.ORIGINAL_TIMESTAMP) > 0 THEN 1 ELSE 0 END as is_activated
        FROM new_users nu
        LEFT JOIN TRACKS t ON nu.ANONYMOUS_ID = t.ANONYMOUS_ID
            AND t.ORIGINAL_TIMESTAMP BETWEEN nu.first_event_date AND DATEADD(hour, 24, nu.first_event_date)
            AND t.EVENT IN ('purchase', 'complete_registration', 'schedule')
        GROUP BY nu.ANONYMOUS_ID
    )
    SELECT COUNT(*) as total_users, SUM(is_activated) as activated_users,
           CASE WHEN COUNT(*) > 0 THEN SUM(is_activated)::FLOAT / COUNT(*)::FLOAT ELSE 0 END as activation_rate
    FROM activated_users
    `, day(start), day(end))
}

// ActivationDetails lists per-user activation rows; the "activated" parameter
// filters when set to "true" or "false".
func ActivationDetails(start, end time.Time, params map[string]string) string {
	filter := ""
	switch params["activated"] {
	case "true":
		filter = "WHERE is_activated = 1"
	case "false":
		filter = "WHERE is_activated = 0"
	}

	return fmt.Sprintf(`
    WITH new_users AS (
        SELECT ANONYMOUS_ID, MIN(ORIGINAL_TIMESTAMP) as first_event_date
        FROM TRACKS
        WHERE ORIGINAL_TIMESTAMP >= '%s'
          AND ORIGINAL_TIMESTAMP <= '%s'
        GROUP BY ANONYMOUS_ID
    ),
    activated_users AS (
        SELECT nu.ANONYMOUS_ID, nu.first_event_date, CASE WHEN COUNT(t.ORIGINAL_TIMESTAMP) > 0 THEN 1 ELSE 0 END as is_activated, COUNT(t.ORIGINAL_TIMESTAMP) as activation_events
        FROM new_users nu
        LEFT JOIN TRACKS t ON nu.ANONYMOUS_ID = t.ANONYMOUS_ID
            AND t.ORIGINAL_TIMESTAMP BETWEEN nu.first_event_date AND DATEADD(hour, 24, nu.first_event_date)
            AND t.EVENT IN ('purchase', 'complete_registration', 'schedule')
        GROUP BY nu.ANONYMOUS_ID, nu.first_event_date
    )
    SELECT ANONYMOUS_ID as user_id, first_event_date, is_activated, activation_events,
           CASE WHEN is_activated = 1 THEN 'Activated' ELSE 'Not Activated' END as status
    FROM activated_users
    %s
    ORDER BY first_event_date DESC
    LIMIT 100
    `, day(start), day(end), filter)
}
