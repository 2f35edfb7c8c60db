package queries

import (
	"fmt"
	"time"
)

// DormantAccountSummary measures new purchasers with zero sessions after
// their first purchase.
func DormantAccountSummary(start, end time.Time) string {
	return fmt.Sprintf(`
    WITH first_purchases AS (
        SELECT ANONYMOUS_ID, MIN(ORIGINAL_TIMESTAMP) as first_purchase_date
        FROM TRACKS
        WHERE EVENT = 'purchase'
          AND ORIGINAL_TIMESTAMP >= '%s'
          AND ORIGINAL_TIMESTAMP <= '%s'
        GROUP BY ANONYMOUS_ID
    ),
    user_sessions_after_purchase AS (
        SELECT fp.ANONYMOUS_ID, CASE WHEN COUNT(t.ORIGINAL_TIMESTAMP) = 0 THEN 1 ELSE 0 END as is_dormant
        FROM first_purchases fp
        LEFT JOIN TRACKS t ON fp.ANONYMOUS_ID = t.ANONYMOUS_ID
            AND t.ORIGINAL_TIMESTAMP > fp.first_purchase_date
        GROUP BY fp.ANONYMOUS_ID
    )
    SELECT COUNT(*) as total_users, SUM(is_dormant) as dormant_users,
           CASE WHEN COUNT(*) > 0 THEN SUM(is_dormant)::FLOAT / COUNT(*)::FLOAT ELSE 0 END as dormant_rate
    FROM user_sessions_after_purchase
    `, day(start), day(end))
}

// DormantAccountDetails lists per-user dormancy rows; the "dormant" parameter
// filters to dormant or active users when set to "true" or "false".
func DormantAccountDetails(start, end time.Time, params map[string]string) string {
	filter := ""
	switch params["dormant"] {
	case "true":
		filter = "WHERE is_dormant = 1"
	case "false":
		filter = "WHERE is_dormant = 0"
	}

	return fmt.Sprintf(`
    WITH first_purchases AS (
        SELECT ANONYMOUS_ID, MIN(ORIGINAL_TIMESTAMP) as first_purchase_date
        FROM TRACKS
        WHERE EVENT = 'purchase'
          AND ORIGINAL_TIMESTAMP >= '%s'
          AND ORIGINAL_TIMESTAMP <= '%s'
        GROUP BY ANONYMOUS_ID
    ),
    user_sessions_after_purchase AS (
        SELECT fp.ANONYMOUS_ID, fp.first_purchase_date, CASE WHEN COUNT(t.ORIGINAL_TIMESTAMP) = 0 THEN 1 ELSE 0 END as is_dormant
        FROM first_purchases fp
        LEFT JOIN TRACKS t ON fp.ANONYMOUS_ID = t.ANONYMOUS_ID
            AND t.ORIGINAL_TIMESTAMP > fp.first_purchase_date
        GROUP BY fp.ANONYMOUS_ID, fp.first_purchase_date
    )
    SELECT ANONYMOUS_ID as user_id, first_purchase_date, is_dormant,
           CASE WHEN is_dormant = 1 THEN 'Dormant' ELSE 'Active' END as status
    FROM user_sessions_after_purchase
    %s
    ORDER BY first_purchase_date DESC
    LIMIT 100
    `, day(start), day(end), filter)
}
