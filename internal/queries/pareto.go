package queries

import (
	"fmt"
	"time"
)

// FailureParetoSummary returns the top payment failure reasons.
func FailureParetoSummary(start, end time.Time) string {
	return fmt.Sprintf(`
    SELECT
        FAILURE_CODE as reason,
        COUNT(*) as count
    FROM STRIPE.CHARGES
    WHERE CREATED >= '%s'
    AND CREATED <= '%s'
    AND STATUS = 'failed'
    AND FAILURE_CODE IS NOT NULL
    GROUP BY FAILURE_CODE
    ORDER BY count DESC
    LIMIT 5
    `, iso(start), iso(end))
}

// FailureParetoDetails lists recent failed charges with customer context.
func FailureParetoDetails(start, end time.Time, _ map[string]string) string {
	return fmt.Sprintf(`
    SELECT
        c.FAILURE_CODE as failure_reason,
        c.CREATED as failure_date,
        c.AMOUNT,
        cust.EMAIL as customer_email,
        c.ID as charge_id
    FROM STRIPE.CHARGES c
    LEFT JOIN STRIPE.CUSTOMERS cust ON c.CUSTOMER_ID = cust.ID
    WHERE c.STATUS = 'failed'
      AND c.FAILURE_CODE IS NOT NULL
      AND c.CREATED >= '%s'
      AND c.CREATED <= '%s'
    ORDER BY c.CREATED DESC
    LIMIT 100
    `, day(start), day(end))
}
