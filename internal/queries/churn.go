package queries

import (
	"fmt"
	"time"
)

// ChurnSummary measures subscriptions canceled due to failed payments.
func ChurnSummary(start, end time.Time) string {
	return fmt.Sprintf(`
    SELECT COUNT(*) as total_cancels,
           COUNT(CASE WHEN s.STATUS = 'canceled'
                      AND s.CANCELED_AT IS NOT NULL THEN 1 END)
             as canceled_subscriptions,
           CASE WHEN COUNT(*) > 0 THEN
                COUNT(CASE WHEN s.STATUS = 'canceled'
                           AND s.CANCELED_AT IS NOT NULL THEN 1 END)::FLOAT
                / COUNT(*)::FLOAT
                ELSE 0 END as churn_rate
    FROM STRIPE.SUBSCRIPTIONS s
    WHERE s.STATUS = 'canceled'
      AND s.CANCELED_AT >= '%s'
      AND s.CANCELED_AT <= '%s'
    `, day(start), day(end))
}

// ChurnDetails lists the canceled subscriptions with customer emails.
func ChurnDetails(start, end time.Time, _ map[string]string) string {
	return fmt.Sprintf(`
    SELECT s.CUSTOMER_ID as customer_id,
           s.CANCELED_AT as canceled_at,
           c.EMAIL as email
    FROM STRIPE.SUBSCRIPTIONS s
    LEFT JOIN STRIPE.CUSTOMERS c
      ON s.CUSTOMER_ID = c.ID
    WHERE s.STATUS = 'canceled'
      AND s.CANCELED_AT >= '%s'
      AND s.CANCELED_AT <= '%s'
    ORDER BY s.CANCELED_AT DESC
    LIMIT 100
    `, day(start), day(end))
}
