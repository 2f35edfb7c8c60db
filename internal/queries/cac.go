package queries

import (
	"fmt"
	"time"
)

// CACSpend totals ad spend for the acquisition cost numerator.
func CACSpend(start, end time.Time) string {
	return fmt.Sprintf(`
    SELECT SUM(i.SPEND) AS total_spend
    FROM FACEBOOKADS.INSIGHTS i
    WHERE i.DATE_START >= '%s'
      AND i.DATE_START <= '%s'
    `, day(start), day(end))
}

// CACTrials counts new trials on the paid plans for the acquisition cost
// denominator.
func CACTrials(start, end time.Time) string {
	return fmt.Sprintf(`
    SELECT COUNT(*) AS total_trials
    FROM STRIPE.SUBSCRIPTIONS s
    LEFT JOIN STRIPE.PLANS p ON s.PLAN_ID = p.ID
    LEFT JOIN STRIPE.PRODUCTS pr ON p.PRODUCT = pr.ID
    WHERE s.TRIAL_START IS NOT NULL
      AND s.TRIAL_START >= '%s'
      AND s.TRIAL_START <= '%s'
      AND (
        LOWER(pr.NAME) LIKE '%%starter%%'
        OR LOWER(pr.NAME) LIKE '%%elite%%'
        OR LOWER(pr.NAME) LIKE '%%premium%%'
      )
    `, day(start), day(end))
}

// IncludedTrials lists the trials counted by CACTrials with customer detail.
func IncludedTrials(start, end time.Time, _ map[string]string) string {
	return fmt.Sprintf(`
    SELECT
      s.ID AS subscription_id,
      pr.NAME AS product_name,
      c.EMAIL AS customer_email,
      c.DESCRIPTION AS customer_name,
      s.TRIAL_START,
      s.START_DATE,
      s.STATUS
    FROM STRIPE.SUBSCRIPTIONS s
      JOIN STRIPE.PLANS p ON s.PLAN_ID = p.ID
      JOIN STRIPE.PRODUCTS pr ON p.PRODUCT = pr.ID
      JOIN STRIPE.CUSTOMERS c ON s.CUSTOMER_ID = c.ID
    WHERE
      s.TRIAL_START >= '%s'
      AND s.TRIAL_START <= '%s'
      AND (
        LOWER(pr.NAME) LIKE '%%starter%%'
        OR LOWER(pr.NAME) LIKE '%%elite%%'
        OR LOWER(pr.NAME) LIKE '%%premium%%'
      )
    ORDER BY s.TRIAL_START DESC
    `, day(start), day(end))
}
