package queries

import (
	"fmt"
	"time"
)

// LifetimeValue derives LTV from average revenue per subscriber and the
// trailing twelve month churn rate. Zero churn falls back to a fixed lifetime
// of zeroChurnMonths to keep the value finite.
func LifetimeValue(start, end time.Time, zeroChurnMonths int) string {
	return fmt.Sprintf(`
    WITH subscriber_metrics AS (
      SELECT
        COUNT(DISTINCT s.CUSTOMER_ID) AS total_customers,
        COUNT(
          DISTINCT CASE
            WHEN s.CANCELED_AT >= DATEADD(MONTH, -12, CURRENT_TIMESTAMP())
            THEN s.CUSTOMER_ID
          END
        ) AS churned_customers,
        SUM(i.TOTAL) / 100.0 AS total_revenue
      FROM
        STRIPE.SUBSCRIPTIONS s
        JOIN STRIPE.INVOICES i ON s.CUSTOMER_ID = i.CUSTOMER_ID
      WHERE
        i.CREATED >= '%s'
        AND i.CREATED <= '%s'
        AND i.PAID = TRUE
    )
    SELECT
      total_revenue / NULLIF(total_customers, 0) AS arps,
      CAST(churned_customers AS FLOAT) / NULLIF(total_customers, 0) AS monthly_churn_rate,
      CASE
        WHEN (
          CAST(churned_customers AS FLOAT) / NULLIF(total_customers, 0)
        ) = 0 THEN (total_revenue / NULLIF(total_customers, 0)) * %d
        ELSE (total_revenue / NULLIF(total_customers, 0)) / (
          CAST(churned_customers AS FLOAT) / NULLIF(total_customers, 0)
        )
      END AS lifetime_value,
      total_customers,
      total_revenue
    FROM
      subscriber_metrics
    `, day(start), day(end), zeroChurnMonths)
}
