package queries

import (
	"fmt"
	"time"
)

// MonthlyRecurringRevenue normalizes every active subscription to a monthly
// amount regardless of billing interval. Amounts are stored in cents.
func MonthlyRecurringRevenue(end time.Time) string {
	return fmt.Sprintf(`
    WITH monthly_normalized AS (
      SELECT
        SUM(
          CASE
            WHEN p.INTERVAL = 'year' THEN (p.AMOUNT * s.QUANTITY) / 12
            WHEN p.INTERVAL = 'month' THEN p.AMOUNT * s.QUANTITY
            WHEN p.INTERVAL = 'week' THEN p.AMOUNT * s.QUANTITY * 4
            WHEN p.INTERVAL = 'day' THEN p.AMOUNT * s.QUANTITY * 30
          END
        ) / 100.0 AS mrr
      FROM
        STRIPE.SUBSCRIPTIONS s
        JOIN STRIPE.PLANS p ON s.PLAN_ID = p.ID
      WHERE
        s.STATUS IN ('active', 'trialing')
        AND p.CURRENCY ILIKE '%%usd%%'
        AND s.CREATED <= '%[1]s'
        AND (
          s.CANCELED_AT IS NULL
          OR s.CANCELED_AT > '%[1]s'
        )
    )
    SELECT
      mrr AS total_mrr_usd
    FROM
      monthly_normalized
    `, day(end))
}

// MRRToAdSpendDetails shows the MRR and monthly ad spend sides of the ratio.
// teamCost is the fixed monthly sales team expense removed from raw spend and
// months is the length of the reporting window.
func MRRToAdSpendDetails(start, end time.Time, teamCost, months float64) string {
	return fmt.Sprintf(`
    WITH monthly_normalized AS (
      SELECT
        SUM(
          CASE
            WHEN p.INTERVAL = 'year' THEN (p.AMOUNT * s.QUANTITY) / 12
            WHEN p.INTERVAL = 'month' THEN p.AMOUNT * s.QUANTITY
            WHEN p.INTERVAL = 'week' THEN p.AMOUNT * s.QUANTITY * 4
            WHEN p.INTERVAL = 'day' THEN p.AMOUNT * s.QUANTITY * 30
          END
        ) / 100.0 AS mrr,
        COUNT(DISTINCT s.CUSTOMER_ID) as customer_count
      FROM
        STRIPE.SUBSCRIPTIONS s
        JOIN STRIPE.PLANS p ON s.PLAN_ID = p.ID
      WHERE
        s.STATUS IN ('active', 'trialing')
        AND p.CURRENCY ILIKE '%%usd%%'
        AND s.CREATED <= '%[2]s'
        AND (
          s.CANCELED_AT IS NULL
          OR s.CANCELED_AT > '%[2]s'
        )
    ),
    ad_spend_data AS (
      SELECT SUM(i.SPEND) as total_ad_spend
      FROM FACEBOOKADS.INSIGHTS i
      WHERE i.DATE_START >= '%[1]s'
        AND i.DATE_START <= '%[2]s'
    )
    SELECT
        'MRR' as metric_type,
        m.mrr as value,
        m.customer_count as customer_count
    FROM monthly_normalized m
    UNION ALL
    SELECT
        'Monthly Ad Spend' as metric_type,
        ((a.total_ad_spend - %.2[3]f) / %.2[4]f) as value,
        0 as customer_count
    FROM ad_spend_data a
    `, day(start), day(end), teamCost, months)
}
