package queries

import (
	"fmt"
	"time"
)

// FacebookCACToLTVSummary calculates the Facebook-channel CAC to LTV ratio in
// SQL: ad spend over attributed conversions against average revenue
// annualized by ltvMultiplier.
func FacebookCACToLTVSummary(start, end time.Time, ltvMultiplier int) string {
	return fmt.Sprintf(`
    WITH facebook_spend AS (
        SELECT SUM(SPEND) as total_spend
        FROM FACEBOOKADS.INSIGHTS
        WHERE DATE_START >= '%[1]s'
        AND DATE_START <= '%[2]s'
    ),
    facebook_conversions AS (
        SELECT COUNT(DISTINCT USER_ID) as conversions
        FROM PURCHASE
        WHERE TIMESTAMP >= '%[3]s'
        AND TIMESTAMP <= '%[4]s'
        AND CONTEXT_CAMPAIGN_SOURCE = 'facebook'
    ),
    avg_revenue AS (
        SELECT AVG(VALUE) as avg_revenue
        FROM PURCHASE
        WHERE TIMESTAMP >= '%[3]s'
        AND TIMESTAMP <= '%[4]s'
    )
    SELECT
        COALESCE(fs.total_spend, 0) as total_spend,
        COALESCE(fc.conversions, 0) as conversions,
        COALESCE(ar.avg_revenue, 0) as avg_revenue,
        CASE
            WHEN COALESCE(fc.conversions, 0) > 0 THEN COALESCE(fs.total_spend, 0) / fc.conversions
            ELSE 0
        END as cac,
        COALESCE(ar.avg_revenue, 0) * %[5]d as ltv,
        CASE
            WHEN COALESCE(fc.conversions, 0) > 0 AND COALESCE(fs.total_spend, 0) > 0
            THEN (COALESCE(ar.avg_revenue, 0) * %[5]d) / (COALESCE(fs.total_spend, 0) / fc.conversions)
            ELSE 0
        END as cac_to_ltv_ratio
    FROM facebook_spend fs
    CROSS JOIN facebook_conversions fc
    CROSS JOIN avg_revenue ar
    `, day(start), day(end), iso(start), iso(end), ltvMultiplier)
}

// FacebookCACToLTVDetails breaks the ratio down into its inputs.
func FacebookCACToLTVDetails(start, end time.Time, _ map[string]string) string {
	return fmt.Sprintf(`
    SELECT
        'Facebook Ad Spend' as metric_type,
        SUM(SPEND) as value,
        'USD' as unit
    FROM FACEBOOKADS.INSIGHTS
    WHERE DATE_START >= '%[1]s'
    AND DATE_START <= '%[2]s'
    UNION ALL
    SELECT
        'Facebook Conversions' as metric_type,
        COUNT(DISTINCT USER_ID) as value,
        'users' as unit
    FROM PURCHASE
    WHERE TIMESTAMP >= '%[3]s'
    AND TIMESTAMP <= '%[4]s'
    AND CONTEXT_CAMPAIGN_SOURCE = 'facebook'
    UNION ALL
    SELECT
        'Average Revenue' as metric_type,
        AVG(VALUE) as value,
        'USD' as unit
    FROM PURCHASE
    WHERE TIMESTAMP >= '%[3]s'
    AND TIMESTAMP <= '%[4]s'
    `, day(start), day(end), iso(start), iso(end))
}

// FacebookLeadAdsSummary counts lead-ads identifies in the date range.
func FacebookLeadAdsSummary(start, end time.Time) string {
	return fmt.Sprintf(`
    SELECT COUNT(*) as total_leads
    FROM FACEBOOK_LEAD_ADS.IDENTIFIES
    WHERE TIMESTAMP >= '%s'
    AND TIMESTAMP <= '%s'
    `, iso(start), iso(end))
}

// FacebookLeadAdsDetails lists individual leads with their ad attribution.
func FacebookLeadAdsDetails(start, end time.Time, _ map[string]string) string {
	return fmt.Sprintf(`
    SELECT
        NAME as lead_name,
        EMAIL as lead_email,
        PHONE_NUMBER as lead_phone,
        AD_NAME as ad_name,
        AD_SET_NAME as ad_set_name,
        CAMPAIGN_NAME as campaign_name,
        TIMESTAMP as lead_date,
        FORM_NAME as form_name
    FROM FACEBOOK_LEAD_ADS.IDENTIFIES
    WHERE TIMESTAMP >= '%s'
    AND TIMESTAMP <= '%s'
    ORDER BY TIMESTAMP DESC
    LIMIT 100
    `, day(start), day(end))
}
