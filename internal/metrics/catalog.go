package metrics

import (
	"time"

	"github.com/coursemetrics/metrics-warehouse/internal/adapters/config"
	"github.com/coursemetrics/metrics-warehouse/internal/queries"
)

// RegisterAll loads the full metric catalog into reg. Business parameters are
// bound into the query builders and computations here, so the rest of the
// catalog stays pure date-range functions.
func RegisterAll(reg *Registry, biz config.BusinessConfig) {
	// Customer Success
	reg.Register(&Definition{
		Key:          "dormant_account_rate",
		Title:        "Dormant Account Rate",
		Description:  "Percentage of new purchasers with zero sessions after first purchase",
		Category:     "Customer Success",
		Type:         TypePercentage,
		SummaryQuery: queries.DormantAccountSummary,
		DetailsQuery: queries.DormantAccountDetails,
		Color:        "bg-red-50 border-red-200 text-red-700",
		Icon:         "Users",
		Trend:        "down",
		TrendValue:   "-2.3%",
	})

	reg.Register(&Definition{
		Key:          "t24h_activation_rate",
		Title:        "24h Activation Rate",
		Description:  "Percentage of new users who performed a key action within 24 hours",
		Category:     "Customer Success",
		Type:         TypePercentage,
		SummaryQuery: queries.ActivationSummary,
		DetailsQuery: queries.ActivationDetails,
		Color:        "bg-blue-50 border-blue-200 text-blue-700",
		Icon:         "Target",
		Trend:        "up",
		TrendValue:   "+3.8%",
	})

	// Finance
	reg.Register(&Definition{
		Key:          "involuntary_churn_rate",
		Title:        "Involuntary Churn Rate",
		Description:  "Percentage of subscriptions canceled due to failed payments",
		Category:     "Finance",
		Type:         TypePercentage,
		SummaryQuery: queries.ChurnSummary,
		DetailsQuery: queries.ChurnDetails,
		Color:        "bg-orange-50 border-orange-200 text-orange-700",
		Icon:         "CreditCard",
		Trend:        "up",
		TrendValue:   "+1.1%",
	})

	reg.Register(&Definition{
		Key:          "dunning_recovery_rate",
		Title:        "Dunning Recovery Rate",
		Description:  "Percentage of failed payments that were successfully recovered",
		Category:     "Finance",
		Type:         TypePercentage,
		SummaryQuery: queries.DunningRecoverySummary,
		DetailsQuery: queries.DunningRecoveryDetails,
		Color:        "bg-green-50 border-green-200 text-green-700",
		Icon:         "AlertTriangle",
		Trend:        "up",
		TrendValue:   "+5.2%",
	})

	reg.Register(&Definition{
		Key:          "root_cause_pareto",
		Title:        "Root Cause Pareto",
		Description:  "Top payment failure reasons",
		Category:     "Finance",
		Type:         TypePareto,
		SummaryQuery: queries.FailureParetoSummary,
		DetailsQuery: queries.FailureParetoDetails,
		Color:        "bg-rose-50 border-rose-200 text-rose-700",
		Icon:         "Activity",
	})

	// Marketing
	reg.Register(&Definition{
		Key:         "facebook_cac_to_ltv_ratio",
		Title:       "Facebook CAC to LTV Ratio",
		Description: "Customer Acquisition Cost to Lifetime Value ratio for Facebook ads",
		Category:    "Marketing",
		Type:        TypeRatio,
		SummaryQuery: func(start, end time.Time) string {
			return queries.FacebookCACToLTVSummary(start, end, biz.LTVAnnualMultiplier)
		},
		DetailsQuery: queries.FacebookCACToLTVDetails,
		Color:        "bg-purple-50 border-purple-200 text-purple-700",
		Icon:         "TrendingUp",
		Trend:        "up",
		TrendValue:   "+0.2",
	})

	reg.Register(&Definition{
		Key:          "facebook_lead_ads_total",
		Title:        "Facebook Lead Ads Total",
		Description:  "Total count of Facebook lead ads in the selected date range",
		Category:     "Marketing",
		Type:         TypeCount,
		SummaryQuery: queries.FacebookLeadAdsSummary,
		DetailsQuery: queries.FacebookLeadAdsDetails,
		Color:        "bg-pink-50 border-pink-200 text-pink-700",
		Icon:         "DollarSign",
		Trend:        "up",
		TrendValue:   "+12%",
	})

	reg.Register(&Definition{
		Key:          "cac",
		Title:        "Customer Acquisition Cost",
		Description:  "Total acquisition cost divided by new paid-plan trials",
		Category:     "Marketing",
		Type:         TypeCurrency,
		Compute:      computeCAC,
		DetailsQuery: queries.IncludedTrials,
		Color:        "bg-indigo-50 border-indigo-200 text-indigo-700",
		Icon:         "DollarSign",
	})

	reg.Register(&Definition{
		Key:         "ltv",
		Title:       "Lifetime Value",
		Description: "Gross profit lifetime value per customer",
		Category:    "Finance",
		Type:        TypeCurrency,
		Compute:     computeLTV,
		Color:       "bg-emerald-50 border-emerald-200 text-emerald-700",
		Icon:        "TrendingUp",
	})

	reg.Register(&Definition{
		Key:         "cac_to_ltv_ratio",
		Title:       "CAC to LTV Ratio",
		Description: "Lifetime value returned per dollar of acquisition cost",
		Category:    "Marketing",
		Type:        TypeRatio,
		Compute:     computeCACToLTV,
		Color:       "bg-purple-50 border-purple-200 text-purple-700",
		Icon:        "TrendingUp",
	})

	reg.Register(&Definition{
		Key:         "mrr_to_ad_spend",
		Title:       "MRR to Ad Spend",
		Description: "Monthly ad spend as a share of monthly recurring revenue",
		Category:    "Finance",
		Type:        TypePercentage,
		Compute:     computeMRRToAdSpend,
		DetailsQuery: func(start, end time.Time, _ map[string]string) string {
			months := monthsBetween(start, end, biz.AvgDaysPerMonth)
			return queries.MRRToAdSpendDetails(start, end, biz.MonthlyTeamCost, months)
		},
		Color: "bg-cyan-50 border-cyan-200 text-cyan-700",
		Icon:  "DollarSign",
	})

	// Product & IT
	reg.Register(&Definition{
		Key:          "platform_breakdown",
		Title:        "Platform Breakdown",
		Description:  "Top platforms by event count",
		Category:     "Product & IT",
		Type:         TypeList,
		SummaryQuery: queries.PlatformBreakdownSummary,
		DetailsQuery: queries.PlatformBreakdownDetails,
		Color:        "bg-gray-50 border-gray-200 text-gray-700",
		Icon:         "Monitor",
	})
}
