package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/coursemetrics/metrics-warehouse/internal/queries"
)

// Derived metrics combine several queries, other metrics and business
// parameters. They run through the Runtime so their building blocks hit the
// same cache and session pool as query-backed metrics.

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func daysInRange(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

// monthsBetween measures the reporting window in fractional months, with the
// day remainder scaled by the average month length.
func monthsBetween(start, end time.Time, avgDaysPerMonth float64) float64 {
	months := float64((end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()))
	return months + float64(end.Day()-start.Day())/avgDaysPerMonth
}

// computeCAC divides total acquisition cost (ad spend plus a fixed daily
// sales expense) by the number of new paid-plan trials.
func computeCAC(ctx context.Context, rt Runtime, start, end time.Time) (*Result, error) {
	spendRes, err := rt.RunQuery(ctx, queries.CACSpend(start, end))
	if err != nil {
		return nil, err
	}
	spend := firstFloat(spendRes, "total_spend")

	trialsRes, err := rt.RunQuery(ctx, queries.CACTrials(start, end))
	if err != nil {
		return nil, err
	}
	trials := int64(firstFloat(trialsRes, "total_trials"))

	biz := rt.Business()
	days := daysInRange(start, end)
	salesExpenses := decimal.NewFromFloat(biz.DailySalesCost).Mul(decimal.NewFromInt(int64(days)))
	totalCost := decimal.NewFromFloat(spend).Add(salesExpenses)

	out := &Result{
		Numerator:   totalCost.Round(0).IntPart(),
		Denominator: trials,
		Status:      StatusOK,
		Message: fmt.Sprintf("$%s ad spend + $%s sales expenses (%d days) / %d new trials",
			money(spend), money(salesExpenses.InexactFloat64()), days, trials),
	}

	if trials > 0 {
		out.Value = floatPtr(totalCost.Div(decimal.NewFromInt(trials)).InexactFloat64())
	} else {
		out.Status = StatusPartial
	}
	return out, nil
}

// computeLTV reads the lifetime-value query and subtracts the fixed
// per-customer cost to report gross profit LTV.
func computeLTV(ctx context.Context, rt Runtime, start, end time.Time) (*Result, error) {
	biz := rt.Business()

	res, err := rt.RunQuery(ctx, queries.LifetimeValue(start, end, biz.ZeroChurnLifetimeMonths))
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		return &Result{
			Value:   floatPtr(0),
			Status:  StatusMissing,
			Message: "No revenue data available",
		}, nil
	}

	ltv := firstFloat(res, "lifetime_value")
	arps := firstFloat(res, "arps")
	churn := firstFloat(res, "monthly_churn_rate")
	customers := int64(firstFloat(res, "total_customers"))
	revenue := firstFloat(res, "total_revenue")

	value := decimal.NewFromFloat(ltv).Sub(decimal.NewFromFloat(biz.GrossProfitSubtraction))

	status := StatusOK
	if customers == 0 {
		status = StatusPartial
	}

	return &Result{
		Value:       floatPtr(value.InexactFloat64()),
		Numerator:   decimal.NewFromFloat(revenue).Round(0).IntPart(),
		Denominator: customers,
		Status:      status,
		Message: fmt.Sprintf("ARPS: $%s, Churn: %.1f%%, Revenue: $%s, Cost: $%s",
			money(arps), churn*100, money(revenue), money(biz.GrossProfitSubtraction)),
	}, nil
}

// computeCACToLTV divides the ltv metric by the cac metric. Both inputs come
// through the cache, so a summary computation pays for them once.
func computeCACToLTV(ctx context.Context, rt Runtime, start, end time.Time) (*Result, error) {
	cac := rt.Metric(ctx, "cac", start, end)
	ltv := rt.Metric(ctx, "ltv", start, end)

	if cac.Value == nil || ltv.Value == nil || *cac.Value <= 0 {
		return &Result{
			Status:  StatusMissing,
			Message: "CAC or LTV data not available",
		}, nil
	}

	ratio := *ltv.Value / *cac.Value
	return &Result{
		Value:       floatPtr(ratio),
		Numerator:   int64(*ltv.Value),
		Denominator: int64(*cac.Value),
		Status:      StatusOK,
		Message: fmt.Sprintf("LTV: $%s / CAC: $%s = %.1fx return",
			money(*ltv.Value), money(*cac.Value), ratio),
	}, nil
}

// computeMRRToAdSpend compares normalized monthly ad spend against current
// MRR. The acquisition cost total comes from the cac metric; the fixed team
// cost is removed so only ad spend counts.
func computeMRRToAdSpend(ctx context.Context, rt Runtime, start, end time.Time) (*Result, error) {
	mrrRes, err := rt.RunQuery(ctx, queries.MonthlyRecurringRevenue(end))
	if err != nil {
		return nil, err
	}
	mrr := firstFloat(mrrRes, "total_mrr_usd")

	biz := rt.Business()
	adSpend := float64(rt.Metric(ctx, "cac", start, end).Numerator)

	months := monthsBetween(start, end, biz.AvgDaysPerMonth)
	pureAdSpend := decimal.NewFromFloat(adSpend).Sub(decimal.NewFromFloat(biz.MonthlyTeamCost).Mul(decimal.NewFromFloat(months)))

	var monthlyAdSpend float64
	if months > 0 {
		monthlyAdSpend = pureAdSpend.Div(decimal.NewFromFloat(months)).InexactFloat64()
	}

	out := &Result{
		Numerator:   int64(monthlyAdSpend),
		Denominator: decimal.NewFromFloat(mrr).Round(0).IntPart(),
		Status:      StatusOK,
		Message:     fmt.Sprintf("$%s monthly ad spend / $%s MRR", money(monthlyAdSpend), money(mrr)),
	}

	if mrr > 0 {
		out.Value = floatPtr(monthlyAdSpend / mrr)
	} else {
		out.Status = StatusPartial
	}
	return out, nil
}
