package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/coursemetrics/metrics-warehouse/internal/adapters/config"
	"github.com/coursemetrics/metrics-warehouse/internal/adapters/warehouse"
)

type stubPool struct {
	failWith  error
	checkouts int
	checkins  int
}

func (p *stubPool) Checkout(ctx context.Context) (*warehouse.Session, error) {
	if p.failWith != nil {
		return nil, p.failWith
	}
	p.checkouts++
	return &warehouse.Session{}, nil
}

func (p *stubPool) Checkin(sess *warehouse.Session) {
	p.checkins++
}

// scriptRule maps a query substring to a canned response.
type scriptRule struct {
	match string
	res   *warehouse.Result
	err   error
}

type scriptedExecutor struct {
	rules []scriptRule
	calls int
}

func (e *scriptedExecutor) Execute(ctx context.Context, sess *warehouse.Session, queryText string) (*warehouse.Result, error) {
	e.calls++
	for _, rule := range e.rules {
		if strings.Contains(queryText, rule.match) {
			return rule.res, rule.err
		}
	}
	return nil, fmt.Errorf("no scripted response for query: %s", queryText)
}

func rows(rs ...warehouse.Row) *warehouse.Result {
	var cols []string
	if len(rs) > 0 {
		for c := range rs[0] {
			cols = append(cols, c)
		}
	}
	return &warehouse.Result{Columns: cols, Rows: rs}
}

func testBusiness() config.BusinessConfig {
	return config.BusinessConfig{
		DailySalesCost:          550,
		GrossProfitSubtraction:  229,
		MonthlyTeamCost:         17050,
		LTVAnnualMultiplier:     12,
		ZeroChurnLifetimeMonths: 60,
		AvgDaysPerMonth:         30.44,
	}
}

func newTestService(exec *scriptedExecutor, defs ...*Definition) (*Service, *stubPool) {
	reg := NewRegistry()
	for _, def := range defs {
		reg.Register(def)
	}
	pool := &stubPool{}
	cacheCfg := config.CacheConfig{TTL: time.Minute, MaxEntries: 100}
	return NewService(reg, pool, exec, cacheCfg, testBusiness()), pool
}

var (
	rangeStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
)

func percentageDef(key string) *Definition {
	return &Definition{
		Key:      key,
		Title:    "Dormant Account Rate",
		Category: "Customer Success",
		Type:     TypePercentage,
		SummaryQuery: func(start, end time.Time) string {
			return "SELECT dormant_rate FROM t"
		},
		DetailsQuery: func(start, end time.Time, params map[string]string) string {
			return "SELECT detail_rows FROM t"
		},
	}
}

func TestComputeMetric(t *testing.T) {
	ctx := context.Background()

	t.Run("query-backed metric extracts value and ratio parts", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "dormant_rate", res: rows(warehouse.Row{
				"dormant_rate":  0.3,
				"dormant_users": int64(3),
				"total_users":   int64(10),
			})},
		}}
		svc, pool := newTestService(exec, percentageDef("dormant_account_rate"))

		res, err := svc.ComputeMetric(ctx, "dormant_account_rate", rangeStart, rangeEnd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != StatusOK {
			t.Errorf("status = %s, message = %s", res.Status, res.Message)
		}
		if res.Value == nil || *res.Value != 0.3 {
			t.Errorf("value = %v", res.Value)
		}
		if res.Numerator != 3 || res.Denominator != 10 {
			t.Errorf("ratio parts = %d/%d", res.Numerator, res.Denominator)
		}
		if res.Message != "3 out of 10 (30.0%)" {
			t.Errorf("message = %q", res.Message)
		}
		if res.ExecutionTime == nil {
			t.Error("expected execution time to be recorded")
		}
		if pool.checkouts != pool.checkins {
			t.Errorf("session leak: %d checkouts, %d checkins", pool.checkouts, pool.checkins)
		}
	})

	t.Run("second computation is served from cache", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "dormant_rate", res: rows(warehouse.Row{"dormant_rate": 0.3})},
		}}
		svc, _ := newTestService(exec, percentageDef("dormant_account_rate"))

		first, _ := svc.ComputeMetric(ctx, "dormant_account_rate", rangeStart, rangeEnd)
		if first.Cached {
			t.Error("first computation should not be cached")
		}

		second, _ := svc.ComputeMetric(ctx, "dormant_account_rate", rangeStart, rangeEnd)
		if !second.Cached {
			t.Error("second computation should be cached")
		}
		if exec.calls != 1 {
			t.Errorf("executor called %d times, want 1", exec.calls)
		}

		// A different range misses the cache.
		svc.ComputeMetric(ctx, "dormant_account_rate", rangeStart, rangeEnd.AddDate(0, 1, 0))
		if exec.calls != 2 {
			t.Errorf("executor called %d times, want 2", exec.calls)
		}
	})

	t.Run("unknown metric yields an error result, not an error", func(t *testing.T) {
		svc, _ := newTestService(&scriptedExecutor{})

		res, err := svc.ComputeMetric(ctx, "nope", rangeStart, rangeEnd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != StatusError {
			t.Errorf("status = %s", res.Status)
		}
	})

	t.Run("query failure is folded into the result", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "dormant_rate", err: &warehouse.QueryError{Query: "SELECT", Err: errors.New("bad sql")}},
		}}
		svc, _ := newTestService(exec, percentageDef("dormant_account_rate"))

		res, err := svc.ComputeMetric(ctx, "dormant_account_rate", rangeStart, rangeEnd)
		if err != nil {
			t.Fatalf("query failures must not propagate, got %v", err)
		}
		if res.Status != StatusError || res.Value != nil {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("connection failure propagates alongside the error result", func(t *testing.T) {
		svc, pool := newTestService(&scriptedExecutor{}, percentageDef("dormant_account_rate"))
		pool.failWith = &warehouse.ConnectionError{Err: errors.New("refused")}

		res, err := svc.ComputeMetric(ctx, "dormant_account_rate", rangeStart, rangeEnd)
		var connErr *warehouse.ConnectionError
		if !errors.As(err, &connErr) {
			t.Fatalf("expected ConnectionError, got %v", err)
		}
		if res == nil || res.Status != StatusError {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("error results are not cached", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "dormant_rate", err: &warehouse.QueryError{Err: errors.New("flaky")}},
		}}
		svc, _ := newTestService(exec, percentageDef("dormant_account_rate"))

		svc.ComputeMetric(ctx, "dormant_account_rate", rangeStart, rangeEnd)
		svc.ComputeMetric(ctx, "dormant_account_rate", rangeStart, rangeEnd)
		if exec.calls != 2 {
			t.Errorf("executor called %d times, want 2 (no caching of failures)", exec.calls)
		}
	})

	t.Run("empty numeric result defaults to zero", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "total_leads", res: &warehouse.Result{Columns: []string{"total_leads"}}},
		}}
		def := &Definition{
			Key:      "facebook_lead_ads_total",
			Title:    "Facebook Lead Ads Total",
			Category: "Marketing",
			Type:     TypeCount,
			SummaryQuery: func(start, end time.Time) string {
				return "SELECT total_leads FROM t"
			},
		}
		svc, _ := newTestService(exec, def)

		res, _ := svc.ComputeMetric(ctx, "facebook_lead_ads_total", rangeStart, rangeEnd)
		if res.Status != StatusOK {
			t.Errorf("status = %s", res.Status)
		}
		if res.Value == nil || *res.Value != 0 {
			t.Errorf("value = %v", res.Value)
		}
	})

	t.Run("empty list result keeps a nil value and empty data", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "platform", res: &warehouse.Result{Columns: []string{"platform", "event_count"}}},
		}}
		def := &Definition{
			Key:      "platform_breakdown",
			Title:    "Platform Breakdown",
			Category: "Product & IT",
			Type:     TypeList,
			SummaryQuery: func(start, end time.Time) string {
				return "SELECT platform FROM t"
			},
		}
		svc, _ := newTestService(exec, def)

		res, _ := svc.ComputeMetric(ctx, "platform_breakdown", rangeStart, rangeEnd)
		if res.Status != StatusOK || res.Value != nil {
			t.Errorf("result = %+v", res)
		}
		if res.Data == nil || len(res.Data) != 0 {
			t.Errorf("data = %v", res.Data)
		}
	})

	t.Run("multi-row list result carries normalized data", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "platform", res: rows(
				warehouse.Row{"platform": "web", "event_count": int64(900)},
				warehouse.Row{"platform": []byte("ios"), "event_count": int64(400)},
			)},
		}}
		def := &Definition{
			Key:      "platform_breakdown",
			Title:    "Platform Breakdown",
			Category: "Product & IT",
			Type:     TypeList,
			SummaryQuery: func(start, end time.Time) string {
				return "SELECT platform FROM t"
			},
		}
		svc, _ := newTestService(exec, def)

		res, _ := svc.ComputeMetric(ctx, "platform_breakdown", rangeStart, rangeEnd)
		if len(res.Data) != 2 {
			t.Fatalf("data = %v", res.Data)
		}
		if res.Data[1]["platform"] != "ios" {
			t.Errorf("expected byte slice normalized to string, got %v", res.Data[1]["platform"])
		}
	})
}

func TestComputeAll(t *testing.T) {
	ctx := context.Background()

	t.Run("one failing metric does not abort the others", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "good_rate", res: rows(warehouse.Row{"rate": 0.5})},
			{match: "bad_rate", err: &warehouse.QueryError{Err: errors.New("boom")}},
		}}
		good := percentageDef("good")
		good.SummaryQuery = func(start, end time.Time) string { return "SELECT good_rate" }
		bad := percentageDef("bad")
		bad.SummaryQuery = func(start, end time.Time) string { return "SELECT bad_rate" }

		svc, _ := newTestService(exec, good, bad)

		results, err := svc.ComputeAll(ctx, rangeStart, rangeEnd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected entry per registered metric, got %d", len(results))
		}
		if results["good"].Status != StatusOK {
			t.Errorf("good status = %s", results["good"].Status)
		}
		if results["bad"].Status != StatusError {
			t.Errorf("bad status = %s", results["bad"].Status)
		}
	})

	t.Run("connection error is returned when nothing succeeded", func(t *testing.T) {
		svc, pool := newTestService(&scriptedExecutor{}, percentageDef("only"))
		pool.failWith = &warehouse.ConnectionError{Err: errors.New("refused")}

		results, err := svc.ComputeAll(ctx, rangeStart, rangeEnd)
		var connErr *warehouse.ConnectionError
		if !errors.As(err, &connErr) {
			t.Fatalf("expected ConnectionError, got %v", err)
		}
		if len(results) != 1 || results["only"].Status != StatusError {
			t.Errorf("results = %+v", results)
		}
	})
}

func TestDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("returns normalized rows", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "detail_rows", res: rows(warehouse.Row{"user_id": []byte("u_1"), "email": "a@b.c"})},
		}}
		svc, _ := newTestService(exec, percentageDef("dormant_account_rate"))

		out := svc.Details(ctx, "dormant_account_rate", rangeStart, rangeEnd, map[string]string{"dormant": "true"})
		if len(out) != 1 || out[0]["user_id"] != "u_1" {
			t.Errorf("details = %v", out)
		}
	})

	t.Run("failures yield an empty slice", func(t *testing.T) {
		exec := &scriptedExecutor{rules: []scriptRule{
			{match: "detail_rows", err: &warehouse.QueryError{Err: errors.New("boom")}},
		}}
		svc, _ := newTestService(exec, percentageDef("dormant_account_rate"))

		if out := svc.Details(ctx, "dormant_account_rate", rangeStart, rangeEnd, nil); len(out) != 0 {
			t.Errorf("details = %v", out)
		}
		if out := svc.Details(ctx, "unknown", rangeStart, rangeEnd, nil); len(out) != 0 {
			t.Errorf("details for unknown key = %v", out)
		}
	})
}

func TestDerivedMetrics(t *testing.T) {
	ctx := context.Background()

	// Scripted warehouse for the acquisition and revenue queries: $950 ad
	// spend, 10 new trials, an LTV of $1,229 before the $229 cost, and $20,000
	// of MRR.
	exec := &scriptedExecutor{rules: []scriptRule{
		{match: "AS total_spend", res: rows(warehouse.Row{"total_spend": 950.0})},
		{match: "AS total_trials", res: rows(warehouse.Row{"total_trials": int64(10)})},
		{match: "subscriber_metrics", res: rows(warehouse.Row{
			"arps":               125.0,
			"monthly_churn_rate": 0.05,
			"lifetime_value":     1229.0,
			"total_customers":    int64(80),
			"total_revenue":      10000.0,
		})},
		{match: "monthly_normalized", res: rows(warehouse.Row{"total_mrr_usd": 20000.0})},
	}}

	reg := NewRegistry()
	RegisterAll(reg, testBusiness())
	pool := &stubPool{}
	svc := NewService(reg, pool, exec, config.CacheConfig{TTL: time.Minute, MaxEntries: 100}, testBusiness())

	t.Run("cac", func(t *testing.T) {
		res, err := svc.ComputeMetric(ctx, "cac", rangeStart, rangeEnd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != StatusOK {
			t.Fatalf("status = %s, message = %s", res.Status, res.Message)
		}

		// 31 days * $550/day + $950 spend = $18,000 over 10 trials.
		if res.Value == nil || math.Abs(*res.Value-1800) > 1e-9 {
			t.Errorf("value = %v", res.Value)
		}
		if res.Numerator != 18000 || res.Denominator != 10 {
			t.Errorf("ratio parts = %d/%d", res.Numerator, res.Denominator)
		}
		if !strings.Contains(res.Message, "31 days") {
			t.Errorf("message = %q", res.Message)
		}
	})

	t.Run("ltv subtracts the gross profit cost", func(t *testing.T) {
		res, err := svc.ComputeMetric(ctx, "ltv", rangeStart, rangeEnd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Value == nil || math.Abs(*res.Value-1000) > 1e-9 {
			t.Errorf("value = %v", res.Value)
		}
		if res.Status != StatusOK {
			t.Errorf("status = %s", res.Status)
		}
		if !strings.Contains(res.Message, "Churn: 5.0%") {
			t.Errorf("message = %q", res.Message)
		}
	})

	t.Run("cac to ltv composes the two cached metrics", func(t *testing.T) {
		res, err := svc.ComputeMetric(ctx, "cac_to_ltv_ratio", rangeStart, rangeEnd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := 1000.0 / 1800.0
		if res.Value == nil || math.Abs(*res.Value-want) > 1e-9 {
			t.Errorf("value = %v, want %v", res.Value, want)
		}
		if !strings.Contains(res.Message, "x return") {
			t.Errorf("message = %q", res.Message)
		}
	})

	t.Run("mrr to ad spend", func(t *testing.T) {
		res, err := svc.ComputeMetric(ctx, "mrr_to_ad_spend", rangeStart, rangeEnd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != StatusOK {
			t.Fatalf("status = %s, message = %s", res.Status, res.Message)
		}
		if res.Value == nil || *res.Value <= 0 {
			t.Errorf("value = %v", res.Value)
		}
		if res.Denominator != 20000 {
			t.Errorf("denominator = %d", res.Denominator)
		}
	})

	t.Run("cac turns partial when no trials", func(t *testing.T) {
		noTrials := &scriptedExecutor{rules: []scriptRule{
			{match: "AS total_spend", res: rows(warehouse.Row{"total_spend": 950.0})},
			{match: "AS total_trials", res: rows(warehouse.Row{"total_trials": int64(0)})},
		}}
		reg2 := NewRegistry()
		RegisterAll(reg2, testBusiness())
		svc2 := NewService(reg2, &stubPool{}, noTrials, config.CacheConfig{TTL: time.Minute, MaxEntries: 10}, testBusiness())

		res, err := svc2.ComputeMetric(ctx, "cac", rangeStart, rangeEnd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != StatusPartial || res.Value != nil {
			t.Errorf("result = %+v", res)
		}
	})
}
