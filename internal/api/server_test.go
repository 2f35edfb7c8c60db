package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/coursemetrics/metrics-warehouse/internal/adapters/config"
	"github.com/coursemetrics/metrics-warehouse/internal/adapters/warehouse"
	"github.com/coursemetrics/metrics-warehouse/internal/metrics"
	"github.com/coursemetrics/metrics-warehouse/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type stubPool struct {
	failWith error
}

func (p *stubPool) Checkout(ctx context.Context) (*warehouse.Session, error) {
	if p.failWith != nil {
		return nil, p.failWith
	}
	return &warehouse.Session{}, nil
}

func (p *stubPool) Checkin(sess *warehouse.Session) {}

type stubExecutor struct {
	res   *warehouse.Result
	err   error
	calls int
}

func (e *stubExecutor) Execute(ctx context.Context, sess *warehouse.Session, queryText string) (*warehouse.Result, error) {
	e.calls++
	return e.res, e.err
}

func newTestServer(t *testing.T, pool *stubPool, exec *stubExecutor) *Server {
	t.Helper()

	reg := metrics.NewRegistry()
	reg.Register(&metrics.Definition{
		Key:      "dormant_account_rate",
		Title:    "Dormant Account Rate",
		Category: "Customer Success",
		Type:     metrics.TypePercentage,
		SummaryQuery: func(start, end time.Time) string {
			return "SELECT dormant_rate FROM t"
		},
		DetailsQuery: func(start, end time.Time, params map[string]string) string {
			return "SELECT detail_rows FROM t"
		},
		Color: "bg-red-50 border-red-200 text-red-700",
		Icon:  "Users",
	})

	svc := metrics.NewService(reg, pool, exec,
		config.CacheConfig{TTL: time.Minute, MaxEntries: 10},
		config.BusinessConfig{LTVAnnualMultiplier: 12, AvgDaysPerMonth: 30.44},
	)
	return NewServer(":0", svc, NewHub())
}

func doRequest(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var body map[string]any
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, body
}

func healthyServer(t *testing.T) *Server {
	return newTestServer(t, &stubPool{}, &stubExecutor{
		res: &warehouse.Result{
			Columns: []string{"dormant_rate", "dormant_users", "total_users"},
			Rows: []warehouse.Row{{
				"dormant_rate":  0.25,
				"dormant_users": int64(5),
				"total_users":   int64(20),
			}},
		},
	})
}

func TestHandleSummary(t *testing.T) {
	t.Run("computes all metrics for the range", func(t *testing.T) {
		rec, body := doRequest(t, healthyServer(t), "/api/metrics/summary?start=2025-01-01&end=2025-01-31")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		entry, ok := body["dormant_account_rate"].(map[string]any)
		if !ok {
			t.Fatalf("missing metric entry: %v", body)
		}
		if entry["value"] != 0.25 {
			t.Errorf("value = %v", entry["value"])
		}
		if entry["status"] != "ok" {
			t.Errorf("status = %v", entry["status"])
		}
	})

	t.Run("accepts RFC3339 timestamps", func(t *testing.T) {
		rec, _ := doRequest(t, healthyServer(t),
			"/api/metrics/summary?start=2025-01-01T00:00:00Z&end=2025-01-31T23:59:59Z")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		rec, _ := doRequest(t, healthyServer(t), "/api/metrics/summary?start=yesterday")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("defaulted requests share one cache entry", func(t *testing.T) {
		exec := &stubExecutor{
			res: &warehouse.Result{
				Columns: []string{"dormant_rate"},
				Rows:    []warehouse.Row{{"dormant_rate": 0.25}},
			},
		}
		s := newTestServer(t, &stubPool{}, exec)

		for i := 0; i < 2; i++ {
			if rec, _ := doRequest(t, s, "/api/metrics/summary"); rec.Code != http.StatusOK {
				t.Fatalf("request %d: status = %d", i, rec.Code)
			}
		}
		if exec.calls != 1 {
			t.Errorf("executor calls = %d, want 1", exec.calls)
		}
	})

	t.Run("rejects inverted ranges", func(t *testing.T) {
		rec, _ := doRequest(t, healthyServer(t), "/api/metrics/summary?start=2025-02-01&end=2025-01-01")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("returns 503 when the warehouse is unreachable", func(t *testing.T) {
		s := newTestServer(t,
			&stubPool{failWith: &warehouse.ConnectionError{Err: errors.New("refused")}},
			&stubExecutor{},
		)
		rec, _ := doRequest(t, s, "/api/metrics/summary")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestHandleDetails(t *testing.T) {
	t.Run("returns rows for a known metric", func(t *testing.T) {
		s := newTestServer(t, &stubPool{}, &stubExecutor{
			res: &warehouse.Result{
				Columns: []string{"user_id"},
				Rows:    []warehouse.Row{{"user_id": "u_1"}},
			},
		})

		rec, body := doRequest(t, s, "/api/metrics/dormant_account_rate/details?dormant=true")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		rows, ok := body["data"].([]any)
		if !ok || len(rows) != 1 {
			t.Errorf("data = %v", body["data"])
		}
		if body["status"] != "ok" {
			t.Errorf("status = %v", body["status"])
		}
	})

	t.Run("unknown metric is a 404", func(t *testing.T) {
		rec, _ := doRequest(t, healthyServer(t), "/api/metrics/nope/details")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("failed details query degrades to empty rows", func(t *testing.T) {
		s := newTestServer(t, &stubPool{}, &stubExecutor{
			err: &warehouse.QueryError{Err: errors.New("boom")},
		})

		rec, body := doRequest(t, s, "/api/metrics/dormant_account_rate/details")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if rows, ok := body["data"].([]any); !ok || len(rows) != 0 {
			t.Errorf("data = %v", body["data"])
		}
	})
}

func TestHandleCatalog(t *testing.T) {
	rec, body := doRequest(t, healthyServer(t), "/api/metrics/catalog")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	entries, ok := body["metrics"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("metrics = %v", body["metrics"])
	}
	entry := entries[0].(map[string]any)
	if entry["key"] != "dormant_account_rate" || entry["icon"] != "Users" {
		t.Errorf("entry = %v", entry)
	}

	cats, ok := body["categories"].([]any)
	if !ok || len(cats) != 1 || cats[0] != "Customer Success" {
		t.Errorf("categories = %v", body["categories"])
	}
}
