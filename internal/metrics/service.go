package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/coursemetrics/metrics-warehouse/internal/adapters/config"
	"github.com/coursemetrics/metrics-warehouse/internal/adapters/warehouse"
	"github.com/coursemetrics/metrics-warehouse/internal/observability"
	"github.com/coursemetrics/metrics-warehouse/pkg/logger"
)

// SessionPool supplies warehouse sessions with blocking checkout/checkin.
type SessionPool interface {
	Checkout(ctx context.Context) (*warehouse.Session, error)
	Checkin(sess *warehouse.Session)
}

// QueryExecutor runs query text over a session.
type QueryExecutor interface {
	Execute(ctx context.Context, sess *warehouse.Session, queryText string) (*warehouse.Result, error)
}

// Runtime is the surface derived metric computations see: raw query
// execution, access to other metrics (cached), and the business parameters.
type Runtime interface {
	RunQuery(ctx context.Context, queryText string) (*warehouse.Result, error)
	Metric(ctx context.Context, key string, start, end time.Time) *Result
	Business() config.BusinessConfig
}

// Service orchestrates metric computation: registry lookup, query build,
// execution, normalization, extraction, caching and per-metric failure
// isolation.
type Service struct {
	registry *Registry
	pool     SessionPool
	exec     QueryExecutor
	cache    *resultCache
	business config.BusinessConfig
}

// NewService creates the metric computation service.
func NewService(registry *Registry, pool SessionPool, exec QueryExecutor, cacheCfg config.CacheConfig, business config.BusinessConfig) *Service {
	return &Service{
		registry: registry,
		pool:     pool,
		exec:     exec,
		cache:    newResultCache(cacheCfg.TTL, cacheCfg.MaxEntries),
		business: business,
	}
}

// Registry exposes the catalog backing this service.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Business returns the business parameters for derived computations.
func (s *Service) Business() config.BusinessConfig {
	return s.business
}

// RunQuery checks out a session, executes queryText and checks the session
// back in.
func (s *Service) RunQuery(ctx context.Context, queryText string) (*warehouse.Result, error) {
	sess, err := s.pool.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Checkin(sess)

	return s.exec.Execute(ctx, sess, queryText)
}

// Metric computes one metric through the cache, never returning nil. It is
// the Runtime accessor used by composite computations.
func (s *Service) Metric(ctx context.Context, key string, start, end time.Time) *Result {
	res, _ := s.ComputeMetric(ctx, key, start, end)
	return res
}

// ComputeMetric computes one metric over [start, end]. The returned result is
// never nil; every failure mode is folded into an error-status result. The
// error return is non-nil only when the warehouse session could not be
// established (*warehouse.ConnectionError) so callers that need to
// distinguish an unreachable warehouse from a failed query can do so.
func (s *Service) ComputeMetric(ctx context.Context, key string, start, end time.Time) (*Result, error) {
	def := s.registry.Get(key)
	if def == nil {
		return errorResult(fmt.Sprintf("Unknown metric: %s", key)), nil
	}

	ck := newCacheKey(key, start, end)
	if cached := s.cache.get(ck); cached != nil {
		return cached, nil
	}

	started := time.Now()
	res, err := s.compute(ctx, def, start, end)

	elapsed := time.Since(started).Seconds()
	if res != nil {
		res.ExecutionTime = floatPtr(elapsed)
	}

	if err != nil {
		var connErr *warehouse.ConnectionError
		if errors.As(err, &connErr) {
			logger.Error("metric computation failed: warehouse unreachable",
				zap.String("key", key),
				zap.Error(err),
			)
			res = errorResult(fmt.Sprintf("Error calculating %s: %v", key, err))
			res.ExecutionTime = floatPtr(elapsed)
			observability.ComputeDuration.WithLabelValues(key, string(StatusError)).Observe(elapsed)
			return res, err
		}

		logger.Error("metric computation failed",
			zap.String("key", key),
			zap.Error(err),
		)
		res = errorResult(fmt.Sprintf("Error calculating %s: %v", key, err))
		res.ExecutionTime = floatPtr(elapsed)
		observability.ComputeDuration.WithLabelValues(key, string(StatusError)).Observe(elapsed)
		return res, nil
	}

	observability.ComputeDuration.WithLabelValues(key, string(res.Status)).Observe(elapsed)
	logger.Info("metric computed",
		zap.String("key", key),
		zap.String("status", string(res.Status)),
		zap.Float64("elapsed", elapsed),
	)

	s.cache.put(ck, res)
	return res, nil
}

func (s *Service) compute(ctx context.Context, def *Definition, start, end time.Time) (*Result, error) {
	if def.Compute != nil {
		return def.Compute(ctx, s, start, end)
	}

	queryText := def.SummaryQuery(start, end)
	res, err := s.RunQuery(ctx, queryText)
	if err != nil {
		return nil, err
	}

	return s.processResult(def, res), nil
}

// processResult turns a tabular result into a MetricResult per the metric
// type.
func (s *Service) processResult(def *Definition, res *warehouse.Result) *Result {
	if res.Empty() {
		return emptyResult(def)
	}

	row := res.Rows[0]
	value := extractValue(row, def.Type)
	numerator := extractNumerator(row)
	denominator := extractDenominator(row)

	out := &Result{
		Value:       value,
		Numerator:   numerator,
		Denominator: denominator,
		Status:      StatusOK,
		Message:     buildMessage(def, value, numerator, denominator),
	}

	if (def.Type == TypeList || def.Type == TypePareto) && len(res.Rows) > 1 {
		out.Data = warehouse.Normalize(res.Rows)
	}

	return out
}

// emptyResult applies the documented empty-result policy: numeric types
// default to zero, list types to an empty data set, and the status stays ok.
func emptyResult(def *Definition) *Result {
	out := &Result{
		Status:  StatusOK,
		Message: fmt.Sprintf("No data available for %s", def.Title),
	}
	switch def.Type {
	case TypeList, TypePareto:
		out.Value = nil
		out.Data = []map[string]any{}
	default:
		out.Value = floatPtr(0)
	}
	return out
}

// buildMessage renders the human-readable summary line per metric type.
func buildMessage(def *Definition, value *float64, numerator, denominator int64) string {
	if value == nil {
		return fmt.Sprintf("No data available for %s", def.Title)
	}

	switch def.Type {
	case TypePercentage:
		if denominator > 0 {
			return fmt.Sprintf("%d out of %d (%.1f%%)", numerator, denominator, *value*100)
		}
		return fmt.Sprintf("%.1f%% rate", *value*100)
	case TypeCount:
		return fmt.Sprintf("%s total", humanize.Commaf(*value))
	case TypeRatio:
		return fmt.Sprintf("%.2f ratio", *value)
	default:
		return def.Description
	}
}

// ComputeAll computes every registered metric for [start, end]. Each metric
// is isolated: one failure never aborts the others, and the returned map has
// exactly one entry per registered key. Metrics run in parallel; warehouse
// concurrency is bounded by the session pool. When the warehouse was
// unreachable for every metric, the first connection error is returned
// alongside the fully-populated map.
func (s *Service) ComputeAll(ctx context.Context, start, end time.Time) (map[string]*Result, error) {
	keys := s.registry.Keys()
	results := make(map[string]*Result, len(keys))

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		connErr   error
		succeeded bool
	)

	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("metric computation panicked",
						zap.String("key", key),
						zap.Any("panic", r),
					)
					mu.Lock()
					results[key] = errorResult(fmt.Sprintf("Error calculating %s: internal failure", key))
					mu.Unlock()
				}
			}()

			res, err := s.ComputeMetric(ctx, key, start, end)

			mu.Lock()
			defer mu.Unlock()
			results[key] = res
			if err != nil {
				if connErr == nil {
					connErr = err
				}
			} else if res.Status != StatusError {
				succeeded = true
			}
		}(key)
	}
	wg.Wait()

	if succeeded {
		return results, nil
	}
	return results, connErr
}

// Details returns the normalized detail rows for a metric. Details are
// best-effort: an unknown key, a missing details builder or a failed query
// all yield an empty slice, never an error.
func (s *Service) Details(ctx context.Context, key string, start, end time.Time, params map[string]string) []map[string]any {
	def := s.registry.Get(key)
	if def == nil || def.DetailsQuery == nil {
		return []map[string]any{}
	}

	queryText := def.DetailsQuery(start, end, params)
	res, err := s.RunQuery(ctx, queryText)
	if err != nil {
		logger.Error("details query failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return []map[string]any{}
	}

	return warehouse.Normalize(res.Rows)
}
