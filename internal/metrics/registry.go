package metrics

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/coursemetrics/metrics-warehouse/pkg/logger"
)

// Registry is the in-memory metric catalog. It is populated once during
// startup through explicit Register calls; after initialization it is
// read-only.
type Registry struct {
	mu         sync.RWMutex
	metrics    map[string]*Definition
	order      []string
	categories map[string]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		metrics:    make(map[string]*Definition),
		categories: make(map[string]struct{}),
	}
}

// Register adds a definition to the catalog. Re-registering a key overwrites
// the previous entry; that is a configuration error when unintentional, so it
// is logged loudly.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.metrics[def.Key]; exists {
		logger.Warn("metric registered twice, previous definition replaced",
			zap.String("key", def.Key),
		)
	} else {
		r.order = append(r.order, def.Key)
	}

	r.metrics[def.Key] = def
	r.categories[def.Category] = struct{}{}

	logger.Info("registered metric",
		zap.String("key", def.Key),
		zap.String("category", def.Category),
		zap.String("type", string(def.Type)),
	)
}

// Get returns the definition for key, or nil when unknown.
func (r *Registry) Get(key string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[key]
}

// Keys returns all registered keys in registration order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// All returns every registered definition in registration order.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*Definition, 0, len(r.order))
	for _, key := range r.order {
		defs = append(defs, r.metrics[key])
	}
	return defs
}

// ByCategory returns the definitions belonging to one category.
func (r *Registry) ByCategory(category string) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var defs []*Definition
	for _, key := range r.order {
		if def := r.metrics[key]; def.Category == category {
			defs = append(defs, def)
		}
	}
	return defs
}

// Categories returns all known categories, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cats := make([]string, 0, len(r.categories))
	for c := range r.categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Len returns the number of registered metrics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.metrics)
}
