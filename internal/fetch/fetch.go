// Package fetch mediates between cache lookup and live data retrieval.
//
// The Orchestrator is the single entry point consumed by chart-building
// code: it derives the cache key for a request, serves hits from the active
// cache strategy, and on a miss invokes the caller-supplied fetch function,
// storing the result best-effort before returning it.
package fetch

import (
	"context"

	"github.com/electwix/chartcache/internal/cache"
	"github.com/electwix/chartcache/internal/config"
	"github.com/electwix/chartcache/internal/dataset"
	"github.com/electwix/chartcache/internal/logging"
)

// Func retrieves the live dataset for a request. Implementations are
// supplied by data-source connectors; errors propagate to the caller
// unchanged, without retries.
type Func func(ctx context.Context, params map[string]any) (*dataset.Dataset, error)

// Orchestrator resolves data requests through the configured cache
// strategy. Concurrent callers missing on the same key both fetch and both
// write; the last write wins, which is harmless because identical keys
// imply semantically identical data.
type Orchestrator struct {
	settings config.Settings
	strategy cache.Strategy
	log      logging.Logger
}

// New creates an orchestrator over the given strategy. The strategy may be
// nil when settings bypass caching.
func New(settings config.Settings, strategy cache.Strategy, log logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Orchestrator{settings: settings, strategy: strategy, log: log}
}

// Fetch returns the dataset for the request, from cache when possible.
//
// With caching bypassed (disabled flag or zero TTL) the fetch function is
// called directly and the backend is never touched. Otherwise a hit is
// returned as-is, and a miss falls through to fn, whose result is stored
// best-effort.
func (o *Orchestrator) Fetch(ctx context.Context, sourceID string, params map[string]any, fn Func) (*dataset.Dataset, error) {
	if o.bypassed() {
		return fn(ctx, params)
	}

	key := cache.BuildKey(sourceID, params)

	if d, ok := o.strategy.Get(ctx, key); ok {
		o.log.Debug("cache hit", "key", key)
		return d, nil
	}

	d, err := fn(ctx, params)
	if err != nil {
		return nil, err
	}

	o.strategy.Set(ctx, key, d)
	o.log.Debug("cache populated", "key", key, "rows", d.NumRows())

	return d, nil
}

// Invalidate removes the cached entry for the request, if any.
func (o *Orchestrator) Invalidate(ctx context.Context, sourceID string, params map[string]any) {
	if o.bypassed() {
		return
	}
	o.strategy.Invalidate(ctx, cache.BuildKey(sourceID, params))
}

func (o *Orchestrator) bypassed() bool {
	return o.strategy == nil || o.settings.Bypassed()
}
