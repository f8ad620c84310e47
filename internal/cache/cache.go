package cache

import (
	"context"
	"errors"

	"github.com/electwix/chartcache/internal/dataset"
)

// Strategy identifiers accepted by NewStrategy.
const (
	StrategyRedis     = "redis"
	StrategyFileArrow = "file_arrow"
	StrategyFileCSV   = "file_csv"
	StrategySQLite    = "sqlite"
	StrategyMemory    = "memory"
)

// Strategies lists the supported strategy identifiers.
var Strategies = []string{
	StrategyRedis,
	StrategyFileArrow,
	StrategyFileCSV,
	StrategySQLite,
	StrategyMemory,
}

// ErrBackendUnavailable marks a backend that cannot be constructed, for
// example an unwritable cache directory or an unreachable store. It is fatal
// at startup and never produced by Get, Set or Invalidate.
var ErrBackendUnavailable = errors.New("cache backend unavailable")

// ErrUnknownStrategy is returned by NewStrategy for an unrecognized
// strategy identifier.
var ErrUnknownStrategy = errors.New("unknown cache strategy")

// Strategy is the uniform contract implemented by every cache backend.
//
// Get returns the cached dataset if present and not expired; a miss is
// (nil, false), never an error. Set stores or overwrites the entry with the
// backend's configured TTL. Invalidate removes an entry and is a no-op for
// absent keys. Clear drops every entry owned by the strategy.
//
// All methods treat storage and transport failures as non-fatal: they log
// and degrade to a miss or a no-op.
type Strategy interface {
	Get(ctx context.Context, key string) (*dataset.Dataset, bool)
	Set(ctx context.Context, key string, d *dataset.Dataset)
	Invalidate(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// Sizer is implemented by strategies that can report their storage
// footprint in bytes.
type Sizer interface {
	Size(ctx context.Context) (int64, error)
}

// Pruner is implemented by strategies with lazy expiry that can sweep
// expired entries eagerly. The redis strategy has no Pruner: the store
// expires entries natively.
type Pruner interface {
	PruneExpired(ctx context.Context) error
}
