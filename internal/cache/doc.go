// Package cache stores and retrieves tabular datasets under deterministic
// keys, behind a pluggable Strategy interface with per-backend TTL expiry.
//
// Five strategies are provided: redis (remote key-value store with native
// expiry), arrow and csv file strategies (one file per key, lazy mtime
// expiry), an sqlite strategy (single-file database, lazy expiry) and an
// in-process memory strategy. NewStrategy selects one from configuration.
//
// Usage:
//
//	strategy, err := cache.NewStrategy(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	strategy.Set(ctx, key, ds)
//	if cached, ok := strategy.Get(ctx, key); ok {
//	    // use cached dataset
//	}
//
// Storage failures never surface through Get, Set or Invalidate: they are
// logged and degrade to a miss or a no-op, so the worst case for a caller is
// a redundant fetch from the upstream source.
package cache
