package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/electwix/chartcache/internal/codec"
	"github.com/electwix/chartcache/internal/dataset"
	"github.com/electwix/chartcache/internal/logging"
)

// scanBatch is the COUNT hint for SCAN over the chartcache namespace.
const scanBatch = 1000

// RedisClient is the slice of the go-redis API the strategy depends on.
// *redis.Client satisfies it; tests substitute a fake.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	MemoryUsage(ctx context.Context, key string, samples ...int) *redis.IntCmd
}

// RedisStrategy stores encoded datasets in a shared redis instance. Keys
// carry the chartcache namespace prefix, values are opaque encoded blobs,
// and expiry is native: every SET carries the configured TTL so the store
// drops entries on its own.
type RedisStrategy struct {
	client RedisClient
	codec  codec.Codec
	ttl    time.Duration
	log    logging.Logger
}

// NewRedisStrategy creates a redis-backed cache strategy.
func NewRedisStrategy(client RedisClient, c codec.Codec, ttl time.Duration, log logging.Logger) *RedisStrategy {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RedisStrategy{client: client, codec: c, ttl: ttl, log: log}
}

// Get returns the cached dataset for key. Transport failures and
// undecodable payloads are logged and reported as a miss.
func (r *RedisStrategy) Get(ctx context.Context, key string) (*dataset.Dataset, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("redis get failed", "key", key, "err", err)
		}
		return nil, false
	}

	d, err := r.codec.Decode(data)
	if err != nil {
		r.log.Warn("redis entry undecodable, dropping", "key", key, "err", err)
		_ = r.client.Del(ctx, key).Err()
		return nil, false
	}

	return d, true
}

// Set stores the encoded dataset with the configured TTL. The store's
// atomic SET guarantees readers see the old or new value, never a partial
// one.
func (r *RedisStrategy) Set(ctx context.Context, key string, d *dataset.Dataset) {
	data, err := r.codec.Encode(d)
	if err != nil {
		r.log.Error("redis encode failed", "key", key, "err", err)
		return
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Error("redis set failed", "key", key, "err", err)
	}
}

// Invalidate removes the entry for key.
func (r *RedisStrategy) Invalidate(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Warn("redis delete failed", "key", key, "err", err)
	}
}

// Clear deletes every key in the chartcache namespace.
func (r *RedisStrategy) Clear(ctx context.Context) {
	if err := r.scanNamespace(ctx, func(key string) error {
		return r.client.Del(ctx, key).Err()
	}); err != nil {
		r.log.Warn("redis clear failed", "err", err)
	}
}

// Size sums MEMORY USAGE over the chartcache namespace.
func (r *RedisStrategy) Size(ctx context.Context) (int64, error) {
	var total int64
	err := r.scanNamespace(ctx, func(key string) error {
		size, err := r.client.MemoryUsage(ctx, key).Result()
		if err != nil {
			// Keys can expire between SCAN and MEMORY USAGE.
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}
		total += size
		return nil
	})
	return total, err
}

func (r *RedisStrategy) scanNamespace(ctx context.Context, fn func(key string) error) error {
	match := KeyPrefix + ":*"
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := fn(key); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

var (
	_ Strategy = (*RedisStrategy)(nil)
	_ Sizer    = (*RedisStrategy)(nil)
)
