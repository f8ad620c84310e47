package cache

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/electwix/chartcache/internal/codec"
	"github.com/electwix/chartcache/internal/logging"
)

// RedisOptions carries the connection settings for the redis strategy.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Options selects and parameterizes a cache strategy.
type Options struct {
	// Strategy is one of the Strategies identifiers.
	Strategy string
	// TTL is the effective time-to-live for entries written by the
	// selected backend.
	TTL time.Duration
	// Dir is the cache directory for the file and sqlite strategies.
	Dir string
	// SQLitePath overrides the sqlite database location; defaults to
	// chartcache.db inside Dir.
	SQLitePath string
	// Redis configures the redis strategy.
	Redis RedisOptions
	// Logger receives degraded-operation reports; defaults to a nop
	// logger.
	Logger logging.Logger
}

// NewStrategy constructs the cache strategy named by opts.Strategy. An
// unknown identifier is a configuration error and fails fast; it never
// surfaces at request time because callers construct strategies at startup.
//
// The redis strategy stores arrow-encoded payloads, as does sqlite. The
// file strategies pair with the codec matching their format.
func NewStrategy(opts Options) (Strategy, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	switch opts.Strategy {
	case StrategyRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.Redis.Addr,
			Password: opts.Redis.Password,
			DB:       opts.Redis.DB,
		})
		return NewRedisStrategy(client, codec.NewArrowCodec(), opts.TTL, log), nil

	case StrategyFileArrow:
		return NewFileStrategy(opts.Dir, codec.NewArrowCodec(), opts.TTL, log)

	case StrategyFileCSV:
		return NewFileStrategy(opts.Dir, codec.NewCSVCodec(), opts.TTL, log)

	case StrategySQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "chartcache.db")
		}
		return NewSQLiteStrategy(path, codec.NewArrowCodec(), opts.TTL, log)

	case StrategyMemory:
		return NewMemoryStrategy(opts.TTL), nil

	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownStrategy, opts.Strategy, Strategies)
	}
}
