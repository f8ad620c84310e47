// Package config loads and validates the chartcache configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/electwix/chartcache/internal/cache"
)

// Defaults applied when the corresponding key is absent.
const (
	DefaultStrategy   = cache.StrategyRedis
	DefaultTTLSeconds = 3600
	DefaultRedisAddr  = "localhost:6379"
)

// CacheConfig mirrors the [cache] TOML table.
type CacheConfig struct {
	Strategy   string `toml:"strategy"`
	Enabled    *bool  `toml:"enabled"`
	RedisTTL   *int   `toml:"redis_ttl"`
	FileTTL    *int   `toml:"file_ttl"`
	Dir        string `toml:"dir"`
	SQLitePath string `toml:"sqlite_path"`
}

// RedisConfig mirrors the [redis] TOML table.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Config mirrors the expected chartcache TOML schema.
type Config struct {
	Cache CacheConfig `toml:"cache"`
	Redis RedisConfig `toml:"redis"`
}

// Settings is the fully-resolved configuration consumed by the factory and
// the orchestrator. It is built once at startup and passed by value.
type Settings struct {
	Strategy   string
	Enabled    bool
	RedisTTL   time.Duration
	FileTTL    time.Duration
	Dir        string
	SQLitePath string
	Redis      RedisConfig
}

// EffectiveTTL returns the TTL governing the selected strategy: the redis
// TTL for the redis backend, the file TTL for everything else.
func (s Settings) EffectiveTTL() time.Duration {
	if s.Strategy == cache.StrategyRedis {
		return s.RedisTTL
	}
	return s.FileTTL
}

// Bypassed reports whether caching is switched off entirely, either by the
// global flag or by a zero TTL for the selected backend.
func (s Settings) Bypassed() bool {
	return !s.Enabled || s.EffectiveTTL() <= 0
}

// StrategyOptions maps the settings onto cache factory options.
func (s Settings) StrategyOptions() cache.Options {
	return cache.Options{
		Strategy:   s.Strategy,
		TTL:        s.EffectiveTTL(),
		Dir:        s.Dir,
		SQLitePath: s.SQLitePath,
		Redis: cache.RedisOptions{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		},
	}
}

// Default returns the settings used when no configuration file exists.
func Default() Settings {
	return Settings{
		Strategy: DefaultStrategy,
		Enabled:  true,
		RedisTTL: DefaultTTLSeconds * time.Second,
		FileTTL:  DefaultTTLSeconds * time.Second,
		Dir:      filepath.Join(os.TempDir(), "chartcache"),
		Redis:    RedisConfig{Addr: DefaultRedisAddr},
	}
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	// Strict turns unknown-key warnings into errors.
	Strict bool
}

// Result wraps resolved settings alongside any non-fatal warnings.
type Result struct {
	Settings Settings
	Warnings []string
}

// Load reads, validates, and resolves a chartcache configuration file.
// Validation failures are fatal: an unknown strategy or a negative TTL must
// stop startup rather than surface at request time.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	unknown, err := collectUnknownKeys(data)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		message := fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(unknown, ", "))
		if opts.Strict {
			return res, errors.New(message)
		}
		res.Warnings = append(res.Warnings, message)
	}

	settings, err := resolve(path, cfg)
	if err != nil {
		return res, err
	}

	res.Settings = settings
	return res, nil
}

func resolve(path string, cfg Config) (Settings, error) {
	settings := Default()

	if cfg.Cache.Strategy != "" {
		settings.Strategy = cfg.Cache.Strategy
	}
	if !slices.Contains(cache.Strategies, settings.Strategy) {
		return Settings{}, fmt.Errorf("%s: unsupported cache strategy %q (supported: %s)",
			path, settings.Strategy, strings.Join(cache.Strategies, ", "))
	}

	if cfg.Cache.Enabled != nil {
		settings.Enabled = *cfg.Cache.Enabled
	}

	redisTTL, err := resolveTTL(path, "redis_ttl", cfg.Cache.RedisTTL)
	if err != nil {
		return Settings{}, err
	}
	settings.RedisTTL = redisTTL

	fileTTL, err := resolveTTL(path, "file_ttl", cfg.Cache.FileTTL)
	if err != nil {
		return Settings{}, err
	}
	settings.FileTTL = fileTTL

	if cfg.Cache.Dir != "" {
		settings.Dir = cfg.Cache.Dir
	}
	settings.SQLitePath = cfg.Cache.SQLitePath

	if cfg.Redis.Addr != "" {
		settings.Redis.Addr = cfg.Redis.Addr
	}
	settings.Redis.Password = cfg.Redis.Password
	settings.Redis.DB = cfg.Redis.DB

	return settings, nil
}

func resolveTTL(path, field string, value *int) (time.Duration, error) {
	if value == nil {
		return DefaultTTLSeconds * time.Second, nil
	}
	if *value < 0 {
		return 0, fmt.Errorf("%s: %s must not be negative", path, field)
	}
	return time.Duration(*value) * time.Second, nil
}

func collectUnknownKeys(data []byte) ([]string, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	known := map[string]map[string]struct{}{
		"cache": {
			"strategy":    {},
			"enabled":     {},
			"redis_ttl":   {},
			"file_ttl":    {},
			"dir":         {},
			"sqlite_path": {},
		},
		"redis": {
			"addr":     {},
			"password": {},
			"db":       {},
		},
	}

	unknown := make([]string, 0)
	for key, value := range raw {
		fields, ok := known[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		table, ok := value.(map[string]any)
		if !ok {
			continue
		}
		for field := range table {
			if _, ok := fields[field]; !ok {
				unknown = append(unknown, key+"."+field)
			}
		}
	}

	return unknown, nil
}
