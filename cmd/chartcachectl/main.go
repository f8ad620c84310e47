// Package main implements the chartcachectl administration tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/electwix/chartcache/internal/cache"
	"github.com/electwix/chartcache/internal/config"
	"github.com/electwix/chartcache/internal/connectors"
	"github.com/electwix/chartcache/internal/fetch"
	"github.com/electwix/chartcache/internal/logging"
)

const usage = `usage: chartcachectl [-config path] [-verbose] <command> [args]

Commands:
  stats                      report cache size for the active strategy
  prune                      remove expired entries eagerly
  invalidate <source> [k=v]  drop the entry for one request
  invalidate-all             clear the active strategy entirely
  warm <url|path> [k=v]      fetch a source and store the result
`

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("chartcachectl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath string
		verbose    bool
		strict     bool
	)
	fs.StringVar(&configPath, "config", "chartcache.toml", "Path to chartcache configuration file")
	fs.StringVar(&configPath, "c", "chartcache.toml", "Path to chartcache configuration file")
	fs.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&strict, "strict-config", false, "Treat unknown configuration keys as errors")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}

	logger := logging.NewSlogAdapter(logging.New(logging.Options{Verbose: verbose, Writer: stderr}))

	settings := config.Default()
	if _, err := os.Stat(configPath); err == nil {
		res, err := config.Load(configPath, config.LoadOptions{Strict: strict})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
			return 1
		}
		for _, warn := range res.Warnings {
			_, _ = fmt.Fprintln(stderr, warn)
		}
		settings = res.Settings
	} else {
		logger.Debug("no configuration file, using defaults", "path", configPath)
	}

	opts := settings.StrategyOptions()
	opts.Logger = logger
	strategy, err := cache.NewStrategy(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "init cache: %v\n", err)
		return 1
	}

	command, commandArgs := rest[0], rest[1:]
	switch command {
	case "stats":
		return runStats(ctx, stdout, stderr, settings, strategy)
	case "prune":
		return runPrune(ctx, stderr, strategy)
	case "invalidate":
		return runInvalidate(ctx, stderr, strategy, commandArgs)
	case "invalidate-all":
		cache.InvalidateAll(ctx, strategy)
		return 0
	case "warm":
		return runWarm(ctx, stdout, stderr, settings, strategy, logger, commandArgs)
	default:
		_, _ = fmt.Fprintf(stderr, "chartcachectl: unknown command %q\n", command)
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
}

func runStats(ctx context.Context, stdout, stderr io.Writer, settings config.Settings, strategy cache.Strategy) int {
	size, err := cache.TotalSize(ctx, strategy)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "stats: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "strategy: %s\n", settings.Strategy)
	_, _ = fmt.Fprintf(stdout, "ttl: %s\n", settings.EffectiveTTL())
	_, _ = fmt.Fprintf(stdout, "size: %d bytes\n", size)
	return 0
}

func runPrune(ctx context.Context, stderr io.Writer, strategy cache.Strategy) int {
	if err := cache.PruneExpired(ctx, strategy); err != nil {
		_, _ = fmt.Fprintf(stderr, "prune: %v\n", err)
		return 1
	}
	return 0
}

func runInvalidate(ctx context.Context, stderr io.Writer, strategy cache.Strategy, args []string) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "invalidate: source identifier required")
		return 1
	}
	params, err := parseParams(args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invalidate: %v\n", err)
		return 1
	}
	cache.InvalidateKey(ctx, cache.BuildKey(args[0], params), strategy)
	return 0
}

func runWarm(ctx context.Context, stdout, stderr io.Writer, settings config.Settings, strategy cache.Strategy, logger logging.Logger, args []string) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "warm: source URL or file path required")
		return 1
	}

	source := args[0]
	var conn connectors.Connector
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		conn = connectors.NewURLConnector(source, nil)
	} else {
		conn = connectors.NewFileConnector(source)
	}

	orchestrator := fetch.New(settings, strategy, logger)
	d, err := connectors.Resolve(ctx, orchestrator, conn)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "warm: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "%s: %d rows, %d columns\n", conn.SourceID(), d.NumRows(), d.NumCols())
	return 0
}

// parseParams turns key=value arguments into fetch parameters, coercing
// values the way the key builder normalizes them: numbers and booleans keep
// their type, everything else stays a string.
func parseParams(args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed parameter %q, want key=value", arg)
		}
		params[key] = coerceParam(value)
	}
	return params, nil
}

func coerceParam(value string) any {
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
