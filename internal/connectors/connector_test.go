package connectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/electwix/chartcache/internal/cache"
	"github.com/electwix/chartcache/internal/config"
	"github.com/electwix/chartcache/internal/dataset"
	"github.com/electwix/chartcache/internal/fetch"
)

type countingConnector struct {
	id      string
	data    *dataset.Dataset
	fetches int
	skip    bool
}

func (c *countingConnector) SourceID() string       { return c.id }
func (c *countingConnector) Params() map[string]any { return map[string]any{} }
func (c *countingConnector) Uncacheable() bool      { return c.skip }

func (c *countingConnector) Fetch(context.Context, map[string]any) (*dataset.Dataset, error) {
	c.fetches++
	return c.data, nil
}

func newTestOrchestrator(t *testing.T) *fetch.Orchestrator {
	t.Helper()
	settings := config.Default()
	settings.Strategy = cache.StrategyMemory
	return fetch.New(settings, cache.NewMemoryStrategy(time.Hour), nil)
}

func TestResolveCachesCacheableConnectors(t *testing.T) {
	d, err := dataset.New(dataset.Column{
		Name: "n", Kind: dataset.KindNumber,
		Values: []dataset.Value{dataset.Number(1)},
	})
	if err != nil {
		t.Fatalf("building dataset: %v", err)
	}

	o := newTestOrchestrator(t)
	c := &countingConnector{id: "test:cacheable", data: d}

	for i := 0; i < 3; i++ {
		got, err := Resolve(context.Background(), o, c)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if !got.Equal(d) {
			t.Fatalf("Resolve() returned a different dataset on call %d", i+1)
		}
	}
	if c.fetches != 1 {
		t.Errorf("connector fetched %d times, want 1", c.fetches)
	}
}

func TestResolveBypassesUncacheableConnectors(t *testing.T) {
	o := newTestOrchestrator(t)
	c := &countingConnector{id: "test:sample", data: &dataset.Dataset{}, skip: true}

	for i := 0; i < 3; i++ {
		if _, err := Resolve(context.Background(), o, c); err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
	}
	if c.fetches != 3 {
		t.Errorf("connector fetched %d times, want 3", c.fetches)
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := &FetchError{Source: "url:http://x", Err: base}

	if !errors.Is(err, base) {
		t.Error("errors.Is() does not reach the wrapped error")
	}
	if got, want := err.Error(), "fetch url:http://x: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
