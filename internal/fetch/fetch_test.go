package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/electwix/chartcache/internal/cache"
	"github.com/electwix/chartcache/internal/config"
	"github.com/electwix/chartcache/internal/dataset"
)

// recordingStrategy wraps a real strategy and counts backend traffic.
type recordingStrategy struct {
	cache.Strategy
	gets, sets int
}

func (r *recordingStrategy) Get(ctx context.Context, key string) (*dataset.Dataset, bool) {
	r.gets++
	return r.Strategy.Get(ctx, key)
}

func (r *recordingStrategy) Set(ctx context.Context, key string, d *dataset.Dataset) {
	r.sets++
	r.Strategy.Set(ctx, key, d)
}

func testSettings() config.Settings {
	s := config.Default()
	s.Strategy = cache.StrategyMemory
	return s
}

func testDataset(t *testing.T, rows int) *dataset.Dataset {
	t.Helper()
	values := make([]dataset.Value, rows)
	for i := range values {
		values[i] = dataset.Number(float64(i))
	}
	d, err := dataset.New(dataset.Column{Name: "v", Kind: dataset.KindNumber, Values: values})
	if err != nil {
		t.Fatalf("building dataset: %v", err)
	}
	return d
}

func countingFetch(t *testing.T, calls *int, rows int) Func {
	return func(context.Context, map[string]any) (*dataset.Dataset, error) {
		*calls++
		return testDataset(t, rows), nil
	}
}

func TestFetchMissPopulatesThenHits(t *testing.T) {
	ctx := context.Background()
	strategy := &recordingStrategy{Strategy: cache.NewMemoryStrategy(time.Hour)}
	o := New(testSettings(), strategy, nil)

	params := map[string]any{"limit": 100, "columns": []string{"a", "b"}}
	var calls int

	first, err := o.Fetch(ctx, "res-123", params, countingFetch(t, &calls, 100))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fetch function called %d times, want 1", calls)
	}
	if first.NumRows() != 100 {
		t.Fatalf("got %d rows, want 100", first.NumRows())
	}

	// Identical request: served from cache, fetch function untouched.
	second, err := o.Fetch(ctx, "res-123", params, countingFetch(t, &calls, 100))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch function called %d times after cached request, want 1", calls)
	}
	if !second.Equal(first) {
		t.Error("cached dataset differs from fetched one")
	}
}

func TestFetchDifferentParamsMiss(t *testing.T) {
	ctx := context.Background()
	o := New(testSettings(), cache.NewMemoryStrategy(time.Hour), nil)

	var calls int
	if _, err := o.Fetch(ctx, "res-123", map[string]any{"limit": 100}, countingFetch(t, &calls, 1)); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := o.Fetch(ctx, "res-123", map[string]any{"limit": 200}, countingFetch(t, &calls, 1)); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch function called %d times for distinct requests, want 2", calls)
	}
}

func TestFetchDisabledBypassesBackend(t *testing.T) {
	ctx := context.Background()
	strategy := &recordingStrategy{Strategy: cache.NewMemoryStrategy(time.Hour)}

	settings := testSettings()
	settings.Enabled = false
	o := New(settings, strategy, nil)

	var calls int
	for i := 0; i < 3; i++ {
		if _, err := o.Fetch(ctx, "res-123", nil, countingFetch(t, &calls, 1)); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
	}

	if calls != 3 {
		t.Errorf("fetch function called %d times, want 3 with caching disabled", calls)
	}
	if strategy.gets != 0 || strategy.sets != 0 {
		t.Errorf("backend touched (%d gets, %d sets) despite bypass", strategy.gets, strategy.sets)
	}
}

func TestFetchZeroTTLBypassesBackend(t *testing.T) {
	ctx := context.Background()
	strategy := &recordingStrategy{Strategy: cache.NewMemoryStrategy(time.Hour)}

	settings := testSettings()
	settings.FileTTL = 0 // memory strategy is governed by the file TTL
	o := New(settings, strategy, nil)

	var calls int
	if _, err := o.Fetch(ctx, "res-123", nil, countingFetch(t, &calls, 1)); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if strategy.gets != 0 || strategy.sets != 0 {
		t.Error("backend touched despite zero TTL")
	}
}

func TestFetchErrorPropagatesUnchanged(t *testing.T) {
	ctx := context.Background()
	strategy := &recordingStrategy{Strategy: cache.NewMemoryStrategy(time.Hour)}
	o := New(testSettings(), strategy, nil)

	fetchErr := errors.New("datastore: relation does not exist")
	_, err := o.Fetch(ctx, "res-123", nil, func(context.Context, map[string]any) (*dataset.Dataset, error) {
		return nil, fetchErr
	})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("error = %v, want the fetch error unchanged", err)
	}
	if strategy.sets != 0 {
		t.Error("nothing should be stored after a failed fetch")
	}

	// A later successful fetch repopulates normally.
	var calls int
	if _, err := o.Fetch(ctx, "res-123", nil, countingFetch(t, &calls, 1)); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if strategy.sets != 1 {
		t.Errorf("sets = %d, want 1", strategy.sets)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ctx := context.Background()
	o := New(testSettings(), cache.NewMemoryStrategy(time.Hour), nil)

	params := map[string]any{"limit": 10}
	var calls int

	if _, err := o.Fetch(ctx, "res-123", params, countingFetch(t, &calls, 1)); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	o.Invalidate(ctx, "res-123", params)

	if _, err := o.Fetch(ctx, "res-123", params, countingFetch(t, &calls, 1)); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch function called %d times, want 2 after invalidation", calls)
	}
}

func TestFetchExpiredEntryRefetches(t *testing.T) {
	ctx := context.Background()
	o := New(testSettings(), cache.NewMemoryStrategy(time.Millisecond), nil)

	var calls int
	if _, err := o.Fetch(ctx, "res-123", nil, countingFetch(t, &calls, 1)); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := o.Fetch(ctx, "res-123", nil, countingFetch(t, &calls, 1)); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch function called %d times, want 2 after TTL expiry", calls)
	}
}
