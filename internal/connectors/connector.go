// Package connectors implements the upstream data sources that feed the
// cache: a SQL datastore, URL downloads, local files and hardcoded samples.
//
// Each connector carries a stable source identifier and the parameters that
// shape its result, so the orchestrator can fingerprint requests; the
// connector's Fetch method is the fetch function invoked on a cache miss.
package connectors

import (
	"context"
	"fmt"

	"github.com/electwix/chartcache/internal/dataset"
	"github.com/electwix/chartcache/internal/fetch"
)

// Connector describes one data source instance.
type Connector interface {
	// SourceID identifies the source (table, URL, path) within cache keys.
	SourceID() string
	// Params returns the result-shaping parameters folded into the key.
	Params() map[string]any
	// Fetch retrieves the live dataset.
	Fetch(ctx context.Context, params map[string]any) (*dataset.Dataset, error)
}

// Uncacheable marks connectors whose data never enters the cache, such as
// hardcoded samples.
type Uncacheable interface {
	Uncacheable() bool
}

// FetchError wraps a data-source failure. It travels to the caller
// unchanged; the cache layer neither retries nor swallows it.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Resolve runs the connector through the orchestrator, or directly when the
// connector opts out of caching.
func Resolve(ctx context.Context, o *fetch.Orchestrator, c Connector) (*dataset.Dataset, error) {
	if u, ok := c.(Uncacheable); ok && u.Uncacheable() {
		return c.Fetch(ctx, c.Params())
	}
	return o.Fetch(ctx, c.SourceID(), c.Params(), c.Fetch)
}
