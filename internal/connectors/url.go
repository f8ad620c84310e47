package connectors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/electwix/chartcache/internal/codec"
	"github.com/electwix/chartcache/internal/dataset"
)

const (
	defaultHTTPTimeout = 30 * time.Second

	// maxRemoteBody caps how much of a remote file we are willing to read.
	maxRemoteBody = 64 << 20
)

// URLConnector fetches a remote CSV file over HTTP.
type URLConnector struct {
	url    string
	client *http.Client
	codec  codec.Codec
}

// NewURLConnector creates a connector for the given URL. A nil client gets
// a default with a request timeout.
func NewURLConnector(url string, client *http.Client) *URLConnector {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &URLConnector{url: url, client: client, codec: codec.NewCSVCodec()}
}

// SourceID identifies the remote file within cache keys.
func (c *URLConnector) SourceID() string {
	return "url:" + c.url
}

// Params returns the key parameters; the URL itself lives in SourceID.
func (c *URLConnector) Params() map[string]any {
	return map[string]any{"format": c.codec.Name()}
}

// Fetch downloads and decodes the remote file.
func (c *URLConnector) Fetch(ctx context.Context, _ map[string]any) (*dataset.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Source: c.SourceID(),
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}

	d, err := c.codec.Decode(body)
	if err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}
	return d, nil
}

var _ Connector = (*URLConnector)(nil)
