package connectors

import (
	"context"
	"os"

	"github.com/electwix/chartcache/internal/codec"
	"github.com/electwix/chartcache/internal/dataset"
)

// FileConnector reads a CSV file from the local filesystem.
type FileConnector struct {
	path  string
	codec codec.Codec
}

// NewFileConnector creates a connector for the given path.
func NewFileConnector(path string) *FileConnector {
	return &FileConnector{path: path, codec: codec.NewCSVCodec()}
}

// SourceID identifies the file within cache keys.
func (c *FileConnector) SourceID() string {
	return "file:" + c.path
}

// Params returns the key parameters; the path itself lives in SourceID.
func (c *FileConnector) Params() map[string]any {
	return map[string]any{"format": c.codec.Name()}
}

// Fetch reads and decodes the file.
func (c *FileConnector) Fetch(ctx context.Context, _ map[string]any) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}

	d, err := c.codec.Decode(raw)
	if err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}
	return d, nil
}

var _ Connector = (*FileConnector)(nil)
