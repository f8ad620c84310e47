package connectors

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/electwix/chartcache/internal/dataset"
)

// SampleConnector serves a dataset held in memory, typically loaded from a
// YAML fixture file. Sample data is never cached: it is already local and
// may change between edits of the fixture.
type SampleConnector struct {
	name string
	data *dataset.Dataset
}

// NewSampleConnector wraps an in-memory dataset.
func NewSampleConnector(name string, data *dataset.Dataset) *SampleConnector {
	return &SampleConnector{name: name, data: data}
}

// SourceID identifies the sample by name.
func (c *SampleConnector) SourceID() string {
	return "sample:" + c.name
}

// Params is empty; samples carry no query parameters.
func (c *SampleConnector) Params() map[string]any {
	return map[string]any{}
}

// Fetch returns the wrapped dataset.
func (c *SampleConnector) Fetch(ctx context.Context, _ map[string]any) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}
	return c.data, nil
}

// Uncacheable marks samples as pass-through for the fetch layer.
func (c *SampleConnector) Uncacheable() bool { return true }

type sampleFile struct {
	Samples map[string]sampleSpec `yaml:"samples"`
}

type sampleSpec struct {
	Columns []sampleColumn `yaml:"columns"`
}

type sampleColumn struct {
	Name   string `yaml:"name"`
	Values []any  `yaml:"values"`
}

// LoadSamples reads a YAML fixture file and returns a connector per sample.
// Column kinds are inferred from the YAML scalar types the same way the
// datastore connector infers them from scanned rows.
func LoadSamples(path string) (map[string]*SampleConnector, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	var file sampleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse samples %s: %w", path, err)
	}

	out := make(map[string]*SampleConnector, len(file.Samples))
	for name, spec := range file.Samples {
		columns := make([]dataset.Column, len(spec.Columns))
		for i, col := range spec.Columns {
			columns[i] = columnFromValues(col.Name, col.Values)
		}
		d, err := dataset.New(columns...)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", name, err)
		}
		out[name] = NewSampleConnector(name, d)
	}
	return out, nil
}

var (
	_ Connector   = (*SampleConnector)(nil)
	_ Uncacheable = (*SampleConnector)(nil)
)
