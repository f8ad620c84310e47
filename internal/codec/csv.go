package codec

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/electwix/chartcache/internal/dataset"
)

// CSVCodec encodes datasets as delimited text.
//
// The decode side is lossy: cell types are re-inferred from text.
// A column whose non-empty cells all parse as numbers comes back numeric, a
// column of "true"/"false" comes back boolean, everything else comes back as
// strings. Empty cells decode to null, so an empty string cell does not
// survive a round trip.
type CSVCodec struct{}

// NewCSVCodec creates a CSV codec.
func NewCSVCodec() *CSVCodec {
	return &CSVCodec{}
}

// Name returns "csv".
func (c *CSVCodec) Name() string { return "csv" }

// Encode writes a header row of column names followed by one row per
// dataset row.
func (c *CSVCodec) Encode(d *dataset.Dataset) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("csv encode: %w", err)
	}
	if len(d.Columns) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(d.ColumnNames()); err != nil {
		return nil, fmt.Errorf("csv encode header: %w", err)
	}

	rows := d.NumRows()
	record := make([]string, len(d.Columns))
	for i := 0; i < rows; i++ {
		for j, col := range d.Columns {
			record[j] = formatCell(col.Values[i])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("csv encode row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses the header and rows, then infers a kind per column.
func (c *CSVCodec) Decode(data []byte) (*dataset.Dataset, error) {
	if len(data) == 0 {
		return &dataset.Dataset{}, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrCorrupt)
	}

	header := records[0]
	rows := records[1:]

	columns := make([]dataset.Column, len(header))
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			cells[i] = row[j]
		}
		columns[j] = inferColumn(name, cells)
	}

	d := &dataset.Dataset{Columns: columns}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return d, nil
}

func formatCell(v dataset.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case dataset.KindNumber:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case dataset.KindBool:
		return strconv.FormatBool(v.Truth())
	default:
		return v.Str()
	}
}

// inferColumn applies the coercion rule: all-numeric wins, then all-boolean,
// then string. Columns with no non-empty cells come back as string columns.
func inferColumn(name string, cells []string) dataset.Column {
	numeric := false
	boolean := false
	seen := false

	for _, cell := range cells {
		if cell == "" {
			continue
		}
		if !seen {
			numeric, boolean = true, true
			seen = true
		}
		if numeric {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
			}
		}
		if boolean && cell != "true" && cell != "false" {
			boolean = false
		}
	}

	kind := dataset.KindString
	switch {
	case seen && numeric:
		kind = dataset.KindNumber
	case seen && boolean:
		kind = dataset.KindBool
	}

	values := make([]dataset.Value, len(cells))
	for i, cell := range cells {
		if cell == "" {
			values[i] = dataset.Null()
			continue
		}
		switch kind {
		case dataset.KindNumber:
			f, _ := strconv.ParseFloat(cell, 64)
			values[i] = dataset.Number(f)
		case dataset.KindBool:
			values[i] = dataset.Bool(cell == "true")
		default:
			values[i] = dataset.String(cell)
		}
	}

	return dataset.Column{Name: name, Kind: kind, Values: values}
}

var _ Codec = (*CSVCodec)(nil)
