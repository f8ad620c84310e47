package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/electwix/chartcache/internal/dataset"
)

// ArrowCodec encodes datasets in the Arrow IPC file format. The columnar
// binary encoding round-trips exactly: column order, names, nulls and
// float64 precision are all preserved.
type ArrowCodec struct {
	pool memory.Allocator
}

// NewArrowCodec creates an Arrow IPC codec.
func NewArrowCodec() *ArrowCodec {
	return &ArrowCodec{pool: memory.NewGoAllocator()}
}

// Name returns "arrow".
func (c *ArrowCodec) Name() string { return "arrow" }

// Encode writes the dataset as a single-record Arrow IPC file.
func (c *ArrowCodec) Encode(d *dataset.Dataset) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("arrow encode: %w", err)
	}

	fields := make([]arrow.Field, len(d.Columns))
	for i, col := range d.Columns {
		fields[i] = arrow.Field{Name: col.Name, Type: arrowType(col.Kind), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(c.pool, schema)
	defer builder.Release()

	for i, col := range d.Columns {
		if err := appendColumn(builder.Field(i), col); err != nil {
			return nil, err
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(c.pool))
	if err != nil {
		return nil, fmt.Errorf("arrow encode: %w", err)
	}
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("arrow encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("arrow encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads an Arrow IPC file back into a dataset.
func (c *ArrowCodec) Decode(data []byte) (*dataset.Dataset, error) {
	r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(c.pool))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer r.Close()

	schema := r.Schema()
	columns := make([]dataset.Column, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		field := schema.Field(i)
		kind, err := datasetKind(field.Type)
		if err != nil {
			return nil, err
		}
		columns[i] = dataset.Column{Name: field.Name, Kind: kind}
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		for i := range columns {
			appendArrowValues(&columns[i], rec.Column(i))
		}
	}

	d := &dataset.Dataset{Columns: columns}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return d, nil
}

func arrowType(k dataset.Kind) arrow.DataType {
	switch k {
	case dataset.KindNumber:
		return arrow.PrimitiveTypes.Float64
	case dataset.KindBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

func datasetKind(t arrow.DataType) (dataset.Kind, error) {
	switch t.ID() {
	case arrow.FLOAT64:
		return dataset.KindNumber, nil
	case arrow.BOOL:
		return dataset.KindBool, nil
	case arrow.STRING:
		return dataset.KindString, nil
	default:
		return 0, fmt.Errorf("%w: unexpected arrow type %s", ErrCorrupt, t)
	}
}

func appendColumn(b array.Builder, col dataset.Column) error {
	switch builder := b.(type) {
	case *array.Float64Builder:
		for _, v := range col.Values {
			if v.IsNull() {
				builder.AppendNull()
			} else {
				builder.Append(v.Float())
			}
		}
	case *array.StringBuilder:
		for _, v := range col.Values {
			if v.IsNull() {
				builder.AppendNull()
			} else {
				builder.Append(v.Str())
			}
		}
	case *array.BooleanBuilder:
		for _, v := range col.Values {
			if v.IsNull() {
				builder.AppendNull()
			} else {
				builder.Append(v.Truth())
			}
		}
	default:
		return fmt.Errorf("arrow encode: unsupported builder %T for column %q", b, col.Name)
	}
	return nil
}

func appendArrowValues(col *dataset.Column, arr arrow.Array) {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			col.Values = append(col.Values, dataset.Null())
			continue
		}
		switch a := arr.(type) {
		case *array.Float64:
			col.Values = append(col.Values, dataset.Number(a.Value(i)))
		case *array.String:
			col.Values = append(col.Values, dataset.String(a.Value(i)))
		case *array.Boolean:
			col.Values = append(col.Values, dataset.Bool(a.Value(i)))
		}
	}
}

var _ Codec = (*ArrowCodec)(nil)
