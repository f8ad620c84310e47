// Package dataset defines the in-memory tabular value cached by chartcache.
//
// A Dataset is a rectangular table: an ordered list of named columns, each
// holding equal-length sequences of scalar cells. Cells are typed per column
// (number, string or bool) with nulls allowed in any column.
package dataset

import (
	"fmt"
	"strconv"
)

// Kind identifies the scalar type of a column.
type Kind int

const (
	// KindNumber holds float64 cells.
	KindNumber Kind = iota
	// KindString holds string cells.
	KindString
	// KindBool holds boolean cells.
	KindBool
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a single cell: a scalar of the column's kind, or null.
type Value struct {
	null bool
	kind Kind
	num  float64
	str  string
	b    bool
}

// Null returns the null cell.
func Null() Value {
	return Value{null: true}
}

// Number returns a numeric cell.
func Number(v float64) Value {
	return Value{kind: KindNumber, num: v}
}

// String returns a string cell.
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Bool returns a boolean cell.
func Bool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.null }

// Kind returns the scalar kind of a non-null cell.
func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric cell value. Zero for non-number cells.
func (v Value) Float() float64 { return v.num }

// Str returns the string cell value. Empty for non-string cells.
func (v Value) Str() string { return v.str }

// Truth returns the boolean cell value. False for non-bool cells.
func (v Value) Truth() bool { return v.b }

// Equal reports semantic cell equality. Nulls compare equal to each other
// regardless of the column kind they appear in.
func (v Value) Equal(other Value) bool {
	if v.null || other.null {
		return v.null == other.null
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	case KindBool:
		return v.b == other.b
	default:
		return false
	}
}

// GoString renders a cell for test failure output.
func (v Value) GoString() string {
	if v.null {
		return "null"
	}
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "?"
	}
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Dataset is an ordered collection of equal-length columns.
type Dataset struct {
	Columns []Column
}

// New builds a dataset from the given columns and validates it.
func New(columns ...Column) (*Dataset, error) {
	d := &Dataset{Columns: columns}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the rectangular invariants: unique column names, equal
// column lengths, and cell kinds consistent with their column kind.
func (d *Dataset) Validate() error {
	seen := make(map[string]struct{}, len(d.Columns))
	rows := -1
	for _, col := range d.Columns {
		if col.Name == "" {
			return fmt.Errorf("dataset: column with empty name")
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("dataset: duplicate column %q", col.Name)
		}
		seen[col.Name] = struct{}{}

		if rows == -1 {
			rows = len(col.Values)
		} else if len(col.Values) != rows {
			return fmt.Errorf("dataset: column %q has %d rows, want %d", col.Name, len(col.Values), rows)
		}

		for i, v := range col.Values {
			if !v.null && v.kind != col.Kind {
				return fmt.Errorf("dataset: column %q row %d: %s cell in %s column", col.Name, i, v.kind, col.Kind)
			}
		}
	}
	return nil
}

// NumRows returns the row count. Zero for an empty dataset.
func (d *Dataset) NumRows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// NumCols returns the column count.
func (d *Dataset) NumCols() int {
	return len(d.Columns)
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column, or false if absent.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, col := range d.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Equal reports semantic dataset equality: same column order, names, kinds
// and cell values.
func (d *Dataset) Equal(other *Dataset) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.Columns) != len(other.Columns) {
		return false
	}
	for i, col := range d.Columns {
		oc := other.Columns[i]
		if col.Name != oc.Name || col.Kind != oc.Kind || len(col.Values) != len(oc.Values) {
			return false
		}
		for j, v := range col.Values {
			if !v.Equal(oc.Values[j]) {
				return false
			}
		}
	}
	return true
}
