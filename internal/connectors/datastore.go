package connectors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/electwix/chartcache/internal/dataset"
)

// DefaultRowLimit bounds datastore queries when no limit is given.
const DefaultRowLimit = 100

// OpenDatastore connects to the tabular datastore behind the charts.
func OpenDatastore(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping datastore: %w", err)
	}
	return db, nil
}

// DatastoreOptions shape the result of a datastore query. Every field
// participates in the cache key.
type DatastoreOptions struct {
	// Columns to project; empty selects all columns.
	Columns []string
	// Filter is a filter expression, see ParseFilter.
	Filter string
	// Sort lists columns to order by, ascending.
	Sort []string
	// Limit caps the row count; zero applies DefaultRowLimit.
	Limit int
}

// DatastoreConnector fetches rows from one table of a SQL datastore.
type DatastoreConnector struct {
	db    *sql.DB
	table string
	opts  DatastoreOptions
}

// NewDatastoreConnector creates a connector for the given table.
func NewDatastoreConnector(db *sql.DB, table string, opts DatastoreOptions) *DatastoreConnector {
	if opts.Limit <= 0 {
		opts.Limit = DefaultRowLimit
	}
	return &DatastoreConnector{db: db, table: table, opts: opts}
}

// SourceID identifies the table within cache keys.
func (c *DatastoreConnector) SourceID() string {
	return "datastore:" + c.table
}

// Params returns the result-shaping query parameters.
func (c *DatastoreConnector) Params() map[string]any {
	return map[string]any{
		"columns": c.opts.Columns,
		"filter":  c.opts.Filter,
		"sort":    c.opts.Sort,
		"limit":   c.opts.Limit,
	}
}

// Fetch builds and runs the query, converting rows into a dataset.
func (c *DatastoreConnector) Fetch(ctx context.Context, _ map[string]any) (*dataset.Dataset, error) {
	query, args, err := c.buildQuery()
	if err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}
	defer rows.Close()

	d, err := datasetFromRows(rows)
	if err != nil {
		return nil, &FetchError{Source: c.SourceID(), Err: err}
	}
	return d, nil
}

// buildQuery renders the SELECT for the connector options. Identifiers are
// quoted, values travel as placeholder arguments.
func (c *DatastoreConnector) buildQuery() (string, []any, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	if len(c.opts.Columns) == 0 {
		sb.WriteString("*")
	} else {
		for i, col := range c.opts.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteIdent(col))
		}
	}

	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(c.table))

	conditions, err := ParseFilter(c.opts.Filter)
	if err != nil {
		return "", nil, err
	}
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		for i, cond := range conditions {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(quoteIdent(cond.Column))
			if len(cond.Values) == 1 {
				args = append(args, cond.Values[0])
				fmt.Fprintf(&sb, " = $%d", len(args))
				continue
			}
			sb.WriteString(" IN (")
			for j, value := range cond.Values {
				if j > 0 {
					sb.WriteString(", ")
				}
				args = append(args, value)
				fmt.Fprintf(&sb, "$%d", len(args))
			}
			sb.WriteString(")")
		}
	}

	if len(c.opts.Sort) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, col := range c.opts.Sort {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteIdent(col))
		}
	}

	args = append(args, c.opts.Limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	return sb.String(), args, nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// datasetFromRows drains rows into columns, inferring a kind per column
// from the scanned values: numeric when every non-null cell is numeric,
// boolean likewise, strings otherwise.
func datasetFromRows(rows *sql.Rows) (*dataset.Dataset, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	raw := make([][]any, len(names))
	scan := make([]any, len(names))
	for rows.Next() {
		for i := range scan {
			scan[i] = new(any)
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		for i := range scan {
			raw[i] = append(raw[i], *scan[i].(*any))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	columns := make([]dataset.Column, len(names))
	for i, name := range names {
		columns[i] = columnFromValues(name, raw[i])
	}

	d := &dataset.Dataset{Columns: columns}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func columnFromValues(name string, cells []any) dataset.Column {
	numeric := true
	boolean := true
	seen := false

	for _, cell := range cells {
		if cell == nil {
			continue
		}
		seen = true
		if _, ok := asFloat(cell); !ok {
			numeric = false
		}
		if _, ok := cell.(bool); !ok {
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
		if cell == nil {
			values[i] = dataset.Null()
			continue
		}
		switch kind {
		case dataset.KindNumber:
			f, _ := asFloat(cell)
			values[i] = dataset.Number(f)
		case dataset.KindBool:
			values[i] = dataset.Bool(cell.(bool))
		default:
			values[i] = dataset.String(asString(cell))
		}
	}

	return dataset.Column{Name: name, Kind: kind, Values: values}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprint(s)
	}
}

var _ Connector = (*DatastoreConnector)(nil)
