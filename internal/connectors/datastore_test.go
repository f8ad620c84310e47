package connectors

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/electwix/chartcache/internal/dataset"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		opts     DatastoreOptions
		want     string
		wantArgs []any
	}{
		{
			name:     "defaults select everything",
			table:    "sales",
			opts:     DatastoreOptions{},
			want:     `SELECT * FROM "sales" LIMIT $1`,
			wantArgs: []any{DefaultRowLimit},
		},
		{
			name:  "projection and sort",
			table: "sales",
			opts: DatastoreOptions{
				Columns: []string{"region", "amount"},
				Sort:    []string{"amount"},
				Limit:   10,
			},
			want:     `SELECT "region", "amount" FROM "sales" ORDER BY "amount" LIMIT $1`,
			wantArgs: []any{10},
		},
		{
			name:  "single-value filter",
			table: "sales",
			opts: DatastoreOptions{
				Filter: "region:west",
				Limit:  5,
			},
			want:     `SELECT * FROM "sales" WHERE "region" = $1 LIMIT $2`,
			wantArgs: []any{"west", 5},
		},
		{
			name:  "repeated column becomes IN list",
			table: "sales",
			opts: DatastoreOptions{
				Filter: "region:west|region:east|year:2024",
				Limit:  5,
			},
			want:     `SELECT * FROM "sales" WHERE "region" IN ($1, $2) AND "year" = $3 LIMIT $4`,
			wantArgs: []any{"west", "east", "2024", 5},
		},
		{
			name:  "identifiers are quoted",
			table: `weird"table`,
			opts: DatastoreOptions{
				Columns: []string{`a"b`},
				Limit:   1,
			},
			want:     `SELECT "a""b" FROM "weird""table" LIMIT $1`,
			wantArgs: []any{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDatastoreConnector(nil, tt.table, tt.opts)
			got, args, err := c.buildQuery()
			if err != nil {
				t.Fatalf("buildQuery() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("query mismatch:\n got %s\nwant %s", got, tt.want)
			}
			if diff := cmp.Diff(tt.wantArgs, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildQueryBadFilter(t *testing.T) {
	c := NewDatastoreConnector(nil, "sales", DatastoreOptions{Filter: "region"})
	if _, _, err := c.buildQuery(); err == nil {
		t.Fatal("buildQuery() accepted a malformed filter")
	}
}

func TestDatastoreConnectorFetch(t *testing.T) {
	db := openTestDB(t)

	mustExec(t, db, `CREATE TABLE sales (region TEXT, amount REAL, year INTEGER)`)
	mustExec(t, db, `INSERT INTO sales VALUES
		('west', 10.5, 2023),
		('east', 20, 2024),
		('west', 30, 2024),
		('north', NULL, 2024)`)

	c := NewDatastoreConnector(db, "sales", DatastoreOptions{
		Columns: []string{"region", "amount"},
		Filter:  "year:2024",
		Sort:    []string{"amount"},
	})

	got, err := c.Fetch(context.Background(), c.Params())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	want, err := dataset.New(
		dataset.Column{Name: "region", Kind: dataset.KindString, Values: []dataset.Value{
			dataset.String("north"), dataset.String("east"), dataset.String("west"),
		}},
		dataset.Column{Name: "amount", Kind: dataset.KindNumber, Values: []dataset.Value{
			dataset.Null(), dataset.Number(20), dataset.Number(30),
		}},
	)
	if err != nil {
		t.Fatalf("building expectation: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Fetch() = %#v, want %#v", got, want)
	}
}

func TestDatastoreConnectorFetchLimit(t *testing.T) {
	db := openTestDB(t)

	mustExec(t, db, `CREATE TABLE seq (n INTEGER)`)
	mustExec(t, db, `INSERT INTO seq VALUES (1), (2), (3), (4), (5)`)

	c := NewDatastoreConnector(db, "seq", DatastoreOptions{Sort: []string{"n"}, Limit: 2})
	got, err := c.Fetch(context.Background(), c.Params())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if got.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", got.NumRows())
	}
}

func TestDatastoreConnectorFetchError(t *testing.T) {
	db := openTestDB(t)

	c := NewDatastoreConnector(db, "missing", DatastoreOptions{})
	_, err := c.Fetch(context.Background(), c.Params())
	if err == nil {
		t.Fatal("Fetch() on a missing table did not fail")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error %T, want *FetchError", err)
	}
	if fe.Source != "datastore:missing" {
		t.Errorf("FetchError.Source = %q, want %q", fe.Source, "datastore:missing")
	}
}

func TestColumnFromValuesInference(t *testing.T) {
	tests := []struct {
		name  string
		cells []any
		want  dataset.Kind
	}{
		{"all integers", []any{int64(1), int64(2)}, dataset.KindNumber},
		{"mixed numeric widths", []any{int64(1), 2.5}, dataset.KindNumber},
		{"numbers with nulls", []any{int64(1), nil}, dataset.KindNumber},
		{"booleans", []any{true, false}, dataset.KindBool},
		{"strings", []any{"a", "b"}, dataset.KindString},
		{"mixed falls back to string", []any{int64(1), "a"}, dataset.KindString},
		{"all null defaults to string", []any{nil, nil}, dataset.KindString},
		{"bytes become strings", []any{[]byte("x")}, dataset.KindString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := columnFromValues("c", tt.cells)
			if col.Kind != tt.want {
				t.Errorf("kind = %v, want %v", col.Kind, tt.want)
			}
			if len(col.Values) != len(tt.cells) {
				t.Errorf("len(Values) = %d, want %d", len(col.Values), len(tt.cells))
			}
		})
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustExec(t *testing.T, db *sql.DB, stmt string) {
	t.Helper()
	if _, err := db.Exec(stmt); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}
