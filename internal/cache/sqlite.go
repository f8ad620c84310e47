package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/electwix/chartcache/internal/codec"
	"github.com/electwix/chartcache/internal/dataset"
	"github.com/electwix/chartcache/internal/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// SQLiteStrategy stores encoded datasets in a single-file sqlite database.
// Expiry is lazy: the stored creation timestamp is compared against the TTL
// on read, and expired rows are deleted. INSERT OR REPLACE gives writers
// the same atomic-overwrite behavior the file strategies get from rename.
type SQLiteStrategy struct {
	db    *sql.DB
	codec codec.Codec
	ttl   time.Duration
	log   logging.Logger
}

// NewSQLiteStrategy opens (or creates) the database at path, creating the
// parent directory if absent, and ensures the entries table exists.
// Failures are reported as ErrBackendUnavailable.
func NewSQLiteStrategy(path string, c codec.Codec, ttl time.Duration, log logging.Logger) (*SQLiteStrategy, error) {
	if err := os.MkdirAll(filepath.Dir(path), cacheDirPerm); err != nil {
		return nil, fmt.Errorf("%w: create cache directory %s: %v", ErrBackendUnavailable, filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrBackendUnavailable, path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: init %s: %v", ErrBackendUnavailable, path, err)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SQLiteStrategy{db: db, codec: c, ttl: ttl, log: log}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStrategy) Close() error {
	return s.db.Close()
}

// Get returns the cached dataset for key if present and not expired.
func (s *SQLiteStrategy) Get(ctx context.Context, key string) (*dataset.Dataset, bool) {
	var payload []byte
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, created_at FROM entries WHERE key = ?`, key,
	).Scan(&payload, &createdAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("sqlite get failed", "key", key, "err", err)
		}
		return nil, false
	}

	if time.Since(time.Unix(createdAt, 0)) > s.ttl {
		s.deleteKey(ctx, key)
		return nil, false
	}

	d, err := s.codec.Decode(payload)
	if err != nil {
		s.log.Warn("sqlite entry undecodable, dropping", "key", key, "err", err)
		s.deleteKey(ctx, key)
		return nil, false
	}

	return d, true
}

// Set stores or overwrites the entry for key, stamped with the current time.
func (s *SQLiteStrategy) Set(ctx context.Context, key string, d *dataset.Dataset) {
	payload, err := s.codec.Encode(d)
	if err != nil {
		s.log.Error("sqlite encode failed", "key", key, "err", err)
		return
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO entries (key, payload, created_at) VALUES (?, ?, ?)`,
		key, payload, time.Now().Unix(),
	)
	if err != nil {
		s.log.Error("sqlite set failed", "key", key, "err", err)
	}
}

// Invalidate removes the entry for key.
func (s *SQLiteStrategy) Invalidate(ctx context.Context, key string) {
	s.deleteKey(ctx, key)
}

// Clear removes all entries.
func (s *SQLiteStrategy) Clear(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		s.log.Warn("sqlite clear failed", "err", err)
	}
}

// PruneExpired deletes rows older than the TTL.
func (s *SQLiteStrategy) PruneExpired(ctx context.Context) error {
	cutoff := time.Now().Add(-s.ttl).Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("prune sqlite cache: %w", err)
	}
	return nil
}

// Size returns the total payload size in bytes.
func (s *SQLiteStrategy) Size(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(payload)), 0) FROM entries`,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sqlite cache size: %w", err)
	}
	return total, nil
}

func (s *SQLiteStrategy) deleteKey(ctx context.Context, key string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		s.log.Warn("sqlite delete failed", "key", key, "err", err)
	}
}

var (
	_ Strategy = (*SQLiteStrategy)(nil)
	_ Sizer    = (*SQLiteStrategy)(nil)
	_ Pruner   = (*SQLiteStrategy)(nil)
)
