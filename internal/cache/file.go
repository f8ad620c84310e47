package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/electwix/chartcache/internal/codec"
	"github.com/electwix/chartcache/internal/dataset"
	"github.com/electwix/chartcache/internal/logging"
)

// File permission constants for cache files.
const (
	cacheDirPerm  = 0o750
	cacheFilePerm = 0o600
)

// FileStrategy stores one encoded file per key in a dedicated directory.
// The codec determines the on-disk format and the file extension. Expiry is
// lazy: the file modification time is compared against the TTL on every
// read, and expired files are removed.
type FileStrategy struct {
	dir   string
	codec codec.Codec
	ttl   time.Duration
	log   logging.Logger
}

// NewFileStrategy creates a file-backed cache strategy, creating the cache
// directory if absent. An unusable directory is reported as
// ErrBackendUnavailable.
func NewFileStrategy(dir string, c codec.Codec, ttl time.Duration, log logging.Logger) (*FileStrategy, error) {
	if err := os.MkdirAll(dir, cacheDirPerm); err != nil {
		return nil, fmt.Errorf("%w: create cache directory %s: %v", ErrBackendUnavailable, dir, err)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FileStrategy{dir: dir, codec: c, ttl: ttl, log: log}, nil
}

// Get returns the decoded dataset for key if the file exists and has not
// outlived the TTL. Expired and undecodable files are removed and reported
// as a miss.
func (f *FileStrategy) Get(_ context.Context, key string) (*dataset.Dataset, bool) {
	path := f.pathForKey(key)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	if f.expired(info.ModTime()) {
		_ = os.Remove(path)
		return nil, false
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		f.log.Warn("cache read failed", "path", path, "err", err)
		return nil, false
	}

	d, err := f.codec.Decode(data)
	if err != nil {
		f.log.Warn("cache entry undecodable, dropping", "path", path, "err", err)
		_ = os.Remove(path)
		return nil, false
	}

	return d, true
}

// Set encodes the dataset and atomically replaces the entry for key. A
// concurrent reader sees either the previous file or the new one, never a
// partial write.
func (f *FileStrategy) Set(_ context.Context, key string, d *dataset.Dataset) {
	path := f.pathForKey(key)

	data, err := f.codec.Encode(d)
	if err != nil {
		f.log.Error("cache encode failed", "key", key, "err", err)
		return
	}

	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, cacheFilePerm); err != nil {
		f.log.Error("cache write failed", "path", tmp, "err", err)
		return
	}

	if err := os.Rename(tmp, path); err != nil {
		f.log.Error("cache rename failed", "path", path, "err", err)
		_ = os.Remove(tmp)
	}
}

// Invalidate removes the entry for key if present.
func (f *FileStrategy) Invalidate(_ context.Context, key string) {
	if err := os.Remove(f.pathForKey(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.log.Warn("cache invalidate failed", "key", key, "err", err)
	}
}

// Clear removes every entry written by this strategy's codec.
func (f *FileStrategy) Clear(_ context.Context) {
	for _, path := range f.entryPaths() {
		if err := os.Remove(path); err != nil {
			f.log.Warn("cache clear: remove failed", "path", path, "err", err)
		}
	}
}

// PruneExpired removes entries older than the TTL.
func (f *FileStrategy) PruneExpired(_ context.Context) error {
	for _, path := range f.entryPaths() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if f.expired(info.ModTime()) {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("prune %s: %w", path, err)
			}
		}
	}
	return nil
}

// Size returns the total size in bytes of this strategy's entries.
func (f *FileStrategy) Size(_ context.Context) (int64, error) {
	var total int64
	for _, path := range f.entryPaths() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func (f *FileStrategy) pathForKey(key string) string {
	return filepath.Join(f.dir, filenameForKey(key)+"."+f.codec.Name())
}

func (f *FileStrategy) expired(mtime time.Time) bool {
	return time.Since(mtime) > f.ttl
}

func (f *FileStrategy) entryPaths() []string {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		f.log.Warn("cache directory unreadable", "dir", f.dir, "err", err)
		return nil
	}

	suffix := "." + f.codec.Name()
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		paths = append(paths, filepath.Join(f.dir, entry.Name()))
	}
	return paths
}

var (
	_ Strategy = (*FileStrategy)(nil)
	_ Sizer    = (*FileStrategy)(nil)
	_ Pruner   = (*FileStrategy)(nil)
)
