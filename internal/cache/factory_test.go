package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestNewStrategySelectsBackend(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		strategy string
		want     any
	}{
		{StrategyRedis, (*RedisStrategy)(nil)},
		{StrategyFileArrow, (*FileStrategy)(nil)},
		{StrategyFileCSV, (*FileStrategy)(nil)},
		{StrategySQLite, (*SQLiteStrategy)(nil)},
		{StrategyMemory, (*MemoryStrategy)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			s, err := NewStrategy(Options{
				Strategy: tt.strategy,
				TTL:      time.Hour,
				Dir:      filepath.Join(dir, tt.strategy),
				Redis:    RedisOptions{Addr: "localhost:6379"},
			})
			if err != nil {
				t.Fatalf("NewStrategy(%q) failed: %v", tt.strategy, err)
			}
			switch tt.want.(type) {
			case *RedisStrategy:
				if _, ok := s.(*RedisStrategy); !ok {
					t.Errorf("got %T", s)
				}
			case *FileStrategy:
				if _, ok := s.(*FileStrategy); !ok {
					t.Errorf("got %T", s)
				}
			case *SQLiteStrategy:
				if _, ok := s.(*SQLiteStrategy); !ok {
					t.Errorf("got %T", s)
				}
			case *MemoryStrategy:
				if _, ok := s.(*MemoryStrategy); !ok {
					t.Errorf("got %T", s)
				}
			}
		})
	}
}

func TestNewStrategyUnknownIdentifier(t *testing.T) {
	_, err := NewStrategy(Options{Strategy: "memcached", TTL: time.Hour})
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("error = %v, want ErrUnknownStrategy", err)
	}
}

func TestNewStrategyFileExtensionsDiffer(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := BuildKey("res-1", nil)

	arrowS, err := NewStrategy(Options{Strategy: StrategyFileArrow, TTL: time.Hour, Dir: dir})
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}
	csvS, err := NewStrategy(Options{Strategy: StrategyFileCSV, TTL: time.Hour, Dir: dir})
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}

	// The two file formats share a directory without clobbering each other.
	arrowS.Set(ctx, key, testDataset(t))
	if _, ok := csvS.Get(ctx, key); ok {
		t.Error("csv strategy should not see arrow entries")
	}
	if _, ok := arrowS.Get(ctx, key); !ok {
		t.Error("arrow strategy should see its own entry")
	}
}
