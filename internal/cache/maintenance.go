package cache

import (
	"context"
)

// Administrative helpers operating across strategies. Sweeping every
// backend matters when the configured strategy has changed over time and
// older entries linger in a store that is no longer active.

// InvalidateAll clears every given strategy.
func InvalidateAll(ctx context.Context, strategies ...Strategy) {
	for _, s := range strategies {
		s.Clear(ctx)
	}
}

// InvalidateKey removes the entry for key from every given strategy.
func InvalidateKey(ctx context.Context, key string, strategies ...Strategy) {
	for _, s := range strategies {
		s.Invalidate(ctx, key)
	}
}

// PruneExpired sweeps expired entries from every strategy that supports
// eager pruning. The first failure stops the sweep.
func PruneExpired(ctx context.Context, strategies ...Strategy) error {
	for _, s := range strategies {
		pruner, ok := s.(Pruner)
		if !ok {
			continue
		}
		if err := pruner.PruneExpired(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TotalSize sums the footprint of every strategy that can report one.
func TotalSize(ctx context.Context, strategies ...Strategy) (int64, error) {
	var total int64
	for _, s := range strategies {
		sizer, ok := s.(Sizer)
		if !ok {
			continue
		}
		size, err := sizer.Size(ctx)
		if err != nil {
			return 0, err
		}
		total += size
	}
	return total, nil
}
