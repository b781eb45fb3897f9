package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mcoot/battlerelay/internal/storage"
)

// Storage is an in-memory implementation of the counter store
type Storage struct {
	suspicious atomic.Int64
	rateLimits atomic.Int64
}

// New creates a new in-memory counter store
func New() *Storage {
	return &Storage{}
}

// Ensure Storage implements the interface
var _ storage.CounterStore = (*Storage)(nil)

func (s *Storage) Incr(_ context.Context, counter storage.Counter) (int64, error) {
	switch counter {
	case storage.CounterSuspiciousActivities:
		return s.suspicious.Add(1), nil
	case storage.CounterRateLimits:
		return s.rateLimits.Add(1), nil
	default:
		return 0, fmt.Errorf("unknown counter %q", counter)
	}
}

func (s *Storage) Counters(_ context.Context) (storage.Counters, error) {
	return storage.Counters{
		SuspiciousActivities: s.suspicious.Load(),
		RateLimits:           s.rateLimits.Load(),
	}, nil
}

func (s *Storage) Close() error {
	return nil
}
