package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/battlerelay/internal/storage"
)

func TestStorage_IncrAndRead(t *testing.T) {
	s := New()
	ctx := context.Background()

	n, err := s.Incr(ctx, storage.CounterRateLimits)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Incr(ctx, storage.CounterRateLimits)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.Incr(ctx, storage.CounterSuspiciousActivities)
	require.NoError(t, err)

	counters, err := s.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.Counters{SuspiciousActivities: 1, RateLimits: 2}, counters)
}

func TestStorage_UnknownCounter(t *testing.T) {
	_, err := New().Incr(context.Background(), "bogus")
	assert.Error(t, err)
}

func TestStorage_ConcurrentIncr(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Incr(ctx, storage.CounterSuspiciousActivities)
		}()
	}
	wg.Wait()

	counters, err := s.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), counters.SuspiciousActivities)
	assert.Equal(t, int64(0), counters.RateLimits)
}
