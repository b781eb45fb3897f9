package storage

import (
	"context"
)

// Counter names the process-wide abuse counters
type Counter string

const (
	CounterSuspiciousActivities Counter = "suspiciousActivities"
	CounterRateLimits           Counter = "rateLimits"
)

// Counters is a point-in-time read of every counter
type Counters struct {
	SuspiciousActivities int64
	RateLimits           int64
}

// CounterStore keeps the aggregate abuse counters. Counters only grow and
// start from zero for every process.
type CounterStore interface {
	// Incr adds one to the named counter and returns the new value
	Incr(ctx context.Context, counter Counter) (int64, error)
	// Counters reads all counters
	Counters(ctx context.Context) (Counters, error)
	Close() error
}

// Refresher is implemented by stores whose counters expire unless they are
// refreshed. The counters must survive for as long as the process runs.
type Refresher interface {
	Refresh(ctx context.Context) error
}
