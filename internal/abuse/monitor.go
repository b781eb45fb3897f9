// Package abuse rate limits inbound traffic and keeps the aggregate
// counters reported by the anti-cheat status endpoint.
package abuse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcoot/battlerelay/internal/dependencies/clock"
	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/storage"
	"github.com/mcoot/battlerelay/internal/weapons"
)

// Config tunes the monitor
type Config struct {
	// MessageRate is the sustained inbound messages per second per connection
	MessageRate float64
	// MessageBurst is the token bucket size
	MessageBurst int
	// EnforceFireRate drops shots faster than the weapon's fire rate
	EnforceFireRate bool
	// FireRateTolerance scales the weapon interval to absorb network jitter
	FireRateTolerance float64
	// SuspicionThreshold flags a connection every N violations; 0 disables
	SuspicionThreshold int
	// IdleTTL is how long per-connection state survives without traffic
	IdleTTL time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		MessageRate:        30,
		MessageBurst:       60,
		EnforceFireRate:    true,
		FireRateTolerance:  0.8,
		SuspicionThreshold: 10,
		IdleTTL:            10 * time.Minute,
	}
}

// Status is the anti-cheat snapshot served over HTTP
type Status struct {
	Counters    storage.Counters
	LastCleanup time.Time
}

type connState struct {
	limiter    *rate.Limiter
	lastShot   map[model.WeaponID]time.Time
	violations int
	lastSeen   time.Time
}

// Monitor tracks per-connection traffic. It never changes gameplay state;
// it only tells the router which events to drop.
type Monitor struct {
	cfg      Config
	counters storage.CounterStore
	weapons  *weapons.Table
	clock    clock.Clock
	logger   *slog.Logger

	mu          sync.Mutex
	conns       map[model.ConnectionID]*connState
	lastCleanup time.Time
}

// NewMonitor creates a monitor. The cleanup timestamp starts at creation.
func NewMonitor(cfg Config, counters storage.CounterStore, table *weapons.Table, clk clock.Clock, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:         cfg,
		counters:    counters,
		weapons:     table,
		clock:       clk,
		logger:      logger.With(slog.String("component", "abuse")),
		conns:       make(map[model.ConnectionID]*connState),
		lastCleanup: clk.Now(),
	}
}

func (m *Monitor) state(id model.ConnectionID, now time.Time) *connState {
	st, ok := m.conns[id]
	if !ok {
		limit := rate.Limit(m.cfg.MessageRate)
		if m.cfg.MessageRate <= 0 {
			limit = rate.Inf
		}
		st = &connState{
			limiter:  rate.NewLimiter(limit, m.cfg.MessageBurst),
			lastShot: make(map[model.WeaponID]time.Time),
		}
		m.conns[id] = st
	}
	st.lastSeen = now
	return st
}

// AllowMessage takes one token from the connection's bucket
func (m *Monitor) AllowMessage(ctx context.Context, id model.ConnectionID) bool {
	now := m.clock.Now()

	m.mu.Lock()
	st := m.state(id, now)
	allowed := st.limiter.AllowN(now, 1)
	violations := 0
	if !allowed {
		st.violations++
		violations = st.violations
	}
	m.mu.Unlock()

	if !allowed {
		m.violation(ctx, id, "message rate", violations)
	}
	return allowed
}

// AllowFire checks the weapon's fire interval for this connection. Unknown
// weapons pass so the combat engine can reject them.
func (m *Monitor) AllowFire(ctx context.Context, id model.ConnectionID, weaponID model.WeaponID) bool {
	if !m.cfg.EnforceFireRate {
		return true
	}
	spec, err := m.weapons.Get(weaponID)
	if err != nil {
		return true
	}
	interval := time.Duration(float64(spec.FireRate)*m.cfg.FireRateTolerance) * time.Millisecond
	now := m.clock.Now()

	m.mu.Lock()
	st := m.state(id, now)
	last, fired := st.lastShot[weaponID]
	allowed := !fired || now.Sub(last) >= interval
	violations := 0
	if allowed {
		st.lastShot[weaponID] = now
	} else {
		st.violations++
		violations = st.violations
	}
	m.mu.Unlock()

	if !allowed {
		m.violation(ctx, id, "fire rate", violations)
	}
	return allowed
}

// FlagSuspicious records activity that is allowed but worth counting
func (m *Monitor) FlagSuspicious(ctx context.Context, id model.ConnectionID, reason string) {
	m.logger.Warn("suspicious activity",
		slog.String("connection_id", string(id)),
		slog.String("reason", reason))
	m.incr(ctx, storage.CounterSuspiciousActivities)
}

func (m *Monitor) violation(ctx context.Context, id model.ConnectionID, kind string, violations int) {
	m.logger.Debug("rate limited",
		slog.String("connection_id", string(id)),
		slog.String("kind", kind),
		slog.Int("violations", violations))
	m.incr(ctx, storage.CounterRateLimits)

	if m.cfg.SuspicionThreshold > 0 && violations%m.cfg.SuspicionThreshold == 0 {
		m.FlagSuspicious(ctx, id, "repeated "+kind+" violations")
	}
}

// incr failures never block gameplay; they only make the counters low
func (m *Monitor) incr(ctx context.Context, counter storage.Counter) {
	if _, err := m.counters.Incr(ctx, counter); err != nil {
		m.logger.Error("failed to increment counter",
			slog.String("counter", string(counter)),
			slog.String("error", err.Error()))
	}
}

// Forget drops all state for a closed connection
func (m *Monitor) Forget(id model.ConnectionID) {
	m.mu.Lock()
	delete(m.conns, id)
	m.mu.Unlock()
}

// Tracked returns how many connections currently have state
func (m *Monitor) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Cleanup prunes state idle for longer than IdleTTL, keeps expiring
// counters alive and records the run
func (m *Monitor) Cleanup(ctx context.Context) int {
	now := m.clock.Now()

	m.mu.Lock()
	removed := 0
	for id, st := range m.conns {
		if now.Sub(st.lastSeen) > m.cfg.IdleTTL {
			delete(m.conns, id)
			removed++
		}
	}
	m.lastCleanup = now
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Info("abuse state cleaned up", slog.Int("removed", removed))
	}

	if r, ok := m.counters.(storage.Refresher); ok {
		if err := r.Refresh(ctx); err != nil {
			m.logger.Error("failed to refresh counters", slog.String("error", err.Error()))
		}
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup(ctx)
		}
	}
}

// Status reads the counters and the last cleanup time
func (m *Monitor) Status(ctx context.Context) (Status, error) {
	counters, err := m.counters.Counters(ctx)
	if err != nil {
		return Status{}, err
	}
	m.mu.Lock()
	last := m.lastCleanup
	m.mu.Unlock()
	return Status{Counters: counters, LastCleanup: last}, nil
}
