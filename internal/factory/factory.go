package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mcoot/battlerelay/internal/abuse"
	"github.com/mcoot/battlerelay/internal/api"
	"github.com/mcoot/battlerelay/internal/combat"
	"github.com/mcoot/battlerelay/internal/dependencies/clock"
	"github.com/mcoot/battlerelay/internal/dependencies/random"
	"github.com/mcoot/battlerelay/internal/metrics"
	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/registry"
	"github.com/mcoot/battlerelay/internal/relay"
	"github.com/mcoot/battlerelay/internal/session"
	"github.com/mcoot/battlerelay/internal/spectate"
	"github.com/mcoot/battlerelay/internal/storage"
	"github.com/mcoot/battlerelay/internal/storage/memory"
	redisstorage "github.com/mcoot/battlerelay/internal/storage/redis"
	"github.com/mcoot/battlerelay/internal/transport/ws"
	"github.com/mcoot/battlerelay/internal/weapons"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Version is reported by the status endpoint
const Version = "2.0.0"

// App contains all wired application components. The battle room lives
// from New until Close.
type App struct {
	// Storage
	Counters storage.CounterStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Relay
	Weapons    *weapons.Table
	Registry   *registry.Registry
	Store      *session.Store
	Engine     *combat.Engine
	Monitor    *abuse.Monitor
	Metrics    *metrics.Relay
	Spectators *spectate.Hub
	Router     *relay.Router

	// HTTP
	WebSocket *ws.Handler
	Handler   http.Handler
	StartedAt time.Time

	cleanupInterval time.Duration
	logger          *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	closed  bool
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// WeaponsFile is a YAML weapon table (optional)
	// If empty, the built-in table is used
	WeaponsFile string
	// DefaultWeapon overrides the table's default weapon (optional)
	DefaultWeapon string
	// DamagePolicy names the damage model; empty means fixed-random
	DamagePolicy string
	// StorageType selects the counter store backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Abuse tunes rate limiting; the zero value means abuse.DefaultConfig()
	Abuse abuse.Config
	// CleanupInterval is how often idle abuse state is pruned (default 1m)
	CleanupInterval time.Duration
	// WebSocket tunes the player transport
	WebSocket ws.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	table, err := loadWeapons(cfg.WeaponsFile, model.WeaponID(cfg.DefaultWeapon))
	if err != nil {
		return nil, err
	}

	policy, err := combat.PolicyByName(cfg.DamagePolicy)
	if err != nil {
		return nil, err
	}

	// Create counter store based on type
	var counters storage.CounterStore
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		counters = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		// counters are refreshed once per cleanup run
		if ttl := cfg.RedisConfig.CounterTTL; ttl > 0 && ttl <= 2*cleanupInterval(cfg) {
			return nil, fmt.Errorf("redis counter TTL %s must exceed twice the cleanup interval", ttl)
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("redis counter store: %w", err)
		}
		logger.Info("using redis counter store", slog.String("instance", redisStore.Instance()))
		counters = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(counters, table, policy, clock.New(), random.New(), cfg, logger), nil
}

func cleanupInterval(cfg Config) time.Duration {
	if cfg.CleanupInterval <= 0 {
		return time.Minute
	}
	return cfg.CleanupInterval
}

func loadWeapons(path string, defaultWeapon model.WeaponID) (*weapons.Table, error) {
	if path != "" {
		return weapons.LoadFile(path, defaultWeapon)
	}
	table := weapons.Default()
	if defaultWeapon == "" || defaultWeapon == table.DefaultWeapon() {
		return table, nil
	}
	return weapons.New(table.All(), defaultWeapon)
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	counters storage.CounterStore,
	table *weapons.Table,
	policy combat.DamagePolicy,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *App {
	abuseCfg := cfg.Abuse
	if abuseCfg == (abuse.Config{}) {
		abuseCfg = abuse.DefaultConfig()
	}
	interval := cleanupInterval(cfg)

	m := metrics.New()
	reg := registry.New(logger)
	store := session.New(table, clk, rnd, logger)
	engine := combat.NewEngine(store, table, policy, rnd, logger)
	monitor := abuse.NewMonitor(abuseCfg, counters, table, clk, logger)
	hub := spectate.NewHub(logger, m.Spectators)

	router := relay.NewRouter(relay.Deps{
		Registry: reg,
		Store:    store,
		Engine:   engine,
		Monitor:  monitor,
		Mirror:   hub,
		Metrics:  m,
		Clock:    clk,
		Logger:   logger,
	})
	wsHandler := ws.NewHandler(router, cfg.WebSocket, logger)

	startedAt := clk.Now()
	handler := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Store:      store,
		Weapons:    table,
		Monitor:    monitor,
		Clock:      clk,
		Version:    Version,
		StartedAt:  startedAt,
		WebSocket:  wsHandler,
		Spectators: hub,
		Metrics:    m.Handler(),
	})

	logger.Info("relay configured",
		slog.String("damage_policy", policy.Name()),
		slog.String("default_weapon", string(table.DefaultWeapon())),
		slog.Int("weapons", len(table.IDs())))

	return &App{
		Counters:        counters,
		Clock:           clk,
		Random:          rnd,
		Weapons:         table,
		Registry:        reg,
		Store:           store,
		Engine:          engine,
		Monitor:         monitor,
		Metrics:         m,
		Spectators:      hub,
		Router:          router,
		WebSocket:       wsHandler,
		Handler:         handler,
		StartedAt:       startedAt,
		cleanupInterval: interval,
		logger:          logger,
	}
}

// Start runs the background loops: the spectator hub and abuse cleanup.
// Calling it more than once has no effect.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.closed {
		return
	}
	a.started = true

	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.Spectators.Run()
	}()
	go func() {
		defer a.wg.Done()
		a.Monitor.Run(ctx, a.cleanupInterval)
	}()
}

// Close tears the room down: open connections are closed, background loops
// stop and the counter store is released.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cancel := a.cancel
	a.mu.Unlock()

	a.Router.Shutdown()
	a.Spectators.Close()
	if cancel != nil {
		cancel()
	}
	a.wg.Wait()
	return a.Counters.Close()
}
