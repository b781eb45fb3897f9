package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/battlerelay/internal/storage"
)

// Storage is a Redis-backed implementation of the counter store
type Storage struct {
	client   *redis.Client
	cfg      Config
	instance string
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	instance := cfg.Instance
	if instance == "" {
		instance = uuid.NewString()
	}
	return &Storage{
		client:   client,
		cfg:      cfg,
		instance: instance,
	}
}

// Instance returns the key scope of this process
func (s *Storage) Instance() string {
	return s.instance
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interfaces
var (
	_ storage.CounterStore = (*Storage)(nil)
	_ storage.Refresher    = (*Storage)(nil)
)

func (s *Storage) Incr(ctx context.Context, counter storage.Counter) (int64, error) {
	if counter != storage.CounterSuspiciousActivities && counter != storage.CounterRateLimits {
		return 0, fmt.Errorf("unknown counter %q", counter)
	}

	key := counterKey(s.instance, counter)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if s.cfg.CounterTTL > 0 {
		pipe.Expire(ctx, key, s.cfg.CounterTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Refresh pushes the expiry of both counters out by CounterTTL. The relay
// calls it far more often than the TTL so counters never lapse while the
// process runs; keys of a dead process still expire.
func (s *Storage) Refresh(ctx context.Context) error {
	if s.cfg.CounterTTL <= 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	pipe.Expire(ctx, counterKey(s.instance, storage.CounterSuspiciousActivities), s.cfg.CounterTTL)
	pipe.Expire(ctx, counterKey(s.instance, storage.CounterRateLimits), s.cfg.CounterTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) Counters(ctx context.Context) (storage.Counters, error) {
	values, err := s.client.MGet(ctx,
		counterKey(s.instance, storage.CounterSuspiciousActivities),
		counterKey(s.instance, storage.CounterRateLimits),
	).Result()
	if err != nil {
		return storage.Counters{}, err
	}

	suspicious, err := parseCount(values[0])
	if err != nil {
		return storage.Counters{}, err
	}
	rateLimits, err := parseCount(values[1])
	if err != nil {
		return storage.Counters{}, err
	}
	return storage.Counters{SuspiciousActivities: suspicious, RateLimits: rateLimits}, nil
}

// parseCount reads one MGET slot; a missing key is zero
func parseCount(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	str, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected counter value %T", v)
	}
	return strconv.ParseInt(str, 10, 64)
}
