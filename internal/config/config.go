// Package config reads relay settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Counter store backends
const (
	CounterStoreMemory = "memory"
	CounterStoreRedis  = "redis"
)

// Config holds all configuration for the relay process
type Config struct {
	// Listener
	Host string
	Port int

	// Logging
	LogLevel string
	LogFile  string

	// Combat
	WeaponsFile   string
	DefaultWeapon string
	DamagePolicy  string

	// Abuse counters
	CounterStore string
	RedisURL     string

	// Rate limiting
	MessageRate        float64
	MessageBurst       int
	EnforceFireRate    bool
	FireRateTolerance  float64
	SuspicionThreshold int
	CleanupInterval    time.Duration

	// Transport
	SendBuffer     int
	AllowedOrigins []string

	// values that were set but could not be parsed
	parseErrs []error
}

// Load reads configuration from environment variables and optional .env files.
// Files are tried in order; variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	env := &envReader{}
	cfg := &Config{
		Host:               getEnvOrDefault("RELAY_HOST", ""),
		Port:               env.intVar("RELAY_PORT", 3001),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:            getEnvOrDefault("LOG_FILE", ""),
		WeaponsFile:        getEnvOrDefault("WEAPONS_FILE", ""),
		DefaultWeapon:      getEnvOrDefault("DEFAULT_WEAPON", ""),
		DamagePolicy:       getEnvOrDefault("DAMAGE_POLICY", "fixed-random"),
		CounterStore:       strings.ToLower(getEnvOrDefault("COUNTER_STORE", CounterStoreMemory)),
		RedisURL:           getEnvOrDefault("REDIS_URL", ""),
		MessageRate:        env.floatVar("MESSAGE_RATE", 30),
		MessageBurst:       env.intVar("MESSAGE_BURST", 60),
		EnforceFireRate:    env.boolVar("ENFORCE_FIRE_RATE", true),
		FireRateTolerance:  env.floatVar("FIRE_RATE_TOLERANCE", 0.8),
		SuspicionThreshold: env.intVar("SUSPICION_THRESHOLD", 10),
		CleanupInterval:    env.durationVar("CLEANUP_INTERVAL", time.Minute),
		SendBuffer:         env.intVar("SEND_BUFFER", 256),
		AllowedOrigins:     getEnvListOrDefault("ALLOWED_ORIGINS", nil),
	}
	cfg.parseErrs = env.errs

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe fallback
func (c *Config) Validate() error {
	errs := append([]error(nil), c.parseErrs...)
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("RELAY_PORT %d out of range", c.Port))
	}
	switch c.CounterStore {
	case CounterStoreMemory:
	case CounterStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL required when COUNTER_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("COUNTER_STORE must be %q or %q, got %q", CounterStoreMemory, CounterStoreRedis, c.CounterStore))
	}
	if c.FireRateTolerance <= 0 || c.FireRateTolerance > 1 {
		errs = append(errs, fmt.Errorf("FIRE_RATE_TOLERANCE %v must be in (0, 1]", c.FireRateTolerance))
	}
	if c.MessageRate > 0 && c.MessageBurst < 1 {
		errs = append(errs, fmt.Errorf("MESSAGE_BURST %d must be at least 1 when MESSAGE_RATE is set", c.MessageBurst))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("SEND_BUFFER %d must be positive", c.SendBuffer))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("CLEANUP_INTERVAL %v must be positive", c.CleanupInterval))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envReader parses typed variables and remembers every value it could not
// parse, so a typo fails startup instead of silently using the default
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string, parse func(string) error) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	if err := parse(val); err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, val, err))
	}
}

func (r *envReader) intVar(key string, defaultVal int) int {
	out := defaultVal
	r.lookup(key, func(val string) error {
		i, err := strconv.Atoi(val)
		if err == nil {
			out = i
		}
		return err
	})
	return out
}

func (r *envReader) floatVar(key string, defaultVal float64) float64 {
	out := defaultVal
	r.lookup(key, func(val string) error {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			out = f
		}
		return err
	})
	return out
}

func (r *envReader) boolVar(key string, defaultVal bool) bool {
	out := defaultVal
	r.lookup(key, func(val string) error {
		b, err := strconv.ParseBool(val)
		if err == nil {
			out = b
		}
		return err
	})
	return out
}

func (r *envReader) durationVar(key string, defaultVal time.Duration) time.Duration {
	out := defaultVal
	r.lookup(key, func(val string) error {
		d, err := time.ParseDuration(val)
		if err == nil {
			out = d
		}
		return err
	})
	return out
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
