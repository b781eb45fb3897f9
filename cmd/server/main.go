package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/battlerelay/internal/abuse"
	"github.com/mcoot/battlerelay/internal/api"
	"github.com/mcoot/battlerelay/internal/config"
	"github.com/mcoot/battlerelay/internal/factory"
	"github.com/mcoot/battlerelay/internal/logging"
	redisstorage "github.com/mcoot/battlerelay/internal/storage/redis"
	"github.com/mcoot/battlerelay/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	if err := run(cfg, logger.Logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		_ = logger.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	abuseCfg := abuse.DefaultConfig()
	abuseCfg.MessageRate = cfg.MessageRate
	abuseCfg.MessageBurst = cfg.MessageBurst
	abuseCfg.EnforceFireRate = cfg.EnforceFireRate
	abuseCfg.FireRateTolerance = cfg.FireRateTolerance
	abuseCfg.SuspicionThreshold = cfg.SuspicionThreshold

	factoryCfg := factory.Config{
		Logger:          logger,
		WeaponsFile:     cfg.WeaponsFile,
		DefaultWeapon:   cfg.DefaultWeapon,
		DamagePolicy:    cfg.DamagePolicy,
		StorageType:     cfg.CounterStore,
		Abuse:           abuseCfg,
		CleanupInterval: cfg.CleanupInterval,
		WebSocket: ws.Config{
			SendBuffer:     cfg.SendBuffer,
			AllowedOrigins: cfg.AllowedOrigins,
		},
	}

	// Configure Redis if storage type is redis
	if cfg.CounterStore == config.CounterStoreRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.Start(ctx)

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(app.Handler, serverConfig, logger)
	server.OnShutdown(app.Router.Shutdown)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("relay started",
		slog.String("addr", server.Addr()),
		slog.String("counter_store", cfg.CounterStore))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := server.Shutdown(context.Background()); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
