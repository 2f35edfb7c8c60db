package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/coursemetrics/metrics-warehouse/internal/adapters/config"
	"github.com/coursemetrics/metrics-warehouse/internal/adapters/keystore"
	"github.com/coursemetrics/metrics-warehouse/internal/adapters/warehouse"
	"github.com/coursemetrics/metrics-warehouse/internal/api"
	"github.com/coursemetrics/metrics-warehouse/internal/health"
	"github.com/coursemetrics/metrics-warehouse/internal/metrics"
	"github.com/coursemetrics/metrics-warehouse/internal/workers"
	"github.com/coursemetrics/metrics-warehouse/pkg/logger"
	"github.com/coursemetrics/metrics-warehouse/pkg/worker"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Run application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration and initialize logger
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Metrics warehouse service starting...",
		zap.String("driver", cfg.Warehouse.Driver),
	)

	// Initialize warehouse session pool
	manager, err := initWarehouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer manager.Close()

	// Build the metric catalog and computation service
	registry := metrics.NewRegistry()
	metrics.RegisterAll(registry, cfg.Business)
	logger.Info("metric catalog loaded",
		zap.Int("metrics", registry.Len()),
		zap.Strings("categories", registry.Categories()),
	)

	executor := warehouse.NewExecutor(cfg.Warehouse.QueryTimeout)
	svc := metrics.NewService(registry, manager, executor, cfg.Cache, cfg.Business)

	// Start API server with the stream hub
	hub := api.NewHub()
	defer hub.Close()

	apiServer := api.NewServer(":"+cfg.Server.Port, svc, hub)
	apiServer.Start()

	// Start health server
	healthServer := startHealthServer(cfg, manager)

	// Start summary refresh worker
	var refresher *worker.PeriodicWorker
	if cfg.Refresh.Enabled {
		refresher = worker.RunBackground(ctx,
			workers.NewSummaryRefresher(svc, hub, cfg.Refresh.Window),
			cfg.Refresh.Interval,
		)
	}

	// Wait for shutdown signal
	<-ctx.Done()

	return performGracefulShutdown(apiServer, healthServer, refresher)
}

// initConfig loads configuration and initializes logger
func initConfig() (*config.Config, error) {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// initWarehouse builds the session pool and verifies connectivity. A failed
// ping is logged but not fatal: sessions are created lazily and the warehouse
// may come up after us.
func initWarehouse(ctx context.Context, cfg *config.Config) (*warehouse.Manager, error) {
	var secrets keystore.SecretSource
	if cfg.Warehouse.PrivateKeyPath != "" {
		secrets = keystore.NewFileStore(cfg.Warehouse.PrivateKeyPath)
	} else {
		secrets = keystore.Static(cfg.Warehouse.Password)
	}

	manager := warehouse.NewManager(&cfg.Warehouse, secrets)

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()

	if err := manager.Ping(pingCtx); err != nil {
		logger.Warn("warehouse not reachable at startup", zap.Error(err))
	} else {
		logger.Info("warehouse connection established",
			zap.String("host", cfg.Warehouse.Host),
			zap.String("database", cfg.Warehouse.Database),
			zap.Int("pool_size", cfg.Warehouse.PoolSize),
		)
	}

	return manager, nil
}

// startHealthServer initializes and starts health check server for K8s probes
func startHealthServer(cfg *config.Config, manager *warehouse.Manager) *health.Server {
	healthServer := health.NewServer(cfg.Health.Port, manager)

	go func() {
		if err := healthServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", zap.Error(err))
		}
	}()

	logger.Info("Metrics dashboard backend ready",
		zap.String("api_port", cfg.Server.Port),
		zap.String("health_port", cfg.Health.Port),
	)

	// Mark service as ready after initialization
	healthServer.SetReady(true)

	return healthServer
}

// performGracefulShutdown handles graceful shutdown of all components
func performGracefulShutdown(apiServer *api.Server, healthServer *health.Server, refresher *worker.PeriodicWorker) error {
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	// Mark service as not ready (stop accepting new traffic)
	healthServer.SetReady(false)

	// K8s gives 30s terminationGracePeriodSeconds
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()

	if refresher != nil {
		refresher.Stop(10 * time.Second)
	}

	logger.Info("stopping API server...")
	if err := apiServer.Close(); err != nil {
		logger.Error("API server stop error", zap.Error(err))
	}

	logger.Info("stopping health server...")
	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Error("health server stop error", zap.Error(err))
	}

	logger.Sync()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded")
		return fmt.Errorf("graceful shutdown timeout")
	default:
		logger.Info("shutdown completed successfully")
	}

	return nil
}
