package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/activity-timeline/internal/config"
	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/dashboard"
	"github.com/mikey/activity-timeline/internal/di"
	"github.com/mikey/activity-timeline/internal/metrics"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	server *dashboard.Server,
	m *metrics.Metrics,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	metricsCfg := cfg.GetMetrics()
	if metricsCfg.Enabled {
		if err := m.Start(metricsCfg.ListenAddress); err != nil {
			logger.Fatal("Failed to start metrics server", zap.Error(err))
			return err
		}
	}

	// Start the dashboard
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start dashboard server", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop dashboard server", zap.Error(err))
	}

	if metricsCfg.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Stop(ctx); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
	}

	// Stop the cache if needed
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
