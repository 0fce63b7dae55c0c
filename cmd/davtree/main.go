package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/davtree/internal/logger"
	"github.com/marmos91/davtree/internal/server"
	"github.com/marmos91/davtree/pkg/config"
	"github.com/marmos91/davtree/pkg/gc"
	"github.com/marmos91/davtree/pkg/lock"
	"github.com/marmos91/davtree/pkg/metrics"
	promMetrics "github.com/marmos91/davtree/pkg/metrics/prometheus"
	"github.com/marmos91/davtree/pkg/quota"
	"github.com/marmos91/davtree/pkg/tree"
	treeBadger "github.com/marmos91/davtree/pkg/tree/badger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	// Load configuration from file, environment and defaults
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure logger
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)
	if err := configureLogOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	fmt.Println("davtree - Tree Mutation & Enumeration Engine")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics before anything that records them
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics collection enabled")
	}

	// Create stores
	store, err := config.CreateTreeStore(ctx, &cfg.Store)
	if err != nil {
		log.Fatalf("Failed to create tree store: %v", err)
	}
	logger.Info("Tree store initialized: type=%s", cfg.Store.Type)

	contentStore, err := config.CreateContentStore(ctx, &cfg.Content)
	if err != nil {
		log.Fatalf("Failed to create content store: %v", err)
	}
	logger.Info("Content store initialized: type=%s", cfg.Content.Type)

	// Create collaborators
	locks := lock.NewManager(store)
	locks.SetTTLBounds(cfg.Locks.DefaultTTL, cfg.Locks.MaxTTL)

	sink, err := config.CreateNotificationSink(&cfg.Notifications)
	if err != nil {
		log.Fatalf("Failed to create notification sink: %v", err)
	}

	var storageQuota tree.Quota
	if cfg.Quota.TotalBytes > 0 {
		storageQuota = quota.New(cfg.Quota.TotalBytes, store)
		logger.Info("Storage quota: %d bytes", cfg.Quota.TotalBytes)
	} else {
		logger.Info("Storage quota: unlimited")
	}

	// Assemble the engine
	treeMetrics := promMetrics.NewTreeMetrics()
	locks.SetCountObserver(treeMetrics.SetLockedItems)

	coordinator := tree.NewCoordinator(store, locks, tree.CoordinatorOptions{
		Notify:  sink,
		Quota:   storageQuota,
		Content: contentStore,
		Metrics: treeMetrics,
	})
	logger.Info("Engine assembled (coordinator ready: %T)", coordinator)

	// Start background garbage collection for orphaned content
	collector, err := gc.NewCollector(store, contentStore, gc.Config{
		Enabled:          cfg.GC.Enabled,
		Interval:         cfg.GC.Interval,
		DryRun:           cfg.GC.DryRun,
		DeletesPerSecond: cfg.GC.DeletesPerSecond,
	})
	if err != nil {
		log.Fatalf("Failed to create garbage collector: %v", err)
	}
	collector.Start()

	// Start the ops HTTP server
	opsServer := server.NewOpsServer(server.OpsConfig{
		ListenAddress: cfg.Server.ListenAddress,
	})

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- opsServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("davtree is running on %s. Press Ctrl+C to stop.", cfg.Server.ListenAddress)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			closeStores(store, locks)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			closeStores(store, locks)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	if err := collector.Stop(stopCtx); err != nil {
		logger.Warn("Garbage collector stop: %v", err)
	}
	stopCancel()

	closeStores(store, locks)
}

// configureLogOutput points the logger at stdout, stderr or a file.
func configureLogOutput(output string) error {
	switch output {
	case "", "stdout":
		return nil
	case "stderr":
		logger.SetOutput(os.Stderr)
		return nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", output, err)
		}
		logger.SetOutput(file)
		return nil
	}
}

// closeStores releases persistent resources on the way out.
func closeStores(store tree.Store, locks *lock.Manager) {
	if badgerStore, ok := store.(*treeBadger.BadgerStore); ok {
		if err := badgerStore.Close(); err != nil {
			logger.Error("Failed to close tree store: %v", err)
		}
	}
	if held := locks.Count(); held > 0 {
		logger.Warn("Shutting down with %d lock(s) still held", held)
	}
}
