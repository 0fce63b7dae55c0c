// Package server provides the operational HTTP endpoint: health checks
// and Prometheus metrics. It carries no tree traffic.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/davtree/internal/logger"
	"github.com/marmos91/davtree/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpsServer exposes the operational HTTP endpoints.
//
// Endpoints:
//   - GET /healthz: liveness probe, always 200 while the process is up
//   - GET /metrics: Prometheus metrics in text format (503 when disabled)
//   - GET /: simple index page
//
// The server supports graceful shutdown with configurable timeout.
type OpsServer struct {
	server       *http.Server
	addr         string
	shutdownOnce sync.Once
}

// OpsConfig configures the operational HTTP server.
type OpsConfig struct {
	// ListenAddress is the host:port to listen on.
	// Default: ":8080"
	ListenAddress string
}

// applyDefaults fills in zero values with sensible defaults.
func (c *OpsConfig) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = ":8080"
	}
}

// NewOpsServer creates a new operational HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests.
func NewOpsServer(config OpsConfig) *OpsServer {
	config.applyDefaults()

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintln(w, "ok")
	})

	if metrics.IsEnabled() {
		registry := metrics.GetRegistry()
		if registry != nil {
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
				EnableOpenMetrics: true,
			}))
			logger.Debug("Metrics endpoint registered at /metrics")
		}
	} else {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "Metrics collection is disabled\n")
		})
		logger.Debug("Metrics collection disabled")
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "davtree ops endpoint\n\n/healthz  liveness probe\n/metrics  Prometheus metrics\n")
	})

	server := &http.Server{
		Addr:         config.ListenAddress,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &OpsServer{
		server: server,
		addr:   config.ListenAddress,
	}
}

// Start starts the ops HTTP server and blocks until the context is
// cancelled or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and
// returns.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the server fails to start or shutdown encounters an error
func (s *OpsServer) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Ops server listening on %s", s.addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Ops server shutdown signal received")
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("ops server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the ops server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Start().
func (s *OpsServer) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("Ops server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("ops server shutdown error: %w", err)
			logger.Error("Ops server shutdown error: %v", err)
		} else {
			logger.Info("Ops server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the address the server is configured to listen on.
func (s *OpsServer) Addr() string {
	return s.addr
}
