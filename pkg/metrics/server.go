package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPort is used when no port is configured.
const DefaultPort = 9090

const shutdownTimeout = 5 * time.Second

// Server lets operators watch a long migration from outside the process.
//
// Endpoints:
//   - GET /metrics: Prometheus metrics (only when the registry is initialized)
//   - GET /status:  JSON snapshot of the run in progress
//   - GET /:        plain text index
type Server struct {
	http   *http.Server
	status *RunStatus
}

// NewServer builds a server for port reporting status. It does not listen
// until Serve is called.
func NewServer(port int, status *RunStatus) *Server {
	if port <= 0 {
		port = DefaultPort
	}
	if status == nil {
		status = NewRunStatus()
	}

	s := &Server{status: status}

	mux := http.NewServeMux()
	if reg := GetRegistry(); reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	}
	mux.HandleFunc("GET /status", s.serveStatus)
	mux.HandleFunc("GET /{$}", serveIndex)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the request router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Serve listens and serves until ctx is done, then shuts down gracefully.
// A listen failure is returned immediately.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	logger.Info("Metrics server listening on %s (/metrics, /status)", ln.Addr())

	served := make(chan error, 1)
	go func() { served <- s.http.Serve(ln) }()

	select {
	case err := <-served:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	logger.Debug("Metrics server stopped")
	return nil
}

func (s *Server) serveStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.status.Snapshot()); err != nil {
		logger.Debug("Failed to write status: %v", err)
	}
}

func serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprint(w, "tokenmig\n\n/status   current run (JSON)\n")
	if IsEnabled() {
		_, _ = fmt.Fprint(w, "/metrics  Prometheus metrics\n")
	}
}
