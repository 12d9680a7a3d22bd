package config

import (
	"github.com/marmos91/tokenmig/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics and the run
	// status (nil if disabled)
	Server *metrics.Server

	// Status is the live run state served on /status (nil if disabled)
	Status *metrics.RunStatus

	// Migration records run progress (never nil, uses noop if disabled)
	Migration metrics.MigrationMetrics

	// Store records namespace store latency (never nil, uses noop if disabled)
	Store metrics.StoreMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the run status and the HTTP server reporting it
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Migration: metrics.NewNoopMigrationMetrics(),
			Store:     metrics.NewStoreMetrics(cfg.Namespace.Type),
		}
	}

	// Initialize global Prometheus registry
	metrics.InitRegistry()

	status := metrics.NewRunStatus()

	return &MetricsResult{
		Server:    metrics.NewServer(cfg.Metrics.Port, status),
		Status:    status,
		Migration: metrics.NewMigrationMetrics(status),
		Store:     metrics.NewStoreMetrics(cfg.Namespace.Type),
	}
}
