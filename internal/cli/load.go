package cli

import (
	"fmt"

	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/marmos91/tokenmig/pkg/config"
)

// loadConfig loads the configuration, applies command line overrides and
// configures logging. override may be nil.
func loadConfig(args []string, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath(args))
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if override != nil {
		override(cfg)
	}

	// Overrides may have broken an invariant the file satisfied
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	return cfg, nil
}
