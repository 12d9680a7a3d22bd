package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/magiconair/properties"
	"github.com/spf13/viper"
)

// Config represents the complete tokenmig configuration.
//
// This structure captures everything a migration run needs:
//   - Logging configuration
//   - The migration itself (roots, ownership, token allow-list, direction)
//   - Namespace store selection and configuration (store-specific)
//   - Token catalog selection and configuration (store-specific)
//   - Metrics endpoint
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (TOKENMIG_*), including a .env file
//  3. Configuration file (YAML, TOML or Java properties)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each backend defines its own options and factory function. The Config struct
// contains type-specific sections (e.g., namespace.chimera, namespace.badger)
// and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Migration describes what is moved where
	Migration MigrationConfig `mapstructure:"migration" yaml:"migration"`

	// Namespace specifies the namespace store type and type-specific configuration
	Namespace NamespaceConfig `mapstructure:"namespace" yaml:"namespace"`

	// Catalog specifies the token catalog type and type-specific configuration
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// MigrationConfig describes a migration run.
type MigrationConfig struct {
	// Source is the absolute root the files currently live under
	Source string `mapstructure:"source" yaml:"source" validate:"required,startswith=/"`

	// Destination is the absolute root of the new layout
	Destination string `mapstructure:"destination" yaml:"destination" validate:"required,startswith=/"`

	// Owner and Group are applied to every created directory. They have no
	// default: an unset owner would silently create root-owned directories.
	Owner *uint32 `mapstructure:"owner" yaml:"owner" validate:"required"`
	Group *uint32 `mapstructure:"group" yaml:"group" validate:"required"`

	// DirMode is the permission mode of created directories (e.g., 0775)
	DirMode uint32 `mapstructure:"dir_mode" yaml:"dir_mode" validate:"lte=511"` // 511 = 0777 in decimal

	// Tokens is the allow-list of token names. Entries may themselves be
	// comma-separated lists. Empty means every token.
	Tokens []string `mapstructure:"tokens" yaml:"tokens"`

	// Direction is forward (flat to per-token) or reverse
	Direction string `mapstructure:"direction" yaml:"direction" validate:"required,oneof=forward reverse"`

	// CacheSize bounds each directory cache
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size" validate:"gte=0"`

	// MaxRate caps migrated files per second; 0 disables the cap
	MaxRate uint `mapstructure:"max_rate" yaml:"max_rate"`
}

// NamespaceConfig specifies namespace store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type NamespaceConfig struct {
	// Type specifies which namespace store implementation to use
	// Valid values: chimera, badger, memory
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=chimera badger memory"`

	// Chimera contains Chimera database configuration
	// Only used when Type = "chimera"
	Chimera map[string]any `mapstructure:"chimera" yaml:"chimera"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`
}

// CatalogConfig specifies token catalog configuration.
type CatalogConfig struct {
	// Type specifies which catalog implementation to use
	// Valid values: postgres, sqlite
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=postgres sqlite"`

	// Postgres contains space manager database configuration
	// Only used when Type = "postgres"
	Postgres map[string]any `mapstructure:"postgres" yaml:"postgres"`

	// SQLite contains the path of an exported space manager snapshot
	// Only used when Type = "sqlite"
	SQLite map[string]any `mapstructure:"sqlite" yaml:"sqlite"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled starts the metrics HTTP server during a run
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port of the metrics server
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// envKeys are bound explicitly so environment variables work for keys that
// appear in no configuration file.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"migration.source",
	"migration.destination",
	"migration.owner",
	"migration.group",
	"migration.dir_mode",
	"migration.tokens",
	"migration.direction",
	"migration.cache_size",
	"migration.max_rate",
	"namespace.type",
	"namespace.chimera.url",
	"namespace.chimera.user",
	"namespace.chimera.password",
	"namespace.chimera.max_connections",
	"namespace.badger.db_path",
	"catalog.type",
	"catalog.postgres.url",
	"catalog.postgres.user",
	"catalog.postgres.password",
	"catalog.postgres.fetch_size",
	"catalog.postgres.max_connections",
	"catalog.sqlite.path",
	"metrics.enabled",
	"metrics.port",
}

// legacyKeys maps the keys of the historical migration.properties file onto
// the current layout. They are only honored in properties files.
var legacyKeys = map[string]string{
	"chimera.url":   "namespace.chimera.url",
	"chimera.user":  "namespace.chimera.user",
	"chimera.pass":  "namespace.chimera.password",
	"spacemgr.url":  "catalog.postgres.url",
	"spacemgr.user": "catalog.postgres.user",
	"spacemgr.pass": "catalog.postgres.password",
	"tokens":        "migration.tokens",
	"path.src":      "migration.source",
	"path.dest":     "migration.destination",
	"path.owner":    "migration.owner",
	"path.group":    "migration.group",
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (TOKENMIG_*)
//  2. Configuration file
//  3. Default values
//
// A .env file in the working directory is loaded first; variables already
// set in the environment win.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Configure viper
	if err := setupViper(v, configPath); err != nil {
		return nil, err
	}

	// Read configuration file if it exists
	if isPropertiesFile(configPath) {
		if err := readPropertiesFile(v, configPath); err != nil {
			return nil, err
		}
	} else if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads path into the process environment if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) error {
	// Environment variables use TOKENMIG_ prefix and underscores
	// Example: TOKENMIG_NAMESPACE_CHIMERA_PASSWORD=secret
	v.SetEnvPrefix("TOKENMIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	// Configure config file search
	if isPropertiesFile(configPath) {
		// Read separately by readPropertiesFile
		return nil
	}
	if configPath != "" {
		// Use explicitly specified config file; the format follows the extension
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/tokenmig/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	return nil
}

// readConfigFile reads the configuration file.
//
// A missing file at the default location is fine (defaults and environment
// only). An explicitly named file must exist.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && errors.As(err, &notFound) {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s doesn't exist", configPath)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

func isPropertiesFile(configPath string) bool {
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".properties", ".props", ".prop":
		return true
	default:
		return false
	}
}

// readPropertiesFile merges a Java properties file into v.
//
// Dotted keys become nested sections ("catalog.sqlite.path"). Keys of the
// historical migration.properties layout are renamed to their current
// equivalent unless the current key is present as well.
func readPropertiesFile(v *viper.Viper, configPath string) error {
	if _, err := os.Stat(configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s doesn't exist", configPath)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	props, err := properties.LoadFile(configPath, properties.UTF8)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	values := make(map[string]string, props.Len())
	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		values[strings.ToLower(key)] = value
	}
	for legacy, current := range legacyKeys {
		value, ok := values[legacy]
		if !ok {
			continue
		}
		delete(values, legacy)
		if _, set := values[current]; !set {
			values[current] = value
		}
	}

	tree := make(map[string]any)
	for key, value := range values {
		setNested(tree, strings.Split(key, "."), value)
	}

	if err := v.MergeConfigMap(tree); err != nil {
		return fmt.Errorf("failed to merge config file: %w", err)
	}
	return nil
}

// setNested stores value in tree under path, creating intermediate maps.
// A key that is both a value and a section keeps the section.
func setNested(tree map[string]any, path []string, value string) {
	for _, name := range path[:len(path)-1] {
		child, ok := tree[name].(map[string]any)
		if !ok {
			child = make(map[string]any)
			tree[name] = child
		}
		tree = child
	}
	last := path[len(path)-1]
	if _, isSection := tree[last].(map[string]any); isSection {
		return
	}
	tree[last] = value
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "tokenmig")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "tokenmig")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
