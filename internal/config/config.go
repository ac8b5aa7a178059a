// Package config loads runtime configuration for the PGx analysis
// engine from a config file, environment variables (PGX_ prefix) and
// defaults, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete runtime configuration.
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CatalogConfig selects the rule catalog. An empty path means the
// built-in curated catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// PipelineConfig tunes the analysis pipeline.
type PipelineConfig struct {
	MinQuality    float64 `mapstructure:"min_quality"`
	TraceEnabled  bool    `mapstructure:"trace_enabled"`
	MaxBatchDrugs int     `mapstructure:"max_batch_drugs"`
}

// AuditConfig controls the persistent audit store.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// CacheConfig sizes the in-process evidence cache.
type CacheConfig struct {
	EvidenceEntries int `mapstructure:"evidence_entries"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Manager loads and validates configuration using Viper.
type Manager struct {
	config *Config
}

// NewManager creates a configuration manager and loads configuration
// from all sources.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pgx-engine/")

	viper.SetEnvPrefix("PGX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// The config file is optional; defaults and environment variables
	// are sufficient for a complete configuration.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	viper.SetDefault("catalog.path", "")

	viper.SetDefault("pipeline.min_quality", 20.0)
	viper.SetDefault("pipeline.trace_enabled", true)
	viper.SetDefault("pipeline.max_batch_drugs", 16)

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.db_path", "pgx_audit.db")

	viper.SetDefault("cache.evidence_entries", 256)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stderr")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Reload reloads the configuration from all sources.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate checks the loaded configuration for usable values.
func (m *Manager) Validate() error {
	config := m.config

	if config.Pipeline.MinQuality < 0 {
		return fmt.Errorf("invalid minimum variant quality: %g", config.Pipeline.MinQuality)
	}
	if config.Pipeline.MaxBatchDrugs <= 0 {
		return fmt.Errorf("invalid max batch drugs: %d", config.Pipeline.MaxBatchDrugs)
	}
	if config.Cache.EvidenceEntries <= 0 {
		return fmt.Errorf("invalid evidence cache size: %d", config.Cache.EvidenceEntries)
	}
	if config.Audit.Enabled && config.Audit.DBPath == "" {
		return fmt.Errorf("audit db path is required when audit is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	return nil
}
