// Package config loads application configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Storage backend names accepted in configuration
const (
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Config holds all application settings
type Config struct {
	Seed     int64          `mapstructure:"seed"`
	Generate GenerateConfig `mapstructure:"generate"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
}

// GenerateConfig controls synthetic dataset sizing
type GenerateConfig struct {
	ExpenseCount   int `mapstructure:"expense_count"`
	RevenueMonths  int `mapstructure:"revenue_months"`
	ForecastMonths int `mapstructure:"forecast_months"`
}

// RulesConfig points at an optional external classification rules file.
// Empty path means the embedded rules.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Backend          string `mapstructure:"backend"`
	Dir              string `mapstructure:"dir"`
	SQLitePath       string `mapstructure:"sqlite_path"`
	FirestoreProject string `mapstructure:"firestore_project"`
	CredentialsFile  string `mapstructure:"credentials_file"`
}

// ServerConfig configures the serve mode
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from the given file (optional) plus
// GARUDA_-prefixed environment variables, over built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("seed", 0)
	v.SetDefault("generate.expense_count", 50)
	v.SetDefault("generate.revenue_months", 12)
	v.SetDefault("generate.forecast_months", 6)
	v.SetDefault("rules.path", "")
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.sqlite_path", "data/garuda.db")
	v.SetDefault("storage.firestore_project", "")
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("server.addr", ":8080")

	v.SetEnvPrefix("GARUDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	case BackendFirestore:
		if c.Storage.FirestoreProject == "" {
			return fmt.Errorf("storage.firestore_project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (want %s, %s, or %s)",
			c.Storage.Backend, BackendFile, BackendSQLite, BackendFirestore)
	}

	if c.Generate.ExpenseCount < 0 || c.Generate.RevenueMonths < 0 || c.Generate.ForecastMonths < 0 {
		return fmt.Errorf("generate counts cannot be negative")
	}

	return nil
}
