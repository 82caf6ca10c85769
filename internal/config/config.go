package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samijaber1/aegis-claims/internal/policy"
)

// Source types
const (
	SourceFile   = "file"
	SourceRemote = "remote"
)

// Config holds server configuration
type Config struct {
	// Server settings
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// Dataset source settings
	SourceType       string        `yaml:"sourceType"` // "file" or "remote"
	DatasetDirectory string        `yaml:"datasetDirectory"`
	RemoteURL        string        `yaml:"remoteURL"`
	RemoteTimeout    time.Duration `yaml:"remoteTimeout"`
	RefreshInterval  time.Duration `yaml:"refreshInterval"`
	RefreshWorkers   int           `yaml:"refreshWorkers"`

	// Audit storage; empty disables persistence
	AuditDBPath string `yaml:"auditDBPath"`

	// Flag rules
	Rules policy.Rules `yaml:"rules"`

	// Operational settings
	GracefulShutdownTimeout time.Duration `yaml:"gracefulShutdownTimeout"`
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.SourceType != SourceFile && c.SourceType != SourceRemote {
		return fmt.Errorf("source type must be 'file' or 'remote'")
	}

	if c.SourceType == SourceFile && c.DatasetDirectory == "" {
		return fmt.Errorf("dataset directory required when source type is 'file'")
	}

	if c.SourceType == SourceRemote && c.RemoteURL == "" {
		return fmt.Errorf("remote URL required when source type is 'remote'")
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", c.RefreshInterval)
	}

	if c.RefreshWorkers <= 0 {
		return fmt.Errorf("refresh workers must be positive, got %d", c.RefreshWorkers)
	}

	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}

	return nil
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Port:                    8080,
		Host:                    "0.0.0.0",
		SourceType:              SourceFile,
		RemoteTimeout:           10 * time.Second,
		RefreshInterval:         5 * time.Minute,
		RefreshWorkers:          4,
		Rules:                   policy.DefaultRules(),
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values. Durations use Go syntax ("30s", "5m").
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}
