package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-claims/internal/policy"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetDirectory = "fixtures/claims/valid"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, policy.DefaultRules(), cfg.Rules)
	assert.Equal(t, SourceFile, cfg.SourceType)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, errMsg: "invalid port"},
		{name: "unknown source", mutate: func(c *Config) { c.SourceType = "s3" }, errMsg: "source type"},
		{name: "file without directory", mutate: func(c *Config) { c.DatasetDirectory = "" }, errMsg: "dataset directory"},
		{name: "remote without URL", mutate: func(c *Config) { c.SourceType = SourceRemote }, errMsg: "remote URL"},
		{name: "zero interval", mutate: func(c *Config) { c.RefreshInterval = 0 }, errMsg: "refresh interval"},
		{name: "zero workers", mutate: func(c *Config) { c.RefreshWorkers = 0 }, errMsg: "refresh workers"},
		{name: "bad rules", mutate: func(c *Config) { c.Rules.ZeroPremium = "skip" }, errMsg: "invalid rules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DatasetDirectory = "data"
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `port: 9090
sourceType: remote
remoteURL: http://claims.internal
refreshInterval: 30s
auditDBPath: /var/lib/aegis/audit.db
rules:
  slaThresholdDays: 14
  zeroPremium: error
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, LoadFile(path, &cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, SourceRemote, cfg.SourceType)
	assert.Equal(t, "http://claims.internal", cfg.RemoteURL)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "/var/lib/aegis/audit.db", cfg.AuditDBPath)
	assert.Equal(t, 14, cfg.Rules.SLAThresholdDays)
	assert.Equal(t, policy.ZeroPremiumError, cfg.Rules.ZeroPremium)

	// untouched keys keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 1.0, cfg.Rules.HighRiskLossRatio)
	assert.Equal(t, 30*time.Second, cfg.GracefulShutdownTimeout)

	require.NoError(t, cfg.Validate())
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := DefaultConfig()

	err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("refreshInterval: soon\n"), 0o644))

	err = LoadFile(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}
