package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/driftsync/pkg/reconcile"
	"github.com/agentstation/driftsync/pkg/stores"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "driftsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
store_a:
  type: files
  id: docs
  root: /tmp/docs
store_b:
  type: api
  id: backend
  base_url: https://api.example.com/v1
  resources:
    users: users
  auth_scheme: bearer
  credential: secret
strategy: a_wins
resource_types:
  - users
dry_run: true
backup: true
backup_dir: /tmp/backups
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "files", cfg.StoreA.Type)
	assert.Equal(t, "docs", cfg.StoreA.ID)
	assert.Equal(t, "api", cfg.StoreB.Type)
	assert.Equal(t, "https://api.example.com/v1", cfg.StoreB.BaseURL)
	assert.Equal(t, reconcile.StrategyAWins, cfg.Strategy)
	assert.Equal(t, []string{"users"}, cfg.ResourceTypes)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.Backup)
	assert.Equal(t, "/tmp/backups", cfg.BackupDir)
	assert.Equal(t, path, cfg.ConfigFile)

	// Defaults survive a partial file.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, reconcile.SideA, cfg.Primary())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		StoreA:        StoreConfig{Type: StoreTypeMemory, ID: "a"},
		StoreB:        StoreConfig{Type: StoreTypeMemory, ID: "b"},
		Strategy:      reconcile.StrategyLatestWins,
		ResourceTypes: []string{"users"},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing store type", mutate: func(c *Config) { c.StoreB.Type = "" }, wantErr: true},
		{name: "no resource types", mutate: func(c *Config) { c.ResourceTypes = nil }, wantErr: true},
		{name: "unknown strategy", mutate: func(c *Config) { c.Strategy = "coin_flip" }, wantErr: true},
		{name: "bad primary side", mutate: func(c *Config) { c.PrimarySide = "c" }, wantErr: true},
		{name: "primary side b", mutate: func(c *Config) { c.PrimarySide = "b" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrimary(t *testing.T) {
	assert.Equal(t, reconcile.SideA, (&Config{}).Primary())
	assert.Equal(t, reconcile.SideA, (&Config{PrimarySide: "a"}).Primary())
	assert.Equal(t, reconcile.SideB, (&Config{PrimarySide: "b"}).Primary())
}

func TestBuildStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := BuildStore(StoreConfig{
			Type:      StoreTypeMemory,
			ID:        "mem",
			Resources: map[string]string{"users": ""},
		})
		require.NoError(t, err)
		assert.Equal(t, "mem", store.ID())
		assert.Contains(t, store.ResourceTypes(), stores.ResourceType("users"))
	})

	t.Run("files", func(t *testing.T) {
		store, err := BuildStore(StoreConfig{
			Type: StoreTypeFiles,
			ID:   "docs",
			Root: t.TempDir(),
		})
		require.NoError(t, err)
		assert.Equal(t, "docs", store.ID())
	})

	t.Run("api", func(t *testing.T) {
		store, err := BuildStore(StoreConfig{
			Type:      StoreTypeAPI,
			ID:        "backend",
			BaseURL:   "https://api.example.com/v1",
			Resources: map[string]string{"users": "users"},
		})
		require.NoError(t, err)
		assert.Equal(t, "backend", store.ID())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := BuildStore(StoreConfig{Type: "redis", ID: "x"})
		require.Error(t, err)
	})
}
