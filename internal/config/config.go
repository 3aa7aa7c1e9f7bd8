// Package config loads reconciliation settings from config files,
// environment variables, and .env files, and builds stores from them.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/reconcile"
	"github.com/agentstation/driftsync/pkg/stores"
	"github.com/agentstation/driftsync/pkg/stores/api"
	"github.com/agentstation/driftsync/pkg/stores/files"
	"github.com/agentstation/driftsync/pkg/stores/memory"
	"github.com/agentstation/driftsync/pkg/stores/sqlite"
)

// Store backend types accepted in config files.
const (
	StoreTypeMemory = "memory"
	StoreTypeFiles  = "files"
	StoreTypeSQLite = "sqlite"
	StoreTypeAPI    = "api"
)

// TableConfig describes one reconciled table of a sqlite store.
type TableConfig struct {
	Resource       string   `mapstructure:"resource"`
	Table          string   `mapstructure:"table"`
	KeyColumn      string   `mapstructure:"key_column"`
	Columns        []string `mapstructure:"columns"`
	ModifiedColumn string   `mapstructure:"modified_column"`
}

// StoreConfig describes one side of the reconciliation. Type selects the
// backend; the remaining fields apply to the matching backend only.
type StoreConfig struct {
	Type string `mapstructure:"type"`
	ID   string `mapstructure:"id"`

	// files: root directory and resource type to subdirectory mapping.
	Root      string            `mapstructure:"root"`
	Resources map[string]string `mapstructure:"resources"`

	// sqlite
	DSN    string        `mapstructure:"dsn"`
	Tables []TableConfig `mapstructure:"tables"`

	// api
	BaseURL        string            `mapstructure:"base_url"`
	KeyField       string            `mapstructure:"key_field"`
	ModifiedFields []string          `mapstructure:"modified_fields"`
	ApplyMethod    string            `mapstructure:"apply_method"`
	AuthScheme     string            `mapstructure:"auth_scheme"`
	AuthName       string            `mapstructure:"auth_name"`
	Credential     string            `mapstructure:"credential"`
	Headers        map[string]string `mapstructure:"headers"`
	Timeout        time.Duration     `mapstructure:"timeout"`
}

// Config holds the full reconciliation configuration.
type Config struct {
	StoreA StoreConfig `mapstructure:"store_a"`
	StoreB StoreConfig `mapstructure:"store_b"`

	Strategy      string   `mapstructure:"strategy"`
	PrimarySide   string   `mapstructure:"primary_side"`
	ResourceTypes []string `mapstructure:"resource_types"`
	DryRun        bool     `mapstructure:"dry_run"`
	Backup        bool     `mapstructure:"backup"`
	BackupDir     string   `mapstructure:"backup_dir"`
	LogTail       int      `mapstructure:"log_tail"`
	ReportPath    string   `mapstructure:"report_path"`

	// Logging configuration
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogOutput string `mapstructure:"log_output"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// Load loads configuration from all sources in order of precedence:
// 1. Environment variables (DRIFTSYNC_ prefixed)
// 2. .env files
// 3. The config file at path, or .driftsync.yaml in the working directory
// 4. Defaults
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("DRIFTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "failed to read config file", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".driftsync")
		// Missing default config file is fine, env and defaults apply.
		_ = v.ReadInConfig()
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.NewConfigError("config", "failed to parse configuration", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the configuration describes a runnable reconciliation.
func (c *Config) Validate() error {
	if c.StoreA.Type == "" || c.StoreB.Type == "" {
		return errors.NewConfigError("config", "both store_a and store_b must declare a type", nil)
	}
	if len(c.ResourceTypes) == 0 {
		return errors.NewConfigError("config", "at least one resource type is required", nil)
	}
	switch c.Strategy {
	case reconcile.StrategyAWins, reconcile.StrategyBWins, reconcile.StrategyLatestWins:
	default:
		return errors.NewConfigError("config", "unknown strategy "+c.Strategy, nil)
	}
	switch c.PrimarySide {
	case "", "a", "b":
	default:
		return errors.NewConfigError("config", "primary_side must be a or b", nil)
	}
	return nil
}

// Primary returns the configured tie-break side, defaulting to side A.
func (c *Config) Primary() reconcile.Side {
	if c.PrimarySide == "b" {
		return reconcile.SideB
	}
	return reconcile.SideA
}

// BuildStore constructs the store a StoreConfig describes.
func BuildStore(sc StoreConfig) (stores.Store, error) {
	switch sc.Type {
	case StoreTypeMemory:
		return memory.New(sc.ID, memory.WithResourceTypes(resourceTypes(sc.Resources)...))

	case StoreTypeFiles:
		return files.New(files.Config{
			ID:        sc.ID,
			Root:      sc.Root,
			Resources: resourceDirs(sc.Resources),
		})

	case StoreTypeSQLite:
		cfg := sqlite.Config{
			ID:     sc.ID,
			DSN:    sc.DSN,
			Tables: make(map[stores.ResourceType]sqlite.TableSchema, len(sc.Tables)),
		}
		for _, table := range sc.Tables {
			cfg.Tables[stores.ResourceType(table.Resource)] = sqlite.TableSchema{
				Table:          table.Table,
				KeyColumn:      table.KeyColumn,
				Columns:        table.Columns,
				ModifiedColumn: table.ModifiedColumn,
			}
		}
		return sqlite.New(cfg)

	case StoreTypeAPI:
		return api.New(api.Config{
			ID:             sc.ID,
			BaseURL:        sc.BaseURL,
			Resources:      resourceDirs(sc.Resources),
			KeyField:       sc.KeyField,
			ModifiedFields: sc.ModifiedFields,
			ApplyMethod:    sc.ApplyMethod,
			AuthScheme:     sc.AuthScheme,
			AuthName:       sc.AuthName,
			Credential:     sc.Credential,
			Headers:        sc.Headers,
			Timeout:        sc.Timeout,
		})

	default:
		return nil, errors.NewConfigError("config", "unknown store type "+sc.Type, nil)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strategy", reconcile.StrategyLatestWins)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func resourceTypes(resources map[string]string) []stores.ResourceType {
	types := make([]stores.ResourceType, 0, len(resources))
	for resource := range resources {
		types = append(types, stores.ResourceType(resource))
	}
	return types
}

func resourceDirs(resources map[string]string) map[stores.ResourceType]string {
	if len(resources) == 0 {
		return nil
	}
	dirs := make(map[stores.ResourceType]string, len(resources))
	for resource, location := range resources {
		dirs[stores.ResourceType(resource)] = location
	}
	return dirs
}
