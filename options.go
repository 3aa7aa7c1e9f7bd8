package driftsync

import (
	"github.com/agentstation/driftsync/pkg/reconcile"
	"github.com/agentstation/driftsync/pkg/stores"
)

// syncConfig holds facade-level settings collected from options.
type syncConfig struct {
	a, b          stores.Store
	resourceTypes []stores.ResourceType
	strategy      string
	primary       reconcile.Side
	dryRun        bool
	backup        bool
	backupDir     string
	logTail       int
	reportPath    string
}

func defaultSyncConfig() *syncConfig {
	return &syncConfig{primary: reconcile.SideA}
}

// Option configures a Syncer.
type Option func(*syncConfig) error

// WithStores sets the two stores to reconcile. Side A is the first argument.
func WithStores(a, b stores.Store) Option {
	return func(c *syncConfig) error {
		c.a = a
		c.b = b
		return nil
	}
}

// WithResourceTypes sets the resource types reconciled by default.
func WithResourceTypes(resourceTypes ...stores.ResourceType) Option {
	return func(c *syncConfig) error {
		c.resourceTypes = resourceTypes
		return nil
	}
}

// WithStrategy selects the conflict resolution strategy by name
// (a_wins, b_wins, latest_wins). Default is latest_wins.
func WithStrategy(name string) Option {
	return func(c *syncConfig) error {
		c.strategy = name
		return nil
	}
}

// WithPrimarySide sets the side that wins latest_wins timestamp ties.
func WithPrimarySide(side reconcile.Side) Option {
	return func(c *syncConfig) error {
		c.primary = side
		return nil
	}
}

// WithDryRun computes partitions and conflicts without writing anything.
func WithDryRun(enabled bool) Option {
	return func(c *syncConfig) error {
		c.dryRun = enabled
		return nil
	}
}

// WithBackup snapshots a store before its first mutation of a run.
func WithBackup(enabled bool) Option {
	return func(c *syncConfig) error {
		c.backup = enabled
		return nil
	}
}

// WithBackupDir sets where snapshots are written. Empty means a fresh
// temp directory per run.
func WithBackupDir(dir string) Option {
	return func(c *syncConfig) error {
		c.backupDir = dir
		return nil
	}
}

// WithLogTail caps how many trailing log lines the report retains.
func WithLogTail(n int) Option {
	return func(c *syncConfig) error {
		c.logTail = n
		return nil
	}
}

// WithReportPath writes the report to path as YAML after every sync.
func WithReportPath(path string) Option {
	return func(c *syncConfig) error {
		c.reportPath = path
		return nil
	}
}
