// Package driftsync reconciles two independently maintained stores of the
// same logical records. It scans both sides, partitions keys into exclusive
// and common sets, detects conflicting common records by fingerprint, and
// converges the two sides under a configurable resolution strategy.
package driftsync

import (
	"context"

	"github.com/agentstation/driftsync/internal/config"
	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/logging"
	"github.com/agentstation/driftsync/pkg/reconcile"
	"github.com/agentstation/driftsync/pkg/stores"
)

// Syncer reconciles two stores across a configured set of resource types.
type Syncer struct {
	config     *syncConfig
	reconciler *reconcile.Reconciler
}

// New creates a Syncer from options. Both stores are required.
func New(opts ...Option) (*Syncer, error) {
	c := defaultSyncConfig()
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	reconcilerOpts := []reconcile.Option{
		reconcile.WithPrimarySide(c.primary),
		reconcile.WithDryRun(c.dryRun),
		reconcile.WithBackup(c.backup),
		reconcile.WithBackupDir(c.backupDir),
		reconcile.WithLogTail(c.logTail),
	}
	if c.strategy != "" {
		reconcilerOpts = append(reconcilerOpts, reconcile.WithStrategy(c.strategy))
	}

	reconciler, err := reconcile.New(c.a, c.b, reconcilerOpts...)
	if err != nil {
		return nil, err
	}

	return &Syncer{config: c, reconciler: reconciler}, nil
}

// Load builds a Syncer from a config file (and the environment). An empty
// path falls back to .driftsync.yaml in the working directory plus
// DRIFTSYNC_ environment variables.
func Load(path string, opts ...Option) (*Syncer, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logging.SetDefault(logging.NewLoggerFromConfig(&logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}))

	a, err := config.BuildStore(cfg.StoreA)
	if err != nil {
		return nil, err
	}
	b, err := config.BuildStore(cfg.StoreB)
	if err != nil {
		return nil, err
	}

	resourceTypes := make([]stores.ResourceType, 0, len(cfg.ResourceTypes))
	for _, resourceType := range cfg.ResourceTypes {
		resourceTypes = append(resourceTypes, stores.ResourceType(resourceType))
	}

	loaded := []Option{
		WithStores(a, b),
		WithResourceTypes(resourceTypes...),
		WithStrategy(cfg.Strategy),
		WithPrimarySide(cfg.Primary()),
		WithDryRun(cfg.DryRun),
		WithBackup(cfg.Backup),
		WithBackupDir(cfg.BackupDir),
		WithLogTail(cfg.LogTail),
		WithReportPath(cfg.ReportPath),
	}
	return New(append(loaded, opts...)...)
}

// Sync runs one reconciliation pass. Resource types passed here override the
// configured set. The returned report is non-nil whenever a run started,
// including runs where every resource type failed.
func (s *Syncer) Sync(ctx context.Context, resourceTypes ...stores.ResourceType) (*reconcile.Report, error) {
	if len(resourceTypes) == 0 {
		resourceTypes = s.config.resourceTypes
	}
	if len(resourceTypes) == 0 {
		return nil, errors.NewValidationError("resourceTypes", nil, "no resource types configured")
	}

	report, err := s.reconciler.Run(ctx, resourceTypes...)

	if report != nil && s.config.reportPath != "" {
		if saveErr := report.Save(s.config.reportPath); saveErr != nil {
			logging.Ctx(ctx).Error().Err(saveErr).Str("path", s.config.reportPath).Msg("Failed to write report")
		}
	}
	return report, err
}
