package reconcile

import (
	"context"
	"os"

	"github.com/agentstation/driftsync/pkg/logging"
	"github.com/agentstation/driftsync/pkg/stores"
)

// guard is the safety guard: it snapshots a target store once, immediately
// before the engine's first mutating call against it. Snapshots are
// advisory. They enable manual operator recovery and provide no automatic
// rollback, so a failed snapshot is reported and the run continues.
type guard struct {
	enabled bool
	dir     string
	taken   map[string]struct{}
	paths   []string
	errs    []error
}

// newGuard creates a guard writing snapshots under dir. An empty dir
// defers to a fresh temporary directory created on first use.
func newGuard(enabled bool, dir string) *guard {
	return &guard{
		enabled: enabled,
		dir:     dir,
		taken:   make(map[string]struct{}),
	}
}

// before takes the store's snapshot if the guard is enabled, the store
// supports snapshots, and none was taken yet this run.
func (g *guard) before(ctx context.Context, store stores.Store) {
	if !g.enabled {
		return
	}
	if _, ok := g.taken[store.ID()]; ok {
		return
	}

	snapshotter, ok := store.(stores.Snapshotter)
	if !ok {
		// Mark it so the miss is logged once, not per apply.
		g.taken[store.ID()] = struct{}{}
		logging.Ctx(ctx).Warn().
			Str("store", store.ID()).
			Msg("Store does not support snapshots; proceeding without backup")
		return
	}

	if g.dir == "" {
		dir, err := os.MkdirTemp("", "driftsync-backup-")
		if err != nil {
			g.taken[store.ID()] = struct{}{}
			g.errs = append(g.errs, err)
			logging.Ctx(ctx).Error().Err(err).Msg("Failed to create backup directory")
			return
		}
		g.dir = dir
	}

	g.taken[store.ID()] = struct{}{}
	path, err := snapshotter.Snapshot(ctx, g.dir)
	if err != nil {
		g.errs = append(g.errs, err)
		logging.Ctx(ctx).Error().
			Err(err).
			Str("store", store.ID()).
			Msg("Failed to snapshot store before mutation")
		return
	}

	g.paths = append(g.paths, path)
	logging.Ctx(ctx).Info().
		Str("store", store.ID()).
		Str("path", path).
		Msg("Snapshot taken before first mutation")
}

// report writes the guard's outcome into the report. It runs on every exit
// path, success or failure, so taken snapshots are always surfaced.
func (g *guard) report(r *Report) {
	r.Snapshots = append(r.Snapshots, g.paths...)
	for _, err := range g.errs {
		r.recordError(err)
	}
}
