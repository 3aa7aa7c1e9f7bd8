package reconcile

import (
	"context"
	"fmt"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/logging"
	"github.com/agentstation/driftsync/pkg/record"
	"github.com/agentstation/driftsync/pkg/stores"
)

// Reconciler converges two stores for a set of resource types.
type Reconciler struct {
	a stores.Store
	b stores.Store

	strategy  Strategy
	primary   Side
	dryRun    bool
	backup    bool
	backupDir string
	logTail   int
}

// New creates a Reconciler over two stores. The default strategy is
// latest_wins with side A as the tie-break primary.
func New(a, b stores.Store, opts ...Option) (*Reconciler, error) {
	if a == nil || b == nil {
		return nil, errors.NewValidationError("stores", nil, "both stores are required")
	}
	if a.ID() == b.ID() {
		return nil, errors.NewValidationError("stores", a.ID(), "the two stores must have distinct identifiers")
	}

	r := &Reconciler{
		a:       a,
		b:       b,
		primary: SideA,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.strategy == nil {
		strategy, err := ParseStrategy(StrategyLatestWins, r.primary)
		if err != nil {
			return nil, err
		}
		r.strategy = strategy
	}
	return r, nil
}

// Run reconciles the given resource types in order. Each resource type goes
// through scan → detect → resolve sequentially; a scan failure skips that
// resource type and the run continues. Run returns an error only when every
// requested resource type failed; anything else is partial or full success,
// with per-type failures enumerated in the report.
func (r *Reconciler) Run(ctx context.Context, resourceTypes ...stores.ResourceType) (*Report, error) {
	if len(resourceTypes) == 0 {
		return nil, errors.NewValidationError("resourceTypes", nil, "at least one resource type is required")
	}

	report := newReport(r.strategy.Name(), r.dryRun, r.logTail)
	defer report.finish()

	g := newGuard(r.backup && !r.dryRun, r.backupDir)
	defer g.report(report)

	log := logging.Ctx(ctx)
	log.Info().
		Str("store_a", r.a.ID()).
		Str("store_b", r.b.ID()).
		Str("strategy", r.strategy.Name()).
		Bool("dry_run", r.dryRun).
		Int("resource_types", len(resourceTypes)).
		Msg("Starting reconciliation")

	for _, resourceType := range resourceTypes {
		r.runResourceType(logging.WithResourceType(ctx, resourceType.String()), g, report, resourceType)
	}

	if report.AllFailed() {
		return report, errors.NewStoreUnavailableError(
			fmt.Sprintf("%s+%s", r.a.ID(), r.b.ID()), "",
			fmt.Errorf("all %d resource types failed", len(resourceTypes)))
	}
	return report, nil
}

// runResourceType executes the three phases for one resource type.
func (r *Reconciler) runResourceType(ctx context.Context, g *guard, report *Report, resourceType stores.ResourceType) {
	log := logging.Ctx(ctx)

	s, err := scanStores(ctx, r.a, r.b, resourceType)
	if err != nil {
		log.Error().Err(err).Msg("Scan failed")
		report.failType(resourceType, err)
		return
	}

	conflicts := detectConflicts(s)

	tr := report.typeReport(resourceType)
	tr.Common = len(s.partition.Common)
	tr.OnlyA = len(s.partition.OnlyA)
	tr.OnlyB = len(s.partition.OnlyB)
	tr.Conflicts = len(conflicts)

	log.Info().
		Int("common", tr.Common).
		Int("only_a", tr.OnlyA).
		Int("only_b", tr.OnlyB).
		Int("conflicts", tr.Conflicts).
		Msg("Scan complete")

	// Phase 3a: resolve conflicting common keys per strategy.
	for _, conflict := range conflicts {
		resolution := r.strategy.Resolve(conflict)
		target := r.store(resolution.Target)

		if r.dryRun {
			report.Stats.Skipped++
			report.logf("Would update %s/%s in %s (%s)", resourceType, conflict.Key, target.ID(), resolution.Reason)
			continue
		}

		g.before(ctx, target)
		if err := target.Apply(ctx, resourceType, resolution.Winner); err != nil {
			report.recordError(errors.WrapApply(target.ID(), resourceType.String(), conflict.Key.String(), err))
			continue
		}
		report.Stats.Updated++
		report.logf("Updated %s/%s in %s (%s)", resourceType, conflict.Key, target.ID(), resolution.Reason)
		log.Debug().
			Str("key", conflict.Key.String()).
			Strs("fields_changed", conflict.FieldsChanged).
			Str("reason", resolution.Reason).
			Msg("Conflict resolved")
	}

	// Phase 3b: propagation is unconditional under every strategy.
	r.propagate(ctx, g, report, resourceType, s.partition.OnlyA, s.a, r.b)
	r.propagate(ctx, g, report, resourceType, s.partition.OnlyB, s.b, r.a)
}

// propagate creates each exclusive record of one side in the other side's
// store. A failed apply is counted and logged, never fatal.
func (r *Reconciler) propagate(ctx context.Context, g *guard, report *Report,
	resourceType stores.ResourceType, keys []record.Key,
	from map[record.Key]record.Record, target stores.Store) {

	for _, key := range keys {
		if r.dryRun {
			report.Stats.Skipped++
			report.logf("Would create %s/%s in %s", resourceType, key, target.ID())
			continue
		}

		g.before(ctx, target)
		if err := target.Apply(ctx, resourceType, from[key]); err != nil {
			report.recordError(errors.WrapApply(target.ID(), resourceType.String(), key.String(), err))
			continue
		}
		report.Stats.Created++
		report.logf("Created %s/%s in %s", resourceType, key, target.ID())
	}
}

// store maps a side to its store.
func (r *Reconciler) store(side Side) stores.Store {
	if side == SideA {
		return r.a
	}
	return r.b
}
