package reconcile

// Option is a function that configures a Reconciler
type Option func(*Reconciler) error

// WithStrategy sets the conflict resolution strategy by name
// (a_wins, b_wins, or latest_wins).
func WithStrategy(name string) Option {
	return func(r *Reconciler) error {
		strategy, err := ParseStrategy(name, r.primary)
		if err != nil {
			return err
		}
		r.strategy = strategy
		return nil
	}
}

// WithPrimarySide sets the side favored by latest_wins when modification
// timestamps tie. The default is side A.
func WithPrimarySide(side Side) Option {
	return func(r *Reconciler) error {
		r.primary = side
		// Rebuild latest_wins if it was already configured, so option
		// ordering doesn't matter.
		if r.strategy != nil && r.strategy.Name() == StrategyLatestWins {
			strategy, err := ParseStrategy(StrategyLatestWins, side)
			if err != nil {
				return err
			}
			r.strategy = strategy
		}
		return nil
	}
}

// WithDryRun computes partitions and conflicts without issuing any Apply
// calls; suppressed writes are counted as skipped.
func WithDryRun(enabled bool) Option {
	return func(r *Reconciler) error {
		r.dryRun = enabled
		return nil
	}
}

// WithBackup enables the safety guard: each target store that supports
// snapshots is copied to a recovery location before its first mutation.
func WithBackup(enabled bool) Option {
	return func(r *Reconciler) error {
		r.backup = enabled
		return nil
	}
}

// WithBackupDir sets where safety guard snapshots are written. Empty means
// a fresh temporary directory.
func WithBackupDir(dir string) Option {
	return func(r *Reconciler) error {
		r.backupDir = dir
		return nil
	}
}

// WithLogTail caps how many recent log entries the report keeps.
func WithLogTail(n int) Option {
	return func(r *Reconciler) error {
		r.logTail = n
		return nil
	}
}
