package reconcile

import (
	"fmt"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/record"
)

// Strategy names accepted by ParseStrategy.
const (
	StrategyAWins      = "a_wins"
	StrategyBWins      = "b_wins"
	StrategyLatestWins = "latest_wins"
)

// Resolution is a strategy's verdict on one conflict: which record wins and
// which side gets overwritten with it.
type Resolution struct {
	// Winner is the record to write.
	Winner record.Record

	// Target is the side whose store receives the winner.
	Target Side

	// Reason is a human-readable explanation for the report log.
	Reason string
}

// Strategy decides how conflicting common keys are resolved. Strategies
// govern conflicts only; propagation of exclusive records is unconditional
// under every strategy.
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Resolve determines the winning record for a conflict
	Resolve(conflict Conflict) Resolution
}

// ParseStrategy returns the strategy for a configured name. The primary
// side is used by latest_wins as its deterministic tie-break.
func ParseStrategy(name string, primary Side) (Strategy, error) {
	switch name {
	case StrategyAWins:
		return &sideWinsStrategy{name: StrategyAWins, winner: SideA}, nil
	case StrategyBWins:
		return &sideWinsStrategy{name: StrategyBWins, winner: SideB}, nil
	case StrategyLatestWins:
		if primary != SideA && primary != SideB {
			primary = SideA
		}
		return &latestWinsStrategy{primary: primary}, nil
	default:
		return nil, errors.NewValidationError("strategy", name,
			fmt.Sprintf("unknown strategy %q (want %s, %s, or %s)",
				name, StrategyAWins, StrategyBWins, StrategyLatestWins))
	}
}

// sideWinsStrategy always takes one configured side's record.
type sideWinsStrategy struct {
	name   string
	winner Side
}

// Name returns the strategy name
func (s *sideWinsStrategy) Name() string {
	return s.name
}

// Resolve overwrites the losing side with the winning side's record.
func (s *sideWinsStrategy) Resolve(conflict Conflict) Resolution {
	if s.winner == SideA {
		return Resolution{
			Winner: conflict.A,
			Target: SideB,
			Reason: "side A wins",
		}
	}
	return Resolution{
		Winner: conflict.B,
		Target: SideA,
		Reason: "side B wins",
	}
}

// latestWinsStrategy takes the record with the strictly greater modification
// timestamp. Equal timestamps, including two absent timestamps which both
// read as epoch 0, resolve to the configured primary side, never to
// incidental iteration order.
type latestWinsStrategy struct {
	primary Side
}

// Name returns the strategy name
func (s *latestWinsStrategy) Name() string {
	return StrategyLatestWins
}

// Resolve compares modification timestamps and falls back to the primary
// side on a tie.
func (s *latestWinsStrategy) Resolve(conflict Conflict) Resolution {
	switch {
	case conflict.A.Modified.After(conflict.B.Modified):
		return Resolution{Winner: conflict.A, Target: SideB, Reason: "side A newer"}
	case conflict.B.Modified.After(conflict.A.Modified):
		return Resolution{Winner: conflict.B, Target: SideA, Reason: "side B newer"}
	case s.primary == SideB:
		return Resolution{Winner: conflict.B, Target: SideA, Reason: "timestamp tie, primary side B wins"}
	default:
		return Resolution{Winner: conflict.A, Target: SideB, Reason: "timestamp tie, primary side A wins"}
	}
}
