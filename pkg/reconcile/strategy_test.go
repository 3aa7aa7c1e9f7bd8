package reconcile

import (
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/record"
)

func mustRecord(t *testing.T, key string, payload record.Payload) record.Record {
	t.Helper()
	rec, err := record.New(record.Key(key), payload)
	require.NoError(t, err)
	return rec
}

func mustModified(t *testing.T, key string, payload record.Payload, modified time.Time) record.Record {
	t.Helper()
	rec, err := record.NewModified(record.Key(key), payload, utc.New(modified))
	require.NoError(t, err)
	return rec
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: StrategyAWins},
		{name: StrategyBWins},
		{name: StrategyLatestWins},
		{name: "newest_wins", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, err := ParseStrategy(tt.name, SideA)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, strategy.Name())
		})
	}
}

func TestSideWinsStrategies(t *testing.T) {
	conflict := Conflict{
		Key:           "user-1",
		A:             mustRecord(t, "user-1", record.Payload{"age": 30}),
		B:             mustRecord(t, "user-1", record.Payload{"age": 31}),
		FieldsChanged: []string{"age"},
	}

	t.Run("a_wins", func(t *testing.T) {
		strategy, err := ParseStrategy(StrategyAWins, SideA)
		require.NoError(t, err)

		resolution := strategy.Resolve(conflict)
		assert.Equal(t, conflict.A, resolution.Winner)
		assert.Equal(t, SideB, resolution.Target)
	})

	t.Run("b_wins", func(t *testing.T) {
		strategy, err := ParseStrategy(StrategyBWins, SideA)
		require.NoError(t, err)

		resolution := strategy.Resolve(conflict)
		assert.Equal(t, conflict.B, resolution.Winner)
		assert.Equal(t, SideA, resolution.Target)
	})
}

func TestLatestWinsStrategy(t *testing.T) {
	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	strategy, err := ParseStrategy(StrategyLatestWins, SideA)
	require.NoError(t, err)

	t.Run("newer side a wins", func(t *testing.T) {
		conflict := Conflict{
			Key: "user-1",
			A:   mustModified(t, "user-1", record.Payload{"age": 30}, newer),
			B:   mustModified(t, "user-1", record.Payload{"age": 31}, older),
		}
		resolution := strategy.Resolve(conflict)
		assert.Equal(t, conflict.A, resolution.Winner)
		assert.Equal(t, SideB, resolution.Target)
	})

	t.Run("newer side b wins", func(t *testing.T) {
		conflict := Conflict{
			Key: "user-1",
			A:   mustModified(t, "user-1", record.Payload{"age": 30}, older),
			B:   mustModified(t, "user-1", record.Payload{"age": 31}, newer),
		}
		resolution := strategy.Resolve(conflict)
		assert.Equal(t, conflict.B, resolution.Winner)
		assert.Equal(t, SideA, resolution.Target)
	})

	t.Run("tie falls back to primary side", func(t *testing.T) {
		conflict := Conflict{
			Key: "user-1",
			A:   mustModified(t, "user-1", record.Payload{"age": 30}, newer),
			B:   mustModified(t, "user-1", record.Payload{"age": 31}, newer),
		}

		resolution := strategy.Resolve(conflict)
		assert.Equal(t, conflict.A, resolution.Winner)
		assert.Equal(t, SideB, resolution.Target)

		// Same tie, primary flipped to B.
		flipped, err := ParseStrategy(StrategyLatestWins, SideB)
		require.NoError(t, err)
		resolution = flipped.Resolve(conflict)
		assert.Equal(t, conflict.B, resolution.Winner)
		assert.Equal(t, SideA, resolution.Target)
	})

	t.Run("missing timestamps are deterministic", func(t *testing.T) {
		conflict := Conflict{
			Key: "user-1",
			A:   mustRecord(t, "user-1", record.Payload{"age": 30}),
			B:   mustRecord(t, "user-1", record.Payload{"age": 31}),
		}

		// Both sides carry the zero timestamp, so the primary side wins,
		// every time.
		for i := 0; i < 5; i++ {
			resolution := strategy.Resolve(conflict)
			assert.Equal(t, conflict.A, resolution.Winner)
			assert.Equal(t, SideB, resolution.Target)
		}
	})

	t.Run("timestamped side beats missing timestamp", func(t *testing.T) {
		conflict := Conflict{
			Key: "user-1",
			A:   mustRecord(t, "user-1", record.Payload{"age": 30}),
			B:   mustModified(t, "user-1", record.Payload{"age": 31}, older),
		}
		resolution := strategy.Resolve(conflict)
		assert.Equal(t, conflict.B, resolution.Winner)
		assert.Equal(t, SideA, resolution.Target)
	})
}
