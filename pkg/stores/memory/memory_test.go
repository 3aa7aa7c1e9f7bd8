package memory_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/record"
	"github.com/agentstation/driftsync/pkg/stores"
	"github.com/agentstation/driftsync/pkg/stores/memory"
)

func mustRecord(t *testing.T, key record.Key, payload record.Payload) record.Record {
	t.Helper()
	rec, err := record.New(key, payload)
	require.NoError(t, err)
	return rec
}

func TestApplyThenEnumerate(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New("side-a")
	require.NoError(t, err)

	rec := mustRecord(t, "1", record.Payload{"name": "Ion"})
	require.NoError(t, store.Apply(ctx, "users", rec))

	got, err := store.Enumerate(ctx, "users")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.Fingerprint, got["1"].Fingerprint)

	// Apply overwrites on the same key; the effect is visible on the
	// next Enumerate.
	updated := mustRecord(t, "1", record.Payload{"name": "Ion Popescu"})
	require.NoError(t, store.Apply(ctx, "users", updated))

	got, err = store.Enumerate(ctx, "users")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, updated.Fingerprint, got["1"].Fingerprint)
}

func TestEnumerateReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New("side-a")
	require.NoError(t, err)
	store.Seed("users", mustRecord(t, "1", record.Payload{"name": "Ion"}))

	got, err := store.Enumerate(ctx, "users")
	require.NoError(t, err)
	delete(got, "1")

	assert.Equal(t, 1, store.Len("users"))
}

func TestReadOnlyRejectsApply(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New("side-a", memory.WithReadOnly(true))
	require.NoError(t, err)

	err = store.Apply(ctx, "users", mustRecord(t, "1", record.Payload{"x": 1}))
	assert.True(t, errors.IsApplyFailed(err))
}

func TestResourceTypesDeclared(t *testing.T) {
	store, err := memory.New("side-a", memory.WithResourceTypes("users", "orders"))
	require.NoError(t, err)

	assert.Equal(t, []stores.ResourceType{"users", "orders"}, store.ResourceTypes())
	assert.True(t, stores.HasResourceType(store, "users"))
	assert.False(t, stores.HasResourceType(store, "invoices"))
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New("side-b")
	require.NoError(t, err)
	store.Seed("users",
		mustRecord(t, "1", record.Payload{"name": "Ion"}),
		mustRecord(t, "2", record.Payload{"name": "Maria"}),
	)

	dir := t.TempDir()
	path, err := store.Snapshot(ctx, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "users")
	assert.Contains(t, string(data), "Maria")
}
