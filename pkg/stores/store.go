// Package stores defines the adapter contract for the backing stores that
// driftsync reconciles, along with shared types used by every adapter.
//
// A Store enumerates the records of a resource type and applies (creates or
// overwrites) records into it. Implementations live in the subpackages:
// memory (in-process), files (filesystem trees), sqlite (relational tables),
// and api (REST endpoints).
package stores

import (
	"context"
	"slices"

	"github.com/agentstation/driftsync/pkg/record"
)

// ResourceType identifies a collection of records a store manages, such as
// "users" or "orders". Resource types are adapter-declared identifiers known
// in advance.
type ResourceType string

// String returns the string representation of a resource type.
func (rt ResourceType) String() string {
	return string(rt)
}

// Store is a backend-specific adapter for one backing store.
//
// Enumerate returns every record of a resource type keyed by identity. It
// fails with errors.ErrStoreUnavailable on connectivity or permission
// failure; that failure is fatal for the resource type being scanned but
// must not affect other resource types. Records missing their identity key
// or payload are dropped with a warning and never abort the enumeration.
//
// Apply creates the record if its key is absent in the store, otherwise it
// overwrites the existing record. The effect must be visible on the next
// Enumerate call; adapters must not cache enumeration results across calls.
type Store interface {
	// ID returns the store's identifier, used in logs and reports.
	ID() string

	// ResourceTypes returns the resource types this store declares.
	ResourceTypes() []ResourceType

	// Enumerate returns all records of a resource type keyed by identity.
	Enumerate(ctx context.Context, resourceType ResourceType) (map[record.Key]record.Record, error)

	// Apply creates or overwrites a record in the store.
	Apply(ctx context.Context, resourceType ResourceType, rec record.Record) error
}

// Snapshotter is implemented by stores that can copy their full current
// state to a recovery location before being mutated. The snapshot is
// advisory: it enables manual operator recovery and provides no automatic
// rollback.
type Snapshotter interface {
	// Snapshot copies the store's current state under dir and returns the
	// path of the snapshot taken.
	Snapshot(ctx context.Context, dir string) (string, error)
}

// HasResourceType reports whether a store declares the given resource type.
func HasResourceType(s Store, resourceType ResourceType) bool {
	return slices.Contains(s.ResourceTypes(), resourceType)
}
