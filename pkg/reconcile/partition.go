// Package reconcile implements the intersection/conflict/resolution protocol
// that converges two stores holding the same logical entities.
//
// A run proceeds in three sequential phases per resource type: scan (compute
// the key partition between the two sides), detect (find common keys whose
// fingerprints disagree), and resolve (apply the configured strategy to
// conflicts, then unconditionally propagate each side's exclusive records to
// the other). Every structure here is ephemeral and recomputed fresh from
// the adapters' current state on each run, which makes re-invocation the
// retry mechanism: an error-free run followed by an unchanged re-run yields
// zero conflicts and zero propagations.
package reconcile

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/driftsync/pkg/record"
	"github.com/agentstation/driftsync/pkg/stores"
)

// Side identifies one of the two stores being reconciled.
type Side string

const (
	// SideA is the first store handed to the engine.
	SideA Side = "a"
	// SideB is the second store handed to the engine.
	SideB Side = "b"
)

// String returns the string representation of a side.
func (s Side) String() string {
	return string(s)
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Partition is the three-way split of keys between the two sides.
// The three sets are pairwise disjoint and their union equals the union of
// both sides' key sets; each slice is sorted for run-to-run determinism.
type Partition struct {
	OnlyA  []record.Key
	OnlyB  []record.Key
	Common []record.Key
}

// NewPartition computes the partition of two keyed record sets in O(n+m).
func NewPartition(a, b map[record.Key]record.Record) Partition {
	var p Partition
	for key := range a {
		if _, ok := b[key]; ok {
			p.Common = append(p.Common, key)
		} else {
			p.OnlyA = append(p.OnlyA, key)
		}
	}
	for key := range b {
		if _, ok := a[key]; !ok {
			p.OnlyB = append(p.OnlyB, key)
		}
	}

	sortKeys(p.OnlyA)
	sortKeys(p.OnlyB)
	sortKeys(p.Common)
	return p
}

// scan holds both sides' records and their partition for one resource type.
type scan struct {
	a         map[record.Key]record.Record
	b         map[record.Key]record.Record
	partition Partition
}

// scanStores enumerates both sides and partitions their keys. The two
// read-only enumerations run concurrently and join before the partition is
// computed. If either fails, the whole scan fails; reconciliation on a
// partial view is disallowed.
func scanStores(ctx context.Context, a, b stores.Store, resourceType stores.ResourceType) (*scan, error) {
	var (
		wg           sync.WaitGroup
		recsA, recsB map[record.Key]record.Record
		errA, errB   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		recsA, errA = a.Enumerate(ctx, resourceType)
	}()
	go func() {
		defer wg.Done()
		recsB, errB = b.Enumerate(ctx, resourceType)
	}()
	wg.Wait()

	if errA != nil {
		return nil, errA
	}
	if errB != nil {
		return nil, errB
	}

	return &scan{
		a:         recsA,
		b:         recsB,
		partition: NewPartition(recsA, recsB),
	}, nil
}

func sortKeys(keys []record.Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
