package reconcile

import (
	"github.com/agentstation/driftsync/pkg/record"
)

// Conflict is a common key whose two sides' fingerprints differ.
// FieldsChanged is never empty: differing fingerprints imply at least one
// differing payload field, and a field present on one side only counts as
// changed.
type Conflict struct {
	Key           record.Key
	A             record.Record
	B             record.Record
	FieldsChanged []string
}

// detectConflicts compares fingerprints for every common key and extracts
// the changed fields on mismatch. Results follow the partition's sorted
// common-key order, keeping reports reproducible across runs.
func detectConflicts(s *scan) []Conflict {
	var conflicts []Conflict
	for _, key := range s.partition.Common {
		recA := s.a[key]
		recB := s.b[key]
		if recA.Equal(recB) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Key:           key,
			A:             recA,
			B:             recB,
			FieldsChanged: recA.ChangedFields(recB),
		})
	}
	return conflicts
}
