// Package record defines the keyed payload type that flows between stores
// during reconciliation, along with its derived content fingerprint.
//
// A Record is ephemeral: it is recomputed from the adapters' current state on
// every run and carries no cross-run identity. Two records with equal
// payloads under canonical serialization always share the same fingerprint,
// regardless of the field order the backing store returned them in.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/agentstation/utc"

	"github.com/agentstation/driftsync/pkg/errors"
)

// Key uniquely identifies a record within one resource type and store.
type Key string

// String returns the string representation of a key.
func (k Key) String() string {
	return string(k)
}

// Payload is the field→value mapping of a record. Values are normalized
// through a JSON round-trip so that payloads fetched via different adapters
// (HTTP JSON, SQL rows, file metadata) compare equal field by field.
type Payload map[string]any

// Fields returns the payload's field names in sorted order.
func (p Payload) Fields() []string {
	fields := make([]string, 0, len(p))
	for field := range p {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Record is a keyed payload plus a derived content fingerprint and an
// optional modification timestamp. The zero Modified value is treated as
// epoch 0 and is used only for latest-wins tie-breaking.
type Record struct {
	Key         Key      `json:"key" yaml:"key"`
	Payload     Payload  `json:"payload" yaml:"payload"`
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
	Modified    utc.Time `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// New constructs a Record from a key and payload, normalizing the payload
// and deriving its fingerprint. It returns ErrMalformedRecord when the key
// or payload is missing.
func New(key Key, payload Payload) (Record, error) {
	if key == "" {
		return Record{}, errors.NewMalformedRecordError("", "", "", "missing identity key")
	}
	if payload == nil {
		return Record{}, errors.NewMalformedRecordError("", "", key.String(), "missing payload")
	}

	normalized, err := normalize(payload)
	if err != nil {
		return Record{}, errors.NewMalformedRecordError("", "", key.String(), err.Error())
	}

	return Record{
		Key:         key,
		Payload:     normalized,
		Fingerprint: fingerprint(normalized),
	}, nil
}

// NewModified constructs a Record like New and stamps its modification time.
func NewModified(key Key, payload Payload, modified utc.Time) (Record, error) {
	r, err := New(key, payload)
	if err != nil {
		return Record{}, err
	}
	r.Modified = modified
	return r, nil
}

// Equal reports whether two records carry the same content. Equality is
// determined by fingerprint alone; modification timestamps do not matter.
func (r Record) Equal(other Record) bool {
	return r.Fingerprint == other.Fingerprint
}

// ChangedFields returns the sorted list of fields whose values differ
// between the two records' payloads. A field present on one side and absent
// on the other counts as changed.
func (r Record) ChangedFields(other Record) []string {
	seen := make(map[string]struct{}, len(r.Payload)+len(other.Payload))
	var changed []string

	for field, value := range r.Payload {
		seen[field] = struct{}{}
		otherValue, ok := other.Payload[field]
		if !ok || !valueEqual(value, otherValue) {
			changed = append(changed, field)
		}
	}
	for field := range other.Payload {
		if _, ok := seen[field]; !ok {
			changed = append(changed, field)
		}
	}

	sort.Strings(changed)
	return changed
}

// normalize round-trips a payload through JSON so values take their
// canonical decoded forms (numbers as float64, nested maps as
// map[string]any).
func normalize(payload Payload) (Payload, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var normalized Payload
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// fingerprint derives the content hash of a normalized payload.
// encoding/json marshals map keys in sorted order, which makes the
// serialization canonical and the hash independent of field ordering.
func fingerprint(payload Payload) string {
	data, err := json.Marshal(payload)
	if err != nil {
		// A payload that survived normalize always marshals; this path
		// exists only to satisfy the signature.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// valueEqual compares two normalized payload values by their canonical
// JSON serialization.
func valueEqual(a, b any) bool {
	da, errA := json.Marshal(a)
	db, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(da) == string(db)
}
