// Package memory provides an in-memory store, used as the reference
// implementation of the stores.Store contract and as a fixture backend in
// tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/record"
	"github.com/agentstation/driftsync/pkg/stores"
)

// Option is a function that configures a memory store
type Option func(*config) error

// WithReadOnly configures the store to reject Apply calls
func WithReadOnly(readOnly bool) Option {
	return func(cfg *config) error {
		cfg.readOnly = readOnly
		return nil
	}
}

// WithResourceTypes declares the resource types the store manages
func WithResourceTypes(resourceTypes ...stores.ResourceType) Option {
	return func(cfg *config) error {
		if len(resourceTypes) == 0 {
			return fmt.Errorf("at least one resource type is required")
		}
		cfg.resourceTypes = resourceTypes
		return nil
	}
}

// config is the configuration for a memory store
type config struct {
	readOnly      bool
	resourceTypes []stores.ResourceType
}

// Store is a mutex-guarded in-memory implementation of stores.Store.
type Store struct {
	mu            sync.RWMutex
	id            string
	readOnly      bool
	resourceTypes []stores.ResourceType
	data          map[stores.ResourceType]map[record.Key]record.Record
}

// New creates an in-memory store with the given identifier.
func New(id string, opts ...Option) (*Store, error) {
	cfg := &config{
		resourceTypes: []stores.ResourceType{},
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying memory option: %w", err)
		}
	}

	return &Store{
		id:            id,
		readOnly:      cfg.readOnly,
		resourceTypes: cfg.resourceTypes,
		data:          make(map[stores.ResourceType]map[record.Key]record.Record),
	}, nil
}

// ID returns the store's identifier.
func (s *Store) ID() string {
	return s.id
}

// ResourceTypes returns the resource types this store declares.
func (s *Store) ResourceTypes() []stores.ResourceType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]stores.ResourceType, len(s.resourceTypes))
	copy(out, s.resourceTypes)
	return out
}

// Enumerate returns a copy of all records of a resource type.
func (s *Store) Enumerate(_ context.Context, resourceType stores.ResourceType) (map[record.Key]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[record.Key]record.Record, len(s.data[resourceType]))
	for key, rec := range s.data[resourceType] {
		out[key] = rec
	}
	return out, nil
}

// Apply creates or overwrites a record.
func (s *Store) Apply(_ context.Context, resourceType stores.ResourceType, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return errors.WrapApply(s.id, resourceType.String(), rec.Key.String(), errors.ErrReadOnly)
	}

	if s.data[resourceType] == nil {
		s.data[resourceType] = make(map[record.Key]record.Record)
		s.resourceTypes = appendResourceType(s.resourceTypes, resourceType)
	}
	s.data[resourceType][rec.Key] = rec
	return nil
}

// Seed loads records into the store, declaring the resource type as needed.
// It is intended for test fixtures and initial population.
func (s *Store) Seed(resourceType stores.ResourceType, recs ...record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data[resourceType] == nil {
		s.data[resourceType] = make(map[record.Key]record.Record)
		s.resourceTypes = appendResourceType(s.resourceTypes, resourceType)
	}
	for _, rec := range recs {
		s.data[resourceType][rec.Key] = rec
	}
}

// Snapshot writes the store's full state to a YAML file under dir and
// returns the file's path. It implements stores.Snapshotter.
func (s *Store) Snapshot(_ context.Context, dir string) (string, error) {
	s.mu.RLock()
	dump := make(map[string][]record.Record, len(s.data))
	for resourceType, recs := range s.data {
		list := make([]record.Record, 0, len(recs))
		for _, rec := range recs {
			list = append(list, rec)
		}
		dump[resourceType.String()] = list
	}
	s.mu.RUnlock()

	data, err := yaml.Marshal(dump)
	if err != nil {
		return "", errors.WrapParse("yaml", s.id, err)
	}

	path := filepath.Join(dir, s.id+".snapshot.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.WrapIO("write", path, err)
	}
	return path, nil
}

// Len returns the number of records stored for a resource type.
func (s *Store) Len(resourceType stores.ResourceType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[resourceType])
}

func appendResourceType(list []stores.ResourceType, resourceType stores.ResourceType) []stores.ResourceType {
	for _, rt := range list {
		if rt == resourceType {
			return list
		}
	}
	return append(list, resourceType)
}
