// Package sqlite provides a stores.Store backed by relational tables with a
// fixed, configurable schema: one table per resource type, a key column for
// record identity, value columns forming the payload, and an optional
// modified column for latest-wins tie-breaking.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentstation/utc"
	_ "modernc.org/sqlite" // database/sql driver

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/logging"
	"github.com/agentstation/driftsync/pkg/record"
	"github.com/agentstation/driftsync/pkg/stores"
)

// modifiedLayouts are tried in order when parsing a modified column value.
var modifiedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TableSchema describes how one resource type maps onto a table.
type TableSchema struct {
	// Table is the table name.
	Table string

	// KeyColumn carries the record identity.
	KeyColumn string

	// Columns are the payload columns, key column excluded.
	Columns []string

	// ModifiedColumn, when set, is parsed as the record's modification
	// timestamp. It must also appear in Columns to be part of the payload.
	ModifiedColumn string
}

// Config describes one relational store.
type Config struct {
	// ID identifies the store in logs and reports.
	ID string

	// DSN is the connection string, e.g. a sqlite file path.
	DSN string

	// Tables maps each resource type to its table schema.
	Tables map[stores.ResourceType]TableSchema
}

// Store is a relational implementation of stores.Store.
type Store struct {
	cfg Config
	db  *sql.DB
}

// New opens the database and returns a relational store.
func New(cfg Config) (*Store, error) {
	if cfg.ID == "" {
		return nil, errors.NewConfigError("sqlite store", "id is required", nil)
	}
	if cfg.DSN == "" {
		return nil, errors.NewConfigError("sqlite store", "connection string is required", nil)
	}
	if len(cfg.Tables) == 0 {
		return nil, errors.NewConfigError("sqlite store", "at least one table schema is required", nil)
	}
	for resourceType, schema := range cfg.Tables {
		if schema.Table == "" || schema.KeyColumn == "" || len(schema.Columns) == 0 {
			return nil, errors.NewConfigError("sqlite store",
				fmt.Sprintf("incomplete table schema for resource type %s", resourceType), nil)
		}
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, errors.NewConfigError("sqlite store", "opening database", err)
	}

	return &Store{cfg: cfg, db: db}, nil
}

// ID returns the store's identifier.
func (s *Store) ID() string {
	return s.cfg.ID
}

// ResourceTypes returns the resource types with configured table schemas.
func (s *Store) ResourceTypes() []stores.ResourceType {
	out := make([]stores.ResourceType, 0, len(s.cfg.Tables))
	for resourceType := range s.cfg.Tables {
		out = append(out, resourceType)
	}
	return out
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for test seeding.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Enumerate selects every row of the resource type's table and keys it by
// the key column. Rows with a NULL or empty key are dropped with a warning.
func (s *Store) Enumerate(ctx context.Context, resourceType stores.ResourceType) (map[record.Key]record.Record, error) {
	schema, ok := s.cfg.Tables[resourceType]
	if !ok {
		return nil, fmt.Errorf("resource type %s not configured for store %s", resourceType, s.cfg.ID)
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s",
		schema.KeyColumn, strings.Join(schema.Columns, ", "), schema.Table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.WrapStore(s.cfg.ID, resourceType.String(), err)
	}
	defer rows.Close() //nolint:errcheck

	log := logging.Ctx(ctx)
	out := make(map[record.Key]record.Record)

	for rows.Next() {
		values := make([]any, len(schema.Columns)+1)
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.WrapStore(s.cfg.ID, resourceType.String(), err)
		}

		key := columnString(values[0])
		if key == "" {
			log.Warn().
				Str("store", s.cfg.ID).
				Str("resource_type", resourceType.String()).
				Str("table", schema.Table).
				Msg("Dropping row without identity key")
			continue
		}

		payload := make(record.Payload, len(schema.Columns))
		for i, column := range schema.Columns {
			payload[column] = columnValue(values[i+1])
		}

		rec, err := record.NewModified(record.Key(key), payload, modifiedAt(payload, schema.ModifiedColumn))
		if err != nil {
			log.Warn().
				Err(err).
				Str("store", s.cfg.ID).
				Str("resource_type", resourceType.String()).
				Str("key", key).
				Msg("Dropping malformed row")
			continue
		}
		out[rec.Key] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore(s.cfg.ID, resourceType.String(), err)
	}
	return out, nil
}

// Apply upserts one record into the resource type's table. Payload fields
// without a matching column are ignored; columns missing from the payload
// are written as NULL.
func (s *Store) Apply(ctx context.Context, resourceType stores.ResourceType, rec record.Record) error {
	schema, ok := s.cfg.Tables[resourceType]
	if !ok {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(),
			fmt.Errorf("resource type not configured"))
	}

	columns := append([]string{schema.KeyColumn}, schema.Columns...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		schema.Table, strings.Join(columns, ", "), placeholders)

	args := make([]any, 0, len(columns))
	args = append(args, rec.Key.String())
	for _, column := range schema.Columns {
		args = append(args, rec.Payload[column])
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(), err)
	}
	return nil
}

// Snapshot copies the full database to a file under dir using VACUUM INTO
// and returns its path. It implements stores.Snapshotter.
func (s *Store) Snapshot(ctx context.Context, dir string) (string, error) {
	path := filepath.Join(dir, s.cfg.ID+".snapshot.db")
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", errors.WrapIO("write", path, err)
	}
	return path, nil
}

// columnString renders a scanned column value as a key string.
func columnString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// columnValue converts driver-native values into payload values.
func columnValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}

// modifiedAt parses the modified column's value. Absent or unparsable
// values yield the zero time, which latest-wins treats as epoch 0.
func modifiedAt(payload record.Payload, column string) utc.Time {
	if column == "" {
		return utc.Time{}
	}
	raw, ok := payload[column].(string)
	if !ok {
		return utc.Time{}
	}
	for _, layout := range modifiedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return utc.New(t)
		}
	}
	return utc.Time{}
}
