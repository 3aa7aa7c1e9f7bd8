// Package api provides a stores.Store backed by a REST endpoint per
// resource type. Enumerate fetches a JSON array of objects; Apply writes a
// single object back with a configurable method.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/driftsync/internal/transport"
	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/logging"
	"github.com/agentstation/driftsync/pkg/record"
	"github.com/agentstation/driftsync/pkg/stores"
)

// Config describes how to reach one API-backed store.
type Config struct {
	// ID identifies the store in logs and reports.
	ID string

	// BaseURL is the root of the API, e.g. "https://old.example.com/api".
	BaseURL string

	// Resources maps each resource type to its collection path relative to
	// BaseURL, e.g. "users" -> "/users".
	Resources map[stores.ResourceType]string

	// KeyField is the payload field carrying the record identity.
	// Defaults to "id".
	KeyField string

	// ModifiedFields are checked in order for the record's modification
	// timestamp (RFC 3339). Records without any of them get epoch 0.
	ModifiedFields []string

	// ApplyMethod is the HTTP method used to write a record to the
	// collection path + "/" + key. Defaults to PUT.
	ApplyMethod string

	// AuthScheme selects how the credential is attached: "bearer",
	// "header", or "query". Empty means no authentication.
	AuthScheme string

	// AuthName is the header or query parameter name for the "header" and
	// "query" schemes.
	AuthName string

	// Credential is the secret attached by the auth scheme.
	Credential string

	// Headers are extra headers set on every request.
	Headers map[string]string

	// Timeout bounds each HTTP request. Zero uses the transport default.
	Timeout time.Duration
}

// Store is a REST-backed implementation of stores.Store.
type Store struct {
	cfg    Config
	client *transport.Client
}

// New creates an API store from its configuration.
func New(cfg Config) (*Store, error) {
	if cfg.ID == "" {
		return nil, errors.NewConfigError("api store", "id is required", nil)
	}
	if cfg.BaseURL == "" {
		return nil, errors.NewConfigError("api store", "base URL is required", nil)
	}
	if len(cfg.Resources) == 0 {
		return nil, errors.NewConfigError("api store", "at least one resource path is required", nil)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.NewConfigError("api store", "invalid base URL", err)
	}
	if cfg.KeyField == "" {
		cfg.KeyField = "id"
	}
	if cfg.ApplyMethod == "" {
		cfg.ApplyMethod = http.MethodPut
	}

	auth := transport.ForScheme(cfg.AuthScheme, cfg.AuthName)
	return &Store{
		cfg:    cfg,
		client: transport.New(auth, cfg.Credential, cfg.Timeout, cfg.Headers),
	}, nil
}

// ID returns the store's identifier.
func (s *Store) ID() string {
	return s.cfg.ID
}

// ResourceTypes returns the resource types with configured paths.
func (s *Store) ResourceTypes() []stores.ResourceType {
	out := make([]stores.ResourceType, 0, len(s.cfg.Resources))
	for resourceType := range s.cfg.Resources {
		out = append(out, resourceType)
	}
	return out
}

// Enumerate fetches the resource type's collection and keys it by identity.
// Objects missing the key field are dropped with a warning.
func (s *Store) Enumerate(ctx context.Context, resourceType stores.ResourceType) (map[record.Key]record.Record, error) {
	collectionURL, err := s.collectionURL(resourceType)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, collectionURL)
	if err != nil {
		return nil, errors.WrapStore(s.cfg.ID, resourceType.String(), err)
	}

	var items []map[string]any
	if err := transport.DecodeResponse(resp, s.cfg.ID, &items); err != nil {
		if errors.IsStoreUnavailable(err) {
			return nil, err
		}
		return nil, errors.WrapStore(s.cfg.ID, resourceType.String(), err)
	}

	log := logging.Ctx(ctx)
	out := make(map[record.Key]record.Record, len(items))
	for _, item := range items {
		key, ok := stringField(item, s.cfg.KeyField)
		if !ok || key == "" {
			log.Warn().
				Str("store", s.cfg.ID).
				Str("resource_type", resourceType.String()).
				Msg("Dropping record without identity key")
			continue
		}

		rec, err := record.NewModified(record.Key(key), record.Payload(item), s.modifiedAt(item))
		if err != nil {
			log.Warn().
				Err(err).
				Str("store", s.cfg.ID).
				Str("resource_type", resourceType.String()).
				Str("key", key).
				Msg("Dropping malformed record")
			continue
		}
		out[rec.Key] = rec
	}
	return out, nil
}

// Apply writes one record to the collection path + "/" + key.
func (s *Store) Apply(ctx context.Context, resourceType stores.ResourceType, rec record.Record) error {
	collectionURL, err := s.collectionURL(resourceType)
	if err != nil {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(), err)
	}

	body, err := json.Marshal(rec.Payload)
	if err != nil {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(), err)
	}

	recordURL := collectionURL + "/" + url.PathEscape(rec.Key.String())
	resp, err := s.client.Send(ctx, s.cfg.ApplyMethod, recordURL, body)
	if err != nil {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(), err)
	}
	if err := transport.CheckStatus(resp, s.cfg.ID); err != nil {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(), err)
	}
	return nil
}

// collectionURL joins the base URL with the resource type's configured path.
func (s *Store) collectionURL(resourceType stores.ResourceType) (string, error) {
	path, ok := s.cfg.Resources[resourceType]
	if !ok {
		return "", fmt.Errorf("resource type %s not configured for store %s", resourceType, s.cfg.ID)
	}
	return strings.TrimSuffix(s.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/"), nil
}

// modifiedAt extracts the first parsable RFC 3339 timestamp from the
// configured modified fields. Absent or unparsable timestamps yield the
// zero time, which latest-wins treats as epoch 0.
func (s *Store) modifiedAt(item map[string]any) utc.Time {
	for _, field := range s.cfg.ModifiedFields {
		raw, ok := stringField(item, field)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return utc.New(t)
		}
	}
	return utc.Time{}
}

func stringField(item map[string]any, field string) (string, bool) {
	value, ok := item[field]
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", v), ".0"), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}
