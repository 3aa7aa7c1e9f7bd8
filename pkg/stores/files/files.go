// Package files provides a stores.Store backed by a filesystem tree.
//
// Each resource type maps to a subdirectory of the store root ("." for the
// root itself). A record's key is the file's slash-normalized path relative
// to that subdirectory; its payload carries the base64-encoded content and
// size, so the fingerprint changes exactly when the file content does. The
// file's mtime becomes the record's modification timestamp and is preserved
// on Apply.
package files

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/logging"
	"github.com/agentstation/driftsync/pkg/record"
	"github.com/agentstation/driftsync/pkg/stores"
)

// Config describes one filesystem-backed store.
type Config struct {
	// ID identifies the store in logs and reports.
	ID string

	// Root is the tree's root directory.
	Root string

	// Resources maps each resource type to a subdirectory relative to
	// Root. Use "." to scan the root itself.
	Resources map[stores.ResourceType]string
}

// Store is a filesystem implementation of stores.Store.
type Store struct {
	cfg Config
}

// New creates a filesystem store from its configuration.
func New(cfg Config) (*Store, error) {
	if cfg.ID == "" {
		return nil, errors.NewConfigError("files store", "id is required", nil)
	}
	if cfg.Root == "" {
		return nil, errors.NewConfigError("files store", "root directory is required", nil)
	}
	if len(cfg.Resources) == 0 {
		cfg.Resources = map[stores.ResourceType]string{"files": "."}
	}
	return &Store{cfg: cfg}, nil
}

// ID returns the store's identifier.
func (s *Store) ID() string {
	return s.cfg.ID
}

// ResourceTypes returns the resource types with configured subdirectories.
func (s *Store) ResourceTypes() []stores.ResourceType {
	out := make([]stores.ResourceType, 0, len(s.cfg.Resources))
	for resourceType := range s.cfg.Resources {
		out = append(out, resourceType)
	}
	return out
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.cfg.Root
}

// Enumerate walks the resource type's subdirectory recursively and returns
// one record per regular file. Files that vanish or turn unreadable
// mid-walk are dropped with a warning.
func (s *Store) Enumerate(ctx context.Context, resourceType stores.ResourceType) (map[record.Key]record.Record, error) {
	base, err := s.baseDir(resourceType)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(base); err != nil {
		return nil, errors.WrapStore(s.cfg.ID, resourceType.String(), err)
	}

	log := logging.Ctx(ctx)
	out := make(map[record.Key]record.Record)

	err = filepath.WalkDir(base, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}

		rec, err := s.readFile(base, path)
		if err != nil {
			log.Warn().
				Err(err).
				Str("store", s.cfg.ID).
				Str("resource_type", resourceType.String()).
				Str("path", path).
				Msg("Dropping unreadable file")
			return nil
		}
		out[rec.Key] = rec
		return nil
	})
	if err != nil {
		return nil, errors.WrapStore(s.cfg.ID, resourceType.String(), err)
	}
	return out, nil
}

// Apply writes the record's content to its relative path, creating parent
// directories as needed and preserving the record's modification time.
func (s *Store) Apply(ctx context.Context, resourceType stores.ResourceType, rec record.Record) error {
	base, err := s.baseDir(resourceType)
	if err != nil {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(), err)
	}

	rel := filepath.FromSlash(rec.Key.String())
	if !filepath.IsLocal(rel) {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(),
			fmt.Errorf("key escapes the store root"))
	}

	encoded, ok := rec.Payload["content"].(string)
	if !ok {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(),
			fmt.Errorf("payload has no content field"))
	}
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(), err)
	}

	target := filepath.Join(base, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(), err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return errors.WrapApply(s.cfg.ID, resourceType.String(), rec.Key.String(), err)
	}

	if !rec.Modified.IsZero() {
		mtime := rec.Modified.Time
		if err := os.Chtimes(target, mtime, mtime); err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("store", s.cfg.ID).
				Str("path", target).
				Msg("Failed to preserve modification time")
		}
	}
	return nil
}

// Snapshot copies every configured subtree under dir and returns the
// snapshot directory. It implements stores.Snapshotter.
func (s *Store) Snapshot(ctx context.Context, dir string) (string, error) {
	snapDir := filepath.Join(dir, s.cfg.ID+".snapshot")
	for resourceType := range s.cfg.Resources {
		base, err := s.baseDir(resourceType)
		if err != nil {
			return "", err
		}
		records, err := s.Enumerate(ctx, resourceType)
		if err != nil {
			return "", err
		}
		for key := range records {
			src := filepath.Join(base, filepath.FromSlash(key.String()))
			dst := filepath.Join(snapDir, s.cfg.Resources[resourceType], filepath.FromSlash(key.String()))
			if err := copyFile(src, dst); err != nil {
				return "", errors.WrapIO("copy", src, err)
			}
		}
	}
	return snapDir, nil
}

// baseDir resolves the directory backing a resource type.
func (s *Store) baseDir(resourceType stores.ResourceType) (string, error) {
	sub, ok := s.cfg.Resources[resourceType]
	if !ok {
		return "", fmt.Errorf("resource type %s not configured for store %s", resourceType, s.cfg.ID)
	}
	return filepath.Join(s.cfg.Root, sub), nil
}

// readFile turns one file into a record keyed by its relative path.
func (s *Store) readFile(base, path string) (record.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return record.Record{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return record.Record{}, err
	}

	rel, err := filepath.Rel(base, path)
	if err != nil {
		return record.Record{}, err
	}
	key := record.Key(strings.ReplaceAll(filepath.ToSlash(rel), "\\", "/"))

	payload := record.Payload{
		"content": base64.StdEncoding.EncodeToString(content),
		"size":    len(content),
	}
	return record.NewModified(key, payload, utc.New(info.ModTime()))
}

// copyFile copies src to dst, creating parent directories.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return out.Close()
}
