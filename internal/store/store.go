package store

import (
	"context"
	"time"

	"ucpllm/internal/document"
	"ucpllm/internal/logging"
	"ucpllm/internal/schema"
)

// Store saves documents to files and, when a history is attached, records
// a snapshot of each save.
type Store struct {
	Files   *FileStore
	History *SnapshotStore
	Keep    int

	cat *schema.Catalog
}

// New returns a Store. history may be nil.
func New(cat *schema.Catalog, files *FileStore, history *SnapshotStore) *Store {
	return &Store{Files: files, History: history, cat: cat}
}

// Save writes doc to path, or to the file named after the preferred name
// when path is empty, and returns the path used.
func (s *Store) Save(ctx context.Context, doc *document.Document, path string) (string, error) {
	name := doc.Value(s.cat.Bindings.PreferredName.Section, 0, s.cat.Bindings.PreferredName.Field)
	if path == "" {
		path = s.Files.PathFor(name)
	}
	if err := s.Files.Write(path, doc); err != nil {
		return "", err
	}
	if s.History == nil {
		return path, nil
	}

	body, err := doc.Marshal()
	if err != nil {
		return path, err
	}
	if _, err := s.History.Record(ctx, Snapshot{
		Path:          path,
		PreferredName: name,
		SavedAt:       s.Files.now(),
		Body:          body,
	}); err != nil {
		// The file is already written; a missing history entry is not fatal.
		logging.StoreError("snapshot of %s not recorded: %v", path, err)
		return path, nil
	}
	if s.Keep > 0 {
		if _, err := s.History.Prune(ctx, path, s.Keep); err != nil {
			logging.StoreError("prune %s: %v", path, err)
		}
	}
	return path, nil
}

// Load reads and validates the document at path.
func (s *Store) Load(path string) (*document.Document, error) {
	return s.Files.Read(path, s.cat)
}

// Restore writes a snapshot back to its path and returns the document.
func (s *Store) Restore(ctx context.Context, id string) (*document.Document, string, error) {
	if s.History == nil {
		return nil, "", ErrSnapshotNotFound
	}
	snap, err := s.History.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	doc, err := snap.Document()
	if err != nil {
		return nil, "", err
	}
	if err := doc.Validate(s.cat); err != nil {
		return nil, "", err
	}
	if err := writeAtomic(snap.Path, append([]byte(nil), snap.Body...)); err != nil {
		return nil, "", err
	}
	logging.Store("restored snapshot %s to %s at %s", id, snap.Path, time.Now().Format(time.RFC3339))
	return doc, snap.Path, nil
}
