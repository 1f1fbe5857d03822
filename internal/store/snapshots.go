package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ucpllm/internal/document"
	"ucpllm/internal/logging"
)

// ErrSnapshotNotFound is returned by Get for an unknown id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// savedAtLayout sorts lexically in time order.
const savedAtLayout = "2006-01-02T15:04:05.000000000Z"

// Snapshot is one saved copy of a document.
type Snapshot struct {
	ID            string
	Path          string
	PreferredName string
	SavedAt       time.Time
	Body          []byte
}

// Document parses the snapshot body.
func (s Snapshot) Document() (*document.Document, error) {
	return document.Parse(s.Body)
}

// SnapshotStore keeps the save history in SQLite.
type SnapshotStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewSnapshotStore opens or creates the history database at path.
// ":memory:" gives a private in-memory store.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := &SnapshotStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("snapshot store ready at %s", path)
	return s, nil
}

func (s *SnapshotStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		preferred_name TEXT,
		saved_at TEXT NOT NULL,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_path ON snapshots(path);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Record stores snap and returns its id. A missing id is generated.
func (s *SnapshotStore) Record(ctx context.Context, snap Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO snapshots (id, path, preferred_name, saved_at, body) VALUES (?, ?, ?, ?, ?)",
		snap.ID, snap.Path, snap.PreferredName, snap.SavedAt.UTC().Format(savedAtLayout), string(snap.Body),
	)
	if err != nil {
		logging.StoreError("failed to record snapshot of %s: %v", snap.Path, err)
		return "", err
	}
	logging.StoreDebug("snapshot %s recorded for %s", snap.ID, snap.Path)
	return snap.ID, nil
}

// List returns the newest snapshots first. A limit <= 0 means 50.
// Bodies are not loaded; use Get for that.
func (s *SnapshotStore) List(ctx context.Context, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, preferred_name, saved_at
		 FROM snapshots
		 ORDER BY saved_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var name sql.NullString
		var savedAt string
		if err := rows.Scan(&snap.ID, &snap.Path, &name, &savedAt); err != nil {
			return nil, err
		}
		snap.PreferredName = name.String
		snap.SavedAt, _ = time.Parse(savedAtLayout, savedAt)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Get returns one snapshot with its body.
func (s *SnapshotStore) Get(ctx context.Context, id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap Snapshot
	var name sql.NullString
	var savedAt, body string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, path, preferred_name, saved_at, body FROM snapshots WHERE id = ?", id,
	).Scan(&snap.ID, &snap.Path, &name, &savedAt, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return Snapshot{}, err
	}
	snap.PreferredName = name.String
	snap.SavedAt, _ = time.Parse(savedAtLayout, savedAt)
	snap.Body = []byte(body)
	return snap, nil
}

// Prune keeps the newest keep snapshots of path and deletes the rest.
func (s *SnapshotStore) Prune(ctx context.Context, path string, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE path = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE path = ? ORDER BY saved_at DESC, rowid DESC LIMIT ?
		)`,
		path, path, keep,
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Store("pruned %d snapshots of %s", n, path)
	}
	return n, nil
}
