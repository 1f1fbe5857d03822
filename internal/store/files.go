// Package store persists user documents as JSON files and keeps a SQLite
// history of every save.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"ucpllm/internal/document"
	"ucpllm/internal/logging"
	"ucpllm/internal/schema"
)

// FileStore reads and writes documents under one directory.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore returns a FileStore rooted at dir. The directory is created
// on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

// PathFor returns the file a profile named name is saved to.
func (s *FileStore) PathFor(name string) string {
	return filepath.Join(s.dir, Slug(name)+".json")
}

// Slug turns a preferred name into a file name stem.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "profile"
	}
	return slug
}

// Write refreshes the document timestamp and writes it atomically to path.
func (s *FileStore) Write(path string, doc *document.Document) error {
	doc.Touch(s.now())
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		logging.StoreError("write %s: %v", path, err)
		return err
	}
	logging.Store("saved %s (%d bytes)", path, len(data))
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Read loads and validates a stored document. Every failure is a
// *document.LoadError carrying the path.
func (s *FileStore) Read(path string, cat *schema.Catalog) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &document.LoadError{Path: path, Reason: "cannot read file", Err: err}
	}
	doc, err := document.Parse(data)
	if err == nil && cat != nil {
		err = doc.Validate(cat)
	}
	if err != nil {
		var lerr *document.LoadError
		if errors.As(err, &lerr) {
			lerr.Path = path
			return nil, lerr
		}
		return nil, &document.LoadError{Path: path, Reason: "invalid document", Err: err}
	}
	logging.StoreDebug("loaded %s (%d sections)", path, len(doc.Sections))
	return doc, nil
}

// List returns the stored document files, sorted by name.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// WriteFile writes data to path through a temp file and rename.
func WriteFile(path string, data []byte) error {
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	logging.StoreDebug("wrote %s (%d bytes)", path, len(data))
	return nil
}

// ExportPath returns the export file that sits next to a document.
func ExportPath(docPath string) string {
	return strings.TrimSuffix(docPath, filepath.Ext(docPath)) + ".txt"
}
