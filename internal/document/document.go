// Package document holds the record built by an interview: ordered sections,
// each an ordered list of items mapping field keys to string values.
package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ucpllm/internal/schema"
)

// ErrItemBound is returned when a write would exceed a section's max_items.
var ErrItemBound = errors.New("item index exceeds section bound")

const (
	// skippedKey lists the field keys the user explicitly skipped in an item.
	skippedKey = "_skipped"
	// inventedKey records resolved invented questions in the notes item.
	inventedKey = "_invented"
)

// Item is one repetition of a section's fields.
type Item map[string]string

// Value returns the stored value for key.
func (it Item) Value(key string) string {
	return it[key]
}

// Has reports whether key holds a non-blank value.
func (it Item) Has(key string) bool {
	return strings.TrimSpace(it[key]) != ""
}

// IsSkipped reports whether key was explicitly skipped.
func (it Item) IsSkipped(key string) bool {
	for _, k := range it.skipped() {
		if k == key {
			return true
		}
	}
	return false
}

func (it Item) skipped() []string {
	raw := it[skippedKey]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (it Item) setSkipped(keys []string) {
	if len(keys) == 0 {
		delete(it, skippedKey)
		return
	}
	sort.Strings(keys)
	it[skippedKey] = strings.Join(keys, ",")
}

func (it Item) set(key, value string) {
	it[key] = value
	if it.IsSkipped(key) {
		var keep []string
		for _, k := range it.skipped() {
			if k != key {
				keep = append(keep, k)
			}
		}
		it.setSkipped(keep)
	}
}

// Section is the document-side counterpart of a schema section.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Document is the full personal-context record.
type Document struct {
	Version     string    `json:"version"`
	GeneratedAt string    `json:"generatedAt"`
	Sections    []Section `json:"sections"`
}

// New returns an empty document stamped with now.
func New(version string, now time.Time) *Document {
	return &Document{
		Version:     version,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Sections:    []Section{},
	}
}

// Section returns the document section with the given id.
func (d *Document) Section(id string) (*Section, bool) {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i], true
		}
	}
	return nil, false
}

// ItemCount returns how many items a section holds.
func (d *Document) ItemCount(sectionID string) int {
	s, ok := d.Section(sectionID)
	if !ok {
		return 0
	}
	return len(s.Items)
}

// Item returns item idx of a section.
func (d *Document) Item(sectionID string, idx int) (Item, bool) {
	s, ok := d.Section(sectionID)
	if !ok || idx < 0 || idx >= len(s.Items) {
		return nil, false
	}
	return s.Items[idx], true
}

// Value returns the stored value, or "" when absent.
func (d *Document) Value(sectionID string, idx int, key string) string {
	it, ok := d.Item(sectionID, idx)
	if !ok {
		return ""
	}
	return it.Value(key)
}

// HasValue reports whether the field holds a non-blank value.
func (d *Document) HasValue(sectionID string, idx int, key string) bool {
	it, ok := d.Item(sectionID, idx)
	return ok && it.Has(key)
}

// IsSkipped reports whether the field was explicitly skipped.
func (d *Document) IsSkipped(sectionID string, idx int, key string) bool {
	it, ok := d.Item(sectionID, idx)
	return ok && it.IsSkipped(key)
}

// ensureItem creates the section and any missing items up to idx.
func (d *Document) ensureItem(def schema.SectionDefinition, idx int) (Item, error) {
	if idx < 0 || (def.MaxItems > 0 && idx >= def.MaxItems) {
		return nil, fmt.Errorf("%w: %s item %d (max %d)", ErrItemBound, def.ID, idx+1, def.MaxItems)
	}
	s, ok := d.Section(def.ID)
	if !ok {
		d.Sections = append(d.Sections, Section{ID: def.ID, Title: def.Title, Items: []Item{}})
		s = &d.Sections[len(d.Sections)-1]
	}
	for len(s.Items) <= idx {
		s.Items = append(s.Items, Item{})
	}
	if s.Items[idx] == nil {
		s.Items[idx] = Item{}
	}
	return s.Items[idx], nil
}

// SetValue writes one field value, creating the section and items as needed.
func (d *Document) SetValue(def schema.SectionDefinition, idx int, key, value string) error {
	it, err := d.ensureItem(def, idx)
	if err != nil {
		return err
	}
	it.set(key, value)
	return nil
}

// MarkSkipped records that the user skipped a field. An existing value is
// left in place.
func (d *Document) MarkSkipped(def schema.SectionDefinition, idx int, key string) error {
	it, err := d.ensureItem(def, idx)
	if err != nil {
		return err
	}
	if it.Has(key) || it.IsSkipped(key) {
		return nil
	}
	it.setSkipped(append(it.skipped(), key))
	return nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{
		Version:     d.Version,
		GeneratedAt: d.GeneratedAt,
		Sections:    make([]Section, len(d.Sections)),
	}
	for i, s := range d.Sections {
		cs := Section{ID: s.ID, Title: s.Title, Items: make([]Item, len(s.Items))}
		for j, it := range s.Items {
			ci := make(Item, len(it))
			for k, v := range it {
				ci[k] = v
			}
			cs.Items[j] = ci
		}
		out.Sections[i] = cs
	}
	return out
}

// Touch refreshes GeneratedAt.
func (d *Document) Touch(now time.Time) {
	d.GeneratedAt = now.UTC().Format(time.RFC3339)
}
