// Package schema holds the static interview catalog: ordered sections with
// typed fields, the invented questions asked after them, the checkpoints that
// pause traversal for a summary, and the field bindings the renderer and
// engine rely on.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// SectionDefinition is one schema group of fields with a repetition bound.
type SectionDefinition struct {
	ID       string            `yaml:"id"`
	Title    string            `yaml:"title"`
	MaxItems int               `yaml:"max_items"` // 0 = unbounded
	Fields   []FieldDefinition `yaml:"fields"`
}

// Multi reports whether the section may hold more than one item.
func (s SectionDefinition) Multi() bool {
	return s.MaxItems != 1
}

// AllowsMore reports whether another item may be added to a section that
// already holds count items.
func (s SectionDefinition) AllowsMore(count int) bool {
	if !s.Multi() {
		return false
	}
	return s.MaxItems == 0 || count < s.MaxItems
}

// Field returns the field with the given key.
func (s SectionDefinition) Field(key string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// InventedQuestion is a freeform question outside the section schema.
type InventedQuestion struct {
	ID          string    `yaml:"id"`
	Text        string    `yaml:"question"`
	Type        FieldType `yaml:"type"`
	Options     []Option  `yaml:"options,omitempty"`
	Placeholder string    `yaml:"placeholder,omitempty"`
}

// Field views the question as a field definition so replies can be
// canonicalized and displayed the same way.
func (q InventedQuestion) Field() FieldDefinition {
	return FieldDefinition{
		Key:         q.ID,
		Label:       q.Text,
		Type:        q.Type,
		Options:     q.Options,
		Placeholder: q.Placeholder,
	}
}

// FieldRef points at one field of one section.
type FieldRef struct {
	Section string `yaml:"section"`
	Field   string `yaml:"field"`
}

func (r FieldRef) String() string { return r.Section + "." + r.Field }

// Bindings name the fields the engine and renderer treat specially.
type Bindings struct {
	PreferredName   FieldRef `yaml:"preferred_name"`
	MentalState     FieldRef `yaml:"mental_state"`
	NotesLog        FieldRef `yaml:"notes_log"`
	AnalysisSummary FieldRef `yaml:"analysis_summary"`
	ProjectTitles   FieldRef `yaml:"project_titles"`
	PassionNames    FieldRef `yaml:"passion_names"`
	PrimaryRole     FieldRef `yaml:"primary_role"`
}

// Catalog is the full static schema.
type Catalog struct {
	Version     string              `yaml:"version"`
	Sections    []SectionDefinition `yaml:"sections"`
	Invented    []InventedQuestion  `yaml:"invented_questions"`
	Checkpoints []Checkpoint        `yaml:"checkpoints"`
	Bindings    Bindings            `yaml:"bindings"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embeddedCatalog)
	})
	return defaultCatalog, defaultErr
}

// MustDefault is Default for callers that cannot recover from a broken build.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads and validates a catalog file. An empty path yields the default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog for internal consistency.
func (c *Catalog) Validate() error {
	if len(c.Sections) == 0 {
		return fmt.Errorf("catalog has no sections")
	}

	seen := make(map[string]bool)
	for i, s := range c.Sections {
		if s.ID == "" {
			return fmt.Errorf("section %d has no id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate section id %q", s.ID)
		}
		seen[s.ID] = true
		if s.MaxItems < 0 {
			return fmt.Errorf("section %q: max_items must be >= 0", s.ID)
		}
		if len(s.Fields) == 0 {
			return fmt.Errorf("section %q has no fields", s.ID)
		}
		keys := make(map[string]bool)
		for _, f := range s.Fields {
			if f.Key == "" {
				return fmt.Errorf("section %q has a field without a key", s.ID)
			}
			if keys[f.Key] {
				return fmt.Errorf("section %q: duplicate field key %q", s.ID, f.Key)
			}
			keys[f.Key] = true
			if f.Type.IsChoice() && len(f.Options) == 0 {
				return fmt.Errorf("section %q: field %q needs options", s.ID, f.Key)
			}
			if len(f.Templates) > 0 && !f.Type.AcceptsTemplates() {
				return fmt.Errorf("section %q: field %q of type %s cannot carry templates", s.ID, f.Key, f.Type)
			}
		}
	}

	ids := make(map[string]bool)
	for _, q := range c.Invented {
		if q.ID == "" {
			return fmt.Errorf("invented question without id")
		}
		if ids[q.ID] {
			return fmt.Errorf("duplicate invented question id %q", q.ID)
		}
		ids[q.ID] = true
		if q.Type == SingleSelect {
			return fmt.Errorf("invented question %q: single-select is not an invented question type", q.ID)
		}
		if q.Type.IsChoice() && len(q.Options) == 0 {
			return fmt.Errorf("invented question %q needs options", q.ID)
		}
	}

	if err := c.validateCheckpoints(); err != nil {
		return err
	}
	return c.validateBindings()
}

func (c *Catalog) validateBindings() error {
	fields := map[string]FieldRef{
		"preferred_name": c.Bindings.PreferredName,
		"mental_state":   c.Bindings.MentalState,
		"notes_log":      c.Bindings.NotesLog,
		"project_titles": c.Bindings.ProjectTitles,
		"passion_names":  c.Bindings.PassionNames,
		"primary_role":   c.Bindings.PrimaryRole,
	}
	for name, ref := range fields {
		if _, ok := c.FieldDef(ref); !ok {
			return fmt.Errorf("binding %s points at unknown field %s", name, ref)
		}
	}
	// The analysis summary lives outside the answerable fields, only its
	// section has to exist.
	if _, _, ok := c.Section(c.Bindings.AnalysisSummary.Section); !ok || c.Bindings.AnalysisSummary.Field == "" {
		return fmt.Errorf("binding analysis_summary points at unknown section %q", c.Bindings.AnalysisSummary.Section)
	}
	return nil
}

// Section returns the definition and catalog position of a section id.
func (c *Catalog) Section(id string) (SectionDefinition, int, bool) {
	for i, s := range c.Sections {
		if s.ID == id {
			return s, i, true
		}
	}
	return SectionDefinition{}, -1, false
}

// FieldDef resolves a field reference.
func (c *Catalog) FieldDef(ref FieldRef) (FieldDefinition, bool) {
	s, _, ok := c.Section(ref.Section)
	if !ok {
		return FieldDefinition{}, false
	}
	return s.Field(ref.Field)
}

// Question returns the invented question with the given id.
func (c *Catalog) Question(id string) (InventedQuestion, bool) {
	for _, q := range c.Invented {
		if q.ID == id {
			return q, true
		}
	}
	return InventedQuestion{}, false
}
