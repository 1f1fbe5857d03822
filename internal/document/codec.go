package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ucpllm/internal/schema"
)

// LoadError reports a malformed or missing storage payload. A document that
// fails to load is never partially applied.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := "load document"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// wireDocument accepts both the current keys and the legacy
// protocolVersion/generationDate pair.
type wireDocument struct {
	Version         string    `json:"version"`
	GeneratedAt     string    `json:"generatedAt"`
	ProtocolVersion string    `json:"protocolVersion"`
	GenerationDate  string    `json:"generationDate"`
	Sections        []Section `json:"sections"`
}

// Parse decodes and structurally validates a stored document.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &LoadError{Reason: "empty payload"}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &LoadError{Reason: "not a JSON object", Err: err}
	}
	if len(top) == 0 {
		return nil, &LoadError{Reason: "empty document"}
	}
	rawSections, ok := top["sections"]
	if !ok || bytes.Equal(bytes.TrimSpace(rawSections), []byte("null")) {
		return nil, &LoadError{Reason: "missing sections"}
	}

	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &LoadError{Reason: "malformed document", Err: err}
	}

	doc := &Document{
		Version:     firstNonEmpty(w.Version, w.ProtocolVersion),
		GeneratedAt: firstNonEmpty(w.GeneratedAt, w.GenerationDate),
		Sections:    w.Sections,
	}

	seen := make(map[string]bool)
	for i := range doc.Sections {
		s := &doc.Sections[i]
		if s.ID == "" {
			return nil, &LoadError{Reason: fmt.Sprintf("section %d has no id", i)}
		}
		if seen[s.ID] {
			return nil, &LoadError{Reason: fmt.Sprintf("duplicate section %q", s.ID)}
		}
		seen[s.ID] = true
		if s.Items == nil {
			s.Items = []Item{}
		}
		for j, it := range s.Items {
			if it == nil {
				return nil, &LoadError{Reason: fmt.Sprintf("section %q item %d is null", s.ID, j+1)}
			}
		}
	}
	return doc, nil
}

// Validate checks a parsed document against the catalog bounds.
// Sections unknown to the catalog are kept but never rendered or asked.
func (d *Document) Validate(cat *schema.Catalog) error {
	for _, s := range d.Sections {
		def, _, ok := cat.Section(s.ID)
		if !ok {
			continue
		}
		if def.MaxItems > 0 && len(s.Items) > def.MaxItems {
			return &LoadError{Reason: fmt.Sprintf("section %q holds %d items, max %d", s.ID, len(s.Items), def.MaxItems)}
		}
	}
	return nil
}

// Marshal encodes the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
