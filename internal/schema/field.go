package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidChoice is returned when a reply does not name one of a field's options.
var ErrInvalidChoice = errors.New("reply does not match any option")

// FieldType is the closed set of input shapes a field or invented question can take.
type FieldType int

const (
	ShortText FieldType = iota
	LongText
	SingleSelect
	MultipleChoice
	Boolean
)

// String returns the catalog spelling of the type.
func (t FieldType) String() string {
	switch t {
	case ShortText:
		return "short-text"
	case LongText:
		return "long-text"
	case SingleSelect:
		return "single-select"
	case MultipleChoice:
		return "multiple-choice"
	case Boolean:
		return "boolean"
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// ParseFieldType accepts both the long names and the short aliases used by
// older catalogs (text, textarea, select, mc, tf).
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short-text", "text":
		return ShortText, nil
	case "long-text", "textarea":
		return LongText, nil
	case "single-select", "select":
		return SingleSelect, nil
	case "multiple-choice", "mc":
		return MultipleChoice, nil
	case "boolean", "tf", "bool":
		return Boolean, nil
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *FieldType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseFieldType(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t FieldType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// IsChoice reports whether replies must name one of the options.
func (t FieldType) IsChoice() bool {
	switch t {
	case SingleSelect, MultipleChoice:
		return true
	case ShortText, LongText, Boolean:
		return false
	}
	return false
}

// AcceptsTemplates reports whether quick-fill templates apply to the type.
func (t FieldType) AcceptsTemplates() bool {
	switch t {
	case ShortText, LongText:
		return true
	case SingleSelect, MultipleChoice, Boolean:
		return false
	}
	return false
}

// Option is one selectable value with its display text.
type Option struct {
	Value string `yaml:"value"`
	Text  string `yaml:"text"`
}

// UnmarshalYAML accepts either a {value, text} mapping or a bare string,
// in which case value and text are the same.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		o.Value = node.Value
		o.Text = node.Value
		return nil
	}
	type plain Option
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Text == "" {
		p.Text = p.Value
	}
	*o = Option(p)
	return nil
}

// FieldDefinition describes one question inside a section.
type FieldDefinition struct {
	Key         string    `yaml:"key"`
	Label       string    `yaml:"label"`
	Type        FieldType `yaml:"type"`
	Options     []Option  `yaml:"options,omitempty"`
	Templates   []string  `yaml:"templates,omitempty"`
	Placeholder string    `yaml:"placeholder,omitempty"`
}

// Display returns how a stored value is shown to a reader.
func (f FieldDefinition) Display(value string) string {
	switch f.Type {
	case SingleSelect, MultipleChoice:
		for _, o := range f.Options {
			if o.Value == value {
				return o.Text
			}
		}
		return value
	case Boolean:
		switch value {
		case "true":
			return "Yes"
		case "false":
			return "No"
		}
		return value
	case ShortText, LongText:
		return value
	}
	return value
}

// Canonical maps a raw reply onto the value stored in the document.
// Choice fields accept a 1-based option number, the option value or its
// display text. Boolean fields accept yes/no/true/false/y/n.
// A blank reply is always accepted as an empty answer.
func (f FieldDefinition) Canonical(reply string) (string, error) {
	if strings.TrimSpace(reply) == "" {
		return "", nil
	}
	switch f.Type {
	case ShortText, LongText:
		return strings.TrimRight(reply, " \t\r\n"), nil
	case SingleSelect, MultipleChoice:
		r := strings.TrimSpace(reply)
		if n, err := strconv.Atoi(r); err == nil {
			if n >= 1 && n <= len(f.Options) {
				return f.Options[n-1].Value, nil
			}
			return "", fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidChoice, n, len(f.Options))
		}
		for _, o := range f.Options {
			if strings.EqualFold(o.Value, r) || strings.EqualFold(o.Text, r) {
				return o.Value, nil
			}
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, r)
	case Boolean:
		switch strings.ToLower(strings.TrimSpace(reply)) {
		case "y", "yes", "true", "t", "1":
			return "true", nil
		case "n", "no", "false", "f", "0":
			return "false", nil
		}
		return "", fmt.Errorf("%w: expected yes or no, got %q", ErrInvalidChoice, reply)
	}
	return "", fmt.Errorf("unsupported field type %v", f.Type)
}

// IsMultiline reports whether values should render on their own indented lines.
func (f FieldDefinition) IsMultiline(value string) bool {
	return f.Type == LongText || strings.Contains(value, "\n")
}
