package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy selects how a summary entry turns a stored value into a sentence.
type Strategy int

const (
	// Verbatim inserts the value as-is.
	Verbatim Strategy = iota
	// MentionIfFilled only notes that something was provided.
	MentionIfFilled
	// FirstWords inserts the first N words, with an ellipsis when cut.
	FirstWords
)

func (s Strategy) String() string {
	switch s {
	case Verbatim:
		return "verbatim"
	case MentionIfFilled:
		return "mention"
	case FirstWords:
		return "first_words"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Strategy) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch strings.ToLower(raw) {
	case "verbatim", "direct", "":
		*s = Verbatim
	case "mention", "mention_if_filled":
		*s = MentionIfFilled
	case "first_words", "truncate":
		*s = FirstWords
	default:
		return fmt.Errorf("line %d: unknown summary strategy %q", node.Line, raw)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Strategy) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// SummaryEntry renders one field of item 1 into a summary statement.
// Template carries a {value} token unless the strategy is MentionIfFilled.
type SummaryEntry struct {
	FieldRef `yaml:",inline"`
	Strategy Strategy `yaml:"strategy"`
	Words    int      `yaml:"words,omitempty"`
	Template string   `yaml:"template"`
}

// Checkpoint pauses traversal for a summary the user must confirm.
// It fires once, either after the section named by After or, when
// BeforeInvented is set, once the section list is exhausted.
type Checkpoint struct {
	ID             string         `yaml:"id"`
	After          string         `yaml:"after,omitempty"`
	BeforeInvented bool           `yaml:"before_invented,omitempty"`
	Entries        []SummaryEntry `yaml:"entries"`
}

func (c *Catalog) validateCheckpoints() error {
	ids := make(map[string]bool)
	anchors := make(map[string]bool)
	final := 0
	for _, cp := range c.Checkpoints {
		if cp.ID == "" {
			return fmt.Errorf("checkpoint without id")
		}
		if ids[cp.ID] {
			return fmt.Errorf("duplicate checkpoint id %q", cp.ID)
		}
		ids[cp.ID] = true

		switch {
		case cp.BeforeInvented && cp.After != "":
			return fmt.Errorf("checkpoint %q: after and before_invented are exclusive", cp.ID)
		case cp.BeforeInvented:
			final++
		case cp.After == "":
			return fmt.Errorf("checkpoint %q needs an anchor", cp.ID)
		default:
			if _, _, ok := c.Section(cp.After); !ok {
				return fmt.Errorf("checkpoint %q anchored on unknown section %q", cp.ID, cp.After)
			}
			if anchors[cp.After] {
				return fmt.Errorf("section %q anchors more than one checkpoint", cp.After)
			}
			anchors[cp.After] = true
		}

		for _, e := range cp.Entries {
			if _, ok := c.FieldDef(e.FieldRef); !ok {
				return fmt.Errorf("checkpoint %q references unknown field %s", cp.ID, e.FieldRef)
			}
			if e.Strategy == FirstWords && e.Words <= 0 {
				return fmt.Errorf("checkpoint %q: %s needs a positive word count", cp.ID, e.FieldRef)
			}
			if e.Strategy != MentionIfFilled && !strings.Contains(e.Template, "{value}") {
				return fmt.Errorf("checkpoint %q: template for %s lacks {value}", cp.ID, e.FieldRef)
			}
		}
	}
	if final > 1 {
		return fmt.Errorf("at most one checkpoint may fire before invented questions")
	}
	return nil
}

// CheckpointAfter returns the checkpoint anchored on a section, if any.
func (c *Catalog) CheckpointAfter(sectionID string) (Checkpoint, bool) {
	for _, cp := range c.Checkpoints {
		if !cp.BeforeInvented && cp.After == sectionID {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// FinalCheckpoint returns the checkpoint fired before invented questions.
func (c *Catalog) FinalCheckpoint() (Checkpoint, bool) {
	for _, cp := range c.Checkpoints {
		if cp.BeforeInvented {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// Checkpoint returns a checkpoint by id.
func (c *Catalog) Checkpoint(id string) (Checkpoint, bool) {
	for _, cp := range c.Checkpoints {
		if cp.ID == id {
			return cp, true
		}
	}
	return Checkpoint{}, false
}
