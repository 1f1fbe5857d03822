// Package summary turns a handful of answered fields into the short
// narrative shown at a checkpoint.
package summary

import (
	"strings"

	"ucpllm/internal/document"
	"ucpllm/internal/logging"
	"ucpllm/internal/schema"
)

const (
	// NothingCovered is shown when no entry of a checkpoint has a value.
	NothingCovered = "It looks like we haven't covered much in these sections yet."
	// ConfirmQuestion follows every summary.
	ConfirmQuestion = "Is this summary accurate? Answer yes to continue or no to correct a section."
)

// Summary is the rendered result for one checkpoint.
type Summary struct {
	CheckpointID string
	Statements   []string
}

// Empty reports whether no entry rendered.
func (s Summary) Empty() bool { return len(s.Statements) == 0 }

// Text renders the statements as bullets under intro, followed by the
// confirmation question.
func (s Summary) Text(intro string) string {
	var b strings.Builder
	if intro != "" {
		b.WriteString(intro)
		b.WriteString("\n\n")
	}
	if s.Empty() {
		b.WriteString(NothingCovered)
	} else {
		for i, st := range s.Statements {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- ")
			b.WriteString(st)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(ConfirmQuestion)
	return b.String()
}

// Generate renders every entry of cp whose field holds a value on item 1.
// It never mutates doc.
func Generate(doc *document.Document, cp schema.Checkpoint) Summary {
	out := Summary{CheckpointID: cp.ID}
	for _, e := range cp.Entries {
		value := strings.TrimSpace(doc.Value(e.Section, 0, e.Field))
		if value == "" {
			continue
		}
		out.Statements = append(out.Statements, statement(e, value))
	}
	logging.SummaryDebug("checkpoint %s: %d/%d entries rendered", cp.ID, len(out.Statements), len(cp.Entries))
	return out
}

func statement(e schema.SummaryEntry, value string) string {
	switch e.Strategy {
	case schema.Verbatim:
		return strings.ReplaceAll(e.Template, "{value}", value)
	case schema.MentionIfFilled:
		return e.Template
	case schema.FirstWords:
		return strings.ReplaceAll(e.Template, "{value}", FirstWords(value, e.Words))
	}
	return strings.ReplaceAll(e.Template, "{value}", value)
}

// FirstWords returns the first n whitespace-separated words of s, with an
// ellipsis appended when words were dropped.
func FirstWords(s string, n int) string {
	words := strings.Fields(s)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
