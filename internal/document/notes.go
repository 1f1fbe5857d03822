package document

import (
	"sort"
	"strings"

	"ucpllm/internal/schema"
)

// InventedStatus records how an invented question was resolved.
type InventedStatus string

const (
	InventedAnswered InventedStatus = "answered"
	InventedSkipped  InventedStatus = "skipped"
)

// NoteEntry formats one invented-question answer for the notes log.
func NoteEntry(question, answer string) string {
	return "Q: \"" + question + "\"\nYour answer: " + answer + "\n-----"
}

// AppendNote appends entry to the notes log field on item 1 of the notes section.
func (d *Document) AppendNote(def schema.SectionDefinition, key, entry string) error {
	it, err := d.ensureItem(def, 0)
	if err != nil {
		return err
	}
	existing := strings.TrimRight(it.Value(key), "\n")
	if existing == "" {
		it.set(key, entry)
		return nil
	}
	it.set(key, existing+"\n\n"+entry)
	return nil
}

// InventedResolved returns the recorded status of each resolved invented question.
func (d *Document) InventedResolved(notesSection string) map[string]InventedStatus {
	out := make(map[string]InventedStatus)
	it, ok := d.Item(notesSection, 0)
	if !ok {
		return out
	}
	for _, line := range strings.Split(it[inventedKey], "\n") {
		id, status, ok := strings.Cut(line, "=")
		if !ok || id == "" {
			continue
		}
		out[id] = InventedStatus(status)
	}
	return out
}

// IsInventedResolved reports whether the question id was answered or skipped.
func (d *Document) IsInventedResolved(notesSection, id string) bool {
	_, ok := d.InventedResolved(notesSection)[id]
	return ok
}

// RecordInvented stores the resolution of an invented question.
func (d *Document) RecordInvented(def schema.SectionDefinition, id string, status InventedStatus) error {
	resolved := d.InventedResolved(def.ID)
	resolved[id] = status

	it, err := d.ensureItem(def, 0)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(resolved))
	for k := range resolved {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	lines := make([]string, len(ids))
	for i, k := range ids {
		lines[i] = k + "=" + string(resolved[k])
	}
	it[inventedKey] = strings.Join(lines, "\n")
	return nil
}

// SeedInventedFromLog fills the resolved set of a document that has none
// from the question markers in its notes log. Documents written before the
// set existed carry only the log, in either the `Q: "..."` form or the older
// `(Q: "...")` form. Questions are matched on their exact text. It returns
// the number of questions recorded.
func (d *Document) SeedInventedFromLog(def schema.SectionDefinition, logKey string, questions []schema.InventedQuestion) (int, error) {
	it, ok := d.Item(def.ID, 0)
	if !ok || it.Has(inventedKey) || !it.Has(logKey) {
		return 0, nil
	}

	byText := make(map[string]string, len(questions))
	for _, q := range questions {
		byText[strings.TrimSpace(q.Text)] = q.ID
	}

	seeded := 0
	for _, line := range strings.Split(it.Value(logKey), "\n") {
		_, rest, ok := strings.Cut(line, `Q: "`)
		if !ok {
			continue
		}
		end := strings.LastIndex(rest, `"`)
		if end < 0 {
			continue
		}
		id, ok := byText[strings.TrimSpace(rest[:end])]
		if !ok || d.IsInventedResolved(def.ID, id) {
			continue
		}
		if err := d.RecordInvented(def, id, InventedAnswered); err != nil {
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}

// SetAnalysisSummary stores the accepted external analysis on item 1 of
// the notes section.
func (d *Document) SetAnalysisSummary(def schema.SectionDefinition, key, text string) error {
	return d.SetValue(def, 0, key, strings.TrimSpace(text))
}
