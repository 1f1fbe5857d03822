// Package interview drives the questionnaire: it decides the next prompt
// from an explicit State and applies replies to the user document.
package interview

import (
	"fmt"
	"strings"

	"ucpllm/internal/document"
	"ucpllm/internal/logging"
	"ucpllm/internal/schema"
	"ucpllm/internal/summary"
)

// Engine is stateless apart from the catalog; every call receives the
// session State and Document it works on.
type Engine struct {
	cat *schema.Catalog
}

// NewEngine returns an engine over cat.
func NewEngine(cat *schema.Catalog) *Engine {
	return &Engine{cat: cat}
}

// Catalog returns the catalog the engine walks.
func (e *Engine) Catalog() *schema.Catalog { return e.cat }

var yesNo = schema.FieldDefinition{Key: "decision", Type: schema.Boolean}

// Next returns the next prompt for st. It records what the prompt is bound
// to in st.Binding and never mutates doc.
func (e *Engine) Next(st *State, doc *document.Document) Prompt {
	for {
		switch st.Mode {
		case ModeCheckpointConfirm:
			if p, ok := e.checkpointPrompt(st, doc); ok {
				return p
			}
			continue
		case ModeInterviewing, ModeJumpEditing, ModeInterviewingInvented:
		default:
			st.Binding = Binding{}
			return Suspended{Mode: st.Mode}
		}

		if st.SectionIndex >= len(e.cat.Sections) {
			return e.afterSections(st, doc)
		}
		def := e.cat.Sections[st.SectionIndex]

		if st.AwaitingAddAnother {
			st.Binding = Binding{Kind: BindAddAnother, Section: def.ID}
			return AddAnotherPrompt{Section: def, ItemCount: st.ItemCount}
		}

		if st.ItemCount < 1 {
			st.ItemCount = 1
		}
		item := st.ItemCount - 1

		if st.FieldIndex < len(def.Fields) {
			f := def.Fields[st.FieldIndex]
			if st.skipAnswered() && answered(doc, def.ID, item, f.Key) {
				logging.InterviewDebug("resume skip %s[%d].%s", def.ID, item+1, f.Key)
				st.FieldIndex++
				continue
			}
			current := doc.Value(def.ID, item, f.Key)
			st.Binding = Binding{Kind: BindField, Section: def.ID, Item: item, Field: f.Key}
			return FieldPrompt{
				Section:       def,
				SectionNumber: st.SectionIndex + 1,
				Field:         f,
				Item:          item,
				Current:       current,
				Prefilled:     strings.TrimSpace(current) != "",
			}
		}

		// Every field of the current item is handled.
		if st.skipAnswered() && doc.ItemCount(def.ID) > st.ItemCount && def.AllowsMore(st.ItemCount) {
			st.ItemCount++
			st.FieldIndex = 0
			continue
		}
		if def.AllowsMore(st.ItemCount) {
			st.AwaitingAddAnother = true
			continue
		}
		e.finishSection(st)
	}
}

func answered(doc *document.Document, section string, item int, key string) bool {
	return doc.HasValue(section, item, key) || doc.IsSkipped(section, item, key)
}

func (e *Engine) checkpointPrompt(st *State, doc *document.Document) (Prompt, bool) {
	cp, ok := e.cat.Checkpoint(st.ActiveCheckpoint)
	if !ok {
		logging.InterviewError("%v", &SchemaBindingError{Section: st.ActiveCheckpoint, Reason: "unknown checkpoint"})
		st.ActiveCheckpoint = ""
		st.Mode = ModeInterviewing
		return nil, false
	}
	st.Binding = Binding{Kind: BindCheckpoint, Checkpoint: cp.ID}
	return CheckpointPrompt{Checkpoint: cp, Summary: summary.Generate(doc, cp)}, true
}

// afterSections runs once every section is traversed: the final checkpoint,
// then invented questions, then the analysis offer.
func (e *Engine) afterSections(st *State, doc *document.Document) Prompt {
	if cp, ok := e.cat.FinalCheckpoint(); ok && !st.Fired[cp.ID] {
		e.fire(st, cp)
		if p, ok := e.checkpointPrompt(st, doc); ok {
			return p
		}
	}

	st.Mode = ModeInterviewingInvented
	notes := e.cat.Bindings.NotesLog.Section
	for st.InventedIndex < len(e.cat.Invented) {
		q := e.cat.Invented[st.InventedIndex]
		if doc.IsInventedResolved(notes, q.ID) {
			logging.InterviewDebug("invented %s already resolved", q.ID)
			st.InventedIndex++
			continue
		}
		st.Binding = Binding{Kind: BindInvented, Question: q.ID}
		return InventedPrompt{Question: q, Number: st.InventedIndex + 1, Total: len(e.cat.Invented)}
	}

	st.Binding = Binding{}
	st.Mode = ModeOfferAnalysis
	logging.Interview("interview complete")
	return InterviewComplete{}
}

func (e *Engine) fire(st *State, cp schema.Checkpoint) {
	if st.Fired == nil {
		st.Fired = make(map[string]bool)
	}
	st.Fired[cp.ID] = true
	st.LastCheckpoint = cp.ID
	st.ActiveCheckpoint = cp.ID
	st.Mode = ModeCheckpointConfirm
	logging.Interview("checkpoint %s fired", cp.ID)
}

// finishSection leaves the current section. A jump-edit returns to the
// saved main-flow position; otherwise any checkpoint anchored on the
// section fires.
func (e *Engine) finishSection(st *State) {
	def := e.cat.Sections[st.SectionIndex]
	if st.EditingJumpedSection() {
		logging.Interview("jump edit of %s done, resuming at section %d", def.ID, st.ResumeSection+1)
		st.Mode = ModeInterviewing
		st.ResumeSkip = true
		st.resetPosition(st.ResumeSection)
		return
	}
	st.resetPosition(st.SectionIndex + 1)
	if cp, ok := e.cat.CheckpointAfter(def.ID); ok && !st.Fired[cp.ID] {
		e.fire(st, cp)
	}
}

// skipSection abandons the current section after a binding error.
func (e *Engine) skipSection(st *State, err error) {
	logging.InterviewError("%v", err)
	if st.SectionIndex < len(e.cat.Sections) {
		e.finishSection(st)
	}
}

// Answer applies reply to whatever st.Binding points at. An invalid choice
// leaves st and doc unchanged so the same prompt can be shown again.
func (e *Engine) Answer(st *State, doc *document.Document, reply string) (*EmptyReplyWarning, error) {
	if !st.Mode.acceptsAnswers() {
		return nil, ErrNotAcceptingAnswers
	}
	switch st.Binding.Kind {
	case BindField:
		return e.answerField(st, doc, reply)
	case BindInvented:
		return e.answerInvented(st, doc, reply)
	case BindAddAnother:
		yes, err := parseDecision(reply)
		if err != nil {
			return nil, err
		}
		return nil, e.AddAnother(st, yes)
	case BindCheckpoint:
		yes, err := parseDecision(reply)
		if err != nil {
			return nil, err
		}
		return nil, e.ConfirmCheckpoint(st, yes)
	}
	return nil, ErrNotAcceptingAnswers
}

func parseDecision(reply string) (bool, error) {
	v, err := yesNo.Canonical(reply)
	if err != nil {
		return false, err
	}
	if v == "" {
		return false, ErrDecisionRequired
	}
	return v == "true", nil
}

func (e *Engine) boundField(b Binding) (schema.SectionDefinition, schema.FieldDefinition, error) {
	def, _, ok := e.cat.Section(b.Section)
	if !ok {
		return def, schema.FieldDefinition{}, &SchemaBindingError{Section: b.Section, Reason: "unknown section"}
	}
	f, ok := def.Field(b.Field)
	if !ok {
		return def, f, &SchemaBindingError{Section: b.Section, Field: b.Field, Reason: "unknown field"}
	}
	return def, f, nil
}

func (e *Engine) answerField(st *State, doc *document.Document, reply string) (*EmptyReplyWarning, error) {
	b := st.Binding
	def, f, err := e.boundField(b)
	if err != nil {
		e.skipSection(st, err)
		return nil, err
	}
	value, err := f.Canonical(reply)
	if err != nil {
		return nil, err
	}
	if err := doc.SetValue(def, b.Item, f.Key, value); err != nil {
		berr := &SchemaBindingError{Section: def.ID, Field: f.Key, Reason: err.Error()}
		e.skipSection(st, berr)
		return nil, berr
	}
	logging.InterviewDebug("answered %s", b)
	st.FieldIndex++
	st.Binding = Binding{}
	if value == "" {
		return &EmptyReplyWarning{Binding: b}, nil
	}
	return nil, nil
}

func (e *Engine) notesSection() (schema.SectionDefinition, error) {
	ref := e.cat.Bindings.NotesLog
	def, _, ok := e.cat.Section(ref.Section)
	if !ok {
		return def, &SchemaBindingError{Section: ref.Section, Field: ref.Field, Reason: "notes log section missing"}
	}
	return def, nil
}

func (e *Engine) answerInvented(st *State, doc *document.Document, reply string) (*EmptyReplyWarning, error) {
	b := st.Binding
	q, ok := e.cat.Question(b.Question)
	if !ok {
		err := &SchemaBindingError{Section: b.Question, Reason: "unknown invented question"}
		logging.InterviewError("%v", err)
		st.InventedIndex++
		st.Binding = Binding{}
		return nil, err
	}
	f := q.Field()
	value, err := f.Canonical(reply)
	if err != nil {
		return nil, err
	}
	notes, err := e.notesSection()
	if err != nil {
		return nil, err
	}
	if value == "" {
		if err := doc.RecordInvented(notes, q.ID, document.InventedSkipped); err != nil {
			return nil, err
		}
		st.InventedIndex++
		st.Binding = Binding{}
		return &EmptyReplyWarning{Binding: b}, nil
	}
	entry := document.NoteEntry(q.Text, f.Display(value))
	if err := doc.AppendNote(notes, e.cat.Bindings.NotesLog.Field, entry); err != nil {
		return nil, err
	}
	if err := doc.RecordInvented(notes, q.ID, document.InventedAnswered); err != nil {
		return nil, err
	}
	logging.InterviewDebug("answered %s", b)
	st.InventedIndex++
	st.Binding = Binding{}
	return nil, nil
}

// Skip records an explicit skip for the current prompt. Skipping an
// add-another gate declines it; checkpoints cannot be skipped.
func (e *Engine) Skip(st *State, doc *document.Document) (*EmptyReplyWarning, error) {
	if !st.Mode.acceptsAnswers() {
		return nil, ErrNotAcceptingAnswers
	}
	b := st.Binding
	switch b.Kind {
	case BindField:
		def, f, err := e.boundField(b)
		if err != nil {
			e.skipSection(st, err)
			return nil, err
		}
		if err := doc.MarkSkipped(def, b.Item, f.Key); err != nil {
			berr := &SchemaBindingError{Section: def.ID, Field: f.Key, Reason: err.Error()}
			e.skipSection(st, berr)
			return nil, berr
		}
		st.FieldIndex++
	case BindInvented:
		notes, err := e.notesSection()
		if err != nil {
			return nil, err
		}
		if err := doc.RecordInvented(notes, b.Question, document.InventedSkipped); err != nil {
			return nil, err
		}
		st.InventedIndex++
	case BindAddAnother:
		return &EmptyReplyWarning{Binding: b, Skipped: true}, e.AddAnother(st, false)
	case BindCheckpoint:
		return nil, ErrDecisionRequired
	default:
		return nil, ErrNotAcceptingAnswers
	}
	logging.InterviewDebug("skipped %s", b)
	st.Binding = Binding{}
	return &EmptyReplyWarning{Binding: b, Skipped: true}, nil
}

// AddAnother resolves the add-another gate. Accepting starts the next item
// only while the section bound allows it.
func (e *Engine) AddAnother(st *State, yes bool) error {
	if !st.AwaitingAddAnother || st.SectionIndex >= len(e.cat.Sections) {
		return ErrNotAcceptingAnswers
	}
	def := e.cat.Sections[st.SectionIndex]
	st.AwaitingAddAnother = false
	st.Binding = Binding{}
	if yes && def.AllowsMore(st.ItemCount) {
		st.ItemCount++
		st.FieldIndex = 0
		logging.InterviewDebug("%s item %d started", def.ID, st.ItemCount)
		return nil
	}
	e.finishSection(st)
	return nil
}

// ConfirmCheckpoint resolves the active checkpoint. A rejection moves to
// manual correction without touching the document.
func (e *Engine) ConfirmCheckpoint(st *State, ok bool) error {
	if st.Mode != ModeCheckpointConfirm {
		return ErrNotAcceptingAnswers
	}
	id := st.ActiveCheckpoint
	st.ActiveCheckpoint = ""
	st.Binding = Binding{}
	if ok {
		logging.Interview("checkpoint %s confirmed", id)
		st.Mode = ModeInterviewing
		if st.SectionIndex >= len(e.cat.Sections) {
			st.Mode = ModeInterviewingInvented
		}
		return nil
	}
	logging.Interview("checkpoint %s rejected", id)
	st.Mode = ModeManualCorrection
	return nil
}

// ContinueFromCorrection leaves manual correction without editing.
func (e *Engine) ContinueFromCorrection(st *State) error {
	if st.Mode != ModeManualCorrection {
		return ErrNotAcceptingAnswers
	}
	st.Mode = ModeInterviewing
	if st.SectionIndex >= len(e.cat.Sections) {
		st.Mode = ModeInterviewingInvented
	}
	return nil
}

// JumpTo starts a jump-edit of sectionID. The current main-flow position
// is saved and restored once the section is done. Checkpoints that already
// fired never fire again.
func (e *Engine) JumpTo(st *State, sectionID string) error {
	switch st.Mode {
	case ModeInterviewing, ModeInterviewingInvented, ModeCheckpointConfirm,
		ModeManualCorrection, ModeJumpEditing, ModeOfferAnalysis:
	default:
		return fmt.Errorf("%w: cannot jump while %s", ErrNotAcceptingAnswers, st.Mode)
	}
	_, idx, ok := e.cat.Section(sectionID)
	if !ok {
		return &SchemaBindingError{Section: sectionID, Reason: "unknown section"}
	}
	if !st.EditingJumpedSection() {
		st.ResumeSection = st.SectionIndex
	}
	st.ActiveCheckpoint = ""
	st.Mode = ModeJumpEditing
	st.resetPosition(idx)
	logging.Interview("jump edit to %s", sectionID)
	return nil
}
