package interview

import (
	"ucpllm/internal/schema"
	"ucpllm/internal/summary"
)

// Prompt is what the engine asks next. It is one of FieldPrompt,
// AddAnotherPrompt, CheckpointPrompt, InventedPrompt, InterviewComplete
// or Suspended.
type Prompt interface {
	isPrompt()
}

// FieldPrompt asks for one field of one item.
type FieldPrompt struct {
	Section       schema.SectionDefinition
	SectionNumber int
	Field         schema.FieldDefinition
	Item          int // zero-based
	Current       string
	Prefilled     bool
}

// AddAnotherPrompt asks whether to add another item to a multi-item section.
type AddAnotherPrompt struct {
	Section   schema.SectionDefinition
	ItemCount int
}

// CheckpointPrompt asks the user to confirm a summary.
type CheckpointPrompt struct {
	Checkpoint schema.Checkpoint
	Summary    summary.Summary
}

// InventedPrompt asks one freeform question.
type InventedPrompt struct {
	Question schema.InventedQuestion
	Number   int
	Total    int
}

// InterviewComplete signals that every question was handled.
type InterviewComplete struct{}

// Suspended means the engine is waiting on a decision outside ordinary answers.
type Suspended struct {
	Mode Mode
}

func (FieldPrompt) isPrompt()       {}
func (AddAnotherPrompt) isPrompt()  {}
func (CheckpointPrompt) isPrompt()  {}
func (InventedPrompt) isPrompt()    {}
func (InterviewComplete) isPrompt() {}
func (Suspended) isPrompt()         {}
