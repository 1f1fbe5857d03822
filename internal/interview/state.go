package interview

import (
	"fmt"

	"ucpllm/internal/analysis"
)

// Mode is the wizard state-machine state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeChoosingNewOrLoad
	ModeChoosingMentalState
	ModeInterviewing
	ModeCheckpointConfirm
	ModeInterviewingInvented
	ModeOfferAnalysis
	ModeWaitingAnalysis
	ModeReviewAnalysis
	ModeComplete
	ModeManualCorrection
	ModeJumpEditing
)

var modeNames = map[Mode]string{
	ModeIdle:                 "idle",
	ModeChoosingNewOrLoad:    "choosing_new_or_load",
	ModeChoosingMentalState:  "choosing_mental_state",
	ModeInterviewing:         "interviewing",
	ModeCheckpointConfirm:    "checkpoint_confirm",
	ModeInterviewingInvented: "interviewing_invented",
	ModeOfferAnalysis:        "offer_analysis",
	ModeWaitingAnalysis:      "waiting_analysis",
	ModeReviewAnalysis:       "review_analysis",
	ModeComplete:             "complete",
	ModeManualCorrection:     "manual_correction",
	ModeJumpEditing:          "jump_editing",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// acceptsAnswers reports whether ordinary interview answers are taken.
func (m Mode) acceptsAnswers() bool {
	switch m {
	case ModeInterviewing, ModeJumpEditing, ModeInterviewingInvented, ModeCheckpointConfirm:
		return true
	}
	return false
}

// BindingKind says what the current prompt is bound to.
type BindingKind int

const (
	BindNone BindingKind = iota
	BindField
	BindAddAnother
	BindCheckpoint
	BindInvented
)

// Binding identifies exactly what the pending reply answers.
type Binding struct {
	Kind       BindingKind
	Section    string
	Item       int
	Field      string
	Question   string
	Checkpoint string
}

func (b Binding) String() string {
	switch b.Kind {
	case BindField:
		return fmt.Sprintf("%s[%d].%s", b.Section, b.Item+1, b.Field)
	case BindAddAnother:
		return b.Section + " add-another"
	case BindCheckpoint:
		return "checkpoint " + b.Checkpoint
	case BindInvented:
		return "invented " + b.Question
	}
	return "none"
}

// State is the explicit wizard position threaded through every engine call.
// It lives for exactly one interview session.
type State struct {
	Mode               Mode
	SectionIndex       int
	FieldIndex         int
	ItemCount          int
	AwaitingAddAnother bool
	InventedIndex      int
	Binding            Binding

	LastCheckpoint   string
	ActiveCheckpoint string
	Fired            map[string]bool

	// ResumeSection is the main-flow section position saved when a jump starts.
	ResumeSection int

	LoadedFromStorage bool
	// ResumeSkip turns on skip-if-answered after a jump-edit finishes.
	ResumeSkip bool

	MentalState     string
	PendingAnalysis *analysis.Result
}

// NewState returns the state of a session that has not started.
func NewState() *State {
	return &State{Mode: ModeIdle, Fired: make(map[string]bool)}
}

// EditingJumpedSection reports whether traversal is inside a jump-edit.
func (s *State) EditingJumpedSection() bool {
	return s.Mode == ModeJumpEditing
}

func (s *State) skipAnswered() bool {
	return (s.LoadedFromStorage || s.ResumeSkip) && !s.EditingJumpedSection()
}

func (s *State) resetPosition(section int) {
	s.SectionIndex = section
	s.FieldIndex = 0
	s.ItemCount = 0
	s.AwaitingAddAnother = false
	s.Binding = Binding{}
}
