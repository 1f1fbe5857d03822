package interview

import (
	"errors"
	"fmt"

	"ucpllm/internal/schema"
)

var (
	// ErrNotAcceptingAnswers is returned when a reply arrives in a mode that
	// does not take ordinary answers, such as while analysis is outstanding.
	ErrNotAcceptingAnswers = errors.New("the interview is not accepting answers right now")
	// ErrDecisionRequired is returned when skipping a step that needs yes or no.
	ErrDecisionRequired = errors.New("this step needs an explicit yes or no")
	// ErrAnalysisPending is returned for a second analysis opt-in while one is outstanding.
	ErrAnalysisPending = errors.New("an analysis request is already outstanding")
	// ErrInvalidChoice is returned when a reply names no option; the prompt stays the same.
	ErrInvalidChoice = schema.ErrInvalidChoice
)

// SchemaBindingError reports a prompt that references a section or field
// absent from the catalog. The engine logs it and moves to the next section.
type SchemaBindingError struct {
	Section string
	Field   string
	Reason  string
}

func (e *SchemaBindingError) Error() string {
	target := e.Section
	if e.Field != "" {
		target += "." + e.Field
	}
	if e.Reason == "" {
		return fmt.Sprintf("schema binding error: %s", target)
	}
	return fmt.Sprintf("schema binding error: %s: %s", target, e.Reason)
}

// EmptyReplyWarning notes a blank or skipped answer. It is informational:
// the answer was recorded and traversal continued.
type EmptyReplyWarning struct {
	Binding Binding
	Skipped bool
}

func (w *EmptyReplyWarning) String() string {
	if w.Skipped {
		return fmt.Sprintf("%s skipped", w.Binding)
	}
	return fmt.Sprintf("%s answered empty", w.Binding)
}
