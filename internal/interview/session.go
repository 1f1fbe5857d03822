package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ucpllm/internal/analysis"
	"ucpllm/internal/document"
	"ucpllm/internal/logging"
	"ucpllm/internal/protocol"
	"ucpllm/internal/schema"
)

// Session ties one interview to its document, renderer and analysis
// coordinator. It is not safe for concurrent use; the analysis call is the
// only work that runs off the caller's goroutine.
type Session struct {
	ID    string
	State *State
	Doc   *document.Document

	engine   *Engine
	renderer *protocol.Renderer
	coord    *analysis.Coordinator
	now      func() time.Time
	turn     int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionClock overrides the clock used for new documents.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithCoordinator attaches an analysis coordinator.
func WithCoordinator(c *analysis.Coordinator) SessionOption {
	return func(s *Session) { s.coord = c }
}

// NewSession returns an idle session over cat.
func NewSession(cat *schema.Catalog, renderer *protocol.Renderer, opts ...SessionOption) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		State:    NewState(),
		engine:   NewEngine(cat),
		renderer: renderer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the session catalog.
func (s *Session) Catalog() *schema.Catalog { return s.engine.cat }

// Begin moves an idle session to the new-or-load choice.
func (s *Session) Begin() {
	if s.State.Mode == ModeIdle {
		s.State.Mode = ModeChoosingNewOrLoad
	}
}

// StartNew begins with an empty document.
func (s *Session) StartNew(askMentalState bool) {
	s.Doc = document.New(s.engine.cat.Version, s.now())
	s.start(false, askMentalState)
}

// StartLoaded begins from a stored document. Answered fields are not asked again.
func (s *Session) StartLoaded(doc *document.Document, askMentalState bool) error {
	if doc == nil {
		return &document.LoadError{Reason: "no document"}
	}
	if err := doc.Validate(s.engine.cat); err != nil {
		return err
	}
	s.Doc = doc
	s.seedInvented()
	s.start(true, askMentalState)
	return nil
}

// seedInvented carries answered invented questions over from documents
// saved before the resolved set was stored.
func (s *Session) seedInvented() {
	ref := s.engine.cat.Bindings.NotesLog
	def, _, ok := s.engine.cat.Section(ref.Section)
	if !ok {
		return
	}
	n, err := s.Doc.SeedInventedFromLog(def, ref.Field, s.engine.cat.Invented)
	if err != nil {
		logging.InterviewError("seed invented questions: %v", err)
		return
	}
	if n > 0 {
		logging.Session("recovered %d answered invented questions from the notes log", n)
	}
}

func (s *Session) start(loaded, askMentalState bool) {
	st := NewState()
	st.LoadedFromStorage = loaded
	st.Mode = ModeInterviewing
	if askMentalState {
		st.Mode = ModeChoosingMentalState
	}
	s.State = st
	logging.Session("session %s started (loaded=%v)", s.ID, loaded)
}

// MentalStateField returns the definition used for the opening mood question.
func (s *Session) MentalStateField() (schema.FieldDefinition, bool) {
	return s.engine.cat.FieldDef(s.engine.cat.Bindings.MentalState)
}

// ChooseMentalState records the opening mood and returns the greeting.
// A blank reply is treated as not specified.
func (s *Session) ChooseMentalState(reply string) (string, error) {
	if s.State.Mode != ModeChoosingMentalState {
		return "", ErrNotAcceptingAnswers
	}
	ref := s.engine.cat.Bindings.MentalState
	f, ok := s.MentalStateField()
	if !ok {
		return "", &SchemaBindingError{Section: ref.Section, Field: ref.Field, Reason: "mental state binding missing"}
	}
	value, err := f.Canonical(reply)
	if err != nil {
		return "", err
	}
	if value != "" {
		def, _, _ := s.engine.cat.Section(ref.Section)
		if err := s.Doc.SetValue(def, 0, ref.Field, value); err != nil {
			return "", err
		}
	}
	mood := value
	if mood == "" {
		mood = "not_specified"
	}
	s.State.MentalState = mood
	s.State.Mode = ModeInterviewing
	s.turn++
	logging.Session("mental state %s", mood)
	return Greeting(mood, s.turn), nil
}

// Next returns the next prompt.
func (s *Session) Next() Prompt {
	if s.Doc == nil {
		return Suspended{Mode: s.State.Mode}
	}
	return s.engine.Next(s.State, s.Doc)
}

// Answer applies a reply to the current prompt.
func (s *Session) Answer(reply string) (*EmptyReplyWarning, error) {
	if s.State.Mode == ModeWaitingAnalysis {
		return nil, ErrNotAcceptingAnswers
	}
	s.turn++
	return s.engine.Answer(s.State, s.Doc, reply)
}

// Skip skips the current prompt.
func (s *Session) Skip() (*EmptyReplyWarning, error) {
	s.turn++
	return s.engine.Skip(s.State, s.Doc)
}

// JumpTo starts a jump-edit of sectionID.
func (s *Session) JumpTo(sectionID string) error {
	return s.engine.JumpTo(s.State, sectionID)
}

// ContinueFromCorrection leaves manual correction without editing.
func (s *Session) ContinueFromCorrection() error {
	return s.engine.ContinueFromCorrection(s.State)
}

// CheckpointIntro returns the mood-specific line shown above a summary.
func (s *Session) CheckpointIntro() string {
	return CheckpointIntro(s.State.MentalState)
}

// Preview renders the lenient human view.
func (s *Session) Preview() string {
	return s.renderer.Render(s.Doc, protocol.Preview)
}

// Export renders the final protocol.
func (s *Session) Export() string {
	return s.renderer.Render(s.Doc, protocol.Export)
}

// AnalysisAvailable reports whether an analysis provider is configured.
func (s *Session) AnalysisAvailable() bool {
	return s.coord.Available()
}

// RequestAnalysis opts in to external analysis. Only one request may be
// outstanding; a second opt-in returns ErrAnalysisPending.
func (s *Session) RequestAnalysis(ctx context.Context) (string, error) {
	switch s.State.Mode {
	case ModeOfferAnalysis:
	case ModeWaitingAnalysis:
		return "", ErrAnalysisPending
	default:
		return "", fmt.Errorf("%w: analysis is offered once the interview is complete", ErrNotAcceptingAnswers)
	}
	if s.coord == nil {
		return "", analysis.ErrNoAnalyzer
	}
	id, err := s.coord.Submit(ctx, s.Export())
	if errors.Is(err, analysis.ErrPending) {
		return "", ErrAnalysisPending
	}
	if err != nil {
		return "", err
	}
	s.State.Mode = ModeWaitingAnalysis
	logging.Session("analysis %s requested", id)
	return id, nil
}

// DeclineAnalysis finishes without analysis.
func (s *Session) DeclineAnalysis() error {
	if s.State.Mode != ModeOfferAnalysis {
		return ErrNotAcceptingAnswers
	}
	s.State.Mode = ModeComplete
	return nil
}

// PollAnalysis delivers the analysis result if it has arrived. It reports
// false while the request is still running.
func (s *Session) PollAnalysis() (bool, error) {
	if s.State.Mode != ModeWaitingAnalysis || s.coord == nil {
		return false, nil
	}
	res, ok := s.coord.Poll()
	if !ok {
		return false, nil
	}
	return true, s.Deliver(res)
}

// Deliver applies an analysis result. Success moves to review; an error
// goes straight to complete without touching the document.
func (s *Session) Deliver(res analysis.Result) error {
	if s.State.Mode != ModeWaitingAnalysis {
		return ErrNotAcceptingAnswers
	}
	if err := res.Err(); err != nil {
		logging.Session("analysis %s failed: %s", res.RequestID, res.Message)
		s.State.Mode = ModeComplete
		return err
	}
	r := res
	s.State.PendingAnalysis = &r
	s.State.Mode = ModeReviewAnalysis
	return nil
}

// AcceptAnalysis writes the pending analysis into the document.
func (s *Session) AcceptAnalysis() error {
	if s.State.Mode != ModeReviewAnalysis || s.State.PendingAnalysis == nil {
		return ErrNotAcceptingAnswers
	}
	ref := s.engine.cat.Bindings.AnalysisSummary
	def, _, ok := s.engine.cat.Section(ref.Section)
	if !ok {
		return &SchemaBindingError{Section: ref.Section, Field: ref.Field, Reason: "analysis summary binding missing"}
	}
	if err := s.Doc.SetAnalysisSummary(def, ref.Field, s.State.PendingAnalysis.Text); err != nil {
		return err
	}
	logging.Session("analysis %s accepted", s.State.PendingAnalysis.RequestID)
	s.State.PendingAnalysis = nil
	s.State.Mode = ModeComplete
	return nil
}

// DiscardAnalysis drops the pending analysis.
func (s *Session) DiscardAnalysis() error {
	if s.State.Mode != ModeReviewAnalysis {
		return ErrNotAcceptingAnswers
	}
	logging.Session("analysis discarded")
	s.State.PendingAnalysis = nil
	s.State.Mode = ModeComplete
	return nil
}

// CancelAnalysis aborts an outstanding request; its error result is
// still delivered through PollAnalysis.
func (s *Session) CancelAnalysis() {
	if s.coord != nil {
		s.coord.Cancel()
	}
}
