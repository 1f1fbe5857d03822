package interview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucpllm/internal/document"
	"ucpllm/internal/schema"
)

func TestEngine_FullWalk(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)

	requireField(t, s.Next(), "personal", "name", 0)
	answer(t, s, "Ada")
	fp := requireField(t, s.Next(), "personal", "mood", 0)
	assert.False(t, fp.Prefilled)
	answer(t, s, "1")

	requireField(t, s.Next(), "projects", "title", 0)
	answer(t, s, "Engine")
	requireField(t, s.Next(), "projects", "goals", 0)
	answer(t, s, "Ship it")

	gate, ok := s.Next().(AddAnotherPrompt)
	require.True(t, ok)
	assert.Equal(t, 1, gate.ItemCount)
	answer(t, s, "yes")

	requireField(t, s.Next(), "projects", "title", 1)
	answer(t, s, "Docs")
	requireField(t, s.Next(), "projects", "goals", 1)
	warn, err := s.Answer("")
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.False(t, warn.Skipped)

	// The second item reached the bound, so no gate.
	cp, ok := s.Next().(CheckpointPrompt)
	require.True(t, ok)
	assert.Equal(t, "cp1", cp.Checkpoint.ID)
	assert.Equal(t, []string{"Name: Ada."}, cp.Summary.Statements)
	answer(t, s, "yes")

	requireField(t, s.Next(), "style", "tone", 0)
	answer(t, s, "Direct")
	requireField(t, s.Next(), "notes", "log", 0)
	_, err = s.Skip()
	require.NoError(t, err)

	final, ok := s.Next().(CheckpointPrompt)
	require.True(t, ok)
	assert.Equal(t, "final", final.Checkpoint.ID)
	answer(t, s, "y")

	inv, ok := s.Next().(InventedPrompt)
	require.True(t, ok)
	assert.Equal(t, "q1", inv.Question.ID)
	assert.Equal(t, 1, inv.Number)
	assert.Equal(t, 2, inv.Total)
	answer(t, s, "Autumn")

	inv, ok = s.Next().(InventedPrompt)
	require.True(t, ok)
	assert.Equal(t, "q2", inv.Question.ID)
	answer(t, s, "2")

	_, ok = s.Next().(InterviewComplete)
	require.True(t, ok)
	assert.Equal(t, ModeOfferAnalysis, s.State.Mode)
	assert.Equal(t, Suspended{Mode: ModeOfferAnalysis}, s.Next())

	doc := s.Doc
	assert.Equal(t, "Ada", doc.Value("personal", 0, "name"))
	assert.Equal(t, "good", doc.Value("personal", 0, "mood"))
	assert.Equal(t, 2, doc.ItemCount("projects"))
	assert.Equal(t, "Docs", doc.Value("projects", 1, "title"))
	assert.Equal(t, "Q: \"Favourite season?\"\nYour answer: Autumn\n-----\n\nQ: \"Coffee or tea?\"\nYour answer: tea\n-----",
		doc.Value("notes", 0, "log"))
	assert.True(t, doc.IsInventedResolved("notes", "q1"))
	assert.True(t, doc.IsInventedResolved("notes", "q2"))
	assert.Equal(t, "final", s.State.LastCheckpoint)
}

func TestEngine_DeclineAddAnother(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	for i := 0; i < 4; i++ {
		s.Next()
		_, err := s.Skip()
		require.NoError(t, err)
	}
	_, ok := s.Next().(AddAnotherPrompt)
	require.True(t, ok)

	warn, err := s.Skip()
	require.NoError(t, err)
	assert.True(t, warn.Skipped)

	_, ok = s.Next().(CheckpointPrompt)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Doc.ItemCount("projects"))
}

func TestEngine_InvalidChoiceKeepsPrompt(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	requireField(t, s.Next(), "personal", "name", 0)
	answer(t, s, "Ada")
	requireField(t, s.Next(), "personal", "mood", 0)

	before := *s.State
	_, err := s.Answer("7")
	require.ErrorIs(t, err, ErrInvalidChoice)
	assert.Equal(t, before.FieldIndex, s.State.FieldIndex)
	assert.Equal(t, before.Binding, s.State.Binding)
	requireField(t, s.Next(), "personal", "mood", 0)

	answer(t, s, "bad")
	assert.Equal(t, "bad", s.Doc.Value("personal", 0, "mood"))
}

func TestEngine_PromptsDoNotMutate(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	before := marshal(t, s.Doc)
	for i := 0; i < 3; i++ {
		s.Next()
	}
	assert.Equal(t, before, marshal(t, s.Doc))
}

func TestEngine_SkipFieldRecordsMarker(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	s.Next()
	warn, err := s.Skip()
	require.NoError(t, err)
	assert.Equal(t, "personal[1].name skipped", warn.String())
	assert.True(t, s.Doc.IsSkipped("personal", 0, "name"))
	assert.False(t, s.Doc.HasValue("personal", 0, "name"))
}

func TestEngine_CheckpointCannotBeSkipped(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	for {
		p := s.Next()
		if _, ok := p.(CheckpointPrompt); ok {
			break
		}
		if _, ok := p.(AddAnotherPrompt); ok {
			answer(t, s, "no")
			continue
		}
		_, err := s.Skip()
		require.NoError(t, err)
	}
	_, err := s.Skip()
	assert.ErrorIs(t, err, ErrDecisionRequired)
	_, err = s.Answer("")
	assert.ErrorIs(t, err, ErrDecisionRequired)
	assert.Equal(t, ModeCheckpointConfirm, s.State.Mode)
}

func reachFirstCheckpoint(t *testing.T, s *Session) {
	t.Helper()
	requireField(t, s.Next(), "personal", "name", 0)
	answer(t, s, "Ada")
	requireField(t, s.Next(), "personal", "mood", 0)
	answer(t, s, "good")
	requireField(t, s.Next(), "projects", "title", 0)
	answer(t, s, "Engine")
	requireField(t, s.Next(), "projects", "goals", 0)
	answer(t, s, "Ship it")
	_, ok := s.Next().(AddAnotherPrompt)
	require.True(t, ok)
	answer(t, s, "no")
	_, ok = s.Next().(CheckpointPrompt)
	require.True(t, ok)
}

func TestEngine_RejectCheckpointThenJump(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	reachFirstCheckpoint(t, s)

	before := marshal(t, s.Doc)
	answer(t, s, "no")
	assert.Equal(t, ModeManualCorrection, s.State.Mode)
	assert.Equal(t, before, marshal(t, s.Doc))
	assert.Equal(t, Suspended{Mode: ModeManualCorrection}, s.Next())

	require.NoError(t, s.JumpTo("personal"))
	assert.True(t, s.State.EditingJumpedSection())

	fp := requireField(t, s.Next(), "personal", "name", 0)
	assert.True(t, fp.Prefilled)
	assert.Equal(t, "Ada", fp.Current)
	answer(t, s, "Grace")
	fp = requireField(t, s.Next(), "personal", "mood", 0)
	assert.Equal(t, "good", fp.Current)
	answer(t, s, "good")

	// Back on the main flow: the checkpoint already fired and is not repeated.
	requireField(t, s.Next(), "style", "tone", 0)
	assert.Equal(t, ModeInterviewing, s.State.Mode)
	assert.Equal(t, "Grace", s.Doc.Value("personal", 0, "name"))
	assert.True(t, s.State.Fired["cp1"])
}

func TestEngine_ContinueFromCorrection(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	reachFirstCheckpoint(t, s)
	answer(t, s, "no")
	require.NoError(t, s.ContinueFromCorrection())
	requireField(t, s.Next(), "style", "tone", 0)
	assert.ErrorIs(t, s.ContinueFromCorrection(), ErrNotAcceptingAnswers)
}

func TestEngine_JumpResumesAndSkipsAnswered(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	requireField(t, s.Next(), "personal", "name", 0)
	answer(t, s, "Ada")
	requireField(t, s.Next(), "personal", "mood", 0)

	// Jump forward mid-section, then come back.
	require.NoError(t, s.JumpTo("style"))
	requireField(t, s.Next(), "style", "tone", 0)
	answer(t, s, "Warm")

	// Name is answered and is not asked again; mood still is.
	requireField(t, s.Next(), "personal", "mood", 0)
	answer(t, s, "good")
	requireField(t, s.Next(), "projects", "title", 0)
	answer(t, s, "Engine")
	requireField(t, s.Next(), "projects", "goals", 0)
	answer(t, s, "x")
	_, ok := s.Next().(AddAnotherPrompt)
	require.True(t, ok)
	answer(t, s, "no")
	_, ok = s.Next().(CheckpointPrompt)
	require.True(t, ok)
	answer(t, s, "yes")

	// Style was filled by the jump.
	requireField(t, s.Next(), "notes", "log", 0)
}

func TestEngine_JumpGuards(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	s.Next()
	before := *s.State

	err := s.JumpTo("nowhere")
	var berr *SchemaBindingError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, "nowhere", berr.Section)
	assert.Equal(t, before.Mode, s.State.Mode)
	assert.Equal(t, before.SectionIndex, s.State.SectionIndex)

	s.State.Mode = ModeWaitingAnalysis
	assert.ErrorIs(t, s.JumpTo("personal"), ErrNotAcceptingAnswers)
	s.State.Mode = ModeComplete
	assert.ErrorIs(t, s.JumpTo("personal"), ErrNotAcceptingAnswers)
}

func TestEngine_JumpFromOfferReturnsToOffer(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	skipToOffer(t, s)

	require.NoError(t, s.JumpTo("style"))
	requireField(t, s.Next(), "style", "tone", 0)
	answer(t, s, "Blunt")

	_, ok := s.Next().(InterviewComplete)
	require.True(t, ok)
	assert.Equal(t, "Blunt", s.Doc.Value("style", 0, "tone"))
}

func loadedDoc(t *testing.T, cat *schema.Catalog) *document.Document {
	t.Helper()
	doc := document.New(cat.Version, fixedNow)
	set(t, cat, doc, "personal", 0, "name", "Ada")
	set(t, cat, doc, "personal", 0, "mood", "good")
	set(t, cat, doc, "projects", 0, "title", "Engine")
	set(t, cat, doc, "projects", 0, "goals", "Ship it")
	set(t, cat, doc, "projects", 1, "title", "Docs")
	require.NoError(t, doc.MarkSkipped(section(t, cat, "projects"), 1, "goals"))
	require.NoError(t, doc.MarkSkipped(section(t, cat, "style"), 0, "tone"))
	return doc
}

func TestEngine_ResumeNeverReasksAnswered(t *testing.T) {
	s := newTestSession(t)
	doc := loadedDoc(t, s.Catalog())
	require.NoError(t, s.StartLoaded(doc, false))

	var asked []string
	for i := 0; i < 50; i++ {
		p := s.Next()
		if _, done := p.(InterviewComplete); done {
			break
		}
		switch p := p.(type) {
		case FieldPrompt:
			asked = append(asked, p.Section.ID+"."+p.Field.Key)
			assert.False(t, answered(doc, p.Section.ID, p.Item, p.Field.Key), "re-asked %s", p.Field.Key)
			answer(t, s, "filled")
		case CheckpointPrompt:
			answer(t, s, "yes")
		case AddAnotherPrompt:
			t.Fatalf("bounded section offered another item")
		case InventedPrompt:
			_, err := s.Skip()
			require.NoError(t, err)
		}
	}
	assert.Equal(t, []string{"notes.log"}, asked)
	assert.True(t, s.State.Fired["cp1"])
	assert.True(t, s.State.Fired["final"])
}

func TestEngine_ResumeSkipsResolvedInvented(t *testing.T) {
	s := newTestSession(t)
	cat := s.Catalog()
	doc := loadedDoc(t, cat)
	notes := section(t, cat, "notes")
	require.NoError(t, doc.AppendNote(notes, "log", document.NoteEntry("Favourite season?", "Winter")))
	require.NoError(t, doc.RecordInvented(notes, "q1", document.InventedAnswered))
	require.NoError(t, s.StartLoaded(doc, false))

	for i := 0; i < 20; i++ {
		switch p := s.Next().(type) {
		case CheckpointPrompt:
			answer(t, s, "yes")
			continue
		case InventedPrompt:
			assert.Equal(t, "q2", p.Question.ID)
			return
		default:
			t.Fatalf("unexpected prompt %T", p)
		}
	}
	t.Fatal("no invented prompt")
}

func TestEngine_ResumeRecoversInventedFromLegacyLog(t *testing.T) {
	s := newTestSession(t)
	cat := s.Catalog()
	doc := loadedDoc(t, cat)
	set(t, cat, doc, "notes", 0, "log", "Eve 🧚 (Q: \"Favourite season?\")\nYour Answer: Winter\n-----")
	require.NoError(t, s.StartLoaded(doc, false))

	assert.Equal(t, map[string]document.InventedStatus{"q1": document.InventedAnswered}, doc.InventedResolved("notes"))
	for i := 0; i < 20; i++ {
		switch p := s.Next().(type) {
		case CheckpointPrompt:
			answer(t, s, "yes")
			continue
		case InventedPrompt:
			assert.Equal(t, "q2", p.Question.ID)
			return
		default:
			t.Fatalf("unexpected prompt %T", p)
		}
	}
	t.Fatal("no invented prompt")
}

func TestEngine_SkippedInventedIsRecorded(t *testing.T) {
	s := newTestSession(t)
	s.StartNew(false)
	skipToOffer(t, s)
	resolved := s.Doc.InventedResolved("notes")
	assert.Equal(t, map[string]document.InventedStatus{
		"q1": document.InventedSkipped,
		"q2": document.InventedSkipped,
	}, resolved)
	assert.Equal(t, "", s.Doc.Value("notes", 0, "log"))
}

func TestEngine_StartLoadedRejectsOverBound(t *testing.T) {
	s := newTestSession(t)
	doc, err := document.Parse([]byte(`{"sections":[{"id":"projects","items":[{"title":"a"},{"title":"b"},{"title":"c"}]}]}`))
	require.NoError(t, err)
	err = s.StartLoaded(doc, false)
	var lerr *document.LoadError
	assert.True(t, errors.As(err, &lerr))
}

func TestEngine_AnswerOutsideInterview(t *testing.T) {
	e := NewEngine(testCatalog(t))
	st := NewState()
	doc := document.New("test-1", fixedNow)
	assert.Equal(t, Suspended{Mode: ModeIdle}, e.Next(st, doc))
	_, err := e.Answer(st, doc, "x")
	assert.ErrorIs(t, err, ErrNotAcceptingAnswers)
	assert.ErrorIs(t, e.AddAnother(st, true), ErrNotAcceptingAnswers)
	assert.ErrorIs(t, e.ConfirmCheckpoint(st, true), ErrNotAcceptingAnswers)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "jump_editing", ModeJumpEditing.String())
	assert.Equal(t, "Mode(99)", Mode(99).String())
}

func TestEngine_BrokenBindingSkipsSection(t *testing.T) {
	tests := []struct {
		name string
		op   func(s *Session) error
	}{
		{"answer", func(s *Session) error { _, err := s.Answer("Ada"); return err }},
		{"skip", func(s *Session) error { _, err := s.Skip(); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			s.StartNew(false)
			requireField(t, s.Next(), "personal", "name", 0)
			before := marshal(t, s.Doc)

			s.State.Binding.Field = "ghost"
			err := tt.op(s)

			var berr *SchemaBindingError
			require.True(t, errors.As(err, &berr), "got %v", err)
			assert.Equal(t, "personal", berr.Section)
			assert.Equal(t, "ghost", berr.Field)
			assert.Equal(t, 1, s.State.SectionIndex)
			assert.Equal(t, 0, s.State.FieldIndex)
			assert.Equal(t, before, marshal(t, s.Doc))

			requireField(t, s.Next(), "projects", "title", 0)
		})
	}
}
