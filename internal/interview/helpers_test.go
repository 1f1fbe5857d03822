package interview

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ucpllm/internal/document"
	"ucpllm/internal/protocol"
	"ucpllm/internal/schema"
)

const testCatalogYAML = `
version: "test-1"
sections:
  - id: personal
    title: Personal
    max_items: 1
    fields:
      - {key: name, label: Name, type: text}
      - key: mood
        label: Mood
        type: select
        options:
          - {value: good, text: Good}
          - {value: bad, text: Bad}
          - {value: not_specified, text: Unsaid}
  - id: projects
    title: Projects
    max_items: 2
    fields:
      - {key: title, label: Title, type: text}
      - {key: goals, label: Goals, type: textarea}
  - id: style
    title: Style
    max_items: 1
    fields:
      - {key: tone, label: Tone, type: text}
  - id: notes
    title: Notes
    max_items: 1
    fields:
      - {key: log, label: Log, type: textarea}
invented_questions:
  - {id: q1, question: "Favourite season?", type: text}
  - {id: q2, question: "Coffee or tea?", type: mc, options: [coffee, tea]}
checkpoints:
  - id: cp1
    after: projects
    entries:
      - {section: personal, field: name, strategy: verbatim, template: "Name: {value}."}
  - id: final
    before_invented: true
    entries:
      - {section: style, field: tone, strategy: verbatim, template: "Tone: {value}."}
bindings:
  preferred_name: {section: personal, field: name}
  mental_state: {section: personal, field: mood}
  notes_log: {section: notes, field: log}
  analysis_summary: {section: notes, field: externalAnalysis}
  project_titles: {section: projects, field: title}
  passion_names: {section: style, field: tone}
  primary_role: {section: style, field: tone}
`

var fixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	cat, err := schema.Parse([]byte(testCatalogYAML))
	require.NoError(t, err)
	return cat
}

func newTestSession(t *testing.T, opts ...SessionOption) *Session {
	t.Helper()
	cat := testCatalog(t)
	clock := func() time.Time { return fixedNow }
	r := protocol.NewRenderer(cat, protocol.WithClock(clock))
	return NewSession(cat, r, append([]SessionOption{WithSessionClock(clock)}, opts...)...)
}

func section(t *testing.T, cat *schema.Catalog, id string) schema.SectionDefinition {
	t.Helper()
	def, _, ok := cat.Section(id)
	require.True(t, ok, id)
	return def
}

func set(t *testing.T, cat *schema.Catalog, doc *document.Document, sec string, item int, key, value string) {
	t.Helper()
	require.NoError(t, doc.SetValue(section(t, cat, sec), item, key, value))
}

func requireField(t *testing.T, p Prompt, sec, key string, item int) FieldPrompt {
	t.Helper()
	fp, ok := p.(FieldPrompt)
	require.Truef(t, ok, "want field prompt %s.%s, got %T %+v", sec, key, p, p)
	require.Equal(t, sec, fp.Section.ID)
	require.Equal(t, key, fp.Field.Key)
	require.Equal(t, item, fp.Item)
	return fp
}

func answer(t *testing.T, s *Session, reply string) {
	t.Helper()
	_, err := s.Answer(reply)
	require.NoError(t, err)
}

func marshal(t *testing.T, doc *document.Document) string {
	t.Helper()
	b, err := doc.Marshal()
	require.NoError(t, err)
	return string(b)
}

// skipToOffer skips every remaining question and confirms every summary.
func skipToOffer(t *testing.T, s *Session) {
	t.Helper()
	for i := 0; i < 200; i++ {
		switch p := s.Next().(type) {
		case FieldPrompt, InventedPrompt:
			_, err := s.Skip()
			require.NoError(t, err)
		case AddAnotherPrompt:
			answer(t, s, "no")
		case CheckpointPrompt:
			answer(t, s, "yes")
		case InterviewComplete:
			return
		default:
			t.Fatalf("unexpected prompt %T %+v", p, p)
		}
	}
	t.Fatal("interview did not finish")
}

type fakeAnalyzer struct {
	text    string
	err     error
	release chan struct{}
}

func (f *fakeAnalyzer) Name() string { return "fake" }

func (f *fakeAnalyzer) Analyze(ctx context.Context, request string) (string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}
