// Package tui is the chat-style interactive interview.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"ucpllm/cmd/ucp/ui"
	"ucpllm/internal/interview"
	"ucpllm/internal/store"
)

// Message is one line of the conversation history.
type Message struct {
	Role    string // "user", "assistant" or "system"
	Content string
	Time    time.Time
}

// Config wires the model to its collaborators.
type Config struct {
	Context        context.Context
	Session        *interview.Session
	Store          *store.Store
	DocPath        string   // document to resume, or target for new documents
	Existing       []string // stored documents offered at start
	AskMentalState bool
	PreviewStyle   string
	AppName        string
}

// Model is the bubbletea model for one interview session.
type Model struct {
	ctx      context.Context
	session  *interview.Session
	store    *store.Store
	styles   ui.Styles
	appName  string
	askMood  bool
	existing []string
	docPath  string

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	style    string

	history []Message
	prompt  interview.Prompt
	width   int
	height  int
	waiting bool
	quit    bool
}

type analysisTickMsg struct{}

const pollInterval = 200 * time.Millisecond

// New builds the model. The session starts immediately when DocPath
// names an existing document or no stored documents are offered.
func New(cfg Config) Model {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	styles := ui.NewStyles(ui.ThemeFor(cfg.PreviewStyle))

	ta := textarea.New()
	ta.Placeholder = "Type your answer (Enter to send, Alt+Enter for a new line, /help for commands)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 8000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)

	appName := cfg.AppName
	if appName == "" {
		appName = "UCP-LLM Generator"
	}

	m := Model{
		ctx:      ctx,
		session:  cfg.Session,
		store:    cfg.Store,
		styles:   styles,
		appName:  appName,
		askMood:  cfg.AskMentalState,
		existing: cfg.Existing,
		docPath:  cfg.DocPath,
		textarea: ta,
		viewport: vp,
		spinner:  sp,
		style:    cfg.PreviewStyle,
	}
	m.renderer = newRenderer(cfg.PreviewStyle, 80)
	m.start()
	return m
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	opt := glamour.WithAutoStyle()
	if style == "dark" || style == "light" {
		opt = glamour.WithStylePath(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// History returns the conversation so far.
func (m Model) History() []Message {
	return m.history
}

func (m *Model) say(role, content string) {
	m.history = append(m.history, Message{Role: role, Content: content, Time: time.Now()})
}
