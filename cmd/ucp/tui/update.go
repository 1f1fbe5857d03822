package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"ucpllm/internal/analysis"
	"ucpllm/internal/interview"
	"ucpllm/internal/logging"
	"ucpllm/internal/schema"
	"ucpllm/internal/store"
)

const helpText = `Commands:
  /skip              skip the current question
  /jump <id|number>  edit one section, then return
  /sections          list sections
  /t <n>             insert template n
  /preview           show the protocol preview
  /save [path]       save the profile
  /export [path]     write the final protocol
  /cancel            abort a running analysis
  /quit              leave`

const correctionText = "Type a section number or id to correct it, or 'continue' to go on. /sections lists them."

var decisionField = schema.FieldDefinition{Key: "decision", Type: schema.Boolean}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEnter:
			if msg.Alt {
				break
			}
			input := m.textarea.Value()
			m.textarea.Reset()
			cmd := m.handleInput(input)
			m.refresh()
			if m.quit {
				return m, tea.Quit
			}
			return m, cmd
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()
		return m, nil

	case analysisTickMsg:
		cmd := m.onAnalysisTick()
		m.refresh()
		return m, cmd

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) resize() {
	const chrome = 1 + 1 + 1 + 5 // header, status, footer, bordered input
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	w := m.width
	if w < 20 {
		w = 20
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.textarea.SetWidth(w - 2)
	m.renderer = newRenderer(m.style, w-4)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func pollAnalysis() tea.Cmd {
	return tea.Tick(pollInterval, func(_ time.Time) tea.Msg { return analysisTickMsg{} })
}

// start opens the document named in the config, or offers the choice.
func (m *Model) start() {
	m.session.Begin()
	if m.docPath != "" {
		if _, err := os.Stat(m.docPath); err != nil {
			m.startNew()
			return
		}
		path := m.docPath
		m.docPath = ""
		if m.load(path) {
			return
		}
	}
	if len(m.existing) == 0 {
		m.startNew()
		return
	}
	var b strings.Builder
	b.WriteString("Start a new profile or continue a saved one:\n\n  0. New profile\n")
	for i, p := range m.existing {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, filepath.Base(p))
	}
	b.WriteString("\nType a number or a path.")
	m.say("assistant", b.String())
}

func (m *Model) startNew() {
	m.session.StartNew(m.askMood)
	m.say("assistant", "Starting a new profile. Every question can be skipped with /skip.")
	m.advance()
}

func (m *Model) load(path string) bool {
	doc, err := m.store.Load(path)
	if err == nil {
		err = m.session.StartLoaded(doc, m.askMood)
	}
	if err != nil {
		m.sayErr(err)
		return false
	}
	m.docPath = path
	m.say("assistant", fmt.Sprintf("Loaded %s. Questions you already answered are skipped.", filepath.Base(path)))
	m.advance()
	return true
}

func (m *Model) chooseStart(input string) {
	choice := strings.TrimSpace(input)
	switch strings.ToLower(choice) {
	case "", "0", "new":
		m.startNew()
		return
	}
	if n, err := strconv.Atoi(choice); err == nil {
		if n < 1 || n > len(m.existing) {
			m.say("system", fmt.Sprintf("Pick a number between 0 and %d.", len(m.existing)))
			return
		}
		m.load(m.existing[n-1])
		return
	}
	m.load(choice)
}

// advance shows the next prompt.
func (m *Model) advance() {
	m.prompt = m.session.Next()
	switch p := m.prompt.(type) {
	case interview.InterviewComplete:
		if !m.session.AnalysisAvailable() {
			_ = m.session.DeclineAnalysis()
			m.finish("Interview complete.")
			return
		}
		m.say("assistant", "Interview complete. Send your profile for an external analysis? (yes/no)")
		return
	case interview.Suspended:
		switch p.Mode {
		case interview.ModeChoosingMentalState:
			m.say("assistant", m.mentalStateText())
		case interview.ModeManualCorrection:
			m.say("assistant", correctionText)
		}
		return
	case interview.FieldPrompt:
		if p.Prefilled {
			m.textarea.SetValue(p.Current)
		}
	}
	m.say("assistant", PromptText(m.prompt, m.session.CheckpointIntro()))
}

func (m *Model) mentalStateText() string {
	var b strings.Builder
	b.WriteString("Before we start: how are you feeling today?")
	if f, ok := m.session.MentalStateField(); ok {
		writeOptions(&b, f)
	}
	return b.String()
}

func (m *Model) finish(msg string) {
	if path, err := m.save(""); err == nil {
		msg += " Saved to " + path + "."
	}
	m.say("assistant", msg+" Use /export to write the protocol or /quit to leave.")
}

func (m *Model) sayErr(err error) {
	m.say("system", err.Error())
}

func decision(input string) (bool, bool) {
	v, err := decisionField.Canonical(input)
	if err != nil || v == "" {
		return false, false
	}
	return v == "true", true
}

// handleInput routes one submitted line.
func (m *Model) handleInput(input string) tea.Cmd {
	input = strings.TrimRight(input, " \t\r\n")
	if trimmed := strings.TrimSpace(input); strings.HasPrefix(trimmed, "/") {
		m.say("user", trimmed)
		return m.handleCommand(trimmed)
	}
	m.say("user", input)

	switch m.session.State.Mode {
	case interview.ModeIdle, interview.ModeChoosingNewOrLoad:
		m.chooseStart(input)

	case interview.ModeChoosingMentalState:
		greeting, err := m.session.ChooseMentalState(input)
		if err != nil {
			m.sayErr(err)
			return nil
		}
		m.say("assistant", greeting)
		m.advance()

	case interview.ModeOfferAnalysis:
		yes, ok := decision(input)
		if !ok {
			m.say("system", "Please answer yes or no.")
			return nil
		}
		if yes {
			return m.requestAnalysis()
		}
		_ = m.session.DeclineAnalysis()
		m.finish("No analysis requested.")

	case interview.ModeWaitingAnalysis:
		m.say("system", "The analysis is still running. /cancel aborts it.")

	case interview.ModeReviewAnalysis:
		yes, ok := decision(input)
		if !ok {
			m.say("system", "Please answer yes or no.")
			return nil
		}
		if yes {
			if err := m.session.AcceptAnalysis(); err != nil {
				m.sayErr(err)
				return nil
			}
			m.finish("Analysis added to your profile.")
			return nil
		}
		_ = m.session.DiscardAnalysis()
		m.finish("Analysis discarded.")

	case interview.ModeManualCorrection:
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "", "c", "continue":
			if err := m.session.ContinueFromCorrection(); err != nil {
				m.sayErr(err)
				return nil
			}
			m.advance()
		default:
			m.jump(input)
		}

	case interview.ModeComplete:
		m.say("assistant", "The interview is finished. Use /save, /export or /quit.")

	default:
		warn, err := m.session.Answer(input)
		if err != nil {
			m.sayErr(err)
			var berr *interview.SchemaBindingError
			if errors.As(err, &berr) {
				m.advance()
			}
			return nil
		}
		if warn != nil {
			m.say("system", "Left empty.")
		}
		m.advance()
	}
	return nil
}

func (m *Model) requestAnalysis() tea.Cmd {
	if _, err := m.session.RequestAnalysis(m.ctx); err != nil {
		m.sayErr(err)
		if errors.Is(err, analysis.ErrNoAnalyzer) {
			_ = m.session.DeclineAnalysis()
			m.finish("No analysis provider is configured.")
		}
		return nil
	}
	m.waiting = true
	m.say("assistant", "Analysis requested. This can take a minute.")
	return tea.Batch(m.spinner.Tick, pollAnalysis())
}

func (m *Model) onAnalysisTick() tea.Cmd {
	ok, err := m.session.PollAnalysis()
	if !ok {
		if m.session.State.Mode == interview.ModeWaitingAnalysis {
			return pollAnalysis()
		}
		m.waiting = false
		return nil
	}
	m.waiting = false
	if err != nil {
		m.sayErr(err)
		m.finish("The analysis failed; your profile is unchanged.")
		return nil
	}
	text := m.session.State.PendingAnalysis.Text
	m.say("assistant", "External analysis:\n\n"+text+"\n\nAdd this analysis to your profile? (yes/no)")
	return nil
}

func (m *Model) handleCommand(line string) tea.Cmd {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/help", "/?":
		m.say("assistant", helpText)
		return nil
	case "/quit", "/exit":
		m.quit = true
		return tea.Quit
	case "/sections":
		m.say("assistant", sectionList(m.session.Catalog()))
		return nil
	}

	if m.session.Doc == nil {
		m.say("system", "No profile yet. Choose a new or saved profile first.")
		return nil
	}

	switch name {
	case "/skip":
		if _, err := m.session.Skip(); err != nil {
			m.sayErr(err)
			return nil
		}
		m.advance()
	case "/jump":
		m.jump(arg)
	case "/t":
		m.insertTemplate(arg)
	case "/preview":
		m.say("preview", m.session.Preview())
	case "/save":
		if path, err := m.save(arg); err != nil {
			m.sayErr(err)
		} else {
			m.say("assistant", "Saved to "+path+".")
		}
	case "/export":
		if path, err := m.export(arg); err != nil {
			m.sayErr(err)
		} else {
			m.say("assistant", "Protocol written to "+path+".")
		}
	case "/cancel":
		m.session.CancelAnalysis()
	default:
		m.say("system", "Unknown command "+fields[0]+". /help lists the commands.")
	}
	return nil
}

func (m *Model) jump(arg string) {
	target := strings.TrimSpace(arg)
	cat := m.session.Catalog()
	if n, err := strconv.Atoi(target); err == nil && n >= 1 && n <= len(cat.Sections) {
		target = cat.Sections[n-1].ID
	}
	if target == "" {
		m.say("system", "Usage: /jump <section id or number>. /sections lists them.")
		return
	}
	if err := m.session.JumpTo(target); err != nil {
		m.sayErr(err)
		return
	}
	logging.Session("jump to %s from the TUI", target)
	m.say("assistant", "Editing this section. Current answers are filled in; send them unchanged to keep them.")
	m.advance()
}

func (m *Model) insertTemplate(arg string) {
	fp, ok := m.prompt.(interview.FieldPrompt)
	if !ok || len(fp.Field.Templates) == 0 {
		m.say("system", "This question has no templates.")
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(fp.Field.Templates) {
		m.say("system", fmt.Sprintf("Pick a template between 1 and %d.", len(fp.Field.Templates)))
		return
	}
	m.textarea.SetValue(fp.Field.Templates[n-1])
}

func (m *Model) save(path string) (string, error) {
	if m.store == nil || m.session.Doc == nil {
		return "", errors.New("nothing to save")
	}
	if path == "" {
		path = m.docPath
	}
	saved, err := m.store.Save(m.ctx, m.session.Doc, path)
	if err != nil {
		return "", err
	}
	m.docPath = saved
	return saved, nil
}

func (m *Model) export(path string) (string, error) {
	if path == "" {
		doc := m.docPath
		if doc == "" && m.store != nil {
			ref := m.session.Catalog().Bindings.PreferredName
			doc = m.store.Files.PathFor(m.session.Doc.Value(ref.Section, 0, ref.Field))
		}
		if doc == "" {
			return "", errors.New("no export path")
		}
		path = store.ExportPath(doc)
	}
	if err := store.WriteFile(path, []byte(m.session.Export())); err != nil {
		return "", err
	}
	return path, nil
}

func sectionList(cat *schema.Catalog) string {
	var b strings.Builder
	b.WriteString("Sections:")
	for i, s := range cat.Sections {
		fmt.Fprintf(&b, "\n  %d. %s (%s)", i+1, s.Title, s.ID)
	}
	return b.String()
}
