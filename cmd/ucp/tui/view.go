package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ucpllm/internal/interview"
	"ucpllm/internal/schema"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quit {
		return ""
	}
	header := m.styles.Header.Render(m.appName) + " " + m.styles.Muted.Render(m.progress())

	status := ""
	if m.waiting {
		status = m.spinner.View() + m.styles.Muted.Render(" waiting for the analysis...")
	}
	footer := m.styles.Footer.Render("Enter send • Alt+Enter new line • /help commands • Ctrl+C quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		m.textarea.View(),
		footer,
	)
}

func (m Model) progress() string {
	st := m.session.State
	total := len(m.session.Catalog().Sections)
	switch st.Mode {
	case interview.ModeInterviewing, interview.ModeJumpEditing:
		if st.SectionIndex < total {
			return fmt.Sprintf("section %d of %d", st.SectionIndex+1, total)
		}
	case interview.ModeInterviewingInvented:
		return fmt.Sprintf("extra question %d of %d", st.InventedIndex+1, len(m.session.Catalog().Invented))
	}
	return strings.ReplaceAll(st.Mode.String(), "_", " ")
}

func (m Model) renderHistory() string {
	width := m.viewport.Width - 4
	if width < 20 {
		width = 20
	}
	parts := make([]string, 0, len(m.history))
	for _, msg := range m.history {
		switch msg.Role {
		case "user":
			if msg.Content == "" {
				parts = append(parts, m.styles.Prompt.Render("> ")+m.styles.Muted.Render("(empty)"))
				continue
			}
			parts = append(parts, m.styles.Prompt.Render("> ")+m.styles.UserInput.Render(msg.Content))
		case "system":
			parts = append(parts, m.styles.Warning.Width(width).Render(msg.Content))
		case "preview":
			out := msg.Content
			if m.renderer != nil {
				if rendered, err := m.renderer.Render(msg.Content); err == nil {
					out = rendered
				}
			}
			parts = append(parts, out)
		default:
			parts = append(parts, m.styles.AgentResponse.Width(width).Render(msg.Content))
		}
	}
	return strings.Join(parts, "\n\n")
}

// PromptText renders a prompt as the assistant's chat message. intro is
// shown above checkpoint summaries.
func PromptText(p interview.Prompt, intro string) string {
	var b strings.Builder
	switch p := p.(type) {
	case interview.FieldPrompt:
		fmt.Fprintf(&b, "%d. %s", p.SectionNumber, p.Section.Title)
		if p.Section.Multi() {
			fmt.Fprintf(&b, " (item %d)", p.Item+1)
		}
		b.WriteString("\n")
		b.WriteString(p.Field.Label)
		writeOptions(&b, p.Field)
		if len(p.Field.Templates) > 0 {
			b.WriteString("\nTemplates:")
			for i, t := range p.Field.Templates {
				fmt.Fprintf(&b, "\n  /t %d  %s", i+1, t)
			}
		}
		if p.Field.Placeholder != "" && !p.Prefilled {
			fmt.Fprintf(&b, "\n(e.g. %s)", p.Field.Placeholder)
		}
		if p.Prefilled {
			fmt.Fprintf(&b, "\nCurrent answer: %s", p.Field.Display(p.Current))
		}
	case interview.AddAnotherPrompt:
		fmt.Fprintf(&b, "Add another item to %s? You have %d so far. (yes/no)", p.Section.Title, p.ItemCount)
	case interview.CheckpointPrompt:
		b.WriteString(p.Summary.Text(intro))
	case interview.InventedPrompt:
		fmt.Fprintf(&b, "Extra question %d of %d\n%s", p.Number, p.Total, p.Question.Text)
		writeOptions(&b, p.Question.Field())
	case interview.InterviewComplete:
		b.WriteString("Interview complete.")
	case interview.Suspended:
	}
	return b.String()
}

func writeOptions(b *strings.Builder, f schema.FieldDefinition) {
	switch f.Type {
	case schema.SingleSelect, schema.MultipleChoice:
		for i, o := range f.Options {
			fmt.Fprintf(b, "\n  %d. %s", i+1, o.Text)
		}
	case schema.Boolean:
		b.WriteString("\n  (yes/no)")
	case schema.ShortText, schema.LongText:
	}
}
