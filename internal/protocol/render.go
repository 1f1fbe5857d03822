// Package protocol renders a document into the fixed text protocol handed
// to a language model, either as a full export or as an editing preview.
package protocol

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ucpllm/internal/document"
	"ucpllm/internal/logging"
	"ucpllm/internal/schema"
)

// Mode selects what Render produces.
type Mode int

const (
	// Preview includes empty sections and omits the boilerplate framing.
	Preview Mode = iota
	// Export is the artifact handed to analysis and to any export target.
	Export
)

func (m Mode) String() string {
	switch m {
	case Preview:
		return "preview"
	case Export:
		return "export"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

const (
	notSpecified    = "(not specified)"
	nonePlaceholder = "(none)"
	analysisStart   = "--- External analysis summary ---"
	analysisEnd     = "--- End of external analysis summary ---"
)

var (
	//go:embed preamble.tmpl
	preambleText string
	//go:embed postamble.tmpl
	postambleText string

	preambleTmpl  = template.Must(template.New("preamble").Option("missingkey=error").Parse(preambleText))
	postambleTmpl = template.Must(template.New("postamble").Option("missingkey=error").Parse(postambleText))
)

// Renderer turns documents into protocol text. It holds no document state.
type Renderer struct {
	catalog *schema.Catalog
	appName string
	now     func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the clock used for the export preamble's current date.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithAppName sets the generator name written in the preamble.
func WithAppName(name string) Option {
	return func(r *Renderer) {
		if name != "" {
			r.appName = name
		}
	}
}

// NewRenderer returns a Renderer over cat.
func NewRenderer(cat *schema.Catalog, opts ...Option) *Renderer {
	r := &Renderer{
		catalog: cat,
		appName: "UCP-LLM Generator",
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render produces the text for doc in the given mode. doc is never modified.
func (r *Renderer) Render(doc *document.Document, mode Mode) string {
	var b strings.Builder

	if mode == Export {
		b.WriteString(r.preamble(doc))
		b.WriteString("\n\n---\n\n")
		b.WriteString("## User Context Protocol (UCP-LLM)\n")
	} else {
		b.WriteString("## User Context Protocol (UCP-LLM): preview\n")
	}
	fmt.Fprintf(&b, "**Data version:** %s\n", orDefault(doc.Version, "N/A"))
	fmt.Fprintf(&b, "**Data date:** %s\n\n", formatDataDate(doc.GeneratedAt))

	if mode == Export {
		b.WriteString("--- Detailed user data sections ---\n\n")
	}

	rendered := 0
	for i, def := range r.catalog.Sections {
		if r.writeSection(&b, doc, i+1, def, mode) {
			rendered++
		}
	}

	if summary := r.analysisSummary(doc); summary != "" {
		b.WriteString(analysisStart)
		b.WriteByte('\n')
		b.WriteString(summary)
		b.WriteByte('\n')
		b.WriteString(analysisEnd)
		b.WriteString("\n\n")
	}

	if mode == Export {
		b.WriteString("---\n\n")
		b.WriteString(r.postamble(doc))
		b.WriteString("\n")
	}

	logging.RenderDebug("rendered %s: %d sections, %d bytes", mode, rendered, b.Len())
	return b.String()
}

// writeSection renders one catalog section and reports whether anything was written.
func (r *Renderer) writeSection(b *strings.Builder, doc *document.Document, number int, def schema.SectionDefinition, mode Mode) bool {
	var items []document.Item
	if s, ok := doc.Section(def.ID); ok {
		items = s.Items
	}

	if mode == Export && !anyFilled(def, items) {
		return false
	}
	if mode == Preview && len(items) == 0 {
		items = []document.Item{{}}
	}

	fmt.Fprintf(b, "### %d. Section: %s\n", number, def.Title)

	numbered := def.Multi() && len(items) > 1
	fieldPrefix := "    - "
	if numbered {
		fieldPrefix = "      - "
	}

	for idx, it := range items {
		filled := itemFilled(def, it)
		if mode == Export && !filled {
			continue
		}
		if numbered {
			fmt.Fprintf(b, "  #### Item (%d):\n", idx+1)
		}
		for _, f := range def.Fields {
			value := strings.TrimSpace(it.Value(f.Key))
			if value == "" {
				if mode == Export {
					continue
				}
				fmt.Fprintf(b, "%s**%s:** %s\n", fieldPrefix, f.Label, notSpecified)
				continue
			}
			writeField(b, fieldPrefix, f, value)
		}
	}
	b.WriteByte('\n')
	return true
}

func writeField(b *strings.Builder, prefix string, f schema.FieldDefinition, value string) {
	shown := f.Display(value)
	if !f.IsMultiline(shown) {
		fmt.Fprintf(b, "%s**%s:** %s\n", prefix, f.Label, shown)
		return
	}
	fmt.Fprintf(b, "%s**%s:**\n", prefix, f.Label)
	indent := strings.Repeat(" ", len(prefix))
	for _, line := range strings.Split(shown, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

func itemFilled(def schema.SectionDefinition, it document.Item) bool {
	for _, f := range def.Fields {
		if it.Has(f.Key) {
			return true
		}
	}
	return false
}

func anyFilled(def schema.SectionDefinition, items []document.Item) bool {
	for _, it := range items {
		if itemFilled(def, it) {
			return true
		}
	}
	return false
}

func (r *Renderer) analysisSummary(doc *document.Document) string {
	ref := r.catalog.Bindings.AnalysisSummary
	return strings.TrimSpace(doc.Value(ref.Section, 0, ref.Field))
}

type preambleData struct {
	AppName       string
	CurrentDate   string
	DataDate      string
	PreferredName string
}

type postambleData struct {
	PreferredName string
	ProjectTitles string
	PassionNames  string
	PrimaryRole   string
}

func (r *Renderer) preamble(doc *document.Document) string {
	data := preambleData{
		AppName:       r.appName,
		CurrentDate:   r.now().Format("2006-01-02 15:04:05"),
		DataDate:      formatDataDate(doc.GeneratedAt),
		PreferredName: r.preferredName(doc),
	}
	return execute(preambleTmpl, preambleText, data)
}

func (r *Renderer) postamble(doc *document.Document) string {
	b := r.catalog.Bindings
	data := postambleData{
		PreferredName: r.preferredName(doc),
		ProjectTitles: firstValues(doc, b.ProjectTitles, 2),
		PassionNames:  firstValues(doc, b.PassionNames, 2),
		PrimaryRole:   orDefault(strings.TrimSpace(doc.Value(b.PrimaryRole.Section, 0, b.PrimaryRole.Field)), notSpecified),
	}
	return execute(postambleTmpl, postambleText, data)
}

// execute falls back to the raw template text when substitution fails.
func execute(t *template.Template, raw string, data interface{}) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		logging.RenderWarn("template %s failed, using raw text: %v", t.Name(), err)
		return strings.TrimRight(raw, "\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (r *Renderer) preferredName(doc *document.Document) string {
	ref := r.catalog.Bindings.PreferredName
	return orDefault(strings.TrimSpace(doc.Value(ref.Section, 0, ref.Field)), notSpecified)
}

// firstValues joins the first n non-empty values of a field across items,
// adding an ellipsis when more exist.
func firstValues(doc *document.Document, ref schema.FieldRef, n int) string {
	var vals []string
	if s, ok := doc.Section(ref.Section); ok {
		for _, it := range s.Items {
			if v := strings.TrimSpace(it.Value(ref.Field)); v != "" {
				vals = append(vals, v)
			}
		}
	}
	switch {
	case len(vals) == 0:
		return nonePlaceholder
	case len(vals) > n:
		return strings.Join(vals[:n], ", ") + ", ..."
	default:
		return strings.Join(vals, ", ")
	}
}

func formatDataDate(raw string) string {
	if raw == "" {
		return "N/A"
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format("2006-01-02 15:04:05 UTC")
		}
	}
	return raw
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
