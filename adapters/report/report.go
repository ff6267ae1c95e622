package report

import (
	"fmt"
	"strings"

	"metasens/adapters/engine"
	"metasens/domain/core"
	"metasens/domain/tidy"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Report is a rendered analysis report: the markdown text plus the
// artifact envelope identifying it
type Report struct {
	Artifact core.Artifact
	Markdown string
}

// Build renders a merged results table into a markdown report. The
// optional effect summary adds a descriptive-statistics section above the
// table.
func Build(title string, kind core.ArtifactKind, t *tidy.Table, effects *engine.EffectSummary) Report {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)

	if effects != nil {
		b.WriteString("## Study effects\n\n")
		fmt.Fprintf(&b, "- Studies: %d\n", effects.K)
		fmt.Fprintf(&b, "- Mean effect: %s (sd %s)\n", formatCell(effects.Mean), formatCell(effects.StdDev))
		fmt.Fprintf(&b, "- Median effect: %s\n", formatCell(effects.Median))
		fmt.Fprintf(&b, "- Range: %s to %s\n", formatCell(effects.Min), formatCell(effects.Max))
		b.WriteString("\n")
	}

	b.WriteString("## Results\n\n")
	writeTable(&b, t)

	return Report{
		Artifact: core.Artifact{
			ID:        core.NewID(),
			Kind:      kind,
			Payload:   map[string]interface{}{"title": title, "rows": len(t.Rows)},
			CreatedAt: core.Now(),
		},
		Markdown: b.String(),
	}
}

// HTML renders the report's markdown to HTML
func (r Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(r.Markdown), p, renderer)
}

// writeTable renders the table as a markdown pipe table
func writeTable(b *strings.Builder, t *tidy.Table) {
	b.WriteString("| " + strings.Join(t.Columns, " | ") + " |\n")

	sep := make([]string, len(t.Columns))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")

	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			cells[i] = formatCell(row[col])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

// formatCell renders a cell value for display; nulls come out empty
func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.4f", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
