package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/colibri-os/rlab/internal/app"
)

// markdownRenderer renders markdown for terminal views and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, 24)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// categoryMarkdown builds the detail document for one category row.
func categoryMarkdown(row app.CategoryProgress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", row.Category.DisplayLabel())
	if desc := strings.TrimSpace(row.Category.Description); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "_%s_\n\n", row.Category.Hint)
	fmt.Fprintf(&b, "- Microacciones: **%d/%d**", row.Micro, row.MicroMax)
	if row.MicroRaw > row.Micro {
		fmt.Fprintf(&b, " (%d registradas)", row.MicroRaw)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Evidencias: **%d/%d**", row.Evidence, row.EvidenceMax)
	if row.EvidenceRaw > row.Evidence {
		fmt.Fprintf(&b, " (%d registradas)", row.EvidenceRaw)
	}
	b.WriteString("\n")
	if row.Complete() {
		b.WriteString("\nCategoría completa.\n")
	}
	return b.String()
}
