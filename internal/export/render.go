package export

import "github.com/charmbracelet/glamour"

// Render formats a markdown export for a terminal using the named glamour
// style ("dark", "light", "notty"). On failure the markdown is returned
// unchanged.
func Render(markdown, style string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	rendered, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
