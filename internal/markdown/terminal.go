package markdown

import (
	"github.com/charmbracelet/glamour"
)

// RenderTerminal renders source for a terminal using the named glamour
// style ("auto" picks one from the terminal background). Rendering errors
// fall back to the raw source.
func RenderTerminal(source, style string, width int) string {
	styleOpt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}

	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return source
	}

	out, err := renderer.Render(source)
	if err != nil {
		return source
	}
	return out
}
