package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown answers into terminal output.
type Renderer struct {
	width int
	style string
}

// NewRenderer builds a renderer wrapping at width columns. An empty style
// selects glamour's automatic light/dark detection.
func NewRenderer(width int, style string) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	return &Renderer{width: width, style: style}
}

// Render returns text prettified as markdown when prettify is set. Any
// rendering failure yields text unchanged.
func (r *Renderer) Render(text string, prettify bool) string {
	if !prettify || strings.TrimSpace(text) == "" {
		return text
	}
	styleOpt := glamour.WithAutoStyle()
	if r.style != "" {
		styleOpt = glamour.WithStandardStyle(r.style)
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(r.width))
	if err != nil {
		return text
	}
	out, err := tr.Render(text)
	if err != nil {
		return text
	}
	return out
}
