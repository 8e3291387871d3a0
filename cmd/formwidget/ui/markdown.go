package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders form and question descriptions with glamour. Output is
// cached per source text until the wrap width changes.
type Markdown struct {
	dark     bool
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

// NewMarkdown creates a renderer; a nil *Markdown renders plain text.
func NewMarkdown(dark bool, width int) *Markdown {
	md := &Markdown{dark: dark}
	md.SetWidth(width)
	return md
}

// SetWidth rebuilds the renderer for a new wrap width.
func (md *Markdown) SetWidth(width int) {
	if md == nil || (width == md.width && md.renderer != nil) {
		return
	}
	if width < 20 {
		width = 20
	}
	md.width = width
	md.cache = make(map[string]string)

	style := glamour.WithStylePath("light")
	if md.dark {
		style = glamour.WithStylePath("dark")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		md.renderer = nil
		return
	}
	md.renderer = r
}

// Render returns text rendered as markdown, or text unchanged when rendering
// is unavailable.
func (md *Markdown) Render(text string) string {
	if md == nil || md.renderer == nil || text == "" {
		return text
	}
	if out, ok := md.cache[text]; ok {
		return out
	}
	out, err := md.renderer.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")
	md.cache[text] = out
	return out
}
