package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or fallback when it is not a terminal.
func Width(f *os.File, fallback int) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// NewRenderer returns a markdown renderer wrapping at width.
func NewRenderer(width int) (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// RenderMarkdown renders md for f when it is a terminal and returns it unchanged otherwise.
func RenderMarkdown(f *os.File, md string) string {
	if !IsTerminal(f) {
		return md
	}
	render, err := NewRenderer(Width(f, 80))
	if err != nil {
		return md
	}
	out, err := render(md)
	if err != nil {
		return md
	}
	return out
}
