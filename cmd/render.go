package cmd

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// newRenderer returns a markdown renderer for terminal output. When plain is
// set or the renderer cannot be built, text passes through unchanged.
func newRenderer(plain bool) func(string) string {
	if plain {
		return func(s string) string { return s }
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(s string) string { return s }
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(out, "\n")
	}
}

// statusStyler colors status lines; colors drop out when w is not a terminal.
type statusStyler struct {
	out *termenv.Output
}

func newStatusStyler(w io.Writer) statusStyler {
	return statusStyler{out: termenv.NewOutput(w)}
}

func (s statusStyler) ok(msg string) string {
	return s.out.String("✓ " + msg).Foreground(s.out.Color("#22c55e")).String()
}

func (s statusStyler) warn(msg string) string {
	return s.out.String("⚠ " + msg).Foreground(s.out.Color("#f59e0b")).String()
}

func (s statusStyler) prompt(msg string) string {
	return s.out.String(msg).Foreground(s.out.Color("#818cf8")).Bold().String()
}
