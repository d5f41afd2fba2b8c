// Package ui is the rendering sink for status text. It owns every style;
// the session loop never touches escape codes directly.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			Foreground(lipgloss.Color("12"))

	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Renderer writes styled status lines to one output stream.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Banner draws the welcome box.
func (r *Renderer) Banner(title, subtitle string) {
	fmt.Fprintln(r.out, bannerStyle.Render(title+"\n"+subtitle))
}

// Assistant prints a model reply under its label.
func (r *Renderer) Assistant(text string) {
	fmt.Fprintf(r.out, "%s %s\n", labelStyle.Render("drover:"), text)
}

// AssistantChunk prints a streamed fragment without a trailing newline.
func (r *Renderer) AssistantChunk(text string) {
	fmt.Fprint(r.out, text)
}

// Prompt prints the input prompt without a trailing newline.
func (r *Renderer) Prompt(label string) {
	fmt.Fprint(r.out, labelStyle.Render(label)+" ")
}

// Info prints a dim status line.
func (r *Renderer) Info(format string, a ...interface{}) {
	fmt.Fprintln(r.out, infoStyle.Render(fmt.Sprintf(format, a...)))
}

// Success prints a green status line.
func (r *Renderer) Success(format string, a ...interface{}) {
	fmt.Fprintln(r.out, successStyle.Render(fmt.Sprintf(format, a...)))
}

// Error prints a red status line.
func (r *Renderer) Error(format string, a ...interface{}) {
	fmt.Fprintln(r.out, errorStyle.Render(fmt.Sprintf(format, a...)))
}

// Plain prints unstyled text.
func (r *Renderer) Plain(format string, a ...interface{}) {
	fmt.Fprintf(r.out, format+"\n", a...)
}

// ClearScreen wipes the terminal.
func (r *Renderer) ClearScreen() {
	fmt.Fprint(r.out, "\033[2J\033[H")
}
