package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/evo/internal/constants"
)

// Semantic colors. AdaptiveColor picks the light or dark variant.
//
//nolint:gochecknoglobals // styling API
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}
	colorError   = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}
)

// outputStyles holds the lipgloss styles used by text output.
type outputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
	Header  lipgloss.Style
}

func newOutputStyles() *outputStyles {
	return &outputStyles{
		Success: lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(colorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(colorWarning),
		Info:    lipgloss.NewStyle().Foreground(colorPrimary),
		Dim:     lipgloss.NewStyle().Foreground(colorMuted),
		Header:  lipgloss.NewStyle().Bold(true),
	}
}

// hasColorSupport follows https://no-color.org and treats TERM=dumb as colorless.
func hasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// checkNoColor drops lipgloss to plain ASCII when colors are unwanted.
func checkNoColor() {
	if !hasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// statusIcon keeps icon, color and text redundant in status lines.
func statusIcon(status constants.TaskStatus) string {
	switch status {
	case constants.TaskStatusInitialized:
		return "○"
	case constants.TaskStatusInProgress:
		return "●"
	case constants.TaskStatusCompleted:
		return "✓"
	case constants.TaskStatusFailed:
		return "✗"
	}
	return "?"
}

func statusColor(status constants.TaskStatus) lipgloss.AdaptiveColor {
	switch status {
	case constants.TaskStatusCompleted:
		return colorSuccess
	case constants.TaskStatusFailed:
		return colorError
	case constants.TaskStatusInProgress:
		return colorPrimary
	}
	return colorMuted
}

// Output writes command results as styled text or JSON.
type Output struct {
	w      io.Writer
	format string
	styles *outputStyles
}

// NewOutput creates an Output for format (text or json).
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format, styles: newOutputStyles()}
}

// IsJSON reports whether the output format is json.
func (o *Output) IsJSON() bool { return o.format == OutputJSON }

// JSON writes v as indented JSON.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Success prints a success line. Ignored in JSON mode.
func (o *Output) Success(msg string) {
	if o.IsJSON() {
		return
	}
	_, _ = fmt.Fprintln(o.w, o.styles.Success.Render("✓ "+msg))
}

// Warning prints a warning line. Ignored in JSON mode.
func (o *Output) Warning(msg string) {
	if o.IsJSON() {
		return
	}
	_, _ = fmt.Fprintln(o.w, o.styles.Warning.Render("⚠ "+msg))
}

// Info prints an informational line. Ignored in JSON mode.
func (o *Output) Info(msg string) {
	if o.IsJSON() {
		return
	}
	_, _ = fmt.Fprintln(o.w, o.styles.Info.Render(msg))
}

// Raw writes s unchanged.
func (o *Output) Raw(s string) {
	_, _ = io.WriteString(o.w, s)
}

// Status renders one styled status line: icon, status, stage and progress.
func (o *Output) Status(id string, status constants.TaskStatus, stage string, progress int) string {
	style := lipgloss.NewStyle().Foreground(statusColor(status))
	return fmt.Sprintf("%s %s %s %s",
		style.Render(statusIcon(status)+" "+string(status)),
		o.styles.Dim.Render(id),
		stageTitle(stage),
		o.styles.Header.Render(fmt.Sprintf("%d%%", progress)),
	)
}

// stageTitle turns a stage label like code_review into "Code Review".
func stageTitle(stage string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(stage, "_", " "))
}

var (
	glamourRenderer     *glamour.TermRenderer //nolint:gochecknoglobals // cached renderer
	glamourRendererOnce sync.Once             //nolint:gochecknoglobals // renderer initialization
)

func getGlamourRenderer() *glamour.TermRenderer {
	glamourRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			glamourRenderer = r
		}
	})
	return glamourRenderer
}

// renderMarkdown renders md for a terminal. Without color support, or if
// the renderer is unavailable, md is returned as-is.
func renderMarkdown(md string) string {
	if !hasColorSupport() {
		return md
	}
	r := getGlamourRenderer()
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
