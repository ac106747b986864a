package console

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/githubnext/pipelint/pkg/diagnostics"
	"github.com/githubnext/pipelint/pkg/parser"
)

// Report is a diagnostic ready to be rendered against its source
type Report struct {
	File string
	// Line and Column are 1-based; Column counts display cells
	Line     int
	Column   int
	Width    int
	Severity diagnostics.Severity
	Message  string
	// Context holds source lines starting at ContextStart (1-based)
	Context      []string
	ContextStart int
	Hint         string
}

// Styles for different severities
var (
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	infoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	filePathStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#BD93F9"))

	lineNumberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	contextLineStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8F8F2"))

	hintStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#50FA7B"))
)

// isTTY checks if stdout is a terminal
func isTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// applyStyle conditionally applies styling based on TTY status
func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

func severityStyle(s diagnostics.Severity) lipgloss.Style {
	switch s {
	case diagnostics.SeverityWarning:
		return warningStyle
	case diagnostics.SeverityHint:
		return infoStyle
	}
	return errorStyle
}

// ToRelativePath converts an absolute path to a relative path from the current working directory
func ToRelativePath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	relPath, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return relPath
}

// NewReport positions d in text and collects contextLines lines of source
// on each side of its first line
func NewReport(file string, lines *parser.LineIndex, d diagnostics.Diagnostic, contextLines int) Report {
	start := lines.Offset(d.Range.Start)
	end := lines.Offset(d.Range.End)
	line := d.Range.Start.Line
	source := lines.Line(line)
	lineStart := lines.LineStart(line)

	prefix := source[:min(max(start-lineStart, 0), len(source))]
	width := 1
	if end > start {
		underlined := source[len(prefix):min(max(end-lineStart, len(prefix)), len(source))]
		width = max(lipgloss.Width(underlined), 1)
	}

	first := max(line-contextLines, 0)
	last := min(line+contextLines, lines.LineCount()-1)
	context := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		context = append(context, lines.Line(i))
	}

	return Report{
		File:         file,
		Line:         line + 1,
		Column:       lipgloss.Width(prefix) + 1,
		Width:        width,
		Severity:     d.Severity,
		Message:      d.Message,
		Context:      context,
		ContextStart: first + 1,
	}
}

// FormatDiagnostic renders d against the source it was reported on
func FormatDiagnostic(file string, lines *parser.LineIndex, d diagnostics.Diagnostic, contextLines int) string {
	return FormatReport(NewReport(file, lines, d, contextLines))
}

// FormatReport renders a Report Rust-style: an IDE-parseable location line
// followed by the source context and a caret under the reported range
func FormatReport(r Report) string {
	var output strings.Builder

	if r.File != "" {
		location := fmt.Sprintf("%s:%d:%d:", ToRelativePath(r.File), r.Line, r.Column)
		output.WriteString(applyStyle(filePathStyle, location))
		output.WriteString(" ")
	}

	severity := r.Severity
	if severity == "" {
		severity = diagnostics.SeverityError
	}
	output.WriteString(applyStyle(severityStyle(severity), string(severity)+":"))
	output.WriteString(" ")
	output.WriteString(r.Message)
	output.WriteString("\n")

	if len(r.Context) > 0 && r.Line > 0 {
		output.WriteString(renderContext(r))
	}

	if r.Hint != "" {
		output.WriteString(applyStyle(hintStyle, "hint: "))
		output.WriteString(r.Hint)
		output.WriteString("\n")
	}
	return output.String()
}

func renderContext(r Report) string {
	var output strings.Builder

	lastLine := r.ContextStart + len(r.Context) - 1
	lineNumWidth := len(fmt.Sprintf("%d", lastLine))

	for i, line := range r.Context {
		lineNum := r.ContextStart + i
		output.WriteString(applyStyle(lineNumberStyle, fmt.Sprintf("%*d", lineNumWidth, lineNum)))
		output.WriteString(" | ")
		output.WriteString(applyStyle(contextLineStyle, line))
		output.WriteString("\n")

		if lineNum == r.Line && r.Column > 0 {
			output.WriteString(strings.Repeat(" ", lineNumWidth))
			output.WriteString(applyStyle(lineNumberStyle, " | "))
			output.WriteString(strings.Repeat(" ", r.Column-1))
			output.WriteString(applyStyle(severityStyle(r.Severity), strings.Repeat("^", max(r.Width, 1))))
			output.WriteString("\n")
		}
	}
	return output.String()
}

// FormatSuccessMessage formats a success message with styling
func FormatSuccessMessage(message string) string {
	successStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#50FA7B"))

	return applyStyle(successStyle, "✓ ") + message
}

// FormatInfoMessage formats an informational message
func FormatInfoMessage(message string) string {
	return applyStyle(infoStyle, "ℹ ") + message
}

// FormatWarningMessage formats a warning message
func FormatWarningMessage(message string) string {
	return applyStyle(warningStyle, "⚠ ") + message
}

// FormatErrorMessage formats a simple error message (for stderr output)
func FormatErrorMessage(message string) string {
	return applyStyle(errorStyle, "✗ ") + message
}

// FormatLocationMessage formats a file/directory location message
func FormatLocationMessage(message string) string {
	locationStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFB86C"))

	return applyStyle(locationStyle, "📁 ") + message
}

// FormatProgressMessage formats a progress/activity message
func FormatProgressMessage(message string) string {
	progressStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F1FA8C"))

	return applyStyle(progressStyle, "🔨 ") + message
}

// FormatVerboseMessage formats verbose debugging output
func FormatVerboseMessage(message string) string {
	verboseStyle := lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("#6272A4"))

	return applyStyle(verboseStyle, "🔍 ") + message
}
