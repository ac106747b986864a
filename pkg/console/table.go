package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#BD93F9")).
				Background(lipgloss.Color("#44475A"))

	tableCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2"))

	tableBorderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6272A4"))

	tableFooterStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#50FA7B"))
)

// TableConfig describes a table to render. Footer, when set, is printed
// below a separator in bold.
type TableConfig struct {
	Title   string
	Headers []string
	Rows    [][]string
	Footer  []string
}

// RenderTable renders a column-aligned table. Widths are measured in
// display cells so paths with wide runes stay aligned.
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 {
		return ""
	}

	var output strings.Builder
	if config.Title != "" {
		output.WriteString(applyStyle(tableFooterStyle, config.Title))
		output.WriteString("\n\n")
	}

	widths := make([]int, len(config.Headers))
	measure := func(row []string) {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	measure(config.Headers)
	for _, row := range config.Rows {
		measure(row)
	}
	measure(config.Footer)

	separator := make([]string, len(widths))
	for i, w := range widths {
		separator[i] = strings.Repeat("-", w)
	}

	output.WriteString(renderTableRow(config.Headers, widths, tableHeaderStyle))
	output.WriteString(renderTableRow(separator, widths, tableBorderStyle))
	for _, row := range config.Rows {
		output.WriteString(renderTableRow(row, widths, tableCellStyle))
	}
	if len(config.Footer) > 0 {
		output.WriteString(renderTableRow(separator, widths, tableBorderStyle))
		output.WriteString(renderTableRow(config.Footer, widths, tableFooterStyle))
	}
	return output.String()
}

func renderTableRow(cells []string, widths []int, style lipgloss.Style) string {
	var row strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		padded := cell + strings.Repeat(" ", w-lipgloss.Width(cell))
		row.WriteString(applyStyle(style, padded))
		if i < len(widths)-1 {
			row.WriteString(applyStyle(tableBorderStyle, " | "))
		}
	}
	row.WriteString("\n")
	return row.String()
}
