package console

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/githubnext/pipelint/pkg/diagnostics"
	"github.com/githubnext/pipelint/pkg/parser"
)

func TestFormatReport(t *testing.T) {
	tests := []struct {
		name     string
		report   Report
		expected []string
	}{
		{
			name: "error with position",
			report: Report{
				File:     "azure-pipelines.yml",
				Line:     5,
				Column:   10,
				Severity: diagnostics.SeverityError,
				Message:  "Multiple properties found matching script",
			},
			expected: []string{"azure-pipelines.yml:5:10:", "error:", "Multiple properties found matching script"},
		},
		{
			name: "warning with hint",
			report: Report{
				File:     "build.yml",
				Line:     2,
				Column:   1,
				Severity: diagnostics.SeverityWarning,
				Message:  "Unexpected property serverr",
				Hint:     "did you mean server?",
			},
			expected: []string{"build.yml:2:1:", "warning:", "hint:", "did you mean server?"},
		},
		{
			name: "missing severity defaults to error",
			report: Report{
				Message: "schema could not be loaded",
			},
			expected: []string{"error: schema could not be loaded"},
		},
		{
			name: "context lines",
			report: Report{
				File:         "build.yml",
				Line:         3,
				Column:       3,
				Width:        4,
				Severity:     diagnostics.SeverityHint,
				Message:      "deprecated",
				Context:      []string{"jobs:", "- job: a", "  server: true"},
				ContextStart: 1,
			},
			expected: []string{"hint:", "1 | jobs:", "3 |   server: true", "  |   ^^^^"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := FormatReport(tt.report)
			for _, expected := range tt.expected {
				if !strings.Contains(output, expected) {
					t.Errorf("Expected output to contain %q, but got:\n%s", expected, output)
				}
			}
		})
	}
}

func TestNewReport(t *testing.T) {
	text := "steps:\n- script: echo\n  bash: echo\n"
	lines := parser.NewLineIndex(text)
	d := diagnostics.Diagnostic{
		Severity: diagnostics.SeverityError,
		Range: diagnostics.Range{
			Start: parser.Position{Line: 2, Character: 2},
			End:   parser.Position{Line: 2, Character: 6},
		},
		Message: "Multiple properties found matching script",
	}

	r := NewReport("pipeline.yml", lines, d, 1)
	if r.Line != 3 || r.Column != 3 || r.Width != 4 {
		t.Errorf("position = %d:%d width %d, want 3:3 width 4", r.Line, r.Column, r.Width)
	}
	if r.ContextStart != 2 || len(r.Context) != 3 {
		t.Errorf("context = %v from line %d", r.Context, r.ContextStart)
	}

	output := FormatDiagnostic("pipeline.yml", lines, d, 0)
	if !strings.Contains(output, "pipeline.yml:3:3: error: Multiple properties found matching script") {
		t.Errorf("unexpected output:\n%s", output)
	}
	if !strings.Contains(output, "3 |   bash: echo") {
		t.Errorf("expected the source line in:\n%s", output)
	}
}

func TestNewReportEmptyRange(t *testing.T) {
	lines := parser.NewLineIndex("a:\n")
	d := diagnostics.Diagnostic{
		Range:   diagnostics.Range{Start: parser.Position{Line: 0, Character: 2}, End: parser.Position{Line: 0, Character: 2}},
		Message: "empty",
	}
	r := NewReport("", lines, d, 3)
	if r.Width != 1 || r.Column != 3 {
		t.Errorf("width = %d column = %d, want 1 and 3", r.Width, r.Column)
	}
	if r.ContextStart != 1 {
		t.Errorf("ContextStart = %d, want 1", r.ContextStart)
	}
}

func TestToRelativePath(t *testing.T) {
	if got := ToRelativePath("relative/file.yml"); got != "relative/file.yml" {
		t.Errorf("relative path changed to %q", got)
	}
	abs, err := filepath.Abs("file.yml")
	if err != nil {
		t.Fatal(err)
	}
	if got := ToRelativePath(abs); got != "file.yml" {
		t.Errorf("ToRelativePath(%q) = %q, want file.yml", abs, got)
	}
}

func TestMessageFormatters(t *testing.T) {
	tests := []struct {
		name   string
		format func(string) string
		icon   string
	}{
		{name: "success", format: FormatSuccessMessage, icon: "✓"},
		{name: "info", format: FormatInfoMessage, icon: "ℹ"},
		{name: "warning", format: FormatWarningMessage, icon: "⚠"},
		{name: "error", format: FormatErrorMessage, icon: "✗"},
		{name: "location", format: FormatLocationMessage, icon: "📁"},
		{name: "progress", format: FormatProgressMessage, icon: "🔨"},
		{name: "verbose", format: FormatVerboseMessage, icon: "🔍"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.format("3 files validated")
			if !strings.Contains(output, "3 files validated") || !strings.Contains(output, tt.icon) {
				t.Errorf("unexpected output %q", output)
			}
		})
	}
}

func TestRenderTable(t *testing.T) {
	output := RenderTable(TableConfig{
		Title:   "Summary",
		Headers: []string{"File", "Errors", "Warnings"},
		Rows: [][]string{
			{"a.yml", "0", "1"},
			{"pipelines/long-name.yml", "2", "0"},
		},
		Footer: []string{"Total", "2", "1"},
	})

	for _, expected := range []string{"Summary", "File                    | Errors | Warnings", "pipelines/long-name.yml | 2      | 0", "Total"} {
		if !strings.Contains(output, expected) {
			t.Errorf("Expected table to contain %q, got:\n%s", expected, output)
		}
	}
	if RenderTable(TableConfig{}) != "" {
		t.Error("a table without headers renders nothing")
	}
}
