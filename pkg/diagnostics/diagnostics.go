// Package diagnostics turns normalizer and validator problems into
// severity-tagged diagnostics positioned by line and character.
package diagnostics

import (
	"github.com/githubnext/pipelint/pkg/ast"
	"github.com/githubnext/pipelint/pkg/parser"
	"github.com/githubnext/pipelint/pkg/schema"
	"github.com/githubnext/pipelint/pkg/validator"
)

// Severity of a diagnostic as it appears in output
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityHint    Severity = "hint"
)

const (
	// MessageInvalidStructure is reported for multi-document input broken by a
	// missing separator
	MessageInvalidStructure = "Invalid YAML structure"
	// MessageSingleDocument is reported for any other multi-document input
	MessageSingleDocument = "Only single-document files are supported"
)

// Range is a half-open range between two positions
type Range struct {
	Start parser.Position `json:"start"`
	End   parser.Position `json:"end"`
}

// Diagnostic is one reported problem
type Diagnostic struct {
	Severity Severity            `json:"severity"`
	Range    Range               `json:"range"`
	Message  string              `json:"message"`
	Code     validator.ErrorCode `json:"code,omitempty"`
}

// Options controls how a file is validated
type Options struct {
	Policy validator.ComparisonPolicy
}

// Translate validates file against s and returns its diagnostics in order:
// syntax errors, syntax warnings, then schema problems. A nil schema reports
// syntax diagnostics only.
func Translate(file *parser.File, s *schema.Schema, opts Options) []Diagnostic {
	if len(file.Documents) == 0 {
		return []Diagnostic{}
	}
	if len(file.Documents) > 1 {
		return []Diagnostic{multiDocument(file)}
	}

	doc := file.Documents[0]
	diagnostics := syntaxDiagnostics(file, doc)
	if doc.Root == nil || s == nil {
		return diagnostics
	}

	type key struct {
		start, end int
		message    string
	}
	seen := make(map[key]bool)
	for _, p := range validator.Validate(doc.Root, s, opts.Policy) {
		k := key{p.Span.Start, p.Span.End, p.Message}
		if seen[k] {
			continue
		}
		seen[k] = true
		diagnostics = append(diagnostics, Diagnostic{
			Severity: severity(p.Severity),
			Range:    spanRange(file.Lines, p.Span),
			Message:  p.Message,
			Code:     p.Code,
		})
	}
	return diagnostics
}

// TranslateSchemaError reports a schema that could not be loaded as a single
// error at the start of the document
func TranslateSchemaError(err error) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Range:    Range{End: parser.Position{Character: 1}},
		Message:  err.Error(),
	}
}

// TranslateWithSchemaError reports the syntax diagnostics of file followed by
// the schema load error. Structural checks are skipped.
func TranslateWithSchemaError(file *parser.File, err error) []Diagnostic {
	diagnostics := Translate(file, nil, Options{})
	return append(diagnostics, TranslateSchemaError(err))
}

// HasErrors reports whether any diagnostic is an error
func HasErrors(diagnostics []Diagnostic) bool {
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func syntaxDiagnostics(file *parser.File, doc *parser.Document) []Diagnostic {
	diagnostics := make([]Diagnostic, 0, len(doc.Errors)+len(doc.Warnings))
	for _, p := range doc.Errors {
		diagnostics = append(diagnostics, Diagnostic{
			Severity: SeverityError,
			Range:    spanRange(file.Lines, p.Span),
			Message:  p.Message,
		})
	}
	for _, p := range doc.Warnings {
		diagnostics = append(diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Range:    spanRange(file.Lines, p.Span),
			Message:  p.Message,
		})
	}
	return diagnostics
}

// multiDocument rejects input holding more than one document. A missing
// separator is pinned to the line before the one the parser stopped at.
func multiDocument(file *parser.File) Diagnostic {
	for _, p := range file.Errors() {
		if !parser.IsMissingSeparatorError(p.Message) {
			continue
		}
		line := file.Lines.Position(p.Span.Start).Line
		if line > 0 {
			line--
		}
		return Diagnostic{
			Severity: SeverityError,
			Range: Range{
				Start: parser.Position{Line: line},
				End:   parser.Position{Line: line + 1},
			},
			Message: MessageInvalidStructure,
		}
	}
	return Diagnostic{
		Severity: SeverityError,
		Range: Range{
			End: file.Lines.Position(len(file.Text)),
		},
		Message: MessageSingleDocument,
	}
}

func spanRange(lines *parser.LineIndex, span ast.Span) Range {
	return Range{Start: lines.Position(span.Start), End: lines.Position(span.End)}
}

func severity(s validator.Severity) Severity {
	switch s {
	case validator.SeverityError:
		return SeverityError
	case validator.SeverityHint:
		return SeverityHint
	}
	return SeverityWarning
}
