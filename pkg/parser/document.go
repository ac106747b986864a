package parser

import (
	"strings"

	"github.com/githubnext/pipelint/pkg/ast"
)

// Problem is a syntax error or warning raised while normalizing a document
type Problem struct {
	Span    ast.Span
	Message string
}

// Document is one normalized YAML document. Root is nil when the document
// could not be built; Errors then explains why.
type Document struct {
	Root     *ast.Node
	Errors   []Problem
	Warnings []Problem
}

// HasErrors reports whether normalization raised any syntax error
func (d *Document) HasErrors() bool {
	return len(d.Errors) > 0
}

// File is the result of normalizing a source text
type File struct {
	Text      string
	Lines     *LineIndex
	Documents []*Document
}

// Errors returns the syntax errors of every document in order
func (f *File) Errors() []Problem {
	var problems []Problem
	for _, doc := range f.Documents {
		problems = append(problems, doc.Errors...)
	}
	return problems
}

// isBlank reports whether text holds nothing but whitespace and comments
func isBlank(text string) bool {
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return false
	}
	return true
}
