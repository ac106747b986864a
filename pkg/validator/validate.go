// Package validator checks a normalized document tree against a structural
// schema, producing position-tagged problems and, on request, the list of
// schemas that matched each node.
package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/githubnext/pipelint/pkg/ast"
	"github.com/githubnext/pipelint/pkg/parser"
	"github.com/githubnext/pipelint/pkg/schema"
)

// ComparisonPolicy selects how union alternatives are ranked
type ComparisonPolicy int

const (
	// PolicyGeneric prefers problem-free alternatives, then the deepest first
	// problem, then enum and property-value matches
	PolicyGeneric ComparisonPolicy = iota
	// PolicyAlternate prefers the alternative covering the most properties
	PolicyAlternate
)

func (p ComparisonPolicy) String() string {
	switch p {
	case PolicyGeneric:
		return "generic"
	case PolicyAlternate:
		return "alternate"
	}
	return fmt.Sprintf("ComparisonPolicy(%d)", int(p))
}

// ParsePolicy converts a policy name into a ComparisonPolicy
func ParsePolicy(name string) (ComparisonPolicy, error) {
	switch strings.ToLower(name) {
	case "", "generic":
		return PolicyGeneric, nil
	case "alternate":
		return PolicyAlternate, nil
	}
	return PolicyGeneric, fmt.Errorf("unknown comparison policy %q (expected generic or alternate)", name)
}

// Validate checks root against s and returns every problem found
func Validate(root *ast.Node, s *schema.Schema, policy ComparisonPolicy) []Problem {
	return run(root, s, policy, nil).Problems
}

// ValidationProblems is like Validate but only descends into nodes that
// contain focus (every node when focus is -1) and skips exclude
func ValidationProblems(root *ast.Node, s *schema.Schema, policy ComparisonPolicy, focus int, exclude *ast.Node) []Problem {
	return run(root, s, policy, NewSchemaCollector(focus, exclude)).Problems
}

// MatchingSchemas returns the (node, schema) pairs visited while validating
// root, restricted as in ValidationProblems
func MatchingSchemas(root *ast.Node, s *schema.Schema, policy ComparisonPolicy, focus int, exclude *ast.Node) []MatchingSchema {
	collector := NewSchemaCollector(focus, exclude)
	run(root, s, policy, collector)
	return collector.Schemas
}

func run(root *ast.Node, s *schema.Schema, policy ComparisonPolicy, collector *SchemaCollector) *Result {
	result := newResult()
	if root == nil || s == nil {
		return result
	}
	v := &validator{policy: policy}
	v.validate(root, s, result, collector)
	return result
}

type validator struct {
	policy ComparisonPolicy
}

func (v *validator) validate(n *ast.Node, s *schema.Schema, r *Result, c *SchemaCollector) {
	if n == nil || !c.include(n) {
		return
	}
	switch n.Kind {
	case ast.Property:
		if n.Value != nil {
			v.validate(n.Value, s, r, c)
		}
	case ast.Null:
		if s.Type.Is("string") {
			v.validateString(n, s, "", r)
			return
		}
		v.validateNode(n, s, r, c, false)
	case ast.Boolean:
		if s.Type.Is("string") {
			v.validateString(n, s, strconv.FormatBool(n.Bool), r)
			return
		}
		v.validateNode(n, s, r, c, false)
	case ast.Number:
		if s.Type.Is("string") {
			v.validateString(n, s, formatNumber(n.Number), r)
			return
		}
		v.validateNode(n, s, r, c, n.IsInteger && s.Type.Has("integer"))
		v.validateNumber(n, s, r)
	case ast.String:
		v.validateNode(n, s, r, c, false)
		v.validateString(n, s, n.Str, r)
	case ast.Array:
		v.validateNode(n, s, r, c, false)
		v.validateArray(n, s, r, c)
	case ast.Object:
		v.validateNode(n, s, r, c, false)
		v.validateObject(n, s, r, c)
	}
}

// validateNode applies the checks shared by every kind: type, combinators,
// enum and deprecation
func (v *validator) validateNode(n *ast.Node, s *schema.Schema, r *Result, c *SchemaCollector, asInteger bool) {
	v.checkType(n, s, r, asInteger)

	for _, sub := range s.AllOf {
		v.validate(n, sub, r, c)
	}

	if s.Not != nil {
		subResult := newResult()
		subCollector := c.newSub()
		v.validate(n, s.Not, subResult, subCollector)
		if !subResult.HasProblems() {
			r.addProblem(Problem{
				Span:     n.Span,
				Severity: SeverityWarning,
				Message:  "Matches a schema that is not allowed.",
			})
		}
		if subCollector != nil {
			for _, ms := range subCollector.Schemas {
				ms.Inverted = !ms.Inverted
				c.add(ms)
			}
		}
	}

	if s.AnyOf != nil {
		v.testAlternatives(n, s.AnyOf, false, r, c)
	}
	if s.OneOf != nil {
		v.testAlternatives(n, s.OneOf, true, r, c)
	}

	if s.Enum != nil {
		match := enumContains(s.Enum, n.Interface(), s.IgnoresValueCase())
		r.EnumValues = s.Enum
		r.EnumValueMatch = match
		if !match {
			r.addProblem(Problem{
				Span:     n.Span,
				Severity: SeverityWarning,
				Code:     EnumValueMismatch,
				Message:  orDefault(s.ErrorMessage, enumMessage(s.Enum)),
			})
		}
	}

	if s.DeprecationMessage != "" && n.Parent != nil {
		r.addProblem(Problem{
			Span:     n.Parent.Span,
			Severity: SeverityHint,
			Message:  s.DeprecationMessage,
		})
	}

	c.add(MatchingSchema{Node: n, Schema: s})
}

func (v *validator) checkType(n *ast.Node, s *schema.Schema, r *Result, asInteger bool) {
	if s.Type.IsZero() {
		return
	}
	name := n.Kind.String()
	if asInteger {
		name = "integer"
	}
	if s.Type.Has(name) {
		return
	}
	if n.Kind == ast.String && parser.IsTemplatePlaceholder(n.Str) {
		return
	}

	if s.Type.List {
		if n.Kind == ast.Number && s.Type.Has("string") {
			return
		}
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  orDefault(s.ErrorMessage, fmt.Sprintf("Incorrect type. Expected one of %s.", strings.Join(s.Type.Names, ", "))),
		})
		return
	}
	r.addProblem(Problem{
		Span:     n.Span,
		Severity: SeverityWarning,
		Message:  orDefault(s.ErrorMessage, fmt.Sprintf("Incorrect type. Expected %q.", s.Type.Names[0])),
	})
}

func orDefault(custom, fallback string) string {
	if custom != "" {
		return custom
	}
	return fallback
}
