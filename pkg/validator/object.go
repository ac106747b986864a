package validator

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/githubnext/pipelint/pkg/ast"
	"github.com/githubnext/pipelint/pkg/constants"
	"github.com/githubnext/pipelint/pkg/schema"
)

// objectState tracks which resolved properties of an object have been
// claimed by a schema keyword
type objectState struct {
	node        *ast.Node
	schema      *schema.Schema
	seen        map[string]*ast.Node
	unprocessed []string
}

func newObjectState(n *ast.Node, s *schema.Schema) *objectState {
	st := &objectState{
		node:        n,
		schema:      s,
		seen:        make(map[string]*ast.Node, len(n.Entries)),
		unprocessed: make([]string, 0, len(n.Entries)),
	}
	for _, p := range n.Entries {
		st.seen[p.Name()] = p
		st.unprocessed = append(st.unprocessed, p.Name())
	}
	return st
}

// matching returns the properties whose key equals name ignoring case
func (st *objectState) matching(name string) []*ast.Node {
	var found []*ast.Node
	for _, p := range st.node.Entries {
		if strings.EqualFold(p.Name(), name) {
			found = append(found, p)
		}
	}
	return found
}

// has reports whether name is present directly, case-folded or through one
// of its schema aliases
func (st *objectState) has(name string) bool {
	if st.seen[name] != nil {
		return true
	}
	propSchema := st.schema.Properties[name]
	if propSchema == nil {
		return false
	}
	ignoreCase := propSchema.IgnoresKeyCase()
	if ignoreCase && len(st.matching(name)) > 0 {
		return true
	}
	for _, alias := range propSchema.Aliases {
		if st.seen[alias] != nil {
			return true
		}
		if ignoreCase && len(st.matching(alias)) > 0 {
			return true
		}
	}
	return false
}

func (st *objectState) processed(name string) {
	st.unprocessed = slices.DeleteFunc(st.unprocessed, func(k string) bool { return k == name })
}

// claimed returns the properties a schema property name resolves to, in
// document order and without repeats
func (st *objectState) claimed(name string, propSchema *schema.Schema) []*ast.Node {
	ignoreCase := propSchema.IgnoresKeyCase()
	var children []*ast.Node
	add := func(p *ast.Node) {
		if p != nil && !slices.Contains(children, p) {
			children = append(children, p)
		}
	}
	for _, key := range append([]string{name}, propSchema.Aliases...) {
		if !ignoreCase {
			add(st.seen[key])
			continue
		}
		for _, p := range st.matching(key) {
			add(p)
		}
	}
	return children
}

func (v *validator) validateObject(n *ast.Node, s *schema.Schema, r *Result, c *SchemaCollector) {
	st := newObjectState(n, s)

	for _, name := range s.Required {
		if st.has(name) {
			continue
		}
		span := ast.Span{Start: n.Span.Start, End: n.Span.Start + 1}
		if n.Parent != nil && n.Parent.Kind == ast.Property {
			span = n.Parent.Key.Span
		}
		r.addProblem(Problem{
			Span:     span,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Missing property \"%s\".", name),
		})
	}

	for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
		propSchema := s.Properties[name]
		children := st.claimed(name, propSchema)
		for _, child := range children {
			st.processed(child.Name())
			if len(children) > 1 {
				r.addProblem(Problem{
					Span:     child.Key.Span,
					Severity: SeverityError,
					Message:  fmt.Sprintf("Multiple properties found matching %s", name),
				})
			}
		}
		if len(children) == 1 {
			propResult := newResult()
			v.validate(children[0].Value, propSchema, propResult, c)
			r.mergePropertyMatch(propResult)
		}
	}

	for _, pattern := range slices.Sorted(maps.Keys(s.PatternProperties)) {
		propSchema := s.PatternProperties[pattern]
		re, err := schema.CompilePattern(pattern, propSchema.IgnoresKeyCase())
		if err != nil {
			continue
		}
		for _, name := range slices.Clone(st.unprocessed) {
			if !re.MatchString(name) {
				continue
			}
			st.processed(name)
			propResult := newResult()
			v.validate(st.seen[name].Value, propSchema, propResult, c)
			r.mergePropertyMatch(propResult)
		}
	}

	switch additional := s.AdditionalProperties; {
	case additional != nil && additional.Schema != nil:
		for _, name := range st.unprocessed {
			propResult := newResult()
			v.validate(st.seen[name].Value, additional.Schema, propResult, c)
			r.mergePropertyMatch(propResult)
		}
	case additional.Forbids():
		for _, name := range st.unprocessed {
			if name == constants.NodeHolder {
				continue
			}
			r.addProblem(Problem{
				Span:     unexpectedPropertySpan(st.seen[name]),
				Severity: SeverityWarning,
				Message:  orDefault(s.ErrorMessage, fmt.Sprintf("Unexpected property %s", name)),
			})
		}
	}

	if s.MaxProperties != nil && len(n.Entries) > *s.MaxProperties {
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Object has more properties than limit of %d.", *s.MaxProperties),
		})
	}
	if s.MinProperties != nil && len(n.Entries) < *s.MinProperties {
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Object has fewer properties than the required number of %d", *s.MinProperties),
		})
	}

	for _, key := range slices.Sorted(maps.Keys(s.Dependencies)) {
		if !st.has(key) {
			continue
		}
		dep := s.Dependencies[key]
		if dep.Schema != nil {
			depResult := newResult()
			v.validate(n, dep.Schema, depResult, c)
			r.mergePropertyMatch(depResult)
			continue
		}
		for _, required := range dep.Properties {
			if st.has(required) {
				r.PropertiesValueMatches++
				continue
			}
			r.addProblem(Problem{
				Span:     n.Span,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Object is missing property %s required by property %s.", required, key),
			})
		}
	}

	v.checkFirstProperty(n, s, r)
}

// unexpectedPropertySpan points an additional-property problem at the key of
// the property that owns the value
func unexpectedPropertySpan(p *ast.Node) ast.Span {
	if p.Value == nil {
		return p.Key.Span
	}
	errNode := p.Value
	if errNode.Parent != nil {
		switch errNode.Parent.Kind {
		case ast.Property:
			errNode = errNode.Parent
		case ast.Object:
			for _, candidate := range errNode.Parent.Properties {
				if candidate.Value == p.Value {
					errNode = candidate
					break
				}
			}
		}
	}
	if errNode.Kind == ast.Property {
		return errNode.Key.Span
	}
	return errNode.Span
}

func (v *validator) checkFirstProperty(n *ast.Node, s *schema.Schema, r *Result) {
	if len(s.FirstProperty) == 0 {
		return
	}
	first := n.FirstProperty()
	if first == nil || first.Name() == "" {
		return
	}
	if firstPropertyAllowed(s, first.Name()) {
		return
	}
	message := fmt.Sprintf("The first property must be %s", s.FirstProperty[0])
	if len(s.FirstProperty) > 1 {
		message = fmt.Sprintf("The first property must be one of: %s", strings.Join(s.FirstProperty, ", "))
	}
	r.addProblem(Problem{
		Span:     first.Span,
		Severity: SeverityError,
		Message:  message,
	})
}

// firstPropertyAllowed reports whether key satisfies the firstProperty list
// of s, directly or through a listed property's aliases and case folding
func firstPropertyAllowed(s *schema.Schema, key string) bool {
	for _, listed := range s.FirstProperty {
		if listed == key {
			return true
		}
		propSchema := s.Properties[listed]
		if propSchema == nil {
			continue
		}
		ignoreCase := propSchema.IgnoresKeyCase()
		if ignoreCase && strings.EqualFold(listed, key) {
			return true
		}
		for _, alias := range propSchema.Aliases {
			if alias == key || ignoreCase && strings.EqualFold(alias, key) {
				return true
			}
		}
	}
	return false
}
