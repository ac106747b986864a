package validator

import (
	"fmt"
	"reflect"

	"github.com/githubnext/pipelint/pkg/ast"
	"github.com/githubnext/pipelint/pkg/schema"
)

func (v *validator) validateArray(n *ast.Node, s *schema.Schema, r *Result, c *SchemaCollector) {
	switch {
	case s.Items.IsTuple():
		tuple := s.Items.Tuple
		for i, itemSchema := range tuple {
			if i >= len(n.Items) {
				break
			}
			itemResult := newResult()
			v.validate(n.Items[i], itemSchema, itemResult, c)
			r.mergePropertyMatch(itemResult)
		}
		if len(n.Items) > len(tuple) {
			switch additional := s.AdditionalItems; {
			case additional != nil && additional.Schema != nil:
				for _, item := range n.Items[len(tuple):] {
					itemResult := newResult()
					v.validate(item, additional.Schema, itemResult, c)
					r.mergePropertyMatch(itemResult)
				}
			case additional.Forbids():
				r.addProblem(Problem{
					Span:     n.Span,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("Array has too many items according to schema. Expected %d or fewer.", len(tuple)),
				})
			}
		}
	case s.Items != nil && s.Items.Schema != nil:
		for _, item := range n.Items {
			itemResult := newResult()
			v.validate(item, s.Items.Schema, itemResult, c)
			r.mergePropertyMatch(itemResult)
		}
	}

	if s.MinItems != nil && len(n.Items) < *s.MinItems {
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Array has too few items. Expected %d or more.", *s.MinItems),
		})
	}
	if s.MaxItems != nil && len(n.Items) > *s.MaxItems {
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Array has too many items. Expected %d or fewer.", *s.MaxItems),
		})
	}
	if s.UniqueItems && hasDuplicateItems(n.Items) {
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  "Array has duplicate items.",
		})
	}
}

func hasDuplicateItems(items []*ast.Node) bool {
	values := make([]any, len(items))
	for i, item := range items {
		values[i] = item.Interface()
	}
	for i := range values {
		for j := i + 1; j < len(values); j++ {
			if reflect.DeepEqual(values[i], values[j]) {
				return true
			}
		}
	}
	return false
}
