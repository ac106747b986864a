package validator

import (
	"slices"
	"strings"

	"github.com/githubnext/pipelint/pkg/ast"
	"github.com/githubnext/pipelint/pkg/schema"
)

// candidate is one validated alternative of an anyOf or oneOf
type candidate struct {
	schema    *schema.Schema
	result    *Result
	collector *SchemaCollector
}

// testAlternatives validates n against every alternative, folds the best
// one into r and returns how many alternatives matched without problems.
// exclusive marks a oneOf, where more than one clean match is a problem.
func (v *validator) testAlternatives(n *ast.Node, alternatives []*schema.Schema, exclusive bool, r *Result, c *SchemaCollector) int {
	candidates := alternatives
	if pruned := v.firstPropertyMatches(n, alternatives); len(pruned) > 0 {
		candidates = pruned
	}

	matches := 0
	var best *candidate
	for _, sub := range candidates {
		current := &candidate{schema: sub, result: newResult(), collector: c.newSub()}
		v.validate(n, sub, current.result, current.collector)
		if !current.result.HasProblems() {
			matches++
		}
		switch {
		case best == nil:
			best = current
		case v.policy == PolicyAlternate:
			best = alternateComparison(best, current)
		default:
			best = genericComparison(exclusive, best, current)
		}
	}

	if matches > 1 && exclusive && v.policy != PolicyAlternate {
		r.addProblem(Problem{
			Span:     ast.Span{Start: n.Span.Start, End: n.Span.Start + 1},
			Severity: SeverityError,
			Message:  "Matches multiple schemas when only one must validate.",
		})
	}
	if best != nil {
		r.mergeSubResult(best.result)
		r.PropertiesMatches += best.result.PropertiesMatches
		r.PropertiesValueMatches += best.result.PropertiesValueMatches
		c.merge(best.collector)
	}
	return matches
}

func genericComparison(exclusive bool, best, current *candidate) *candidate {
	if !exclusive && !current.result.HasProblems() && !best.result.HasProblems() {
		best.collector.merge(current.collector)
		best.result.PropertiesMatches += current.result.PropertiesMatches
		best.result.PropertiesValueMatches += current.result.PropertiesValueMatches
		return best
	}
	return pick(best, current, current.result.compareGeneric(best.result))
}

func alternateComparison(best, current *candidate) *candidate {
	return pick(best, current, current.result.compareAlternate(best.result))
}

// pick keeps the better candidate. On a tie the current candidate's schemas
// and enum values are folded into best.
func pick(best, current *candidate, cmp int) *candidate {
	switch {
	case cmp > 0:
		return current
	case cmp == 0:
		best.collector.merge(current.collector)
		best.result.mergeEnumValues(current.result)
	}
	return best
}

// firstPropertyMatches returns the alternatives whose firstProperty list
// names the object's first key and whose schema for that key accepts its
// value. Alternatives without a firstProperty list are never returned.
func (v *validator) firstPropertyMatches(n *ast.Node, alternatives []*schema.Schema) []*schema.Schema {
	if n.Kind != ast.Object {
		return nil
	}
	first := n.FirstProperty()
	if first == nil || first.Name() == "" {
		return nil
	}
	key := first.Name()

	var matches []*schema.Schema
	for _, alt := range alternatives {
		if len(alt.FirstProperty) == 0 {
			continue
		}
		name, found := key, slices.Contains(alt.FirstProperty, key)
		if !found && alt.IgnoresKeyCase() {
			for _, listed := range alt.FirstProperty {
				if strings.EqualFold(listed, key) {
					name, found = listed, true
					break
				}
			}
		}
		if !found {
			continue
		}
		propSchema := alt.Properties[name]
		if propSchema == nil {
			matches = append(matches, alt)
			continue
		}
		propResult := newResult()
		v.validate(first, propSchema, propResult, nil)
		if !propResult.HasProblems() {
			matches = append(matches, alt)
		}
	}
	return matches
}
