package validator

import (
	"fmt"
	"slices"

	"github.com/githubnext/pipelint/pkg/ast"
)

// Severity ranks a validation problem
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityHint:
		return "hint"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ErrorCode identifies problems that callers may want to act on
type ErrorCode int

const (
	CodeNone ErrorCode = iota
	// EnumValueMismatch marks a value outside the allowed enum set
	EnumValueMismatch
)

// Problem is one schema violation
type Problem struct {
	Span     ast.Span
	Severity Severity
	Message  string
	Code     ErrorCode
}

// Result accumulates the problems and match-quality counters of validating
// one node against one schema
type Result struct {
	Problems []Problem
	// ProblemDepths[i] counts the problems found i levels below the node
	ProblemDepths []int

	PropertiesMatches      int
	PropertiesValueMatches int
	PrimaryValueMatches    int

	EnumValueMatch bool
	EnumValues     []any
}

func newResult() *Result {
	return &Result{ProblemDepths: []int{0}}
}

// HasProblems reports whether any problem was recorded
func (r *Result) HasProblems() bool {
	return len(r.Problems) > 0
}

func (r *Result) addProblem(p Problem) {
	r.Problems = append(r.Problems, p)
	r.ProblemDepths[0]++
}

// mergeSubResult appends the problems of a nested validation and overlays
// its depth histogram one level down
func (r *Result) mergeSubResult(sub *Result) {
	r.Problems = append(r.Problems, sub.Problems...)
	for len(r.ProblemDepths) <= len(sub.ProblemDepths) {
		r.ProblemDepths = append(r.ProblemDepths, 0)
	}
	for depth, count := range sub.ProblemDepths {
		r.ProblemDepths[depth+1] += count
	}
}

// mergeEnumValues combines the allowed values of two equally good enum
// mismatches into one message
func (r *Result) mergeEnumValues(other *Result) {
	if r.EnumValueMatch || other.EnumValueMatch || r.EnumValues == nil || other.EnumValues == nil {
		return
	}
	r.EnumValues = slices.Concat(r.EnumValues, other.EnumValues)
	message := enumMessage(r.EnumValues)
	for i := range r.Problems {
		if r.Problems[i].Code == EnumValueMismatch {
			r.Problems[i].Message = message
		}
	}
}

// mergePropertyMatch folds in the result of validating one property value
func (r *Result) mergePropertyMatch(sub *Result) {
	r.mergeSubResult(sub)
	r.PropertiesMatches++
	if sub.EnumValueMatch || !r.HasProblems() && sub.PropertiesMatches > 0 {
		r.PropertiesValueMatches++
	}
	if sub.EnumValueMatch && len(sub.EnumValues) == 1 {
		r.PrimaryValueMatches++
	}
}

func (r *Result) firstProblemDepth() int {
	return slices.IndexFunc(r.ProblemDepths, func(count int) bool { return count > 0 })
}

// compareGeneric orders two results by match quality. A positive value means
// r is the better match.
func (r *Result) compareGeneric(other *Result) int {
	hasProblems := r.HasProblems()
	if hasProblems != other.HasProblems() {
		return boolOrder(!hasProblems)
	}
	if hasProblems {
		if depth, otherDepth := r.firstProblemDepth(), other.firstProblemDepth(); depth != otherDepth {
			return depth - otherDepth
		}
	}
	if r.EnumValueMatch != other.EnumValueMatch {
		return boolOrder(r.EnumValueMatch)
	}
	if r.PropertiesValueMatches != other.PropertiesValueMatches {
		return r.PropertiesValueMatches - other.PropertiesValueMatches
	}
	if r.PrimaryValueMatches != other.PrimaryValueMatches {
		return r.PrimaryValueMatches - other.PrimaryValueMatches
	}
	return r.PropertiesMatches - other.PropertiesMatches
}

// compareAlternate ranks raw property coverage first, which suits schemas
// whose alternatives differ mostly in their property sets
func (r *Result) compareAlternate(other *Result) int {
	if r.PropertiesMatches != other.PropertiesMatches {
		return r.PropertiesMatches - other.PropertiesMatches
	}
	if r.EnumValueMatch != other.EnumValueMatch {
		return boolOrder(r.EnumValueMatch)
	}
	if r.PrimaryValueMatches != other.PrimaryValueMatches {
		return r.PrimaryValueMatches - other.PrimaryValueMatches
	}
	if r.PropertiesValueMatches != other.PropertiesValueMatches {
		return r.PropertiesValueMatches - other.PropertiesValueMatches
	}
	if hasProblems := r.HasProblems(); hasProblems != other.HasProblems() {
		return boolOrder(!hasProblems)
	}
	return 0
}

func boolOrder(better bool) int {
	if better {
		return 1
	}
	return -1
}
