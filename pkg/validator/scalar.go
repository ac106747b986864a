package validator

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/githubnext/pipelint/pkg/ast"
	"github.com/githubnext/pipelint/pkg/schema"
)

func (v *validator) validateString(n *ast.Node, s *schema.Schema, value string, r *Result) {
	length := utf8.RuneCountInString(value)
	if s.MinLength != nil && length < *s.MinLength {
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("String is shorter than the minimum length of %d.", *s.MinLength),
		})
	}
	if s.MaxLength != nil && length > *s.MaxLength {
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("String is longer than the maximum length of %d.", *s.MaxLength),
		})
	}
	if s.Pattern != "" && !schema.MatchPattern(s.Pattern, value, s.IgnoresValueCase()) {
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  orDefault(s.PatternErrorMessage, orDefault(s.ErrorMessage, fmt.Sprintf("String does not match the pattern of \"%s\".", s.Pattern))),
		})
	}
}

func (v *validator) validateNumber(n *ast.Node, s *schema.Schema, r *Result) {
	value := n.Number
	if s.MultipleOf != nil && *s.MultipleOf != 0 && math.Mod(value, *s.MultipleOf) != 0 {
		r.addProblem(Problem{
			Span:     n.Span,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Value is not divisible by %s.", formatNumber(*s.MultipleOf)),
		})
	}
	if s.Minimum != nil {
		minimum := *s.Minimum
		switch {
		case s.ExclusiveMinimum && value <= minimum:
			r.addProblem(Problem{
				Span:     n.Span,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Value is below the exclusive minimum of %s.", formatNumber(minimum)),
			})
		case !s.ExclusiveMinimum && value < minimum:
			r.addProblem(Problem{
				Span:     n.Span,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Value is below the minimum of %s.", formatNumber(minimum)),
			})
		}
	}
	if s.Maximum != nil {
		maximum := *s.Maximum
		switch {
		case s.ExclusiveMaximum && value >= maximum:
			r.addProblem(Problem{
				Span:     n.Span,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Value is above the exclusive maximum of %s.", formatNumber(maximum)),
			})
		case !s.ExclusiveMaximum && value > maximum:
			r.addProblem(Problem{
				Span:     n.Span,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Value is above the maximum of %s.", formatNumber(maximum)),
			})
		}
	}
}

// formatNumber renders a number the way it reads in a document: integers
// without a fraction, other values in their shortest form
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); abs == 0 || abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	s = strings.Replace(s, "e-0", "e-", 1)
	return strings.Replace(s, "e+0", "e+", 1)
}

// enumContains reports whether value is one of the allowed values. A number
// is compared by its rendering, so 1 matches both 1 and "1".
func enumContains(allowed []any, value any, ignoreCase bool) bool {
	if f, ok := value.(float64); ok {
		rendered := formatNumber(f)
		for _, e := range allowed {
			switch e := e.(type) {
			case string:
				if e == rendered {
					return true
				}
			case float64:
				if formatNumber(e) == rendered {
					return true
				}
			}
		}
		return false
	}

	for _, e := range allowed {
		if reflect.DeepEqual(value, e) {
			return true
		}
		if !ignoreCase {
			continue
		}
		str, isString := value.(string)
		candidate, isCandidateString := e.(string)
		if isString && isCandidateString && strings.EqualFold(str, candidate) {
			return true
		}
	}
	return false
}

func enumMessage(values []any) string {
	rendered := make([]string, 0, len(values))
	for _, v := range values {
		b, err := json.MarshalNoEscape(v)
		if err != nil {
			rendered = append(rendered, fmt.Sprint(v))
			continue
		}
		rendered = append(rendered, string(b))
	}
	return fmt.Sprintf("Value is not accepted. Valid values: %s.", strings.Join(rendered, ", "))
}
