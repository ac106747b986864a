package schema

import (
	"regexp"
	"sync"
)

type patternKey struct {
	pattern    string
	ignoreCase bool
}

var patternCache sync.Map // patternKey -> *regexp.Regexp

// CompilePattern compiles a schema pattern, caching the result. Patterns are
// unanchored like ECMAScript's RegExp.test.
func CompilePattern(pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	key := patternKey{pattern: pattern, ignoreCase: ignoreCase}
	if re, ok := patternCache.Load(key); ok {
		return re.(*regexp.Regexp), nil
	}
	expr := pattern
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	actual, _ := patternCache.LoadOrStore(key, re)
	return actual.(*regexp.Regexp), nil
}

// MatchPattern reports whether value matches pattern. A pattern the regexp
// engine cannot compile, such as one using lookaround, never rejects a value.
func MatchPattern(pattern, value string, ignoreCase bool) bool {
	re, err := CompilePattern(pattern, ignoreCase)
	if err != nil {
		return true
	}
	return re.MatchString(value)
}
