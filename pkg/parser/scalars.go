package parser

import "strings"

// legacyBooleans is the YAML 1.1 boolean vocabulary that pipeline documents
// still rely on. goccy/go-yaml follows YAML 1.2 and leaves these as strings.
var legacyBooleans = map[string]bool{
	"y": true, "Y": true, "yes": true, "Yes": true, "YES": true,
	"n": false, "N": false, "no": false, "No": false, "NO": false,
	"on": true, "On": true, "ON": true,
	"off": false, "Off": false, "OFF": false,
}

// LegacyBoolean reports whether a plain scalar belongs to the legacy boolean
// vocabulary and, if so, its value.
func LegacyBoolean(raw string) (value bool, ok bool) {
	value, ok = legacyBooleans[raw]
	return value, ok
}

// IsCompileTimeExpression reports whether a mapping key is a template
// expression of the form "${{ ... }}"
func IsCompileTimeExpression(key string) bool {
	return strings.HasPrefix(key, "${{") && strings.HasSuffix(key, "}}")
}

// IsTemplatePlaceholder reports whether a string value is a template
// expression, a runtime expression or a macro: "${{ ... }}", "$[ ... ]" or
// "$( ... )". Such values are resolved later and never fail a type check.
func IsTemplatePlaceholder(value string) bool {
	switch v := value; {
	case strings.HasPrefix(v, "${{") && strings.HasSuffix(v, "}}"):
		return true
	case strings.HasPrefix(v, "$[") && strings.HasSuffix(v, "]"):
		return true
	case strings.HasPrefix(v, "$(") && strings.HasSuffix(v, ")"):
		return true
	}
	return false
}
