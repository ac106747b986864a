package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/token"
)

var bracketPositionPattern = regexp.MustCompile(`^\[(\d+):(\d+)\]\s*(.*)`)

// ExtractYAMLError extracts the 1-based line and column and the bare message
// from a YAML parser error. The token is returned when the error carries one.
// lineOffset is added to the extracted line to account for the position of
// the parsed text inside a larger file.
func ExtractYAMLError(err error, lineOffset int) (line int, column int, message string, tk *token.Token) {
	var yamlErr yaml.Error
	if errors.As(err, &yamlErr) {
		tk = yamlErr.GetToken()
		message = yamlErr.GetMessage()
		if tk != nil && tk.Position != nil {
			return tk.Position.Line + lineOffset, tk.Position.Column, message, tk
		}
	}

	errStr := err.Error()
	if message == "" {
		message = errStr
	}

	// goccy/go-yaml format: "[line:column] message" followed by a source excerpt
	firstLine, _, _ := strings.Cut(errStr, "\n")
	if m := bracketPositionPattern.FindStringSubmatch(firstLine); m != nil {
		if _, scanErr := fmt.Sscanf(m[1]+" "+m[2], "%d %d", &line, &column); scanErr == nil {
			if tk == nil {
				message = strings.TrimSpace(m[3])
			}
			return line + lineOffset, column, message, tk
		}
	}

	// Parse "yaml: line X: column Y: message" and "yaml: line X: message" formats
	if _, rest, ok := strings.Cut(errStr, "yaml: line "); ok {
		lineStr, remaining, found := strings.Cut(rest, ":")
		if found {
			if _, scanErr := fmt.Sscanf(lineStr, "%d", &line); scanErr == nil {
				remaining = strings.TrimSpace(remaining)
				if after, hasColumn := strings.CutPrefix(remaining, "column "); hasColumn {
					columnStr, msg, _ := strings.Cut(after, ":")
					if _, scanErr := fmt.Sscanf(columnStr, "%d", &column); scanErr == nil {
						return line + lineOffset, column, strings.TrimSpace(msg), tk
					}
				}
				return line + lineOffset, 1, remaining, tk
			}
		}
	}

	return 0, 0, message, tk
}
