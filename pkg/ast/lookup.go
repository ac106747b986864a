package ast

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrPathNotFound is returned by Lookup when a segment does not resolve
var ErrPathNotFound = errors.New("path not found")

var pathSegmentPattern = regexp.MustCompile(`([^.\[\]]+)|\[([^\]]+)\]`)

// Lookup resolves a path against the tree rooted at root. Two path syntaxes are
// accepted: dotted paths ("jobs.build.steps[0].script", optionally prefixed with
// "$.") and RFC 6901 JSON pointers ("/jobs/build/steps/0/script").
func Lookup(root *Node, path string) (*Node, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	current := root
	for _, segment := range segments {
		if current == nil {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		switch current.Kind {
		case Object:
			p := current.Entry(segment)
			if p == nil {
				return nil, fmt.Errorf("%w: key %q", ErrPathNotFound, segment)
			}
			current = p.Value
		case Array:
			if !isIndex(segment) {
				return nil, fmt.Errorf("%w: %q is not an array index", ErrPathNotFound, segment)
			}
			idx, _ := strconv.Atoi(segment)
			if idx >= len(current.Items) {
				return nil, fmt.Errorf("%w: index %d out of range", ErrPathNotFound, idx)
			}
			current = current.Items[idx]
		default:
			return nil, fmt.Errorf("%w: cannot descend into %s at %q", ErrPathNotFound, current.Kind, segment)
		}
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return current, nil
}

func splitPath(path string) ([]string, error) {
	if strings.HasPrefix(path, "/") || path == "" {
		return decodeJSONPointer(path)
	}

	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")

	var parts []string
	for _, match := range pathSegmentPattern.FindAllStringSubmatch(path, -1) {
		if match[1] != "" {
			parts = append(parts, match[1])
		} else if match[2] != "" {
			parts = append(parts, match[2])
		}
	}
	return parts, nil
}

// decodeJSONPointer decodes an RFC6901 pointer (e.g. "/jobs/build/steps/0")
// into segments. Returns an empty slice for "" or "/".
func decodeJSONPointer(ptr string) ([]string, error) {
	if ptr == "" || ptr == "/" {
		return []string{}, nil
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, errors.New("invalid json pointer: must start with '/'")
	}
	parts := strings.Split(ptr[1:], "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		p = strings.ReplaceAll(p, "~0", "~")
		parts[i] = p
	}
	return parts, nil
}

// isIndex determines whether a segment looks like an array index
func isIndex(segment string) bool {
	if len(segment) == 0 || segment[0] == '-' {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
