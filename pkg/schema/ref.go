package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// linker resolves local "$ref" pointers. A referencing schema keeps the
// keywords it declares itself and takes every other keyword from its target.
type linker struct {
	root      *Schema
	visited   map[*Schema]bool
	resolving map[*Schema]bool
}

func link(root *Schema) error {
	l := &linker{
		root:      root,
		visited:   make(map[*Schema]bool),
		resolving: make(map[*Schema]bool),
	}
	return l.walk(root)
}

func (l *linker) walk(s *Schema) error {
	if s == nil || l.visited[s] {
		return nil
	}
	l.visited[s] = true
	if err := l.resolve(s); err != nil {
		return err
	}
	for _, sub := range s.subschemas() {
		if err := l.walk(sub); err != nil {
			return err
		}
	}
	return nil
}

func (l *linker) resolve(s *Schema) error {
	if s.Ref == "" {
		return nil
	}
	if l.resolving[s] {
		return fmt.Errorf("circular $ref %q", s.Ref)
	}
	l.resolving[s] = true
	defer delete(l.resolving, s)

	target, err := l.lookup(s.Ref)
	if err != nil {
		return err
	}
	if err := l.resolve(target); err != nil {
		return err
	}
	s.Ref = ""
	if target != s {
		inherit(s, target)
	}
	return nil
}

// lookup follows a "#/..." JSON pointer from the document root
func (l *linker) lookup(ref string) (*Schema, error) {
	pointer, ok := strings.CutPrefix(ref, "#")
	if !ok {
		return nil, fmt.Errorf("unsupported $ref %q: only local references are allowed", ref)
	}
	current := l.root
	if pointer == "" || pointer == "/" {
		return current, nil
	}
	segments := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i := 0; i < len(segments); i++ {
		keyword := unescapePointer(segments[i])
		var next *Schema
		switch keyword {
		case "not":
			next = current.Not
		case "additionalProperties":
			if current.AdditionalProperties != nil {
				next = current.AdditionalProperties.Schema
			}
		case "additionalItems":
			if current.AdditionalItems != nil {
				next = current.AdditionalItems.Schema
			}
		case "items":
			if current.Items == nil {
				break
			}
			if !current.Items.IsTuple() {
				next = current.Items.Schema
				break
			}
			i++
			next = indexed(current.Items.Tuple, segments, i)
		case "allOf", "anyOf", "oneOf":
			i++
			next = indexed(map[string][]*Schema{"allOf": current.AllOf, "anyOf": current.AnyOf, "oneOf": current.OneOf}[keyword], segments, i)
		case "definitions", "properties", "patternProperties":
			i++
			if i < len(segments) {
				next = map[string]map[string]*Schema{
					"definitions":       current.Definitions,
					"properties":        current.Properties,
					"patternProperties": current.PatternProperties,
				}[keyword][unescapePointer(segments[i])]
			}
		}
		if next == nil {
			return nil, fmt.Errorf("unresolved $ref %q", ref)
		}
		current = next
	}
	return current, nil
}

func indexed(list []*Schema, segments []string, i int) *Schema {
	if i >= len(segments) {
		return nil
	}
	idx, err := strconv.Atoi(segments[i])
	if err != nil || idx < 0 || idx >= len(list) {
		return nil
	}
	return list[idx]
}

func unescapePointer(segment string) string {
	return strings.ReplaceAll(strings.ReplaceAll(segment, "~1", "/"), "~0", "~")
}

// inherit copies every keyword set on src and unset on dst
func inherit(dst, src *Schema) {
	d := reflect.ValueOf(dst).Elem()
	s := reflect.ValueOf(src).Elem()
	for i := 0; i < d.NumField(); i++ {
		field := d.Field(i)
		if !field.CanSet() || !field.IsZero() {
			continue
		}
		field.Set(s.Field(i))
	}
}
