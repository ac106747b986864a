// Package schema holds the structural schema dialect used to validate
// pipeline documents: JSON Schema draft-04 keywords plus the pipeline
// extensions firstProperty, aliases, ignoreCase, deprecationMessage,
// errorMessage and patternErrorMessage.
package schema

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Case folding modes accepted by the ignoreCase keyword
const (
	IgnoreKeyCase   = "key"
	IgnoreValueCase = "value"
	IgnoreAllCase   = "all"
)

// Schema is one node of a schema document. After loading, $ref keywords are
// resolved in place, so a Schema graph may contain cycles.
type Schema struct {
	ID          string `json:"$id,omitempty"`
	Dialect     string `json:"$schema,omitempty"`
	Ref         string `json:"$ref,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`

	Type TypeSet `json:"type,omitempty"`

	Properties           map[string]*Schema    `json:"properties,omitempty"`
	PatternProperties    map[string]*Schema    `json:"patternProperties,omitempty"`
	AdditionalProperties *BoolOrSchema         `json:"additionalProperties,omitempty"`
	Required             []string              `json:"required,omitempty"`
	Dependencies         map[string]Dependency `json:"dependencies,omitempty"`
	MinProperties        *int                  `json:"minProperties,omitempty"`
	MaxProperties        *int                  `json:"maxProperties,omitempty"`
	FirstProperty        []string              `json:"firstProperty,omitempty"`
	Aliases              []string              `json:"aliases,omitempty"`
	IgnoreCase           string                `json:"ignoreCase,omitempty"`

	Items           *Items        `json:"items,omitempty"`
	AdditionalItems *BoolOrSchema `json:"additionalItems,omitempty"`
	MinItems        *int          `json:"minItems,omitempty"`
	MaxItems        *int          `json:"maxItems,omitempty"`
	UniqueItems     bool          `json:"uniqueItems,omitempty"`

	AllOf []*Schema `json:"allOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty"`
	Not   *Schema   `json:"not,omitempty"`
	Enum  []any     `json:"enum,omitempty"`

	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum bool     `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum bool     `json:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`

	MinLength           *int   `json:"minLength,omitempty"`
	MaxLength           *int   `json:"maxLength,omitempty"`
	Pattern             string `json:"pattern,omitempty"`
	PatternErrorMessage string `json:"patternErrorMessage,omitempty"`

	ErrorMessage       string `json:"errorMessage,omitempty"`
	DeprecationMessage string `json:"deprecationMessage,omitempty"`

	Definitions map[string]*Schema `json:"definitions,omitempty"`
}

// IgnoresKeyCase reports whether property names matched by this schema are
// compared case-insensitively
func (s *Schema) IgnoresKeyCase() bool {
	return s != nil && (s.IgnoreCase == IgnoreKeyCase || s.IgnoreCase == IgnoreAllCase)
}

// IgnoresValueCase reports whether enum and pattern checks on string values
// are case-insensitive
func (s *Schema) IgnoresValueCase() bool {
	return s != nil && (s.IgnoreCase == IgnoreValueCase || s.IgnoreCase == IgnoreAllCase)
}

// TypeSet is the "type" keyword: either a single type name or a list of names.
// List records which form was written since the two forms report differently.
type TypeSet struct {
	Names []string
	List  bool
}

// IsZero reports whether no type was declared
func (t TypeSet) IsZero() bool {
	return len(t.Names) == 0
}

// Is reports whether the type was declared as the single name
func (t TypeSet) Is(name string) bool {
	return !t.List && len(t.Names) == 1 && t.Names[0] == name
}

// Has reports whether name is one of the declared types
func (t TypeSet) Has(name string) bool {
	for _, n := range t.Names {
		if n == name {
			return true
		}
	}
	return false
}

func (t *TypeSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("type: %w", err)
		}
		*t = TypeSet{Names: names, List: true}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	*t = TypeSet{Names: []string{name}}
	return nil
}

func (t TypeSet) MarshalJSON() ([]byte, error) {
	if t.List {
		return json.Marshal(t.Names)
	}
	if len(t.Names) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(t.Names[0])
}

// BoolOrSchema is the value of additionalProperties and additionalItems.
// When Schema is nil, Allowed holds the boolean form.
type BoolOrSchema struct {
	Allowed bool
	Schema  *Schema
}

// Forbids reports whether the keyword was written as false
func (b *BoolOrSchema) Forbids() bool {
	return b != nil && b.Schema == nil && !b.Allowed
}

func (b *BoolOrSchema) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*b = BoolOrSchema{Allowed: true}
		return nil
	case "false":
		*b = BoolOrSchema{}
		return nil
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = BoolOrSchema{Allowed: true, Schema: &s}
	return nil
}

func (b BoolOrSchema) MarshalJSON() ([]byte, error) {
	if b.Schema != nil {
		return json.Marshal(b.Schema)
	}
	return json.Marshal(b.Allowed)
}

// Items is the "items" keyword: a schema applied to every element, or a
// tuple of per-position schemas when Tuple is set
type Items struct {
	Schema *Schema
	Tuple  []*Schema
}

// IsTuple reports whether items was written as an array of schemas
func (i *Items) IsTuple() bool {
	return i != nil && i.Tuple != nil
}

func (i *Items) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		tuple := []*Schema{}
		if err := json.Unmarshal(data, &tuple); err != nil {
			return err
		}
		*i = Items{Tuple: tuple}
		return nil
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*i = Items{Schema: &s}
	return nil
}

func (i Items) MarshalJSON() ([]byte, error) {
	if i.Tuple != nil {
		return json.Marshal(i.Tuple)
	}
	return json.Marshal(i.Schema)
}

// Dependency is one entry of the "dependencies" keyword: either a list of
// sibling property names or a schema the whole object must satisfy
type Dependency struct {
	Properties []string
	Schema     *Schema
}

func (d *Dependency) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		names := []string{}
		if err := json.Unmarshal(data, &names); err != nil {
			return err
		}
		*d = Dependency{Properties: names}
		return nil
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = Dependency{Schema: &s}
	return nil
}

func (d Dependency) MarshalJSON() ([]byte, error) {
	if d.Schema != nil {
		return json.Marshal(d.Schema)
	}
	return json.Marshal(d.Properties)
}

// subschemas returns every schema directly nested in s
func (s *Schema) subschemas() []*Schema {
	var subs []*Schema
	for _, p := range s.Properties {
		subs = append(subs, p)
	}
	for _, p := range s.PatternProperties {
		subs = append(subs, p)
	}
	if s.AdditionalProperties != nil && s.AdditionalProperties.Schema != nil {
		subs = append(subs, s.AdditionalProperties.Schema)
	}
	for _, d := range s.Dependencies {
		if d.Schema != nil {
			subs = append(subs, d.Schema)
		}
	}
	if s.Items != nil {
		if s.Items.Schema != nil {
			subs = append(subs, s.Items.Schema)
		}
		subs = append(subs, s.Items.Tuple...)
	}
	if s.AdditionalItems != nil && s.AdditionalItems.Schema != nil {
		subs = append(subs, s.AdditionalItems.Schema)
	}
	subs = append(subs, s.AllOf...)
	subs = append(subs, s.AnyOf...)
	subs = append(subs, s.OneOf...)
	if s.Not != nil {
		subs = append(subs, s.Not)
	}
	for _, d := range s.Definitions {
		subs = append(subs, d)
	}
	return subs
}
