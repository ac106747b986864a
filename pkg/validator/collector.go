package validator

import (
	"github.com/githubnext/pipelint/pkg/ast"
	"github.com/githubnext/pipelint/pkg/schema"
)

// MatchingSchema pairs a node with a schema it was validated against.
// Inverted is set when the schema was reached through "not".
type MatchingSchema struct {
	Node     *ast.Node
	Schema   *schema.Schema
	Inverted bool
}

// SchemaCollector records every (node, schema) pair visited during
// validation. A nil collector records nothing and accepts every node.
type SchemaCollector struct {
	focus   int
	exclude *ast.Node
	Schemas []MatchingSchema
}

// NewSchemaCollector returns a collector restricted to nodes containing
// focus, or to every node when focus is -1. The exclude node is skipped.
func NewSchemaCollector(focus int, exclude *ast.Node) *SchemaCollector {
	return &SchemaCollector{focus: focus, exclude: exclude}
}

func (c *SchemaCollector) include(n *ast.Node) bool {
	if c == nil {
		return true
	}
	return (c.focus == -1 || n.Contains(c.focus, false)) && n != c.exclude
}

func (c *SchemaCollector) add(ms MatchingSchema) {
	if c == nil {
		return
	}
	c.Schemas = append(c.Schemas, ms)
}

func (c *SchemaCollector) merge(other *SchemaCollector) {
	if c == nil || other == nil {
		return
	}
	c.Schemas = append(c.Schemas, other.Schemas...)
}

// newSub returns an unfocused collector for a nested branch that keeps the
// excluded node
func (c *SchemaCollector) newSub() *SchemaCollector {
	if c == nil {
		return nil
	}
	return &SchemaCollector{focus: -1, exclude: c.exclude}
}
