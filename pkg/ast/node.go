// Package ast defines the position-tracked document tree produced by the
// normalizer and consumed by the validator.
//
// A document is a tree of *Node values. Every node has a Kind, a byte-offset
// Span into the source text, a non-owning Parent pointer and a Location that
// records the property name or array index under which it appears. The tree
// is built once and treated as read-only afterwards.
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the variant of a Node
type Kind int

const (
	Null Kind = iota
	Boolean
	Number
	String
	Array
	Object
	Property
)

var kindNames = [...]string{
	Null:     "null",
	Boolean:  "boolean",
	Number:   "number",
	String:   "string",
	Array:    "array",
	Object:   "object",
	Property: "property",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Span is a half-open byte range [Start, End) in the source text
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Location is the property name or array index a node is stored under
type Location struct {
	Key     string
	Index   int
	isIndex bool
}

// KeyLocation returns a location naming an object property
func KeyLocation(key string) Location {
	return Location{Key: key}
}

// IndexLocation returns a location naming an array element
func IndexLocation(index int) Location {
	return Location{Index: index, isIndex: true}
}

// IsIndex reports whether the location is an array index
func (l Location) IsIndex() bool {
	return l.isIndex
}

func (l Location) String() string {
	if l.isIndex {
		return strconv.Itoa(l.Index)
	}
	return l.Key
}

// Node is a single element of the document tree. Which payload fields are
// meaningful depends on Kind:
//
//	Boolean   Bool
//	Number    Number, IsInteger
//	String    Str, IsKey
//	Array     Items
//	Object    Properties, Entries
//	Property  Key, Value
type Node struct {
	Kind     Kind
	Span     Span
	Parent   *Node
	Location Location

	Bool      bool
	Number    float64
	IsInteger bool
	Str       string
	IsKey     bool

	Items []*Node

	// Properties holds the declared properties in source order, duplicates included.
	Properties []*Node
	// Entries holds one property per distinct key, in order of first declaration,
	// after merge keys and duplicates have been resolved.
	Entries []*Node

	Key   *Node
	Value *Node

	entryIndex map[string]int
	plainKeys  map[string]bool
}

// NewNull returns a null node
func NewNull(parent *Node, span Span) *Node {
	return &Node{Kind: Null, Parent: parent, Span: span}
}

// NewBoolean returns a boolean node
func NewBoolean(parent *Node, span Span, value bool) *Node {
	return &Node{Kind: Boolean, Parent: parent, Span: span, Bool: value}
}

// NewNumber returns a number node
func NewNumber(parent *Node, span Span, value float64, isInteger bool) *Node {
	return &Node{Kind: Number, Parent: parent, Span: span, Number: value, IsInteger: isInteger}
}

// NewString returns a string node
func NewString(parent *Node, span Span, value string, isKey bool) *Node {
	return &Node{Kind: String, Parent: parent, Span: span, Str: value, IsKey: isKey}
}

// NewArray returns an empty array node
func NewArray(parent *Node, span Span) *Node {
	return &Node{Kind: Array, Parent: parent, Span: span}
}

// NewObject returns an empty object node
func NewObject(parent *Node, span Span) *Node {
	return &Node{Kind: Object, Parent: parent, Span: span}
}

// NewProperty returns a property node whose key string node is created from
// keySpan and name. The value is attached with SetValue.
func NewProperty(parent *Node, span Span, keySpan Span, name string) *Node {
	p := &Node{Kind: Property, Parent: parent, Span: span}
	p.Key = NewString(p, keySpan, name, true)
	p.Key.Location = KeyLocation(name)
	return p
}

// Name returns the key of a property node
func (n *Node) Name() string {
	if n.Kind != Property || n.Key == nil {
		return ""
	}
	return n.Key.Str
}

// SetValue attaches the value of a property node
func (n *Node) SetValue(value *Node) {
	if value == nil {
		return
	}
	value.Parent = n
	value.Location = KeyLocation(n.Name())
	n.Value = value
}

// AddItem appends an element to an array node
func (n *Node) AddItem(item *Node) {
	if item == nil {
		return
	}
	item.Parent = n
	item.Location = IndexLocation(len(n.Items))
	n.Items = append(n.Items, item)
}

// AddProperty appends a declared property to an object node. A later
// declaration of the same key replaces the resolved entry but keeps its
// position in Entries.
func (n *Node) AddProperty(p *Node) {
	p.Parent = n
	n.Properties = append(n.Properties, p)
	n.setEntry(p, false)
}

// MergeProperty records a property contributed by a merge key and makes n
// its parent. It never replaces a declared property of the same key. Merged
// properties appear in Entries but not in Properties or Children.
func (n *Node) MergeProperty(p *Node) {
	p.Parent = n
	n.setEntry(p, true)
}

func (n *Node) setEntry(p *Node, merged bool) {
	if n.entryIndex == nil {
		n.entryIndex = make(map[string]int)
		n.plainKeys = make(map[string]bool)
	}
	name := p.Name()
	idx, ok := n.entryIndex[name]
	if !ok {
		n.entryIndex[name] = len(n.Entries)
		n.Entries = append(n.Entries, p)
		n.plainKeys[name] = !merged
		return
	}
	if merged && n.plainKeys[name] {
		return
	}
	n.Entries[idx] = p
	if !merged {
		n.plainKeys[name] = true
	}
}

// Entry returns the resolved property for key, or nil
func (n *Node) Entry(key string) *Node {
	if n.Kind != Object || n.entryIndex == nil {
		return nil
	}
	idx, ok := n.entryIndex[key]
	if !ok {
		return nil
	}
	return n.Entries[idx]
}

// FirstProperty returns the first declared property of an object node, or nil
func (n *Node) FirstProperty() *Node {
	if n.Kind != Object || len(n.Properties) == 0 {
		return nil
	}
	return n.Properties[0]
}

// Interface returns the plain Go value of the node: nil, bool, float64, string,
// []any or map[string]any.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case Boolean:
		return n.Bool
	case Number:
		return n.Number
	case String:
		return n.Str
	case Array:
		values := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			values = append(values, item.Interface())
		}
		return values
	case Object:
		values := make(map[string]any, len(n.Entries))
		for _, p := range n.Entries {
			values[p.Name()] = p.Value.Interface()
		}
		return values
	case Property:
		return n.Value.Interface()
	default:
		return nil
	}
}

// Children returns the direct children of the node in source order
func (n *Node) Children() []*Node {
	switch n.Kind {
	case Array:
		return n.Items
	case Object:
		return n.Properties
	case Property:
		if n.Value == nil {
			return []*Node{n.Key}
		}
		return []*Node{n.Key, n.Value}
	default:
		return nil
	}
}

// Contains reports whether offset falls inside the node's span. The end
// offset is included only when includeRightBound is set.
func (n *Node) Contains(offset int, includeRightBound bool) bool {
	return offset >= n.Span.Start && offset < n.Span.End || includeRightBound && offset == n.Span.End
}

// NodeAt returns the innermost node whose span contains offset, or nil
func (n *Node) NodeAt(offset int) *Node {
	return n.nodeAt(offset, false)
}

// NodeAtEndInclusive is like NodeAt but treats span ends as inside the node
func (n *Node) NodeAtEndInclusive(offset int) *Node {
	return n.nodeAt(offset, true)
}

func (n *Node) nodeAt(offset int, includeRightBound bool) *Node {
	if !n.Contains(offset, includeRightBound) {
		return nil
	}
	for _, child := range n.Children() {
		if found := child.nodeAt(offset, includeRightBound); found != nil {
			return found
		}
	}
	return n
}

// Visit walks the tree depth-first. Returning false from fn skips the
// children of the visited node.
func (n *Node) Visit(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children() {
		child.Visit(fn)
	}
}

// Path returns the locations leading from the root to the node
func (n *Node) Path() []Location {
	var path []Location
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Kind == Property || cur.Parent == nil {
			continue
		}
		if cur.IsKey {
			continue
		}
		path = append(path, cur.Location)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathString renders Path in dotted form, e.g. "jobs.build.steps[0]"
func (n *Node) PathString() string {
	var b strings.Builder
	for _, loc := range n.Path() {
		if loc.IsIndex() {
			fmt.Fprintf(&b, "[%d]", loc.Index)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(loc.Key)
	}
	return b.String()
}
