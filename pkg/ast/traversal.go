package ast

// KeyedNode is a property found by FindNodes
type KeyedNode struct {
	// Range is the span of the object that declares the property
	Range Span
	Key   string
	Value any
	Node  *Node
}

// FindNodes returns every declared property named key, in document order
func FindNodes(root *Node, key string) []KeyedNode {
	if root == nil {
		return nil
	}
	var nodes []KeyedNode
	root.Visit(func(n *Node) bool {
		if n.Kind == Property && n.Name() == key {
			found := KeyedNode{Key: key, Node: n, Value: n.Value.Interface()}
			if n.Parent != nil {
				found.Range = n.Parent.Span
			}
			nodes = append(nodes, found)
		}
		return true
	})
	return nodes
}

// NodePropertyValues finds the innermost object enclosing offset, takes its
// single property called name and returns that property's object value as a
// key to value map. It returns nil when any step does not resolve.
func NodePropertyValues(root *Node, offset int, name string) map[string]any {
	if root == nil {
		return nil
	}
	node := root.NodeAt(offset)
	for node != nil && node.Kind != Object {
		node = node.Parent
	}
	if node == nil {
		return nil
	}

	var match *Node
	for _, p := range node.Properties {
		if p.Name() != name {
			continue
		}
		if match != nil {
			return nil
		}
		match = p
	}
	if match == nil {
		return nil
	}

	values := make(map[string]any)
	if match.Value != nil && match.Value.Kind == Object {
		for _, p := range match.Value.Properties {
			values[p.Name()] = p.Value.Interface()
		}
	}
	return values
}
