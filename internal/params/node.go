package params

import (
	"github.com/zclconf/go-cty/cty"
)

// Node is one resolved parametric object: the values produced by overlaying
// configuration onto its Class's defaults, plus resolved child nodes. Nodes
// form a rooted tree; every non-root node has exactly one owner.
type Node struct {
	class  *Class
	parent *Node

	values   map[string]cty.Value
	children []*Node
	childIdx map[string]*Node
}

// Class returns the declaration this node was resolved from.
func (n *Node) Class() *Class {
	return n.class
}

// Parent returns the owning node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Root walks owner references up to the tree root.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Get returns the resolved value of a declared parameter. The second result
// is false when the parameter is optional and stayed unset.
func (n *Node) Get(name string) (cty.Value, bool) {
	v, ok := n.values[name]
	return v, ok
}

// Child returns the resolved nested node with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.childIdx[name]
	return c, ok
}

// Children returns the resolved nested nodes in declaration order.
func (n *Node) Children() []*Node {
	return n.children
}

// Value collapses the resolved tree into a single cty object. Unset optional
// parameters are omitted; nested nodes become nested objects.
func (n *Node) Value() cty.Value {
	attrs := make(map[string]cty.Value, len(n.values)+len(n.children))
	for name, v := range n.values {
		attrs[name] = v
	}
	for _, child := range n.children {
		attrs[child.class.Name] = child.Value()
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}
