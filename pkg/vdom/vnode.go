package vdom

import (
	"strconv"
	"strings"
)

// NodeKind is the node type discriminator.
type NodeKind uint8

const (
	KindElement NodeKind = iota // <div>, <button>, etc.
	KindText                    // Plain text node
	KindComment                 // <!-- comment -->
)

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindComment:
		return "Comment"
	default:
		return "Unknown"
	}
}

// VNode is a node in the UI tree.
//
// Identity is positional: a node is addressed by the Path of child indices
// from the root. Key is an optional stable identity for keyed
// reconciliation of siblings.
type VNode struct {
	Kind     NodeKind // Node type
	Tag      string   // Element tag name (e.g., "div")
	Attrs    Attrs    // Element attributes (KindElement only)
	Children []*VNode // Child nodes (KindElement only)
	Key      string   // Reconciliation key
	Text     string   // For KindText and KindComment
}

// Attr is a single name/value attribute pair.
type Attr struct {
	Name  string
	Value string
}

// Attrs is an attribute list with map-style accessors. The list keeps a
// stable order so rendering and serialization are deterministic, but the
// order carries no identity: attributes compare as a name/value set.
type Attrs []Attr

// Get returns the value for name and whether it is present.
func (a Attrs) Get(name string) (string, bool) {
	for _, at := range a {
		if at.Name == name {
			return at.Value, true
		}
	}
	return "", false
}

// Has reports whether name is present.
func (a Attrs) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set updates name in place or appends it, preserving order.
func (a *Attrs) Set(name, value string) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attr{Name: name, Value: value})
}

// Del removes name if present.
func (a *Attrs) Del(name string) {
	for i := range *a {
		if (*a)[i].Name == name {
			*a = append((*a)[:i], (*a)[i+1:]...)
			return
		}
	}
}

// Clone returns a copy of the attribute list.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	copy(out, a)
	return out
}

// Clone returns a deep copy of the node.
func (v *VNode) Clone() *VNode {
	if v == nil {
		return nil
	}
	out := &VNode{
		Kind:  v.Kind,
		Tag:   v.Tag,
		Attrs: v.Attrs.Clone(),
		Key:   v.Key,
		Text:  v.Text,
	}
	if v.Children != nil {
		out.Children = make([]*VNode, len(v.Children))
		for i, c := range v.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Equal reports whether two trees are structurally equal: same kinds, tags,
// keys, text, attributes, and children. Attributes compare as a name/value
// set; their list order is a rendering detail, not identity, so a tree
// rebuilt through a patch list compares equal to the tree it was diffed
// against even when new attributes land at a different position.
func Equal(a, b *VNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Tag != b.Tag || a.Key != b.Key || a.Text != b.Text {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for _, at := range a.Attrs {
		if v, ok := b.Attrs.Get(at.Name); !ok || v != at.Value {
			return false
		}
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Path addresses a node by the sequence of child indices from the root.
// The empty path addresses the root itself.
type Path []int

// String returns the path in dotted form, e.g. "0.2.1". The root is "".
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// Child returns a new path extended by index i.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Clone returns a copy of the path.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Lookup resolves a path against root. It returns nil if any index is out
// of range or traverses a non-element node.
func Lookup(root *VNode, path Path) *VNode {
	node := root
	for _, idx := range path {
		if node == nil || idx < 0 || idx >= len(node.Children) {
			return nil
		}
		node = node.Children[idx]
	}
	return node
}

// CountNodes returns the total number of nodes in the tree.
func CountNodes(root *VNode) int {
	if root == nil {
		return 0
	}
	n := 1
	for _, c := range root.Children {
		n += CountNodes(c)
	}
	return n
}
