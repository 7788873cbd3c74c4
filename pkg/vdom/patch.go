package vdom

import (
	"encoding/json"
	"fmt"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	OpReplaceText     PatchOp = iota + 1 // Update text/comment content
	OpSetAttribute                       // Set or add an attribute
	OpRemoveAttribute                    // Remove an attribute
	OpInsertChild                        // Insert a new child at index
	OpRemoveChild                        // Remove the child at index
	OpMoveChild                          // Move a child between positions
	OpReplaceNode                        // Replace a whole subtree
)

var opNames = map[PatchOp]string{
	OpReplaceText:     "ReplaceText",
	OpSetAttribute:    "SetAttribute",
	OpRemoveAttribute: "RemoveAttribute",
	OpInsertChild:     "InsertChild",
	OpRemoveChild:     "RemoveChild",
	OpMoveChild:       "MoveChild",
	OpReplaceNode:     "ReplaceNode",
}

// String returns the wire name of the patch operation.
func (op PatchOp) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "Unknown"
}

// ParsePatchOp resolves a wire name back to a PatchOp.
func ParsePatchOp(name string) (PatchOp, bool) {
	for op, n := range opNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// Patch is a single path-addressed tree mutation.
//
// For ReplaceText, SetAttribute, RemoveAttribute and ReplaceNode the Path
// addresses the target node. For InsertChild, RemoveChild and MoveChild it
// addresses the parent; Index/From/To are positions in its child list.
type Patch struct {
	Op    PatchOp
	Path  Path
	Text  string // ReplaceText
	Name  string // SetAttribute, RemoveAttribute
	Value string // SetAttribute
	Index int    // InsertChild, RemoveChild
	Key   string // MoveChild: stable key identifying the child to move
	To    int    // MoveChild: final index in the new sibling order
	Node  *VNode // InsertChild, ReplaceNode
}

// String returns a compact human-readable form for logs and test failures.
func (p Patch) String() string {
	switch p.Op {
	case OpReplaceText:
		return fmt.Sprintf("ReplaceText(%s, %q)", p.Path, p.Text)
	case OpSetAttribute:
		return fmt.Sprintf("SetAttribute(%s, %s=%q)", p.Path, p.Name, p.Value)
	case OpRemoveAttribute:
		return fmt.Sprintf("RemoveAttribute(%s, %s)", p.Path, p.Name)
	case OpInsertChild:
		return fmt.Sprintf("InsertChild(%s, %d)", p.Path, p.Index)
	case OpRemoveChild:
		return fmt.Sprintf("RemoveChild(%s, %d)", p.Path, p.Index)
	case OpMoveChild:
		return fmt.Sprintf("MoveChild(%s, %q->%d)", p.Path, p.Key, p.To)
	case OpReplaceNode:
		return fmt.Sprintf("ReplaceNode(%s)", p.Path)
	default:
		return "Unknown"
	}
}

// patchWire is the JSON form: {"type": ..., "path": [...], ...op fields}.
type patchWire struct {
	Type  string          `json:"type"`
	Path  []int           `json:"path"`
	Text  *string         `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Value *string         `json:"value,omitempty"`
	Index *int            `json:"index,omitempty"`
	Key   string          `json:"key,omitempty"`
	To    *int            `json:"to,omitempty"`
	Node  json.RawMessage `json:"node,omitempty"`
}

// MarshalJSON encodes the patch in its wire shape.
func (p Patch) MarshalJSON() ([]byte, error) {
	w := patchWire{Type: p.Op.String(), Path: p.Path}
	if w.Path == nil {
		w.Path = []int{}
	}
	switch p.Op {
	case OpReplaceText:
		w.Text = &p.Text
	case OpSetAttribute:
		w.Name = p.Name
		w.Value = &p.Value
	case OpRemoveAttribute:
		w.Name = p.Name
	case OpInsertChild:
		w.Index = &p.Index
		node, err := json.Marshal(p.Node)
		if err != nil {
			return nil, err
		}
		w.Node = node
	case OpRemoveChild:
		w.Index = &p.Index
	case OpMoveChild:
		w.Key = p.Key
		w.To = &p.To
	case OpReplaceNode:
		node, err := json.Marshal(p.Node)
		if err != nil {
			return nil, err
		}
		w.Node = node
	default:
		return nil, fmt.Errorf("vdom: cannot marshal unknown patch op %d", p.Op)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a patch from its wire shape.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var w patchWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	op, ok := ParsePatchOp(w.Type)
	if !ok {
		return fmt.Errorf("vdom: unknown patch type %q", w.Type)
	}
	*p = Patch{Op: op, Path: Path(w.Path)}
	switch op {
	case OpReplaceText:
		if w.Text != nil {
			p.Text = *w.Text
		}
	case OpSetAttribute:
		p.Name = w.Name
		if w.Value != nil {
			p.Value = *w.Value
		}
	case OpRemoveAttribute:
		p.Name = w.Name
	case OpInsertChild:
		if w.Index != nil {
			p.Index = *w.Index
		}
		if len(w.Node) > 0 {
			p.Node = &VNode{}
			if err := json.Unmarshal(w.Node, p.Node); err != nil {
				return err
			}
		}
	case OpRemoveChild:
		if w.Index != nil {
			p.Index = *w.Index
		}
	case OpMoveChild:
		p.Key = w.Key
		if w.To != nil {
			p.To = *w.To
		}
	case OpReplaceNode:
		if len(w.Node) > 0 {
			p.Node = &VNode{}
			if err := json.Unmarshal(w.Node, p.Node); err != nil {
				return err
			}
		}
	}
	return nil
}

// nodeWire is the JSON form of a VNode. Elements carry tag/attrs/children,
// text nodes carry only text, comments only comment. Attributes are an
// ordered array of [name, value] pairs.
type nodeWire struct {
	Tag      string      `json:"tag,omitempty"`
	Attrs    [][2]string `json:"attrs,omitempty"`
	Children []*VNode    `json:"children,omitempty"`
	Key      string      `json:"key,omitempty"`
	Text     *string     `json:"text,omitempty"`
	Comment  *string     `json:"comment,omitempty"`
}

// MarshalJSON encodes the node in its wire shape.
func (v *VNode) MarshalJSON() ([]byte, error) {
	var w nodeWire
	switch v.Kind {
	case KindText:
		w.Text = &v.Text
	case KindComment:
		w.Comment = &v.Text
	default:
		w.Tag = v.Tag
		w.Key = v.Key
		w.Children = v.Children
		if len(v.Attrs) > 0 {
			w.Attrs = make([][2]string, len(v.Attrs))
			for i, at := range v.Attrs {
				w.Attrs[i] = [2]string{at.Name, at.Value}
			}
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a node from its wire shape.
func (v *VNode) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Text != nil:
		*v = VNode{Kind: KindText, Text: *w.Text}
	case w.Comment != nil:
		*v = VNode{Kind: KindComment, Text: *w.Comment}
	default:
		*v = VNode{Kind: KindElement, Tag: w.Tag, Key: w.Key, Children: w.Children}
		if len(w.Attrs) > 0 {
			v.Attrs = make(Attrs, len(w.Attrs))
			for i, pair := range w.Attrs {
				v.Attrs[i] = Attr{Name: pair[0], Value: pair[1]}
			}
		}
	}
	return nil
}
