package client

import (
	"fmt"

	"github.com/livetree-go/livetree/pkg/vdom"
)

// TreeApplier owns the client's live tree and applies server patch lists
// to it in order. It layers one rule on top of raw application: a value
// write targeting the element the user is currently editing is skipped,
// so an in-flight edit is never clobbered by a stale server echo.
// Non-value attributes on the same element still apply.
//
// Unknown patch paths are a hard error. They mean the client and server
// trees have drifted, which is a bug, not a condition to paper over.
type TreeApplier struct {
	applier *vdom.Applier

	focused   string // Path.String() of the focused element, "" when none
	userDirty map[string]bool
}

// NewTreeApplier creates an applier over root. The applier takes
// ownership: patches mutate root in place.
func NewTreeApplier(root *vdom.VNode) *TreeApplier {
	return &TreeApplier{
		applier:   &vdom.Applier{Root: root},
		userDirty: make(map[string]bool),
	}
}

// Root returns the live tree.
func (a *TreeApplier) Root() *vdom.VNode {
	return a.applier.Root
}

// SetFocus records the element that holds input focus.
func (a *TreeApplier) SetFocus(p vdom.Path) {
	a.focused = p.String()
}

// ClearFocus records loss of focus and clears the element's dirty flag:
// once the user leaves the field, server values win again.
func (a *TreeApplier) ClearFocus() {
	if a.focused != "" {
		delete(a.userDirty, a.focused)
	}
	a.focused = ""
}

// MarkDirty flags an element as carrying an unsynced user edit.
func (a *TreeApplier) MarkDirty(p vdom.Path) {
	a.userDirty[p.String()] = true
}

// ClearDirty removes the flag, typically after the edit reached the
// server.
func (a *TreeApplier) ClearDirty(p vdom.Path) {
	delete(a.userDirty, p.String())
}

// Apply applies patches strictly in order. Suppressed value writes are
// skipped silently; any other application failure aborts and returns the
// error.
func (a *TreeApplier) Apply(patches []vdom.Patch) error {
	for _, p := range patches {
		if a.suppress(&p) {
			continue
		}
		if err := a.applier.ApplyOne(p); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the node at p, or nil.
func (a *TreeApplier) Resolve(p vdom.Path) *vdom.VNode {
	return vdom.Lookup(a.applier.Root, p)
}

// Replace swaps the node at p for a clone of node. Used for optimistic
// reverts.
func (a *TreeApplier) Replace(p vdom.Path, node *vdom.VNode) error {
	return a.applier.ApplyOne(vdom.Patch{Op: vdom.OpReplaceNode, Path: p, Node: node})
}

// suppress reports whether p is a value write into the focused,
// user-dirty input-family element.
func (a *TreeApplier) suppress(p *vdom.Patch) bool {
	if a.focused == "" {
		return false
	}

	var elemPath vdom.Path
	switch p.Op {
	case vdom.OpSetAttribute:
		if p.Name != "value" {
			return false
		}
		elemPath = p.Path
	case vdom.OpReplaceText:
		// A textarea's visible value is its text child.
		if len(p.Path) == 0 {
			return false
		}
		elemPath = p.Path[:len(p.Path)-1]
	default:
		return false
	}

	key := elemPath.String()
	if key != a.focused || !a.userDirty[key] {
		return false
	}
	return isInputFamily(a.Resolve(elemPath))
}

func isInputFamily(n *vdom.VNode) bool {
	if n == nil || n.Kind != vdom.KindElement {
		return false
	}
	switch n.Tag {
	case "input", "textarea", "select":
		return true
	default:
		return false
	}
}

// String describes the applier's edit-protection state, for logs.
func (a *TreeApplier) String() string {
	return fmt.Sprintf("TreeApplier{focused: %q, dirty: %d}", a.focused, len(a.userDirty))
}
