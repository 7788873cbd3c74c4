package vdom

import (
	"errors"
	"fmt"
)

// ErrPatchTarget is returned when a patch addresses a path or key that does
// not exist in the tree. It indicates drift between the patch producer's
// view of the tree and the tree being patched, which is a correctness bug,
// so it is never silently ignored.
var ErrPatchTarget = errors.New("vdom: patch target not found")

// Apply applies patches in order to root and returns the resulting tree.
// The input tree is mutated in place; the returned root differs from the
// input only when the root itself was replaced.
func Apply(root *VNode, patches []Patch) (*VNode, error) {
	a := &Applier{Root: root}
	for _, p := range patches {
		if err := a.ApplyOne(p); err != nil {
			return a.Root, err
		}
	}
	return a.Root, nil
}

// Applier applies patches one at a time against a held tree. The client
// runtime uses it directly so it can veto or rewrite individual patches
// (the preserve-in-flight-edits rule) before they touch the live tree.
type Applier struct {
	Root *VNode
}

// ApplyOne applies a single patch to the held tree.
func (a *Applier) ApplyOne(p Patch) error {
	switch p.Op {
	case OpReplaceText:
		target := Lookup(a.Root, p.Path)
		if target == nil {
			return targetErr(p)
		}
		target.Text = p.Text

	case OpSetAttribute:
		target := Lookup(a.Root, p.Path)
		if target == nil {
			return targetErr(p)
		}
		target.Attrs.Set(p.Name, p.Value)

	case OpRemoveAttribute:
		target := Lookup(a.Root, p.Path)
		if target == nil {
			return targetErr(p)
		}
		target.Attrs.Del(p.Name)

	case OpInsertChild:
		parent := Lookup(a.Root, p.Path)
		if parent == nil || p.Index < 0 || p.Index > len(parent.Children) {
			return targetErr(p)
		}
		node := p.Node.Clone()
		parent.Children = append(parent.Children, nil)
		copy(parent.Children[p.Index+1:], parent.Children[p.Index:])
		parent.Children[p.Index] = node

	case OpRemoveChild:
		parent := Lookup(a.Root, p.Path)
		if parent == nil || p.Index < 0 || p.Index >= len(parent.Children) {
			return targetErr(p)
		}
		parent.Children = append(parent.Children[:p.Index], parent.Children[p.Index+1:]...)

	case OpMoveChild:
		parent := Lookup(a.Root, p.Path)
		if parent == nil {
			return targetErr(p)
		}
		// Resolve the child by key, not by index: earlier patches in the
		// same batch shift sibling positions, while keys are stable.
		from := -1
		for i, c := range parent.Children {
			if c.Key == p.Key {
				from = i
				break
			}
		}
		if from < 0 {
			return targetErr(p)
		}
		node := parent.Children[from]
		parent.Children = append(parent.Children[:from], parent.Children[from+1:]...)
		to := p.To
		if to > len(parent.Children) {
			to = len(parent.Children)
		}
		parent.Children = append(parent.Children, nil)
		copy(parent.Children[to+1:], parent.Children[to:])
		parent.Children[to] = node

	case OpReplaceNode:
		if len(p.Path) == 0 {
			a.Root = p.Node.Clone()
			return nil
		}
		parent := Lookup(a.Root, p.Path[:len(p.Path)-1])
		idx := p.Path[len(p.Path)-1]
		if parent == nil || idx < 0 || idx >= len(parent.Children) {
			return targetErr(p)
		}
		parent.Children[idx] = p.Node.Clone()

	default:
		return fmt.Errorf("vdom: unknown patch op %d", p.Op)
	}
	return nil
}

func targetErr(p Patch) error {
	return fmt.Errorf("%w: %s", ErrPatchTarget, p)
}
