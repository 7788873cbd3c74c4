package vdom

// Diff compares two trees and returns the ordered patches that transform
// old into new. It is deterministic and total: it never fails, and any
// internal inconsistency (such as duplicate sibling keys) degrades to a
// ReplaceNode of the affected subtree instead of an error.
//
// Applying the returned patches in order to old yields a tree structurally
// equal to new. Correctness of that round trip is the contract; patch
// minimality is best-effort.
func Diff(old, new *VNode) []Patch {
	if old == nil && new == nil {
		return nil
	}
	// A missing side cannot be expressed as an in-place mutation; replace
	// the root wholesale.
	if old == nil || new == nil {
		return []Patch{{Op: OpReplaceNode, Path: Path{}, Node: new}}
	}
	var patches []Patch
	diffNode(old, new, Path{}, &patches)
	return patches
}

func diffNode(old, new *VNode, path Path, patches *[]Patch) {
	if old.Kind != new.Kind {
		*patches = append(*patches, Patch{Op: OpReplaceNode, Path: path, Node: new})
		return
	}

	switch old.Kind {
	case KindText, KindComment:
		if old.Key != new.Key {
			*patches = append(*patches, Patch{Op: OpReplaceNode, Path: path, Node: new})
			return
		}
		if old.Text != new.Text {
			*patches = append(*patches, Patch{Op: OpReplaceText, Path: path, Text: new.Text})
		}

	case KindElement:
		if old.Tag != new.Tag || old.Key != new.Key {
			*patches = append(*patches, Patch{Op: OpReplaceNode, Path: path, Node: new})
			return
		}
		diffAttrs(old, new, path, patches)
		diffChildren(old, new, path, patches)

	default:
		// Unknown kind is an internal inconsistency; self-heal by replacing.
		*patches = append(*patches, Patch{Op: OpReplaceNode, Path: path, Node: new})
	}
}

// diffAttrs diffs attributes as a set union: changed or added names emit
// SetAttribute, names only present in old emit RemoveAttribute. Iteration
// follows attribute order, so output is deterministic.
func diffAttrs(old, new *VNode, path Path, patches *[]Patch) {
	for _, at := range old.Attrs {
		newVal, ok := new.Attrs.Get(at.Name)
		if !ok {
			*patches = append(*patches, Patch{Op: OpRemoveAttribute, Path: path, Name: at.Name})
		} else if newVal != at.Value {
			*patches = append(*patches, Patch{Op: OpSetAttribute, Path: path, Name: at.Name, Value: newVal})
		}
	}
	for _, at := range new.Attrs {
		if !old.Attrs.Has(at.Name) {
			*patches = append(*patches, Patch{Op: OpSetAttribute, Path: path, Name: at.Name, Value: at.Value})
		}
	}
}

func diffChildren(old, new *VNode, path Path, patches *[]Patch) {
	if hasKeys(old.Children) || hasKeys(new.Children) {
		if hasDuplicateKeys(old.Children) || hasDuplicateKeys(new.Children) {
			// Duplicate sibling keys make identity matching ambiguous;
			// degrade to replacing the parent subtree.
			*patches = append(*patches, Patch{Op: OpReplaceNode, Path: path, Node: new})
			return
		}
		diffKeyedChildren(old.Children, new.Children, path, patches)
		return
	}
	diffIndexedChildren(old.Children, new.Children, path, patches)
}

// diffIndexedChildren matches children positionally.
func diffIndexedChildren(old, new []*VNode, path Path, patches *[]Patch) {
	n := len(old)
	if len(new) < n {
		n = len(new)
	}
	for i := 0; i < n; i++ {
		diffNode(old[i], new[i], path.Child(i), patches)
	}
	// Remove extra old children in reverse so indices stay valid as the
	// client applies them.
	for i := len(old) - 1; i >= len(new); i-- {
		*patches = append(*patches, Patch{Op: OpRemoveChild, Path: path, Index: i})
	}
	for i := len(old); i < len(new); i++ {
		*patches = append(*patches, Patch{Op: OpInsertChild, Path: path, Index: i, Node: new[i]})
	}
}

// diffKeyedChildren matches children by key so reorders emit moves instead
// of subtree replacements. The algorithm is linear: key->index maps, one
// removal pass, one pass over the new children.
//
// Patch order matters for application:
//
//  1. Removals, in descending index order, for old children whose key is
//     gone (or which are unkeyed; a keyed list treats unkeyed children as
//     non-matchable).
//  2. Per new index j, ascending: InsertChild for unseen keys, MoveChild
//     (identified by key, targeting the final index) for matched children
//     not already in place, then the recursive diff of the matched pair.
//
// A matched child at new index j is in place, and needs no move, exactly
// when the matched children processed so far appear in increasing old
// order and the kept old children preceding it fill precisely the matched
// slots of new[0..j). Both conditions are prefix counts, so the check is
// O(1) per child. With the applier's move semantics (detach by key,
// reinsert at the final index, ascending), this keeps the prefix of the
// sibling list settled at every step, which makes the batch compose to
// exactly the new order.
func diffKeyedChildren(old, new []*VNode, path Path, patches *[]Patch) {
	oldIndex := make(map[string]int, len(old))
	for i, c := range old {
		if c.Key != "" {
			oldIndex[c.Key] = i
		}
	}
	newKeys := make(map[string]struct{}, len(new))
	for _, c := range new {
		if c.Key != "" {
			newKeys[c.Key] = struct{}{}
		}
	}

	kept := make([]bool, len(old))
	for i := len(old) - 1; i >= 0; i-- {
		key := old[i].Key
		if key != "" {
			if _, ok := newKeys[key]; ok {
				kept[i] = true
				continue
			}
		}
		*patches = append(*patches, Patch{Op: OpRemoveChild, Path: path, Index: i})
	}

	// keptBefore[i] = number of kept old children with index < i.
	keptBefore := make([]int, len(old)+1)
	for i, k := range kept {
		keptBefore[i+1] = keptBefore[i]
		if k {
			keptBefore[i+1]++
		}
	}

	matchedBefore := 0 // matched children among new[0..j)
	maxOldIdx := -1    // largest old index matched so far

	for j, child := range new {
		key := child.Key
		oldIdx, matched := -1, false
		if key != "" {
			oldIdx, matched = oldIndex[key]
		}
		if !matched {
			*patches = append(*patches, Patch{Op: OpInsertChild, Path: path, Index: j, Node: child})
			continue
		}
		inPlace := oldIdx > maxOldIdx && keptBefore[oldIdx] == matchedBefore
		if !inPlace {
			*patches = append(*patches, Patch{Op: OpMoveChild, Path: path, Key: key, To: j})
		}
		if oldIdx > maxOldIdx {
			maxOldIdx = oldIdx
		}
		matchedBefore++
		diffNode(old[oldIdx], child, path.Child(j), patches)
	}
}

func hasKeys(children []*VNode) bool {
	for _, c := range children {
		if c.Key != "" {
			return true
		}
	}
	return false
}

func hasDuplicateKeys(children []*VNode) bool {
	seen := make(map[string]struct{}, len(children))
	for _, c := range children {
		if c.Key == "" {
			continue
		}
		if _, ok := seen[c.Key]; ok {
			return true
		}
		seen[c.Key] = struct{}{}
	}
	return false
}
