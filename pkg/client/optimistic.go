package client

import (
	"fmt"

	"github.com/livetree-go/livetree/pkg/vdom"
)

// ElementKind classifies the source element of an optimistic handler. The
// set is closed: an element outside it gets no optimistic feedback rather
// than a guessed mutation. Classification happens once per handler, on
// its first dispatch.
type ElementKind int

const (
	// KindUnsupported means no optimistic mutation applies.
	KindUnsupported ElementKind = iota
	// KindCheckbox covers checkbox and radio inputs; optimistic feedback
	// toggles the checked state.
	KindCheckbox
	// KindTextInput covers text-like inputs and textareas; optimistic
	// feedback writes the event's value.
	KindTextInput
	// KindSelect covers select elements; optimistic feedback writes the
	// chosen value.
	KindSelect
	// KindButton covers buttons; optimistic feedback disables the button
	// and shows a loading label.
	KindButton
)

func (k ElementKind) String() string {
	switch k {
	case KindCheckbox:
		return "checkbox"
	case KindTextInput:
		return "text_input"
	case KindSelect:
		return "select"
	case KindButton:
		return "button"
	default:
		return "unsupported"
	}
}

// ClassifyElement maps an element to its optimistic kind.
func ClassifyElement(n *vdom.VNode) ElementKind {
	if n == nil || n.Kind != vdom.KindElement {
		return KindUnsupported
	}
	switch n.Tag {
	case "input":
		switch typ, _ := n.Attrs.Get("type"); typ {
		case "checkbox", "radio":
			return KindCheckbox
		case "submit", "button":
			return KindButton
		case "", "text", "search", "email", "password", "url", "tel", "number":
			return KindTextInput
		default:
			return KindUnsupported
		}
	case "textarea":
		return KindTextInput
	case "select":
		return KindSelect
	case "button":
		return KindButton
	default:
		return KindUnsupported
	}
}

// loadingLabel replaces a button's text while its event is in flight.
const loadingLabel = "Loading..."

// mutateOptimistic applies the kind's mutation to n in place, using the
// event parameters. Reports whether anything changed; KindUnsupported
// always reports false.
func mutateOptimistic(kind ElementKind, n *vdom.VNode, params map[string]any) bool {
	switch kind {
	case KindCheckbox:
		if n.Attrs.Has("checked") {
			n.Attrs.Del("checked")
		} else {
			n.Attrs.Set("checked", "checked")
		}
		return true

	case KindTextInput, KindSelect:
		v, ok := params["value"]
		if !ok {
			return false
		}
		n.Attrs.Set("value", fmt.Sprintf("%v", v))
		return true

	case KindButton:
		n.Attrs.Set("disabled", "disabled")
		if len(n.Children) == 1 && n.Children[0].Kind == vdom.KindText {
			n.Children[0].Text = loadingLabel
		}
		return true

	default:
		return false
	}
}

// PendingOptimistic records one live optimistic mutation: the element's
// location and its exact pre-mutation state. At most one exists per
// handler; repeat dispatches coalesce into the first, keeping the
// original snapshot so a late error reverts all the way back.
type PendingOptimistic struct {
	Handler  string
	Path     vdom.Path
	Snapshot *vdom.VNode
}
