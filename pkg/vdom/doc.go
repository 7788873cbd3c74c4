// Package vdom provides the tree model for livetree.
//
// A VNode tree is an in-memory snapshot of the UI. The server renders a
// fresh tree on every state change, and Diff compares it against the
// previous snapshot to produce an ordered list of Patch operations. The
// patches are streamed to the client, which applies them to its live tree.
//
// # Core Types
//
// VNode is the fundamental building block representing elements, text, and
// comments. Attrs is an ordered attribute list; attribute order is render
// order and is preserved through serialization. Path addresses a node by
// the sequence of child indices from the root.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    P(Text("Content")),
//	)
//
// # Diffing
//
// Diff compares two VNode trees and returns a slice of Patch operations.
// Applying the patches in order to the old tree yields a tree structurally
// equal to the new tree; Apply implements that transformation and is the
// same logic the client runtime uses for its live tree. Keyed
// reconciliation is used when children carry Key attributes.
package vdom
