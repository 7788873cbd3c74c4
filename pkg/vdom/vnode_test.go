package vdom

import "testing"

func TestAttrsOrderedOps(t *testing.T) {
	var a Attrs
	a.Set("class", "x")
	a.Set("id", "y")
	a.Set("class", "z") // update in place keeps position

	if len(a) != 2 {
		t.Fatalf("len = %d, want 2", len(a))
	}
	if a[0].Name != "class" || a[0].Value != "z" {
		t.Errorf("a[0] = %v, want class=z", a[0])
	}
	if v, ok := a.Get("id"); !ok || v != "y" {
		t.Errorf("Get(id) = %q, %v", v, ok)
	}

	a.Del("class")
	if a.Has("class") || !a.Has("id") {
		t.Errorf("Del removed wrong attribute: %v", a)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Div(Class("a"), P("text"))
	clone := orig.Clone()

	clone.Attrs.Set("class", "b")
	clone.Children[0].Children[0].Text = "changed"

	if v, _ := orig.Attrs.Get("class"); v != "a" {
		t.Errorf("clone shares attrs with original")
	}
	if orig.Children[0].Children[0].Text != "text" {
		t.Errorf("clone shares children with original")
	}
}

func TestLookup(t *testing.T) {
	tree := Div(
		Span("a"),
		Ul(Li("one"), Li("two")),
	)

	if got := Lookup(tree, Path{}); got != tree {
		t.Error("empty path should resolve to root")
	}
	if got := Lookup(tree, Path{1, 1, 0}); got == nil || got.Text != "two" {
		t.Errorf("Lookup(1.1.0) = %v, want text 'two'", got)
	}
	if got := Lookup(tree, Path{9}); got != nil {
		t.Errorf("Lookup out of range = %v, want nil", got)
	}
	if got := Lookup(tree, Path{0, 0, 0}); got != nil {
		t.Errorf("Lookup through text node = %v, want nil", got)
	}
}

func TestPathString(t *testing.T) {
	if got := (Path{}).String(); got != "" {
		t.Errorf("empty path = %q, want empty", got)
	}
	if got := (Path{0, 2, 1}).String(); got != "0.2.1" {
		t.Errorf("path = %q, want 0.2.1", got)
	}
}

func TestEqualDistinguishesKinds(t *testing.T) {
	if Equal(Text("x"), Comment("x")) {
		t.Error("text and comment with same content must differ")
	}
	if Equal(Div(Class("a")), Div(Class("a"), ID("b"))) {
		t.Error("attr count differs")
	}
	if !Equal(Div(Class("a"), "x"), Div(Class("a"), "x")) {
		t.Error("identical trees must be equal")
	}
}

func TestEqualIgnoresAttrOrder(t *testing.T) {
	a := Div(Class("a"), ID("b"))
	b := Div(ID("b"), Class("a"))
	if !Equal(a, b) {
		t.Error("attribute order must not affect equality")
	}
	if Equal(a, Div(Class("a"), ID("other"))) {
		t.Error("attribute values still distinguish trees")
	}
}

func TestCountNodes(t *testing.T) {
	tree := Div(Span("a"), Ul(Li("x")))
	// div, span, text, ul, li, text
	if got := CountNodes(tree); got != 6 {
		t.Errorf("CountNodes = %d, want 6", got)
	}
}
