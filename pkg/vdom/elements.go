package vdom

import "fmt"

// createElement creates an element node from variadic arguments.
// Arguments can be: nil (ignored), Attr, Attrs, *VNode, []*VNode, string
// (shorthand for a text child).
func createElement(tag string, args []any) *VNode {
	node := &VNode{
		Kind: KindElement,
		Tag:  tag,
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Allows conditional attributes/children.
		case Attr:
			if v.Name == "key" {
				node.Key = v.Value
			} else if v.Name != "" {
				node.Attrs.Set(v.Name, v.Value)
			}
		case Attrs:
			for _, at := range v {
				node.Attrs.Set(at.Name, at.Value)
			}
		case *VNode:
			if v != nil {
				node.Children = append(node.Children, v)
			}
		case []*VNode:
			for _, c := range v {
				if c != nil {
					node.Children = append(node.Children, c)
				}
			}
		case string:
			node.Children = append(node.Children, Text(v))
		default:
			panic(fmt.Sprintf("vdom: invalid argument %T for <%s>", arg, tag))
		}
	}
	return node
}

// Element creates an element node with the given tag.
func Element(tag string, args ...any) *VNode {
	return createElement(tag, args)
}

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{Kind: KindText, Text: content}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Comment creates a comment node.
func Comment(content string) *VNode {
	return &VNode{Kind: KindComment, Text: content}
}

// Common element factories.

func Div(args ...any) *VNode      { return createElement("div", args) }
func Span(args ...any) *VNode     { return createElement("span", args) }
func P(args ...any) *VNode        { return createElement("p", args) }
func H1(args ...any) *VNode       { return createElement("h1", args) }
func H2(args ...any) *VNode       { return createElement("h2", args) }
func Ul(args ...any) *VNode       { return createElement("ul", args) }
func Li(args ...any) *VNode       { return createElement("li", args) }
func Button(args ...any) *VNode   { return createElement("button", args) }
func Input(args ...any) *VNode    { return createElement("input", args) }
func TextArea(args ...any) *VNode { return createElement("textarea", args) }
func Select(args ...any) *VNode   { return createElement("select", args) }
func Option(args ...any) *VNode   { return createElement("option", args) }
func Label(args ...any) *VNode    { return createElement("label", args) }
func Form(args ...any) *VNode     { return createElement("form", args) }
func A(args ...any) *VNode        { return createElement("a", args) }

// Common attribute factories.

func Class(v string) Attr       { return Attr{Name: "class", Value: v} }
func ID(v string) Attr          { return Attr{Name: "id", Value: v} }
func Type(v string) Attr        { return Attr{Name: "type", Value: v} }
func Value(v string) Attr       { return Attr{Name: "value", Value: v} }
func Name(v string) Attr        { return Attr{Name: "name", Value: v} }
func Href(v string) Attr        { return Attr{Name: "href", Value: v} }
func Placeholder(v string) Attr { return Attr{Name: "placeholder", Value: v} }

// Key sets the reconciliation key on the element it is passed to.
func Key(v string) Attr { return Attr{Name: "key", Value: v} }

// Checked sets or omits the checked attribute. Presence-based attributes
// use the HTML convention of repeating the name as the value, so server
// renders and client-side mutations produce identical attrs.
func Checked(on bool) Attr {
	if !on {
		return Attr{}
	}
	return Attr{Name: "checked", Value: "checked"}
}

// Disabled sets or omits the disabled attribute.
func Disabled(on bool) Attr {
	if !on {
		return Attr{}
	}
	return Attr{Name: "disabled", Value: "disabled"}
}
