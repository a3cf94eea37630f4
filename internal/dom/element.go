package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Element is a stable handle on an element node. The same node always
// yields the same *Element within a Document.
type Element struct {
	doc       *Document
	node      *html.Node
	listeners map[string][]Listener
}

// Node exposes the underlying html node.
func (el *Element) Node() *html.Node { return el.node }

// Document returns the owning document.
func (el *Element) Document() *Document { return el.doc }

// Tag is the upper-case tag name, as a browser reports tagName.
func (el *Element) Tag() string {
	if el == nil || el.node == nil || el.node.Type != html.ElementNode {
		return ""
	}
	return strings.ToUpper(el.node.Data)
}

// Attr returns the value of the named attribute and whether it is present.
func (el *Element) Attr(name string) (string, bool) {
	for _, a := range el.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (el *Element) HasAttr(name string) bool {
	_, ok := el.Attr(name)
	return ok
}

// SetAttr sets or replaces the named attribute.
func (el *Element) SetAttr(name, value string) {
	for i, a := range el.node.Attr {
		if a.Namespace == "" && a.Key == name {
			el.node.Attr[i].Val = value
			return
		}
	}
	el.node.Attr = append(el.node.Attr, html.Attribute{Key: name, Val: value})
}

// ID returns the id attribute, or "".
func (el *Element) ID() string {
	v, _ := el.Attr("id")
	return v
}

// Parent returns the parent element, or nil at the top of the tree.
func (el *Element) Parent() *Element {
	return el.doc.wrap(el.node.Parent)
}

// Matches reports whether the element is matched by sel.
func (el *Element) Matches(sel Selector) bool {
	return sel.Match(el.node)
}

// Find returns descendants matched by sel, in document order.
func (el *Element) Find(sel Selector) []*Element {
	var out []*Element
	for c := el.node.FirstChild; c != nil; c = c.NextSibling {
		out = el.doc.collect(c, sel, out)
	}
	return out
}

// FindSelf is Find that also considers the element itself.
func (el *Element) FindSelf(sel Selector) []*Element {
	return el.doc.collect(el.node, sel, nil)
}

func (d *Document) collect(n *html.Node, sel Selector, out []*Element) []*Element {
	if sel.Match(n) {
		out = append(out, d.wrap(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = d.collect(c, sel, out)
	}
	return out
}

// Contains reports whether other is el or one of its descendants.
func (el *Element) Contains(other *Element) bool {
	if other == nil {
		return false
	}
	for n := other.node; n != nil; n = n.Parent {
		if n == el.node {
			return true
		}
	}
	return false
}

// Dataset maps data-* attributes to their values, keyed the way the DOM
// dataset API keys them: "data-analytics-category" becomes "analyticsCategory".
func (el *Element) Dataset() map[string]string {
	out := make(map[string]string)
	for _, a := range el.node.Attr {
		if a.Namespace != "" || !strings.HasPrefix(a.Key, "data-") {
			continue
		}
		out[camelCase(strings.TrimPrefix(a.Key, "data-"))] = a.Val
	}
	return out
}

func camelCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' && i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z' {
			b.WriteByte(s[i+1] - 'a' + 'A')
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Classes returns the class list.
func (el *Element) Classes() []string {
	v, _ := el.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether the class list contains name.
func (el *Element) HasClass(name string) bool {
	for _, c := range el.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends name to the class list unless already present.
func (el *Element) AddClass(name string) {
	if el.HasClass(name) {
		return
	}
	el.SetAttr("class", strings.Join(append(el.Classes(), name), " "))
}
