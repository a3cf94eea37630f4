// Package dom is a small in-memory DOM host built on golang.org/x/net/html.
//
// It offers the handful of browser capabilities the click tracker relies on:
// selector queries, attribute access, bubbling click events with default
// actions, navigation, and mutation notifications. A Document is not safe for
// concurrent use; it belongs to the event loop that drives it.
package dom

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document owns a parsed node tree and the state layered on top of it.
type Document struct {
	node     *html.Node
	base     *url.URL
	elements map[*html.Node]*Element

	location     string
	history      []string
	navListeners []func(string)

	observers    []observer
	nextObserver int
}

type observer struct {
	id int
	fn func(MutationRecord)
}

// Parse reads an HTML document. base, when non-empty, is the document URL
// that relative navigation targets resolve against.
func Parse(r io.Reader, base string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}

	d := &Document{
		node:     root,
		elements: make(map[*html.Node]*Element),
		location: base,
	}
	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("dom: parse base url: %w", err)
		}
		d.base = u
	}
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s, base string) (*Document, error) {
	return Parse(strings.NewReader(s), base)
}

// Root returns the <html> element.
func (d *Document) Root() *Element {
	for c := d.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return d.wrap(c)
		}
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *Element {
	root := d.Root()
	if root == nil {
		return nil
	}
	for c := root.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Body {
			return d.wrap(c)
		}
	}
	return nil
}

// Find returns every element in the document matched by sel, in document order.
func (d *Document) Find(sel Selector) []*Element {
	root := d.Root()
	if root == nil {
		return nil
	}
	return root.FindSelf(sel)
}

// First returns the first element matched by sel, or nil.
func (d *Document) First(sel Selector) *Element {
	if found := d.Find(sel); len(found) > 0 {
		return found[0]
	}
	return nil
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.node)
}

// Location is the URL of the last navigation, or the base URL.
func (d *Document) Location() string { return d.location }

// History lists every navigation performed, oldest first.
func (d *Document) History() []string {
	out := make([]string, len(d.history))
	copy(out, d.history)
	return out
}

// OnNavigate registers fn to be called after each navigation.
func (d *Document) OnNavigate(fn func(location string)) {
	d.navListeners = append(d.navListeners, fn)
}

// Resolve returns href resolved against the base URL. Without a base, or
// when href does not parse, href is returned as is.
func (d *Document) Resolve(href string) string {
	if d.base == nil {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return d.base.ResolveReference(u).String()
}

// Navigate moves the document to href, resolved against the base URL.
func (d *Document) Navigate(href string) {
	loc := d.Resolve(href)
	d.location = loc
	d.history = append(d.history, loc)
	for _, fn := range d.navListeners {
		fn(loc)
	}
}

// wrap returns the Element for n, creating it on first use so that
// listeners and identity survive across lookups.
func (d *Document) wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	d.elements[n] = el
	return el
}
