package dom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector group. The zero value matches nothing.
type Selector struct {
	raw   string
	match cascadia.Selector
}

// Compile joins the given selectors into one group ("a", "input[type=submit]"
// becomes "a, input[type=submit]") and compiles it. Blank entries are skipped,
// so an empty list yields the zero Selector.
func Compile(selectors ...string) (Selector, error) {
	var parts []string
	for _, s := range selectors {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return Selector{}, nil
	}

	raw := strings.Join(parts, ", ")
	m, err := cascadia.Compile(raw)
	if err != nil {
		return Selector{}, fmt.Errorf("dom: compile selector %q: %w", raw, err)
	}
	return Selector{raw: raw, match: m}, nil
}

// MustCompile is like Compile but panics on error. Meant for constants and tests.
func MustCompile(selectors ...string) Selector {
	s, err := Compile(selectors...)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether n is an element matched by the selector.
func (s Selector) Match(n *html.Node) bool {
	if s.match == nil || n == nil || n.Type != html.ElementNode {
		return false
	}
	return s.match.Match(n)
}

// IsZero reports whether the selector matches nothing.
func (s Selector) IsZero() bool { return s.match == nil }

func (s Selector) String() string { return s.raw }
