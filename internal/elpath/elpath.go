// Package elpath derives the structural path that identifies a clicked
// element: every ancestor from the document root down to the element,
// each rendered as TAG[id="..."].
package elpath

import (
	"strings"

	"github.com/vincentbai/clicktrace-agent/internal/dom"
	"github.com/vincentbai/clicktrace-agent/internal/identity"
)

// DefaultDelimiter joins segments.
const DefaultDelimiter = " "

// Path is the result of a walk. An Excluded path has no segments.
type Path struct {
	Segments  []string
	Excluded  bool
	delimiter string
}

// Empty reports whether the path cannot be reported, either because the walk
// found nothing or because an excluded element was on it.
func (p Path) Empty() bool { return p.Excluded || len(p.Segments) == 0 }

func (p Path) String() string {
	d := p.delimiter
	if d == "" {
		d = DefaultDelimiter
	}
	return strings.Join(p.Segments, d)
}

// Builder walks elements up to the root.
type Builder struct {
	ids       *identity.Assigner
	exclude   dom.Selector
	delimiter string
	rootTags  map[string]bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithDelimiter sets the segment separator. Some deployments expect ".".
func WithDelimiter(d string) Option {
	return func(b *Builder) {
		if d != "" {
			b.delimiter = d
		}
	}
}

// WithRootTags replaces the tags rendered without an identifier.
func WithRootTags(tags ...string) Option {
	return func(b *Builder) {
		b.rootTags = make(map[string]bool, len(tags))
		for _, t := range tags {
			b.rootTags[strings.ToUpper(t)] = true
		}
	}
}

// New returns a Builder that assigns missing ids through ids and refuses any
// path touching an element matched by exclude.
func New(ids *identity.Assigner, exclude dom.Selector, opts ...Option) *Builder {
	b := &Builder{
		ids:       ids,
		exclude:   exclude,
		delimiter: DefaultDelimiter,
		rootTags:  map[string]bool{"HTML": true, "BODY": true},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build computes the path for el. Segments are ordered root first. Walking
// stops at the first excluded element; ancestors above it have already been
// given ids by then.
func (b *Builder) Build(el *dom.Element) Path {
	var chain []*dom.Element
	for n := el; n != nil && n.Tag() != ""; n = n.Parent() {
		chain = append(chain, n)
	}

	segments := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		if n.Matches(b.exclude) {
			return Path{Excluded: true, delimiter: b.delimiter}
		}
		tag := n.Tag()
		if b.rootTags[tag] {
			segments = append(segments, tag)
			continue
		}
		segments = append(segments, tag+`[id="`+b.ids.Ensure(n)+`"]`)
	}
	return Path{Segments: segments, delimiter: b.delimiter}
}
