// Package identity gives tracked elements a page-unique id attribute.
package identity

import (
	"strconv"

	"github.com/vincentbai/clicktrace-agent/internal/dom"
)

// DefaultPrefix starts every generated identifier.
const DefaultPrefix = "analytics-id-"

// Assigner hands out "<prefix><n>" identifiers from a counter scoped to one
// page load. The counter starts at 0 and is incremented before use, so the
// first identifier ends in 1. It is never reset.
type Assigner struct {
	prefix  string
	counter uint64
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(p string) Option {
	return func(a *Assigner) { a.prefix = p }
}

// New returns an Assigner with a fresh counter.
func New(opts ...Option) *Assigner {
	a := &Assigner{prefix: DefaultPrefix}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assign gives every element without an id a new one. Elements that already
// carry an id keep it.
func (a *Assigner) Assign(els ...*dom.Element) {
	for _, el := range els {
		a.Ensure(el)
	}
}

// Ensure returns el's id, assigning one first if it has none.
func (a *Assigner) Ensure(el *dom.Element) string {
	if id := el.ID(); id != "" {
		return id
	}
	a.counter++
	id := a.prefix + strconv.FormatUint(a.counter, 10)
	el.SetAttr("id", id)
	return id
}

// Count is the number of identifiers handed out so far.
func (a *Assigner) Count() uint64 { return a.counter }
