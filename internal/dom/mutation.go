package dom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// MutationKind classifies a tree change.
type MutationKind int

const (
	Inserted MutationKind = iota + 1
	Moved
	Removed
)

func (k MutationKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Moved:
		return "moved"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("MutationKind(%d)", int(k))
	}
}

// MutationRecord describes one change. Target is the parent the nodes were
// added to or removed from.
type MutationRecord struct {
	Kind   MutationKind
	Target *Element
	Nodes  []*Element
}

// ErrDetached is returned when an operation needs an element that is not
// attached to the document tree.
var ErrDetached = errors.New("dom: element is detached")

// Observe subscribes fn to mutation records. Records are delivered
// synchronously, in subscription order. The returned func cancels.
func (d *Document) Observe(fn func(MutationRecord)) (cancel func()) {
	d.nextObserver++
	id := d.nextObserver
	d.observers = append(d.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range d.observers {
			if o.id == id {
				d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

func (d *Document) notify(rec MutationRecord) {
	for _, o := range append([]observer(nil), d.observers...) {
		o.fn(rec)
	}
}

// AppendHTML parses fragment in the context of parent, appends the result
// as parent's last children and reports the inserted elements.
func (d *Document) AppendHTML(parent *Element, fragment string) ([]*Element, error) {
	if parent == nil {
		return nil, ErrDetached
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent.node)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}

	var inserted []*Element
	for _, n := range nodes {
		parent.node.AppendChild(n)
		if el := d.wrap(n); el != nil {
			inserted = append(inserted, el)
		}
	}
	if len(inserted) > 0 {
		d.notify(MutationRecord{Kind: Inserted, Target: parent, Nodes: inserted})
	}
	return inserted, nil
}

// Move re-parents el under parent, as the last child.
func (d *Document) Move(el, parent *Element) error {
	if el == nil || parent == nil {
		return ErrDetached
	}
	if el.Contains(parent) {
		return fmt.Errorf("dom: cannot move %s into its own subtree", el.Tag())
	}
	if el.node.Parent != nil {
		el.node.Parent.RemoveChild(el.node)
	}
	parent.node.AppendChild(el.node)
	d.notify(MutationRecord{Kind: Moved, Target: parent, Nodes: []*Element{el}})
	return nil
}

// Remove detaches el from the tree.
func (d *Document) Remove(el *Element) error {
	if el == nil || el.node.Parent == nil {
		return ErrDetached
	}
	parent := d.wrap(el.node.Parent)
	el.node.Parent.RemoveChild(el.node)
	d.notify(MutationRecord{Kind: Removed, Target: parent, Nodes: []*Element{el}})
	return nil
}
