package dom

import "golang.org/x/net/html/atom"

// Event is a dispatched DOM event.
type Event struct {
	Type          string
	Target        *Element
	CurrentTarget *Element

	defaultPrevented bool
	stopped          bool
}

// PreventDefault cancels the default action that follows dispatch.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation keeps the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.stopped = true }

// Listener handles an event.
type Listener func(*Event)

// On registers fn for events of type typ on the element.
func (el *Element) On(typ string, fn Listener) {
	if el.listeners == nil {
		el.listeners = make(map[string][]Listener)
	}
	el.listeners[typ] = append(el.listeners[typ], fn)
}

// ListenerCount is the number of listeners registered for typ.
func (el *Element) ListenerCount(typ string) int {
	return len(el.listeners[typ])
}

// Dispatch fires an event of type typ at target and bubbles it up through
// the ancestors.
func (d *Document) Dispatch(target *Element, typ string) *Event {
	ev := &Event{Type: typ, Target: target}
	for el := target; el != nil && !ev.stopped; el = el.Parent() {
		ls := el.listeners[typ]
		if len(ls) == 0 {
			continue
		}
		ev.CurrentTarget = el
		for _, fn := range append([]Listener(nil), ls...) {
			fn(ev)
		}
	}
	ev.CurrentTarget = nil
	return ev
}

// Click dispatches a click at el. Unless a listener prevented it, the
// default action follows: navigating to the nearest enclosing a[href].
func (d *Document) Click(el *Element) *Event {
	ev := d.Dispatch(el, "click")
	if ev.DefaultPrevented() {
		return ev
	}
	for a := el; a != nil; a = a.Parent() {
		if a.node.DataAtom != atom.A {
			continue
		}
		if href, ok := a.Attr("href"); ok {
			d.Navigate(href)
		}
		break
	}
	return ev
}
