// Package capture binds click tracking to a document and reports each click
// to a remote endpoint.
//
// A Tracker is the tracking context for one page: it owns the configuration,
// the identifier counter and the set of bound elements. Reporting is best
// effort. Delivery failures are logged at debug level and otherwise treated
// exactly like successes, so tracking never blocks the user's navigation.
package capture

import (
	"context"
	"log/slog"

	"github.com/vincentbai/clicktrace-agent/internal/dom"
	"github.com/vincentbai/clicktrace-agent/internal/eventloop"
	"github.com/vincentbai/clicktrace-agent/internal/identity"
)

// Tracker tracks clicks on one document. Like the document, it must only be
// used from the loop that drives it.
type Tracker struct {
	doc       *dom.Document
	loop      *eventloop.Loop
	transport Transport
	ids       *identity.Assigner
	logger    *slog.Logger
	ctx       context.Context

	set       *settings
	scopes    []*dom.Element
	bound     map[*dom.Element]bool
	unobserve func()
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTransport replaces the default HTTP transport.
func WithTransport(tr Transport) Option {
	return func(t *Tracker) { t.transport = tr }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithAssigner shares an identifier counter, e.g. across trackers on the
// same page.
func WithAssigner(a *identity.Assigner) Option {
	return func(t *Tracker) { t.ids = a }
}

// WithContext sets the context handed to the transport.
func WithContext(ctx context.Context) Option {
	return func(t *Tracker) { t.ctx = ctx }
}

// New returns a Tracker for doc. Nothing is bound until Initialize.
func New(doc *dom.Document, loop *eventloop.Loop, opts ...Option) *Tracker {
	t := &Tracker{
		doc:       doc,
		loop:      loop,
		transport: NewHTTPTransport(),
		ids:       identity.New(),
		logger:    slog.Default(),
		ctx:       context.Background(),
		bound:     make(map[*dom.Element]bool),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Initialize applies cfg and binds every element matching cfg.AssignTo in
// the given scopes, the scopes themselves included. Elements inserted into a
// scope later are bound as they arrive. Calling Initialize again replaces the
// configuration for all scopes. With no scopes it does nothing.
func (t *Tracker) Initialize(cfg Config, scopes ...*dom.Element) error {
	live := scopes[:0:0]
	for _, s := range scopes {
		if s != nil {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil
	}
	set, err := compile(cfg.WithDefaults(), t.ids)
	if err != nil {
		return err
	}
	t.set = set

	for _, s := range live {
		t.addScope(s)
		t.bindWithin(s)
	}
	if t.unobserve == nil {
		t.unobserve = t.doc.Observe(t.onMutation)
	}

	t.logger.Debug("capture: initialized",
		"scopes", len(t.scopes), "bound", len(t.bound), "url", set.cfg.URL)
	return nil
}

// Config returns the configuration in effect.
func (t *Tracker) Config() Config {
	if t.set == nil {
		return DefaultConfig()
	}
	return t.set.cfg
}

// IsBound reports whether el has the click handler attached.
func (t *Tracker) IsBound(el *dom.Element) bool { return t.bound[el] }

// Close stops watching for inserted elements. Bound handlers stay attached.
func (t *Tracker) Close() {
	if t.unobserve != nil {
		t.unobserve()
		t.unobserve = nil
	}
}

func (t *Tracker) addScope(s *dom.Element) {
	for _, known := range t.scopes {
		if known == s {
			return
		}
	}
	t.scopes = append(t.scopes, s)
}

func (t *Tracker) inScope(el *dom.Element) bool {
	for _, s := range t.scopes {
		if s.Contains(el) {
			return true
		}
	}
	return false
}

// onMutation binds content inserted or moved into a scope. Elements already
// bound keep their single handler.
func (t *Tracker) onMutation(rec dom.MutationRecord) {
	if rec.Kind != dom.Inserted && rec.Kind != dom.Moved {
		return
	}
	for _, n := range rec.Nodes {
		if t.inScope(n) {
			t.bindWithin(n)
		}
	}
}

func (t *Tracker) bindWithin(root *dom.Element) {
	for _, el := range root.FindSelf(t.set.assign) {
		if t.bound[el] {
			continue
		}
		t.bound[el] = true
		// Assign ids along the path up front so they exist before any click.
		t.set.paths.Build(el)
		el.On("click", t.handleClick)
	}
}

func (t *Tracker) handleClick(ev *dom.Event) {
	el := ev.CurrentTarget
	set := t.set
	cfg := set.cfg

	switch {
	case cfg.URL == "":
		t.logger.Debug("capture: no url configured, skipping")
		return
	case el.HasClass(CapturedClass):
		t.logger.Debug("capture: already captured", "id", el.ID())
		return
	case el.Matches(set.exclude):
		return
	}

	path := set.paths.Build(el)
	if path.Empty() {
		t.logger.Debug("capture: path excluded", "id", el.ID())
		return
	}

	var href string
	if v, ok := el.Attr("href"); ok && v != "" {
		ev.PreventDefault()
		href = v
	}

	payload := BuildPayload(el, path.String(), cfg)
	endpoint := t.doc.Resolve(cfg.URL)

	var res Result
	t.loop.Go(t.ctx, func(ctx context.Context) {
		res = t.transport.Send(ctx, endpoint, payload)
	}, func() {
		t.complete(el, href, res)
	})
	t.logger.Debug("capture: dispatched", "path", path.String(), "endpoint", endpoint)
}

// complete runs once per dispatch whatever the outcome.
func (t *Tracker) complete(el *dom.Element, href string, res Result) {
	if res.OK() {
		t.logger.Debug("capture: delivered", "status", res.StatusCode)
	} else {
		t.logger.Debug("capture: delivery failed", "status", res.StatusCode, "error", res.Err)
	}

	if t.set.cfg.CaptureOnce {
		el.AddClass(CapturedClass)
	}
	if href != "" {
		t.doc.Navigate(href)
	}
}
