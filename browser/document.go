package browser

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/formfill/dom"
	"github.com/hazyhaar/formfill/idgen"
)

// observerJS reports child-list mutations of the document and of every
// open shadow root through the CDP binding, tagged with the document token.
//
//go:embed observer.js
var observerJS string

// snapshotJS returns the element tree under body, shadow roots included,
// in one call. Node ids are stable per element for the page's lifetime.
//
//go:embed snapshot.js
var snapshotJS string

const (
	bindingName = "__formfill_mutation"

	disconnectJS = `(token) => {
  const r = window.__formfill_observers && window.__formfill_observers[token];
  if (r) {
    r.disconnect();
    delete window.__formfill_observers[token];
  }
}`

	resolveJS = `(token, id) => {
  const s = window.__formfill_snapshots && window.__formfill_snapshots[token];
  return (s && s.nodes.get(id)) || null;
}`
)

// Document is a live page or same-origin frame. The element tree is read
// from a snapshot taken by Root; element handles are resolved only for
// elements that get mutated.
type Document struct {
	ctx    context.Context
	page   *rod.Page
	logger *slog.Logger
	token  string

	mu sync.Mutex

	elMu   sync.Mutex
	root   *Element
	elems  map[int]*Element
	frames map[int]*Document

	obsMu     sync.Mutex
	listening bool
	observing bool
	hub       dom.Hub
}

var _ dom.Document = (*Document)(nil)

func newDocument(ctx context.Context, page *rod.Page, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Document{
		ctx:    ctx,
		page:   page.Context(ctx).Sleeper(rod.NotFoundSleeper),
		logger: logger,
		token:  idgen.New(),
		elems:  make(map[int]*Element),
		frames: make(map[int]*Document),
	}
	d.hub.OnIdle(d.stopObserver)
	return d
}

// Root takes a fresh snapshot of the tree and returns its root element.
func (d *Document) Root() dom.Element {
	res, err := d.page.Eval(snapshotJS, d.token)
	if err != nil {
		d.logger.Debug("browser: snapshot failed", "error", err)
		return nil
	}
	var n snapNode
	if err := res.Value.Unmarshal(&n); err != nil || n.ID == 0 {
		d.logger.Debug("browser: no root element", "error", err)
		return nil
	}
	return d.load(&n)
}

func (d *Document) URL() string {
	res, err := d.page.Eval(`() => location.href`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// Frames lists the iframe and frame elements of the last snapshot, in
// document order, taking one first if needed.
func (d *Document) Frames() []dom.Frame {
	d.elMu.Lock()
	root := d.root
	d.elMu.Unlock()
	if root == nil {
		if d.Root() == nil {
			return nil
		}
		d.elMu.Lock()
		root = d.root
		d.elMu.Unlock()
	}

	var frames []dom.Frame
	stack := []*Element{root}
	for len(stack) > 0 {
		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if el.tag == "iframe" || el.tag == "frame" {
			src := el.Attr("src")
			if src == "" {
				src = "about:blank"
			}
			frames = append(frames, &frame{parent: d, el: el, src: src})
		}
		for i := len(el.children) - 1; i >= 0; i-- {
			stack = append(stack, el.children[i])
		}
		for i := len(el.shadow) - 1; i >= 0; i-- {
			stack = append(stack, el.shadow[i])
		}
	}
	return frames
}

// Exclusive serializes passes on this document. The page itself keeps
// running scripts; the lock only orders engine access.
func (d *Document) Exclusive(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn()
}

// Observe installs the page observer if none is running and subscribes to
// its notifications. The observer is removed again when the last
// subscription disconnects.
func (d *Document) Observe(ctx context.Context) (dom.Subscription, error) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	if !d.observing {
		if err := d.startObserver(); err != nil {
			return nil, err
		}
		d.observing = true
	}
	return d.hub.Subscribe(ctx), nil
}

func (d *Document) startObserver() error {
	if !d.listening {
		if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(d.page); err != nil {
			d.logger.Debug("browser: addBinding failed (may already exist)", "error", err)
		}
		ready := make(chan struct{})
		go func() {
			wait := d.page.EachEvent(func(e *proto.RuntimeBindingCalled) {
				if e.Name == bindingName && e.Payload == d.token {
					d.hub.Notify()
				}
			})
			close(ready)
			wait()
		}()
		<-ready
		d.listening = true
	}

	if _, err := d.page.Eval(observerJS, bindingName, d.token); err != nil {
		return fmt.Errorf("browser: inject observer: %w", err)
	}
	d.logger.Debug("browser: observer injected", "token", d.token)
	return nil
}

func (d *Document) stopObserver() {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	if !d.observing || d.hub.Len() != 0 {
		return
	}
	d.observing = false
	if _, err := d.page.Eval(disconnectJS, d.token); err != nil {
		d.logger.Debug("browser: disconnect observer", "error", err)
		return
	}
	d.logger.Debug("browser: observer disconnected", "token", d.token)
}

type frame struct {
	parent *Document
	el     *Element
	src    string
}

func (f *frame) Src() string { return f.src }

func (f *frame) Open() (dom.Document, bool, string) {
	p := f.parent
	_, reason := dom.FrameAccess(p.URL(), dom.FrameAttrs{
		Src:       f.el.Attr("src"),
		SrcDoc:    f.el.HasAttr("srcdoc"),
		Sandboxed: f.el.HasAttr("sandbox"),
		Sandbox:   f.el.Attr("sandbox"),
	})
	if reason != "" {
		return nil, false, reason
	}

	h, err := f.el.handle()
	if err != nil {
		p.logger.Debug("browser: resolve frame", "src", f.src, "error", err)
		return nil, false, dom.ReasonNotLoaded
	}
	// A redirect can still land the frame on another origin.
	res, err := h.Eval(`() => { try { return this.contentDocument !== null } catch (e) { return false } }`)
	if err != nil || !res.Value.Bool() {
		return nil, false, dom.ReasonCrossOrigin
	}

	p.elMu.Lock()
	cached, ok := p.frames[f.el.id]
	p.elMu.Unlock()
	if ok {
		return cached, true, ""
	}

	fp, err := h.Frame()
	if err != nil {
		p.logger.Debug("browser: open frame", "src", f.src, "error", err)
		return nil, false, dom.ReasonNotLoaded
	}
	child := newDocument(p.ctx, fp, p.logger)
	p.elMu.Lock()
	p.frames[f.el.id] = child
	p.elMu.Unlock()
	return child, true, ""
}
