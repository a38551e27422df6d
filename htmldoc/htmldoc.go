// Package htmldoc implements dom.Document over an in-memory
// golang.org/x/net/html tree.
//
// It stands in for a rendered page when the form is available as HTML: a
// static file, a fetched snapshot or a test fixture. Layout is approximated
// (display:none and the hidden attribute remove an element from layout),
// declarative shadow roots (<template shadowrootmode="open">) are exposed as
// shadow children, and srcdoc frames are parsed on demand.
//
// Mutations made from outside a pass go through Mutate, which serializes
// with running passes and notifies observers, the way a script inserting
// nodes would trigger a MutationObserver.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/formfill/dom"
)

// FrameLoader fetches the document behind a same-origin frame src.
// Returning ok=false marks the frame as not loaded.
type FrameLoader func(src string) (doc *Document, ok bool)

// Listener observes a dispatched event. It runs inside the pass that
// dispatched it and must not call Mutate.
type Listener func(target *Element, event string)

// Document is an in-memory HTML document.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	url  string

	loader FrameLoader
	frames map[*html.Node]*Document

	elems     map[*html.Node]*Element
	events    map[*html.Node][]string
	listeners map[*html.Node]map[string][]Listener
	focused   *html.Node

	hub dom.Hub
}

// Option configures a Document.
type Option func(*Document)

// WithURL sets the document URL, used to resolve frame sources and decide
// whether a frame is same-origin.
func WithURL(u string) Option { return func(d *Document) { d.url = u } }

// WithFrameLoader sets the loader for src frames. Without one, src frames
// are reported as not loaded.
func WithFrameLoader(l FrameLoader) Option { return func(d *Document) { d.loader = l } }

// Parse reads an HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	d := &Document{
		root:      root,
		frames:    make(map[*html.Node]*Document),
		elems:     make(map[*html.Node]*Element),
		events:    make(map[*html.Node][]string),
		listeners: make(map[*html.Node]map[string][]Listener),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// --- dom.Document ---

// Root returns body when present, else the html element.
func (d *Document) Root() dom.Element {
	if b := findAtom(d.root, atom.Body); b != nil {
		return d.wrap(b)
	}
	if h := findAtom(d.root, atom.Html); h != nil {
		return d.wrap(h)
	}
	return nil
}

func (d *Document) URL() string { return d.url }

// Frames lists iframe and frame elements in document order.
func (d *Document) Frames() []dom.Frame {
	var frames []dom.Frame
	goquery.NewDocumentFromNode(d.root).Find("iframe, frame").Each(func(_ int, s *goquery.Selection) {
		frames = append(frames, &frame{parent: d, n: s.Get(0)})
	})
	return frames
}

// Exclusive runs fn while holding the document lock.
func (d *Document) Exclusive(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn()
}

// Observe subscribes to mutations made through Mutate.
func (d *Document) Observe(ctx context.Context) (dom.Subscription, error) {
	return d.hub.Subscribe(ctx), nil
}

// Observers returns the number of connected subscriptions.
func (d *Document) Observers() int { return d.hub.Len() }

// --- mutation from outside a pass ---

// Mutate runs fn on the raw tree under the document lock and then notifies
// every observer once.
func (d *Document) Mutate(fn func(root *html.Node) error) error {
	d.mu.Lock()
	err := fn(d.root)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	d.hub.Notify()
	return nil
}

// AppendHTML parses fragment in body context and appends it to body.
func (d *Document) AppendHTML(fragment string) error {
	return d.Mutate(func(root *html.Node) error {
		body := findAtom(root, atom.Body)
		if body == nil {
			return fmt.Errorf("htmldoc: no body")
		}
		nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
		if err != nil {
			return fmt.Errorf("htmldoc: parse fragment: %w", err)
		}
		for _, n := range nodes {
			body.AppendChild(n)
		}
		return nil
	})
}

// --- inspection (not for use inside a pass) ---

// Query returns the elements matching a CSS selector.
func (d *Document) Query(selector string) []*Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Element
	for _, n := range goquery.NewDocumentFromNode(d.root).Find(selector).Nodes {
		out = append(out, d.wrap(n))
	}
	return out
}

// First returns the first element matching selector, or nil.
func (d *Document) First(selector string) *Element {
	if els := d.Query(selector); len(els) > 0 {
		return els[0]
	}
	return nil
}

// On registers a listener for event on el. Events bubble to ancestors up to
// the tree or shadow root.
func (d *Document) On(el *Element, event string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.listeners[el.n]
	if m == nil {
		m = make(map[string][]Listener)
		d.listeners[el.n] = m
	}
	m[event] = append(m[event], l)
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// Focused returns the element that last received focus, or nil.
func (d *Document) Focused() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.focused == nil {
		return nil
	}
	return d.wrap(d.focused)
}

func (d *Document) wrap(n *html.Node) *Element {
	if e, ok := d.elems[n]; ok {
		return e
	}
	e := &Element{doc: d, n: n}
	d.elems[n] = e
	return e
}

// --- frames ---

type frame struct {
	parent *Document
	n      *html.Node
}

func (f *frame) Src() string {
	if src := attr(f.n, "src"); src != "" {
		return src
	}
	if hasAttr(f.n, "srcdoc") {
		return "about:srcdoc"
	}
	return "about:blank"
}

func (f *frame) Open() (dom.Document, bool, string) {
	p := f.parent
	abs, reason := dom.FrameAccess(p.url, dom.FrameAttrs{
		Src:       attr(f.n, "src"),
		SrcDoc:    hasAttr(f.n, "srcdoc"),
		Sandboxed: hasAttr(f.n, "sandbox"),
		Sandbox:   attr(f.n, "sandbox"),
	})
	if reason != "" {
		return nil, false, reason
	}

	p.mu.Lock()
	cached, ok := p.frames[f.n]
	p.mu.Unlock()
	if ok {
		return cached, true, ""
	}

	var child *Document
	switch {
	case hasAttr(f.n, "srcdoc"):
		doc, err := ParseString(attr(f.n, "srcdoc"), WithURL(p.url), WithFrameLoader(p.loader))
		if err != nil {
			return nil, false, err.Error()
		}
		child = doc
	case abs == "":
		doc, _ := ParseString("", WithURL(p.url))
		child = doc
	default:
		if p.loader == nil {
			return nil, false, dom.ReasonNotLoaded
		}
		doc, ok := p.loader(abs)
		if !ok || doc == nil {
			return nil, false, dom.ReasonNotLoaded
		}
		child = doc
	}

	p.mu.Lock()
	p.frames[f.n] = child
	p.mu.Unlock()
	return child, true, ""
}

// --- node helpers ---

var displayNone = regexp.MustCompile(`(?i)display\s*:\s*none`)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}

// isShadowTemplate reports whether n is a declarative shadow root.
func isShadowTemplate(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Template &&
		(hasAttr(n, "shadowrootmode") || hasAttr(n, "shadowroot"))
}

// isOpenShadowTemplate reports whether n is a declarative shadow root that
// script can reach.
func isOpenShadowTemplate(n *html.Node) bool {
	if !isShadowTemplate(n) {
		return false
	}
	mode := attr(n, "shadowrootmode")
	if mode == "" {
		mode = attr(n, "shadowroot")
	}
	return strings.EqualFold(mode, "open")
}
