package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/formfill/dom"
)

// snapNode is one element as reported by snapshot.js. Text holds the text
// runs around the children: Text[i] precedes Children[i], the last run
// follows them all.
type snapNode struct {
	ID        int               `json:"id"`
	Tag       string            `json:"tag"`
	Attrs     map[string]string `json:"attrs"`
	Rendered  bool              `json:"rendered"`
	Text      []string          `json:"text"`
	Children  []snapNode        `json:"children"`
	HasShadow bool              `json:"hasShadow"`
	Shadow    []snapNode        `json:"shadow"`
}

// Element is a DOM element as of the document's last snapshot. Reads are
// served from the snapshot; mutations resolve a live handle on first use
// and return an error when the node is gone.
type Element struct {
	doc *Document
	id  int

	tag      string
	attrs    map[string]string
	rendered bool
	text     []string
	children []*Element
	shadow   []*Element // nil without a shadow root
	parent   *Element

	el *rod.Element
}

var _ dom.Element = (*Element)(nil)

// load installs a snapshot. Elements keep their identity across snapshots
// through the node id; elements absent from n are dropped.
func (d *Document) load(n *snapNode) *Element {
	d.elMu.Lock()
	defer d.elMu.Unlock()
	seen := make(map[int]*Element, len(d.elems))
	root := d.apply(n, nil, seen)
	d.elems = seen
	d.root = root
	return root
}

func (d *Document) apply(n *snapNode, parent *Element, seen map[int]*Element) *Element {
	e, ok := d.elems[n.ID]
	if !ok {
		e = &Element{doc: d, id: n.ID}
	}
	seen[n.ID] = e
	e.tag = strings.ToLower(n.Tag)
	e.attrs = n.Attrs
	e.rendered = n.Rendered
	e.text = n.Text
	e.parent = parent

	e.children = make([]*Element, 0, len(n.Children))
	for i := range n.Children {
		e.children = append(e.children, d.apply(&n.Children[i], e, seen))
	}
	e.shadow = nil
	if n.HasShadow {
		e.shadow = make([]*Element, 0, len(n.Shadow))
		for i := range n.Shadow {
			e.shadow = append(e.shadow, d.apply(&n.Shadow[i], nil, seen))
		}
	}
	return e
}

func (e *Element) Tag() string { return e.tag }

func (e *Element) Attr(name string) string { return e.attrs[name] }

func (e *Element) HasAttr(name string) bool {
	_, ok := e.attrs[name]
	return ok
}

func (e *Element) Children() []dom.Element { return elements(e.children) }

func (e *Element) ShadowChildren() []dom.Element {
	if e.shadow == nil {
		return nil
	}
	return elements(e.shadow)
}

// Parent is nil for the snapshot root and for the children of a shadow
// root.
func (e *Element) Parent() dom.Element {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// Text concatenates the element's text runs with those of its rendered
// descendants, skipping script, style, noscript and template contents.
func (e *Element) Text() string {
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *Element) writeText(b *strings.Builder) {
	for i, t := range e.text {
		b.WriteString(t)
		if i >= len(e.children) {
			continue
		}
		c := e.children[i]
		if !c.rendered || nonText[c.tag] {
			continue
		}
		c.writeText(b)
	}
}

var nonText = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

// Rendered reports whether the element had a layout box when the snapshot
// was taken (getClientRects is non-empty).
func (e *Element) Rendered() bool { return e.rendered }

func (e *Element) Focus() error {
	h, err := e.handle()
	if err != nil {
		return err
	}
	if err := h.Focus(); err != nil {
		return fmt.Errorf("browser: focus: %w", err)
	}
	return nil
}

func (e *Element) SetValue(v string) error {
	return e.exec(`(v) => { this.value = v }`, v)
}

func (e *Element) SetChecked(checked bool) error {
	return e.exec(`(c) => { this.checked = c }`, checked)
}

func (e *Element) SetSelected(selected bool) error {
	return e.exec(`(s) => { this.selected = s }`, selected)
}

func (e *Element) Dispatch(event string) error {
	return e.exec(`(t) => { this.dispatchEvent(new Event(t, { bubbles: true })) }`, event)
}

// handle resolves the live node behind the element through the snapshot
// registry of the page.
func (e *Element) handle() (*rod.Element, error) {
	if e.el != nil {
		return e.el, nil
	}
	h, err := e.doc.page.ElementByJS(rod.Eval(resolveJS, e.doc.token, e.id))
	if err != nil {
		return nil, fmt.Errorf("browser: resolve node %d: %w", e.id, err)
	}
	e.el = h
	return h, nil
}

func (e *Element) exec(js string, args ...any) error {
	h, err := e.handle()
	if err != nil {
		return err
	}
	if _, err := h.Eval(js, args...); err != nil {
		return fmt.Errorf("browser: eval: %w", err)
	}
	return nil
}

func elements(in []*Element) []dom.Element {
	out := make([]dom.Element, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out
}
