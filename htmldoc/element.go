package htmldoc

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/formfill/dom"
)

// ErrDetached is returned when a mutation targets a node that is no longer
// attached to its document.
var ErrDetached = errors.New("htmldoc: element is detached")

// ErrInvalidState mirrors the browser refusing a programmatic value on a
// control that does not accept one (file inputs).
var ErrInvalidState = errors.New("htmldoc: invalid state for value")

// Element wraps an element node of a Document.
type Element struct {
	doc *Document
	n   *html.Node
}

var _ dom.Element = (*Element)(nil)

// Node returns the underlying node.
func (e *Element) Node() *html.Node { return e.n }

func (e *Element) Tag() string { return strings.ToLower(e.n.Data) }

func (e *Element) Attr(name string) string { return attr(e.n, name) }

func (e *Element) HasAttr(name string) bool { return hasAttr(e.n, name) }

// Children skips declarative shadow templates; their content is exposed
// through ShadowChildren.
func (e *Element) Children() []dom.Element {
	var out []dom.Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || isShadowTemplate(c) {
			continue
		}
		out = append(out, e.doc.wrap(c))
	}
	return out
}

func (e *Element) ShadowChildren() []dom.Element {
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if !isOpenShadowTemplate(c) {
			continue
		}
		out := []dom.Element{}
		for s := c.FirstChild; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode {
				out = append(out, e.doc.wrap(s))
			}
		}
		return out
	}
	return nil
}

// Parent stops at the document and at shadow roots.
func (e *Element) Parent() dom.Element {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode || isShadowTemplate(p) {
		return nil
	}
	return e.doc.wrap(p)
}

// Text returns the text under the element, leaving out script, style,
// noscript and template contents and hidden descendants.
func (e *Element) Text() string {
	var b strings.Builder
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		writeText(&b, c)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		}
		if hasAttr(n, "hidden") || displayNone.MatchString(attr(n, "style")) {
			return
		}
	default:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

// Rendered approximates offsetParent != null: the element and every
// ancestor up to the document, crossing shadow hosts, must be free of the
// hidden attribute and display:none, and must not sit inside inert
// template content.
func (e *Element) Rendered() bool {
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.DocumentNode {
			return true
		}
		if n.Type != html.ElementNode {
			continue
		}
		if n.DataAtom == atom.Template && !isShadowTemplate(n) {
			return false
		}
		if hasAttr(n, "hidden") || displayNone.MatchString(attr(n, "style")) {
			return false
		}
	}
	return false
}

func (e *Element) Focus() error {
	if !e.attached() {
		return ErrDetached
	}
	e.doc.focused = e.n
	return nil
}

func (e *Element) SetValue(v string) error {
	if !e.attached() {
		return ErrDetached
	}
	switch e.n.DataAtom {
	case atom.Textarea:
		for c := e.n.FirstChild; c != nil; {
			next := c.NextSibling
			e.n.RemoveChild(c)
			c = next
		}
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: v})
	case atom.Input:
		if strings.EqualFold(attr(e.n, "type"), "file") && v != "" {
			return ErrInvalidState
		}
		setAttr(e.n, "value", v)
	default:
		setAttr(e.n, "value", v)
	}
	return nil
}

func (e *Element) SetChecked(checked bool) error {
	if !e.attached() {
		return ErrDetached
	}
	if checked {
		setAttr(e.n, "checked", "")
	} else {
		removeAttr(e.n, "checked")
	}
	return nil
}

// SetSelected toggles an option. Selecting an option of a single-choice
// select deselects its siblings.
func (e *Element) SetSelected(selected bool) error {
	if !e.attached() {
		return ErrDetached
	}
	if !selected {
		removeAttr(e.n, "selected")
		return nil
	}
	if sel := e.enclosingSelect(); sel != nil && !hasAttr(sel, "multiple") {
		for _, o := range options(sel) {
			removeAttr(o, "selected")
		}
	}
	setAttr(e.n, "selected", "")
	return nil
}

// Dispatch records the event and runs listeners from the target up to the
// tree or shadow root.
func (e *Element) Dispatch(event string) error {
	if !e.attached() {
		return ErrDetached
	}
	e.doc.events[e.n] = append(e.doc.events[e.n], event)
	for n := e.n; n != nil && n.Type == html.ElementNode && !isShadowTemplate(n); n = n.Parent {
		for _, l := range e.doc.listeners[n][event] {
			l(e, event)
		}
	}
	return nil
}

// --- inspection (not for use inside a pass) ---

// Value returns the current control value: text content for textarea, the
// selected option's value for select, the value attribute otherwise.
func (e *Element) Value() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	switch e.n.DataAtom {
	case atom.Textarea:
		return goquery.NewDocumentFromNode(e.n).Text()
	case atom.Select:
		for _, o := range options(e.n) {
			if hasAttr(o, "selected") {
				if hasAttr(o, "value") {
					return attr(o, "value")
				}
				return strings.TrimSpace(goquery.NewDocumentFromNode(o).Text())
			}
		}
		return ""
	}
	return attr(e.n, "value")
}

// Checked reports whether the checked attribute is present.
func (e *Element) Checked() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return hasAttr(e.n, "checked")
}

// Selected reports whether an option carries the selected attribute.
func (e *Element) Selected() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return hasAttr(e.n, "selected")
}

// Events returns the event types dispatched on this element, in order.
func (e *Element) Events() []string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return append([]string(nil), e.doc.events[e.n]...)
}

// Detach removes the element from the tree, simulating a script tearing
// it down mid-pass. Meant for listeners and tests.
func (e *Element) Detach() {
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
}

func (e *Element) attached() bool {
	for n := e.n; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

func (e *Element) enclosingSelect() *html.Node {
	for n := e.n.Parent; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.DataAtom == atom.Select {
			return n
		}
	}
	return nil
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == atom.Option {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(sel)
	return out
}
