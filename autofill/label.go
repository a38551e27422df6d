package autofill

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hazyhaar/formfill/dom"
)

// identifyingAttrs are tried in order before any label text.
var identifyingAttrs = []string{"name", "id", "placeholder", "aria-label"}

// blockTags bound the container text scraped as a last resort.
var blockTags = map[string]bool{
	"div": true, "p": true, "li": true, "td": true,
	"section": true, "fieldset": true, "form": true,
}

// fieldLabel derives the identifying string of a field. The first
// non-empty source wins: identifying attributes, label[for=id] in the same
// scope, the enclosing label, then the text of the nearest block
// container. The result is lowercased and trimmed; "" when nothing is
// found.
func fieldLabel(f Field) string {
	el := f.El
	for _, a := range identifyingAttrs {
		if v := clean(el.Attr(a)); v != "" {
			return v
		}
	}
	if v := clean(labelFor(f)); v != "" {
		return v
	}
	if l := ancestor(el, "label"); l != nil {
		if v := clean(l.Text()); v != "" {
			return v
		}
	}
	if blk := blockAncestor(el); blk != nil {
		return clean(containerText(blk))
	}
	return ""
}

// labelFor returns the text of the first label[for] pointing at the field
// id within its scope.
func labelFor(f Field) string {
	id := f.El.Attr("id")
	if id == "" || f.scope == nil {
		return ""
	}
	if l, ok := f.scope.labels[id]; ok {
		return l.Text()
	}
	return ""
}

// radioLabel is the text of any label associated with a radio, used to
// compare against the stored value.
func radioLabel(f Field, el dom.Element) string {
	if id := el.Attr("id"); id != "" && f.scope != nil {
		if l, ok := f.scope.labels[id]; ok {
			return l.Text()
		}
	}
	if l := ancestor(el, "label"); l != nil {
		return l.Text()
	}
	return ""
}

func ancestor(el dom.Element, tag string) dom.Element {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.Tag() == tag {
			return p
		}
	}
	return nil
}

func blockAncestor(el dom.Element) dom.Element {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if blockTags[p.Tag()] {
			return p
		}
	}
	return nil
}

// containerText joins the trimmed text of every descendant of blk and
// keeps the first line.
func containerText(blk dom.Element) string {
	var parts []string
	stack := append([]dom.Element(nil), reversed(blk.Children())...)
	for len(stack) > 0 {
		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t := strings.TrimSpace(el.Text()); t != "" {
			parts = append(parts, t)
		}
		stack = append(stack, reversed(el.Children())...)
	}
	joined := strings.Join(parts, " ")
	if i := strings.IndexByte(joined, '\n'); i >= 0 {
		joined = joined[:i]
	}
	return joined
}

func reversed(els []dom.Element) []dom.Element {
	out := make([]dom.Element, len(els))
	for i, e := range els {
		out[len(els)-1-i] = e
	}
	return out
}

// clean lowercases and trims. Casers are stateful: one per call.
func clean(s string) string {
	return strings.TrimSpace(cases.Lower(language.Und).String(s))
}
