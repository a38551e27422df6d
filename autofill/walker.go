package autofill

import (
	"strings"

	"github.com/hazyhaar/formfill/dom"
)

// scope is a document or a shadow root. Label lookup by id and radio
// grouping by name never cross a scope boundary.
type scope struct {
	// owner is the walk root for a document scope, the host for a shadow
	// scope. It stays the same across walks of a live tree.
	owner  dom.Element
	labels map[string]dom.Element
	radios map[string][]dom.Element
}

func newScope(owner dom.Element) *scope {
	return &scope{
		owner:  owner,
		labels: make(map[string]dom.Element),
		radios: make(map[string][]dom.Element),
	}
}

type walkItem struct {
	el dom.Element
	sc *scope
}

// collect walks the subtree under root with an explicit stack and returns
// the fillable fields in document order. Shadow children of an element are
// visited before its light children; each shadow root opens a new scope.
func collect(root dom.Element) []Field {
	if root == nil {
		return nil
	}
	var fields []Field
	stack := []walkItem{{el: root, sc: newScope(root)}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		el, sc := it.el, it.sc

		switch el.Tag() {
		case "label":
			if id := el.Attr("for"); id != "" {
				if _, ok := sc.labels[id]; !ok {
					sc.labels[id] = el
				}
			}
		case "input":
			if strings.EqualFold(el.Attr("type"), "radio") {
				name := el.Attr("name")
				sc.radios[name] = append(sc.radios[name], el)
			}
		}
		if kind, ok := fillable(el); ok {
			fields = append(fields, Field{El: el, Kind: kind, scope: sc})
		}

		// Pushed in reverse so the stack pops them in document order,
		// shadow children on top.
		light := el.Children()
		for i := len(light) - 1; i >= 0; i-- {
			stack = append(stack, walkItem{el: light[i], sc: sc})
		}
		if shadow := el.ShadowChildren(); shadow != nil {
			inner := newScope(el)
			for i := len(shadow) - 1; i >= 0; i-- {
				stack = append(stack, walkItem{el: shadow[i], sc: inner})
			}
		}
	}
	return fields
}

// fillable applies the fillability predicate: input, textarea or select,
// not type=hidden, not disabled, currently rendered.
func fillable(el dom.Element) (Kind, bool) {
	var kind Kind
	switch el.Tag() {
	case "input":
		switch strings.ToLower(el.Attr("type")) {
		case "hidden":
			return 0, false
		case "radio":
			kind = KindRadio
		default:
			kind = KindText
		}
	case "textarea":
		kind = KindText
	case "select":
		kind = KindSelect
	default:
		return 0, false
	}
	if el.HasAttr("disabled") || !el.Rendered() {
		return 0, false
	}
	return kind, true
}

// radioGroup returns the radios sharing f's name in f's scope. A nameless
// radio is its own group.
func radioGroup(f Field) []dom.Element {
	name := f.El.Attr("name")
	if name == "" || f.scope == nil {
		return []dom.Element{f.El}
	}
	return f.scope.radios[name]
}
