package autofill

import (
	"fmt"

	"github.com/hazyhaar/formfill/dom"
	"github.com/hazyhaar/formfill/match"
)

// fill applies value to f according to its kind. filled is false when the
// value has no representation in the field (no such option or radio); that
// is not an error. A panic from the driver is returned as an error.
func fill(f Field, value string) (filled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			filled, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	switch f.Kind {
	case KindSelect:
		return fillSelect(f.El, value)
	case KindRadio:
		return fillRadio(f, value)
	default:
		return true, fillText(f.El, value)
	}
}

func fillText(el dom.Element, value string) error {
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus: %w", err)
	}
	if err := el.SetValue(value); err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	if err := el.Dispatch("input"); err != nil {
		return fmt.Errorf("dispatch input: %w", err)
	}
	if err := el.Dispatch("change"); err != nil {
		return fmt.Errorf("dispatch change: %w", err)
	}
	return nil
}

// fillSelect selects the first option whose normalized display text equals
// the normalized value.
func fillSelect(sel dom.Element, value string) (bool, error) {
	want := match.Normalize(value)
	if want == "" {
		return false, nil
	}
	for _, opt := range options(sel) {
		if match.Normalize(opt.Text()) != want {
			continue
		}
		if err := opt.SetSelected(true); err != nil {
			return false, fmt.Errorf("select option: %w", err)
		}
		if err := sel.Dispatch("change"); err != nil {
			return false, fmt.Errorf("dispatch change: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// fillRadio checks the radio of f's group whose value, id or label text
// equals the value, and unchecks the rest of the group.
func fillRadio(f Field, value string) (bool, error) {
	want := match.Normalize(value)
	if want == "" {
		return false, nil
	}
	group := radioGroup(f)
	var target dom.Element
	for _, r := range group {
		if _, ok := fillable(r); !ok {
			continue
		}
		if match.Normalize(r.Attr("value")) == want ||
			match.Normalize(r.Attr("id")) == want ||
			match.Normalize(radioLabel(f, r)) == want {
			target = r
			break
		}
	}
	if target == nil {
		return false, nil
	}
	for _, r := range group {
		if r == target {
			continue
		}
		if err := r.SetChecked(false); err != nil {
			return false, fmt.Errorf("uncheck: %w", err)
		}
	}
	if err := target.SetChecked(true); err != nil {
		return false, fmt.Errorf("check: %w", err)
	}
	if err := target.Dispatch("change"); err != nil {
		return false, fmt.Errorf("dispatch change: %w", err)
	}
	return true, nil
}

// options lists option descendants of a select in document order.
func options(sel dom.Element) []dom.Element {
	var out []dom.Element
	stack := reversed(sel.Children())
	for len(stack) > 0 {
		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if el.Tag() == "option" {
			out = append(out, el)
			continue
		}
		stack = append(stack, reversed(el.Children())...)
	}
	return out
}
