package autofill

import (
	"testing"

	"github.com/hazyhaar/formfill/htmldoc"
)

func parse(t *testing.T, src string, opts ...htmldoc.Option) *htmldoc.Document {
	t.Helper()
	d, err := htmldoc.ParseString(src, opts...)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func fieldIDs(fields []Field) []string {
	ids := make([]string, len(fields))
	for i, f := range fields {
		ids[i] = f.El.Attr("id")
	}
	return ids
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCollect_Fillability(t *testing.T) {
	d := parse(t, `
		<input id="text">
		<input id="hidden-type" type="hidden">
		<input id="disabled" disabled>
		<input id="hidden-attr" hidden>
		<div style="display:none"><input id="in-hidden-div"></div>
		<textarea id="ta"></textarea>
		<select id="sel"><option>a</option></select>
		<select id="sel-disabled" disabled></select>
		<input id="radio" type="radio" name="r">
		<input id="email" type="email">
		<button id="btn">go</button>
	`)
	got := fieldIDs(collect(d.Root()))
	want := []string{"text", "ta", "sel", "radio", "email"}
	if !equal(got, want) {
		t.Errorf("collect: got %v, want %v", got, want)
	}
}

func TestCollect_Kinds(t *testing.T) {
	d := parse(t, `<input id="a" type="TEXT"><select id="b"></select><input id="c" type="Radio"><textarea id="d"></textarea>`)
	fields := collect(d.Root())
	want := []Kind{KindText, KindSelect, KindRadio, KindText}
	if len(fields) != len(want) {
		t.Fatalf("collect: got %d fields, want %d", len(fields), len(want))
	}
	for i, f := range fields {
		if f.Kind != want[i] {
			t.Errorf("field %s kind: got %v, want %v", f.El.Attr("id"), f.Kind, want[i])
		}
	}
}

func TestCollect_ShadowOrder(t *testing.T) {
	d := parse(t, `
		<input id="1">
		<div>
			<template shadowrootmode="open">
				<input id="3">
				<div><template shadowrootmode="open"><input id="4"></template></div>
			</template>
			<input id="5">
		</div>
		<input id="6">
		<div><template shadowrootmode="closed"><input id="closed"></template></div>
	`)
	// Shadow content comes before the host's light children.
	got := fieldIDs(collect(d.Root()))
	want := []string{"1", "3", "4", "5", "6"}
	if !equal(got, want) {
		t.Errorf("collect: got %v, want %v", got, want)
	}
}

func TestCollect_Scopes(t *testing.T) {
	d := parse(t, `
		<label for="x">outer</label>
		<input type="radio" name="g" id="r1">
		<div>
			<template shadowrootmode="open">
				<input type="radio" name="g" id="r2">
				<input type="radio" name="g" id="r3">
				<input id="x">
			</template>
		</div>
		<input type="radio" name="g" id="r4">
	`)
	fields := collect(d.Root())
	byID := map[string]Field{}
	for _, f := range fields {
		byID[f.El.Attr("id")] = f
	}

	if got := len(radioGroup(byID["r1"])); got != 2 {
		t.Errorf("document group size: got %d, want 2 (r1, r4)", got)
	}
	if got := len(radioGroup(byID["r2"])); got != 2 {
		t.Errorf("shadow group size: got %d, want 2 (r2, r3)", got)
	}
	if got := labelFor(byID["x"]); got != "" {
		t.Errorf("label[for] across shadow boundary: got %q, want none", got)
	}
}

func TestCollect_NamelessRadio(t *testing.T) {
	d := parse(t, `<input type="radio" id="a"><input type="radio" id="b">`)
	fields := collect(d.Root())
	if got := len(radioGroup(fields[0])); got != 1 {
		t.Errorf("nameless radio group: got %d, want 1", got)
	}
}

func TestCollect_Nil(t *testing.T) {
	if got := collect(nil); got != nil {
		t.Errorf("collect(nil): got %v, want nil", got)
	}
}
