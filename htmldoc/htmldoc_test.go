package htmldoc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
)

func mustParse(t *testing.T, src string, opts ...Option) *Document {
	t.Helper()
	d, err := ParseString(src, opts...)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestRoot_IsBody(t *testing.T) {
	d := mustParse(t, `<p>x</p>`)
	if got := d.Root().Tag(); got != "body" {
		t.Errorf("Root: got %q, want %q", got, "body")
	}
}

func TestRendered(t *testing.T) {
	d := mustParse(t, `
		<input id="a">
		<input id="b" hidden>
		<div style="display: none"><input id="c"></div>
		<div style="DISPLAY:NONE"><span><input id="d"></span></div>
		<template><input id="e"></template>
		<div id="host"><template shadowrootmode="open"><input id="f"></template></div>
		<div id="hidden-host" hidden><template shadowrootmode="open"><input id="g"></template></div>
	`)
	want := map[string]bool{"a": true, "b": false, "c": false, "d": false, "e": false}
	for id, w := range want {
		el := d.First("#" + id)
		if el == nil {
			continue
		}
		if got := el.Rendered(); got != w {
			t.Errorf("Rendered(#%s): got %v, want %v", id, got, w)
		}
	}

	host := d.First("#host")
	shadow := host.ShadowChildren()
	if len(shadow) != 1 {
		t.Fatalf("ShadowChildren: got %d, want 1", len(shadow))
	}
	if !shadow[0].Rendered() {
		t.Error("shadow input under visible host: got not rendered")
	}
	hidden := d.First("#hidden-host").ShadowChildren()
	if len(hidden) != 1 || hidden[0].Rendered() {
		t.Error("shadow input under hidden host: want exactly one, not rendered")
	}
}

func TestText_SkipsNonContent(t *testing.T) {
	d := mustParse(t, `
		<label id="l">E-mail<script>var tracking = 1;</script><style>.x{}</style><noscript>enable js</noscript><span hidden>secret</span><template><b>t</b></template> <i>(work)</i><!-- c --></label>
	`)
	if got := d.First("#l").Text(); got != "E-mail (work)" {
		t.Errorf("Text: got %q, want %q", got, "E-mail (work)")
	}
}

func TestShadowChildren(t *testing.T) {
	d := mustParse(t, `
		<div id="open"><template shadowrootmode="open"><input name="x"><label>y</label></template><span>light</span></div>
		<div id="closed"><template shadowrootmode="closed"><input name="z"></template></div>
		<div id="plain"><span></span></div>
	`)

	open := d.First("#open")
	if got := len(open.ShadowChildren()); got != 2 {
		t.Errorf("open ShadowChildren: got %d, want 2", got)
	}
	light := open.Children()
	if len(light) != 1 || light[0].Tag() != "span" {
		t.Errorf("open Children: got %d children, want the span only", len(light))
	}
	if p := open.ShadowChildren()[0].Parent(); p != nil {
		t.Errorf("Parent at shadow root: got %v, want nil", p)
	}

	if got := d.First("#closed").ShadowChildren(); got != nil {
		t.Errorf("closed ShadowChildren: got %d, want nil", len(got))
	}
	if got := len(d.First("#closed").Children()); got != 0 {
		t.Errorf("closed Children: got %d, want 0", got)
	}
	if got := d.First("#plain").ShadowChildren(); got != nil {
		t.Errorf("plain ShadowChildren: got %v, want nil", got)
	}
}

func TestSetValue(t *testing.T) {
	d := mustParse(t, `<input id="i"><textarea id="t">old</textarea><input id="f" type="file">`)

	in, ta := d.First("#i"), d.First("#t")
	err := d.Exclusive(func() error {
		if err := in.SetValue("a@b.com"); err != nil {
			return err
		}
		return ta.SetValue("new")
	})
	if err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if got := d.First("#i").Value(); got != "a@b.com" {
		t.Errorf("input Value: got %q, want %q", got, "a@b.com")
	}
	if got := d.First("#t").Value(); got != "new" {
		t.Errorf("textarea Value: got %q, want %q", got, "new")
	}

	f := d.First("#f")
	if err := f.SetValue("/etc/passwd"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("file SetValue: got %v, want ErrInvalidState", err)
	}
}

func TestSetValue_Detached(t *testing.T) {
	d := mustParse(t, `<div><input id="i"></div>`)
	el := d.First("#i")
	el.Detach()
	if err := el.SetValue("x"); !errors.Is(err, ErrDetached) {
		t.Errorf("SetValue on detached: got %v, want ErrDetached", err)
	}
}

func TestSetSelected_Single(t *testing.T) {
	d := mustParse(t, `<select id="s"><option value="fr" selected>France</option><optgroup><option value="de">Germany</option></optgroup></select>`)
	de := d.Query("option")[1]
	if err := de.SetSelected(true); err != nil {
		t.Fatalf("SetSelected: %v", err)
	}
	if got := d.First("#s").Value(); got != "de" {
		t.Errorf("select Value: got %q, want %q", got, "de")
	}
	if d.Query("option")[0].Selected() {
		t.Error("previous option still selected")
	}
}

func TestSetSelected_Multiple(t *testing.T) {
	d := mustParse(t, `<select multiple><option selected>a</option><option>b</option></select>`)
	opts := d.Query("option")
	if err := opts[1].SetSelected(true); err != nil {
		t.Fatalf("SetSelected: %v", err)
	}
	if !opts[0].Selected() || !opts[1].Selected() {
		t.Error("multiple select: want both options selected")
	}
}

func TestDispatch_Bubbles(t *testing.T) {
	d := mustParse(t, `<form id="f"><div><input id="i"></div></form>`)
	in, form := d.First("#i"), d.First("#f")

	var seen []string
	d.On(form, "change", func(target *Element, event string) {
		seen = append(seen, target.Attr("id")+":"+event)
	})
	if err := d.Exclusive(func() error { return in.Dispatch("change") }); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(seen) != 1 || seen[0] != "i:change" {
		t.Errorf("listener on ancestor: got %v, want [i:change]", seen)
	}
	if got := in.Events(); len(got) != 1 || got[0] != "change" {
		t.Errorf("Events: got %v, want [change]", got)
	}
}

func TestDispatch_StopsAtShadowRoot(t *testing.T) {
	d := mustParse(t, `<div id="host"><template shadowrootmode="open"><input id="in"></template></div>`)
	host := d.First("#host")
	in := host.ShadowChildren()[0].(*Element)

	fired := false
	d.On(host, "input", func(*Element, string) { fired = true })
	if err := in.Dispatch("input"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if fired {
		t.Error("listener on shadow host fired, want event confined to shadow tree")
	}
}

func TestObserve_AppendHTML(t *testing.T) {
	d := mustParse(t, `<p></p>`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := d.Observe(ctx)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if err := d.AppendHTML(`<input name="late">`); err != nil {
		t.Fatalf("AppendHTML: %v", err)
	}
	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatal("no notification after AppendHTML")
	}
	if d.First(`input[name="late"]`) == nil {
		t.Error("appended input not found")
	}

	sub.Disconnect()
	sub.Disconnect()
	if got := d.Observers(); got != 0 {
		t.Errorf("Observers after Disconnect: got %d, want 0", got)
	}
}

func TestObserve_ContextEnd(t *testing.T) {
	d := mustParse(t, `<p></p>`)
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := d.Observe(ctx); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for d.Observers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription still connected after context end")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMutate_Error(t *testing.T) {
	d := mustParse(t, `<p></p>`)
	boom := errors.New("boom")
	if err := d.Mutate(func(*html.Node) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Mutate: got %v, want boom", err)
	}
}

func TestFrames_Open(t *testing.T) {
	child := mustParse(t, `<input name="inner">`, WithURL("https://a.test/inner"))
	loader := func(src string) (*Document, bool) {
		if src == "https://a.test/inner" {
			return child, true
		}
		return nil, false
	}
	d := mustParse(t, `
		<iframe srcdoc="&lt;input name=x&gt;"></iframe>
		<iframe></iframe>
		<iframe src="/inner"></iframe>
		<iframe src="https://b.test/"></iframe>
		<iframe src="/missing"></iframe>
		<iframe sandbox="allow-scripts" srcdoc="x"></iframe>
		<iframe sandbox="allow-scripts allow-same-origin" srcdoc="x"></iframe>
	`, WithURL("https://a.test/page"), WithFrameLoader(loader))

	frames := d.Frames()
	if len(frames) != 7 {
		t.Fatalf("Frames: got %d, want 7", len(frames))
	}
	cases := []struct {
		src    string
		ok     bool
		reason string
	}{
		{"about:srcdoc", true, ""},
		{"about:blank", true, ""},
		{"/inner", true, ""},
		{"https://b.test/", false, "cross-origin"},
		{"/missing", false, "not loaded"},
		{"about:srcdoc", false, "sandboxed"},
		{"about:srcdoc", true, ""},
	}
	for i, c := range cases {
		f := frames[i]
		if got := f.Src(); got != c.src {
			t.Errorf("frame %d Src: got %q, want %q", i, got, c.src)
		}
		doc, ok, reason := f.Open()
		if ok != c.ok || reason != c.reason {
			t.Errorf("frame %d Open: got (%v, %q), want (%v, %q)", i, ok, reason, c.ok, c.reason)
		}
		if ok && doc == nil {
			t.Errorf("frame %d Open: ok with nil document", i)
		}
	}

	srcdoc, _, _ := frames[0].Open()
	again, _, _ := frames[0].Open()
	if srcdoc != again {
		t.Error("srcdoc frame re-parsed, want cached document")
	}
	if got := len(srcdoc.(*Document).Query(`input[name="x"]`)); got != 1 {
		t.Errorf("srcdoc content: got %d inputs, want 1", got)
	}
}

func TestRender(t *testing.T) {
	d := mustParse(t, `<input name="a">`)
	if err := d.First("input").SetValue("v"); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(b.String(), `value="v"`) {
		t.Errorf("Render: %q lacks value attribute", b.String())
	}
}
