package dom

import "testing"

func TestFrameAccess(t *testing.T) {
	const parent = "https://shop.test/checkout"
	cases := []struct {
		name   string
		attrs  FrameAttrs
		abs    string
		reason string
	}{
		{"srcdoc", FrameAttrs{SrcDoc: true}, "", ""},
		{"blank", FrameAttrs{}, "", ""},
		{"about blank", FrameAttrs{Src: "about:blank"}, "", ""},
		{"relative", FrameAttrs{Src: "/pay"}, "https://shop.test/pay", ""},
		{"same origin absolute", FrameAttrs{Src: "https://SHOP.test/x"}, "https://SHOP.test/x", ""},
		{"other host", FrameAttrs{Src: "https://pay.test/x"}, "https://pay.test/x", ReasonCrossOrigin},
		{"other scheme", FrameAttrs{Src: "http://shop.test/x"}, "http://shop.test/x", ReasonCrossOrigin},
		{"other port", FrameAttrs{Src: "https://shop.test:8443/x"}, "https://shop.test:8443/x", ReasonCrossOrigin},
		{"sandboxed", FrameAttrs{SrcDoc: true, Sandboxed: true, Sandbox: "allow-scripts"}, "", ReasonSandboxed},
		{"sandbox empty", FrameAttrs{Src: "/pay", Sandboxed: true}, "", ReasonSandboxed},
		{"sandbox same origin", FrameAttrs{Src: "/pay", Sandboxed: true, Sandbox: "allow-forms allow-same-origin"}, "https://shop.test/pay", ""},
		{"bad src", FrameAttrs{Src: "http://[::1"}, "", ReasonBadSrc},
	}
	for _, c := range cases {
		abs, reason := FrameAccess(parent, c.attrs)
		if abs != c.abs || reason != c.reason {
			t.Errorf("%s: got (%q, %q), want (%q, %q)", c.name, abs, reason, c.abs, c.reason)
		}
	}
}

func TestSameOrigin_EmptyBase(t *testing.T) {
	if !SameOrigin("", "/inner") {
		t.Error("relative target with empty base: want same origin")
	}
	if SameOrigin("", "https://a.test/") {
		t.Error("absolute target with empty base: want cross origin")
	}
}
