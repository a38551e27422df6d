package dom

import (
	"net/url"
	"strings"
)

// FrameAttrs are the static attributes of an iframe or frame element.
type FrameAttrs struct {
	Src       string
	SrcDoc    bool
	Sandboxed bool
	Sandbox   string
}

// Reasons reported by Frame.Open.
const (
	ReasonSandboxed   = "sandboxed"
	ReasonCrossOrigin = "cross-origin"
	ReasonBadSrc      = "bad src"
	ReasonNotLoaded   = "not loaded"
)

// FrameAccess decides from a frame's attributes whether its content is
// reachable from a parent at parentURL. It returns the absolute source
// (empty for srcdoc and about:blank frames) and a denial reason, empty
// when access is allowed. Drivers still report ReasonNotLoaded when the
// content turns out to be missing.
func FrameAccess(parentURL string, a FrameAttrs) (abs, reason string) {
	if a.Sandboxed && !hasToken(a.Sandbox, "allow-same-origin") {
		return "", ReasonSandboxed
	}
	if a.SrcDoc || a.Src == "" || a.Src == "about:blank" {
		return "", ""
	}
	abs, err := resolve(parentURL, a.Src)
	if err != nil {
		return "", ReasonBadSrc
	}
	if !SameOrigin(parentURL, abs) {
		return abs, ReasonCrossOrigin
	}
	return abs, ""
}

// SameOrigin compares scheme, host and port. An empty base only admits
// relative targets.
func SameOrigin(base, target string) bool {
	t, err := url.Parse(target)
	if err != nil {
		return false
	}
	if base == "" {
		return t.Scheme == "" && t.Host == ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	return strings.EqualFold(b.Scheme, t.Scheme) && strings.EqualFold(b.Host, t.Host)
}

func resolve(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if base == "" {
		return r.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

func hasToken(list, tok string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, tok) {
			return true
		}
	}
	return false
}
