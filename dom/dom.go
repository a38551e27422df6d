// Package dom defines the document abstraction the autofill engine walks
// and mutates. Drivers implement it over a concrete tree: htmldoc over an
// in-memory golang.org/x/net/html tree, browser over a live Chrome page.
//
// An element exposes its light children plus an optional shadow-child
// collection, the reads used for labelling, and the mutations a user would
// perform by typing or clicking.
package dom

import "context"

// Element is one element node in a document tree.
type Element interface {
	// Tag is the lowercase local name ("input", "div").
	Tag() string
	// Attr returns the attribute value, or "" when absent.
	Attr(name string) string
	// HasAttr reports whether the attribute is present (boolean attributes
	// such as disabled or checked).
	HasAttr(name string) bool

	// Children returns the element children in document order.
	Children() []Element
	// ShadowChildren returns the element children of an attached open
	// shadow root, or nil when there is none.
	ShadowChildren() []Element
	// Parent returns the parent element, or nil at a tree or shadow root.
	Parent() Element

	// Text is the visible text of the subtree.
	Text() string
	// Rendered reports whether the element currently occupies layout.
	Rendered() bool

	Focus() error
	SetValue(v string) error
	SetChecked(checked bool) error
	SetSelected(selected bool) error
	// Dispatch fires a bubbling event of the given type on the element.
	Dispatch(event string) error
}

// Document is a traversal root: a page, a frame document or a fragment.
type Document interface {
	// Root is the element the walk starts from (body when present).
	Root() Element
	// URL identifies the document for logging; may be empty.
	URL() string
	// Frames lists the embedded frames of this document.
	Frames() []Frame
	// Observe subscribes to child-list mutations anywhere in the subtree.
	Observe(ctx context.Context) (Subscription, error)
	// Exclusive runs fn with exclusive access to the tree. All reads and
	// mutations made by a pass happen inside Exclusive.
	Exclusive(fn func() error) error
}

// Frame is an embedded browsing context.
type Frame interface {
	// Src is the frame source for diagnostics.
	Src() string
	// Open is a capability check. ok is false when the frame content cannot
	// be accessed (cross-origin, sandboxed, not loaded); reason says why.
	// It is called outside the parent document's Exclusive section.
	Open() (doc Document, ok bool, reason string)
}

// Subscription delivers one notification per observed mutation batch.
type Subscription interface {
	C() <-chan struct{}
	// Disconnect stops delivery. Safe to call more than once.
	Disconnect()
}
