// Package trigger dispatches formfill commands. A Command names an action
// (autofill, clear, update); the Router resolves it to a registered
// handler, which loads the profile, opens the target document and runs the
// autofill engine. The HTTP and MCP surfaces both go through Call.
//
//	r := trigger.New(store, engine, trigger.WithOpener(trigger.BrowserOpener(mgr)))
//	resp, err := r.Call(ctx, trigger.Command{Action: trigger.ActionAutofill, URL: u})
package trigger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/formfill/autofill"
	"github.com/hazyhaar/formfill/dom"
	"github.com/hazyhaar/formfill/htmldoc"
	"github.com/hazyhaar/formfill/profile"
	"github.com/hazyhaar/formfill/safeurl"
)

// Action names a command.
type Action string

const (
	ActionAutofill Action = "autofill"
	ActionClear    Action = "clear"
	ActionUpdate   Action = "update"
)

// Command is one trigger. Autofill uses HTML when set (URL then only
// resolves relative frame sources), otherwise it opens URL in the browser;
// Entries override stored values for that pass only. Update stores Entries.
type Command struct {
	Action  Action          `json:"action"`
	URL     string          `json:"url,omitempty"`
	HTML    string          `json:"html,omitempty"`
	Entries []profile.Entry `json:"entries,omitempty"`
}

// Response is the answer to a Command. Status is "completed" or "no-data"
// for autofill, "cleared" or "updated" otherwise.
type Response struct {
	Action Action           `json:"action"`
	Status string           `json:"status"`
	Result *autofill.Result `json:"result,omitempty"`
	HTML   string           `json:"html,omitempty"`
	Count  int64            `json:"count,omitempty"`
}

// Handler serves one action.
type Handler func(ctx context.Context, cmd Command) (*Response, error)

// Opener opens a live page and returns its document and a close function.
type Opener func(ctx context.Context, pageURL string) (dom.Document, func() error, error)

// Router dispatches commands to action handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[Action]Handler

	store       *profile.Store
	engine      *autofill.Engine
	opener      Opener
	passTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets a custom logger for the router.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithOpener enables autofill on URLs.
func WithOpener(o Opener) Option {
	return func(r *Router) { r.opener = o }
}

// WithPassTimeout bounds each autofill pass (default 30s).
func WithPassTimeout(d time.Duration) Option {
	return func(r *Router) { r.passTimeout = d }
}

// New creates a Router with the autofill, clear and update handlers
// registered.
func New(store *profile.Store, engine *autofill.Engine, opts ...Option) *Router {
	r := &Router{
		handlers:    make(map[Action]Handler),
		store:       store,
		engine:      engine,
		passTimeout: 30 * time.Second,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	r.RegisterLocal(ActionAutofill, r.autofill)
	r.RegisterLocal(ActionClear, r.clear)
	r.RegisterLocal(ActionUpdate, r.update)
	return r
}

// RegisterLocal registers or replaces the handler for an action.
func (r *Router) RegisterLocal(a Action, h Handler) {
	r.mu.Lock()
	r.handlers[a] = h
	r.mu.Unlock()
}

// Call dispatches cmd to its action handler.
func (r *Router) Call(ctx context.Context, cmd Command) (*Response, error) {
	r.mu.RLock()
	h := r.handlers[cmd.Action]
	r.mu.RUnlock()
	if h == nil {
		return nil, &ErrUnknownAction{Action: cmd.Action}
	}
	r.logger.DebugContext(ctx, "trigger: dispatch", "action", cmd.Action)
	return h(ctx, cmd)
}

// Profile returns the stored profile in match order.
func (r *Router) Profile(ctx context.Context) (profile.Profile, error) {
	p, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("formfill: load profile: %w", err)
	}
	if p == nil {
		p = profile.Profile{}
	}
	return p, nil
}

// Entry returns the stored entry for key, or ErrKeyNotFound.
func (r *Router) Entry(ctx context.Context, key string) (*profile.Entry, error) {
	e, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("formfill: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("formfill: %q: %w", key, ErrKeyNotFound)
	}
	return e, nil
}

// ReplaceProfile overwrites the stored profile with entries, in order.
func (r *Router) ReplaceProfile(ctx context.Context, entries []profile.Entry) (*Response, error) {
	if err := r.store.Replace(ctx, profile.Profile(entries)); err != nil {
		return nil, fmt.Errorf("formfill: replace profile: %w", err)
	}
	r.logger.InfoContext(ctx, "trigger: profile replaced", "entries", len(entries))
	return &Response{Action: ActionUpdate, Status: "updated", Count: int64(len(entries))}, nil
}

func (r *Router) autofill(ctx context.Context, cmd Command) (*Response, error) {
	if cmd.HTML == "" && cmd.URL == "" {
		return nil, ErrNoTarget
	}
	if cmd.HTML == "" {
		if _, err := safeurl.ValidatePageURL(cmd.URL); err != nil {
			return nil, fmt.Errorf("formfill: %w", err)
		}
		if r.opener == nil {
			return nil, ErrNoBrowser
		}
	}

	prof, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("formfill: load profile: %w", err)
	}
	prof = prof.Merge(cmd.Entries)

	ctx, cancel := context.WithTimeout(ctx, r.passTimeout)
	defer cancel()

	if cmd.HTML != "" {
		return r.autofillHTML(ctx, cmd, prof)
	}
	return r.autofillURL(ctx, cmd, prof)
}

func (r *Router) autofillHTML(ctx context.Context, cmd Command, prof profile.Profile) (*Response, error) {
	doc, err := htmldoc.ParseString(cmd.HTML, htmldoc.WithURL(cmd.URL))
	if err != nil {
		return nil, fmt.Errorf("formfill: parse html: %w", err)
	}
	res := r.engine.Run(ctx, doc, prof)

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return nil, fmt.Errorf("formfill: render html: %w", err)
	}
	return &Response{Action: ActionAutofill, Status: string(res.Status), Result: &res, HTML: buf.String()}, nil
}

func (r *Router) autofillURL(ctx context.Context, cmd Command, prof profile.Profile) (*Response, error) {
	// An empty profile never opens a tab.
	if len(prof) == 0 {
		r.logger.InfoContext(ctx, "trigger: no profile data", "url", cmd.URL)
		res := autofill.Result{Status: autofill.StatusNoData}
		return &Response{Action: ActionAutofill, Status: string(res.Status), Result: &res}, nil
	}

	doc, closeFn, err := r.opener(ctx, cmd.URL)
	if err != nil {
		return nil, fmt.Errorf("formfill: open %s: %w", cmd.URL, err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			r.logger.Warn("trigger: close page", "url", cmd.URL, "error", err)
		}
	}()

	res := r.engine.Run(ctx, doc, prof)
	return &Response{Action: ActionAutofill, Status: string(res.Status), Result: &res}, nil
}

func (r *Router) clear(ctx context.Context, _ Command) (*Response, error) {
	n, err := r.store.Clear(ctx)
	if err != nil {
		return nil, fmt.Errorf("formfill: clear profile: %w", err)
	}
	r.logger.InfoContext(ctx, "trigger: profile cleared", "entries", n)
	return &Response{Action: ActionClear, Status: "cleared", Count: n}, nil
}

func (r *Router) update(ctx context.Context, cmd Command) (*Response, error) {
	if err := r.store.Upsert(ctx, cmd.Entries); err != nil {
		return nil, fmt.Errorf("formfill: update profile: %w", err)
	}
	r.logger.InfoContext(ctx, "trigger: profile updated", "entries", len(cmd.Entries))
	return &Response{Action: ActionUpdate, Status: "updated", Count: int64(len(cmd.Entries))}, nil
}
