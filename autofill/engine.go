// Package autofill matches stored profile fields to the fields of an
// unknown form and fills them.
//
// A pass walks the document (and accessible frames), labels every fillable
// field, pairs each label with the first profile key that fuzzily matches
// it, and applies the value. Every attempt fills what it finds. When the
// form is not ready yet (fewer fields than the readiness threshold) the
// pass waits for tree mutations and fills the fields that arrive, up to a
// fixed number of attempts or until the document goes quiet.
//
//	eng := autofill.New(autofill.DefaultConfig(), logger)
//	res := eng.Run(ctx, doc, prof)
//	// res.Status is "completed" or "no-data"
package autofill

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/formfill/dom"
	"github.com/hazyhaar/formfill/idgen"
	"github.com/hazyhaar/formfill/profile"
)

// Config tunes the engine.
type Config struct {
	// Threshold is the number of fillable fields that makes a form ready.
	Threshold int
	// MaxAttempts caps the re-attempts triggered by mutations. The initial
	// attempt is not counted.
	MaxAttempts int
	// Settle ends a pass that has not reached Threshold once no mutation
	// arrived for this long.
	Settle time.Duration
	// Frames enables traversal of accessible frames.
	Frames bool
	// MaxFrameDepth bounds frame nesting; the top document is depth 0.
	MaxFrameDepth int
}

// DefaultConfig returns threshold 3, cap 10, settle 1s, frames on to
// depth 4.
func DefaultConfig() Config {
	return Config{
		Threshold:     3,
		MaxAttempts:   10,
		Settle:        time.Second,
		Frames:        true,
		MaxFrameDepth: 4,
	}
}

func (c *Config) defaults() {
	d := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.Settle <= 0 {
		c.Settle = d.Settle
	}
	if c.MaxFrameDepth < 0 {
		c.MaxFrameDepth = 0
	}
}

// Engine runs autofill passes. It is safe for concurrent use; passes on the
// same document are serialized.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	newID  idgen.Generator

	mu    sync.Mutex
	locks map[dom.Document]*docLock
}

type docLock struct {
	sem  chan struct{}
	refs int
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets the generator for pass IDs.
func WithIDGenerator(g idgen.Generator) Option { return func(e *Engine) { e.newID = g } }

// New creates an Engine. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:    cfg,
		logger: logger,
		newID:  idgen.Pass,
		locks:  make(map[dom.Document]*docLock),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Pass is a running autofill pass.
type Pass struct {
	ID   string
	done chan Result
}

// Done delivers the terminal Result exactly once.
func (p *Pass) Done() <-chan Result { return p.done }

// Start begins a pass on doc with the given profile and returns at once.
// The profile is read in full here; later edits do not affect the pass.
func (e *Engine) Start(ctx context.Context, doc dom.Document, prof profile.Profile) *Pass {
	p := &Pass{ID: e.newID(), done: make(chan Result, 1)}
	prof = append(profile.Profile(nil), prof...)
	go func() {
		p.done <- e.run(ctx, p.ID, doc, prof)
	}()
	return p
}

// Run is Start followed by waiting for the Result.
func (e *Engine) Run(ctx context.Context, doc dom.Document, prof profile.Profile) Result {
	return <-e.Start(ctx, doc, prof).Done()
}

func (e *Engine) run(ctx context.Context, id string, doc dom.Document, prof profile.Profile) Result {
	start := time.Now()
	res := Result{ID: id, Status: StatusCompleted}
	log := e.logger.With("pass", id, "url", doc.URL())

	if len(prof) == 0 {
		res.Status = StatusNoData
		log.Info("autofill: no profile data")
		return res
	}

	if !e.lock(ctx, doc) {
		res.Outcome = OutcomeExhausted
		res.Duration = time.Since(start)
		log.Warn("autofill: gave up waiting for a running pass", "error", ctx.Err())
		return res
	}
	defer e.unlock(doc)

	e.retry(ctx, log, doc, prof, &res)
	res.Duration = time.Since(start)
	log.Info("autofill: pass finished",
		"outcome", res.Outcome,
		"attempts", res.Attempts,
		"found", res.Found,
		"filled", res.Filled,
		"unmatched", res.Unmatched,
		"errors", len(res.Errors),
		"denied", len(res.Denied),
	)
	return res
}

// lock acquires the per-document semaphore, or gives up when ctx ends.
func (e *Engine) lock(ctx context.Context, doc dom.Document) bool {
	e.mu.Lock()
	l, ok := e.locks[doc]
	if !ok {
		l = &docLock{sem: make(chan struct{}, 1)}
		e.locks[doc] = l
	}
	l.refs++
	e.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		e.release(doc, l)
		return false
	}
}

func (e *Engine) unlock(doc dom.Document) {
	e.mu.Lock()
	l := e.locks[doc]
	e.mu.Unlock()
	<-l.sem
	e.release(doc, l)
}

func (e *Engine) release(doc dom.Document, l *docLock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(e.locks, doc)
	}
}
