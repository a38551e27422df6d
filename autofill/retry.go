package autofill

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/formfill/dom"
	"github.com/hazyhaar/formfill/match"
	"github.com/hazyhaar/formfill/profile"
)

// retryState is the bounded state machine of one pass:
// awaiting -> succeeded | settled | exhausted.
type retryState struct {
	attempts int
	state    Outcome
	sub      dom.Subscription

	// handled holds every field already matched or counted as unmatched,
	// groups every radio group already filled. Both span attempts.
	handled map[dom.Element]bool
	groups  map[groupKey]bool
}

func newRetryState() *retryState {
	return &retryState{
		state:   OutcomeAwaiting,
		handled: make(map[dom.Element]bool),
		groups:  make(map[groupKey]bool),
	}
}

func (s *retryState) disconnect() {
	if s.sub != nil {
		s.sub.Disconnect()
		s.sub = nil
	}
}

// scanned is the outcome of one walk of one document.
type scanned struct {
	doc    dom.Document
	fields []Field
}

func total(found []scanned) int {
	n := 0
	for _, s := range found {
		n += len(s.fields)
	}
	return n
}

// retry fills whatever each attempt finds and keeps observing for fields
// still arriving. It stops once Threshold fields are present, when the
// document stays quiet for Settle, at the attempt cap or when ctx ends.
// The observer is attached before the first attempt so that mutations
// landing during it are not lost.
func (e *Engine) retry(ctx context.Context, log *slog.Logger, doc dom.Document, prof profile.Profile, res *Result) {
	st := newRetryState()
	defer func() {
		st.disconnect()
		res.Outcome = st.state
		res.Attempts = st.attempts
	}()

	sub, err := doc.Observe(ctx)
	if err != nil {
		log.Warn("autofill: observe failed, single attempt only", "error", err)
	}
	st.sub = sub

	found := e.scan(log, doc, res)
	e.fillNew(log, found, prof, res, st)

	quiet := time.NewTimer(e.cfg.Settle)
	defer quiet.Stop()
	for {
		if total(found) >= e.cfg.Threshold {
			st.end(log, OutcomeSucceeded, found)
			return
		}
		if st.sub == nil || st.attempts >= e.cfg.MaxAttempts {
			st.end(log, OutcomeExhausted, found)
			return
		}
		log.Debug("autofill: form not ready", "found", total(found), "attempts", st.attempts)

		select {
		case <-ctx.Done():
			st.end(log, OutcomeExhausted, found)
			return
		case <-quiet.C:
			st.end(log, OutcomeSettled, found)
			return
		case _, ok := <-st.sub.C():
			if !ok {
				st.end(log, OutcomeExhausted, found)
				return
			}
		}
		st.attempts++
		found = e.scan(log, doc, res)
		e.fillNew(log, found, prof, res, st)
		quiet.Reset(e.cfg.Settle)
	}
}

func (s *retryState) end(log *slog.Logger, state Outcome, found []scanned) {
	s.disconnect()
	s.state = state
	if state == OutcomeSucceeded {
		return
	}
	log.Info("autofill: form never became ready", "outcome", state, "found", total(found), "attempts", s.attempts)
}

type frameItem struct {
	doc   dom.Document
	depth int
}

// scan collects fillable fields from doc and, breadth first, from every
// accessible frame down to MaxFrameDepth. Frames are opened outside the
// parent's exclusive section.
func (e *Engine) scan(log *slog.Logger, doc dom.Document, res *Result) []scanned {
	res.Denied = nil
	var out []scanned
	queue := []frameItem{{doc: doc}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		var fields []Field
		var frames []dom.Frame
		err := it.doc.Exclusive(func() error {
			fields = collect(it.doc.Root())
			if e.cfg.Frames && it.depth < e.cfg.MaxFrameDepth {
				frames = it.doc.Frames()
			}
			return nil
		})
		if err != nil {
			log.Warn("autofill: walk failed", "document", it.doc.URL(), "error", err)
			continue
		}
		out = append(out, scanned{doc: it.doc, fields: fields})

		for _, f := range frames {
			child, ok, reason := f.Open()
			if !ok {
				d := &BoundaryDenied{Src: f.Src(), Reason: reason}
				res.Denied = append(res.Denied, d)
				log.Debug("autofill: skipped frame", "src", d.Src, "reason", d.Reason)
				continue
			}
			queue = append(queue, frameItem{doc: child, depth: it.depth + 1})
		}
	}
	res.Found = total(out)
	return out
}

// groupKey identifies a radio group across attempts. A nameless radio is
// its own group.
type groupKey struct {
	owner dom.Element
	name  string
	el    dom.Element
}

func radioKey(f Field) groupKey {
	g := groupKey{name: f.El.Attr("name")}
	if f.scope != nil {
		g.owner = f.scope.owner
	}
	if g.name == "" {
		g.el = f.El
	}
	return g
}

// fillNew labels, matches and fills the scanned fields no earlier attempt
// handled, one document at a time inside its exclusive section.
func (e *Engine) fillNew(log *slog.Logger, found []scanned, prof profile.Profile, res *Result, st *retryState) {
	keys := prof.Keys()
	for _, s := range found {
		url := s.doc.URL()
		err := s.doc.Exclusive(func() error {
			for _, f := range s.fields {
				if st.handled[f.El] {
					continue
				}
				st.handled[f.El] = true

				label := fieldLabel(f)
				i := match.FirstKey(label, keys)
				if i < 0 {
					res.Unmatched++
					log.Debug("autofill: no key for field", "label", label, "kind", f.Kind.String())
					continue
				}
				if f.Kind == KindRadio {
					g := radioKey(f)
					if st.groups[g] {
						continue
					}
					st.groups[g] = true
				}

				entry := prof[i]
				filled, err := fill(f, entry.Value)
				m := Match{Label: label, Key: entry.Key, Kind: f.Kind.String(), Document: url}
				switch {
				case err != nil:
					fe := &FieldFillError{Label: label, Key: entry.Key, Err: err}
					res.Errors = append(res.Errors, fe)
					log.Warn("autofill: fill failed", "label", label, "key", entry.Key, "error", err)
				case filled:
					m.Filled = true
					res.Filled++
					log.Info("autofill: autofilled", "label", label, "key", entry.Key, "kind", f.Kind.String())
				default:
					log.Debug("autofill: value not representable", "label", label, "key", entry.Key)
				}
				res.Matches = append(res.Matches, m)
			}
			return nil
		})
		if err != nil {
			log.Warn("autofill: fill pass failed", "document", url, "error", err)
		}
	}
}
