package autofill

import (
	"time"

	"github.com/hazyhaar/formfill/dom"
)

// Kind selects how a value is applied to a field.
type Kind int

const (
	KindText Kind = iota
	KindSelect
	KindRadio
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindRadio:
		return "radio"
	default:
		return "text"
	}
}

// Field is a fillable element found by the walker.
type Field struct {
	El    dom.Element
	Kind  Kind
	scope *scope
}

// Status is the terminal answer of a pass, reported to the trigger.
type Status string

const (
	// StatusCompleted means a pass ran against a non-empty profile.
	StatusCompleted Status = "completed"
	// StatusNoData means the profile was empty; nothing was traversed.
	StatusNoData Status = "no-data"
)

// Outcome is the state of the retry machine when the pass ended.
type Outcome string

const (
	OutcomeAwaiting  Outcome = "awaiting"
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeSettled means no mutation arrived for Config.Settle before
	// the threshold was reached. Fields found so far were filled.
	OutcomeSettled   Outcome = "settled"
	OutcomeExhausted Outcome = "exhausted"
)

// Match is the outcome for one field the matcher paired with a key.
type Match struct {
	Label  string `json:"label"`
	Key    string `json:"key"`
	Kind   string `json:"kind"`
	Filled bool   `json:"filled"`
	// Document is the URL of the document or frame holding the field.
	Document string `json:"document,omitempty"`
}

// Result is the single report of a pass.
type Result struct {
	ID       string  `json:"id"`
	Status   Status  `json:"status"`
	Outcome  Outcome `json:"outcome,omitempty"`
	Attempts int     `json:"attempts"`
	// Found is the number of fillable fields seen by the last attempt.
	Found     int               `json:"found"`
	Filled    int               `json:"filled"`
	Unmatched int               `json:"unmatched"`
	Matches   []Match           `json:"matches,omitempty"`
	Denied    []*BoundaryDenied `json:"denied,omitempty"`
	Errors    []*FieldFillError `json:"errors,omitempty"`
	Duration  time.Duration     `json:"duration_ns"`
}
