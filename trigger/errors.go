package trigger

import (
	"errors"
	"fmt"
)

// ErrNoTarget is returned by an autofill command with neither URL nor HTML.
var ErrNoTarget = errors.New("trigger: autofill needs a url or html")

// ErrNoBrowser is returned when a URL is given but no page opener is
// configured.
var ErrNoBrowser = errors.New("trigger: no browser configured")

// ErrKeyNotFound is returned when a profile key is not stored.
var ErrKeyNotFound = errors.New("trigger: profile key not found")

// ErrUnknownAction is returned when Call targets an action with no handler.
type ErrUnknownAction struct {
	Action Action
}

func (e *ErrUnknownAction) Error() string {
	return fmt.Sprintf("trigger: unknown action: %q", e.Action)
}
