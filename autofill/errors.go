package autofill

import (
	"encoding/json"
	"fmt"
)

// BoundaryDenied records a frame whose content could not be reached.
// The frame is skipped and traversal continues.
type BoundaryDenied struct {
	Src    string `json:"src"`
	Reason string `json:"reason"`
}

func (e *BoundaryDenied) Error() string {
	return fmt.Sprintf("autofill: frame %s not accessible: %s", e.Src, e.Reason)
}

// FieldFillError records a failure while applying a value to one field.
// The field is left unfilled and the pass continues.
type FieldFillError struct {
	Label string
	Key   string
	Err   error
}

func (e *FieldFillError) Error() string {
	return fmt.Sprintf("autofill: fill [%s] from key %q: %v", e.Label, e.Key, e.Err)
}

func (e *FieldFillError) Unwrap() error { return e.Err }

func (e *FieldFillError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(map[string]string{"label": e.Label, "key": e.Key, "error": msg})
}
