// Package profile holds the user's stored key/value fields and persists
// them in SQLite.
//
// A Profile is ordered: the engine tries keys in enumeration order and the
// first match wins, so the order the store yields is part of the matching
// behaviour.
package profile

import "strings"

// Entry is one stored field.
type Entry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Profile is the ordered set of stored fields. Keys are unique.
type Profile []Entry

// Keys returns the keys in enumeration order.
func (p Profile) Keys() []string {
	keys := make([]string, len(p))
	for i, e := range p {
		keys[i] = e.Key
	}
	return keys
}

// Merge returns p with entries upserted: existing keys keep their position
// and take the new value, new keys are appended in the given order. Blank
// keys are ignored.
func (p Profile) Merge(entries []Entry) Profile {
	out := append(Profile(nil), p...)
	idx := make(map[string]int, len(out))
	for i, e := range out {
		idx[e.Key] = i
	}
	for _, e := range entries {
		e.Key = strings.TrimSpace(e.Key)
		if e.Key == "" {
			continue
		}
		if i, ok := idx[e.Key]; ok {
			out[i].Value = e.Value
			continue
		}
		idx[e.Key] = len(out)
		out = append(out, e)
	}
	return out
}
