package profile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseFile reads a profile from a YAML or JSON file. See Parse.
func ParseFile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("profile: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a profile document. Two shapes are accepted, both keeping
// document order:
//
//	email: a@b.com          # a mapping
//	phone: "+33 1 23"
//
//	- key: email            # a sequence of entries
//	  value: a@b.com
//
// JSON objects and arrays parse the same way. Scalar values of any type are
// stored as their literal text.
func Parse(r io.Reader) (Profile, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile: parse: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var p Profile
	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			k, v := root.Content[i], root.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("profile: parse: line %d: value of %q is not a scalar", v.Line, k.Value)
			}
			p = append(p, Entry{Key: k.Value, Value: v.Value})
		}
	case yaml.SequenceNode:
		var entries []Entry
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("profile: parse: %w", err)
		}
		p = entries
	default:
		return nil, fmt.Errorf("profile: parse: line %d: expected a mapping or a list of entries", root.Line)
	}

	seen := make(map[string]bool, len(p))
	for _, e := range p {
		if e.Key == "" {
			return nil, ErrEmptyKey
		}
		if seen[e.Key] {
			return nil, fmt.Errorf("profile: parse: duplicate key %q", e.Key)
		}
		seen[e.Key] = true
	}
	return p, nil
}
