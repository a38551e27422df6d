package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if parts := strings.Split(id, "-"); len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
	if id[14] != '7' {
		t.Errorf("UUIDv7: version nibble got %q, want '7'", id[14])
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id <= prev {
			t.Fatalf("UUIDv7: %q not after %q", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("pass_", UUIDv7())()
	if !strings.HasPrefix(id, "pass_") {
		t.Fatalf("Prefixed: %q lacks prefix", id)
	}
	if _, err := Parse(strings.TrimPrefix(id, "pass_")); err != nil {
		t.Errorf("Parse(%q): %v", id, err)
	}
}

func TestPass(t *testing.T) {
	if id := Pass(); !strings.HasPrefix(id, "pass_") {
		t.Errorf("Pass: got %q, want pass_ prefix", id)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("Parse: expected error for invalid input")
	}
}

func TestNew_UsesDefault(t *testing.T) {
	old := Default
	defer func() { Default = old }()
	Default = func() string { return "fixed" }
	if got := New(); got != "fixed" {
		t.Errorf("New: got %q, want %q", got, "fixed")
	}
}
