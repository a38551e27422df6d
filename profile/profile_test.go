package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/formfill/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return &Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(Schema))}
}

func keys(p Profile) string { return strings.Join(p.Keys(), ",") }

func valueOf(p Profile, key string) string {
	for _, e := range p {
		if e.Key == key {
			return e.Value
		}
	}
	return ""
}

func TestStore_UpsertKeepsOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []Entry{{"email", "a@b.com"}, {"phone", "1"}, {"city", "Lyon"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, []Entry{{"phone", "2"}, {"zip", "69000"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	p, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, want := keys(p), "email,phone,city,zip"; got != want {
		t.Errorf("order: got %q, want %q", got, want)
	}
	if v := valueOf(p, "phone"); v != "2" {
		t.Errorf("phone: got %q, want %q", v, "2")
	}
}

func TestStore_Get(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, []Entry{{"email", "a@b.com"}}); err != nil {
		t.Fatal(err)
	}

	e, err := s.Get(ctx, "email")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil || e.Value != "a@b.com" {
		t.Errorf("get: got %+v", e)
	}

	missing, err := s.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("get missing: got %+v, want nil", missing)
	}
}

func TestStore_EmptyKey(t *testing.T) {
	s := testStore(t)
	if err := s.Upsert(context.Background(), []Entry{{"  ", "x"}}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("upsert blank key: got %v, want ErrEmptyKey", err)
	}
	if err := s.Replace(context.Background(), Profile{{"", "x"}}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("replace blank key: got %v, want ErrEmptyKey", err)
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, []Entry{{"a", "1"}, {"b", "2"}, {"c", "3"}}); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Delete(ctx, "b")
	if err != nil || !ok {
		t.Fatalf("delete b: ok=%v err=%v", ok, err)
	}
	ok, _ = s.Delete(ctx, "b")
	if ok {
		t.Error("delete b twice: want false")
	}

	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 2 {
		t.Errorf("clear: removed %d, want 2", n)
	}
	p, _ := s.Load(ctx)
	if len(p) != 0 {
		t.Errorf("after clear: got %d entries", len(p))
	}
}

func TestStore_Replace(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, []Entry{{"old", "x"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Replace(ctx, Profile{{"z", "1"}, {"a", "2"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	p, _ := s.Load(ctx)
	if got := keys(p); got != "z,a" {
		t.Errorf("replace order: got %q, want %q", got, "z,a")
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "formfill.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := s.Upsert(ctx, []Entry{{"email", "a@b.com"}}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	p, _ := s.Load(ctx)
	if len(p) != 1 {
		t.Errorf("reopen: got %d entries, want 1", len(p))
	}
}

func TestMerge(t *testing.T) {
	p := Profile{{"email", "a"}, {"phone", "1"}}
	got := p.Merge([]Entry{{"phone", "2"}, {" ", "skip"}, {"city", "Lyon"}})
	if keys(got) != "email,phone,city" {
		t.Errorf("Merge order: got %q", keys(got))
	}
	if v := valueOf(got, "phone"); v != "2" {
		t.Errorf("Merge value: got %q, want %q", v, "2")
	}
	if v := valueOf(p, "phone"); v != "1" {
		t.Error("Merge modified its receiver")
	}
}

func TestParse_Mapping(t *testing.T) {
	p, err := Parse(strings.NewReader("email: a@b.com\nzip: 69000\nphone: \"+33 1\"\nactive: true\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := keys(p); got != "email,zip,phone,active" {
		t.Errorf("order: got %q", got)
	}
	if v := valueOf(p, "zip"); v != "69000" {
		t.Errorf("zip: got %q", v)
	}
}

func TestParse_JSON(t *testing.T) {
	p, err := Parse(strings.NewReader(`{"z": "last", "a": "first"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := keys(p); got != "z,a" {
		t.Errorf("JSON order: got %q, want %q", got, "z,a")
	}
}

func TestParse_Sequence(t *testing.T) {
	src := "- key: email\n  value: a@b.com\n- key: city\n  value: Lyon\n"
	p, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := keys(p); got != "email,city" {
		t.Errorf("order: got %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	for name, src := range map[string]string{
		"nested":    "address:\n  street: x\n",
		"scalar":    "just a string\n",
		"duplicate": "- key: a\n  value: 1\n- key: a\n  value: 2\n",
		"empty key": "- key: \"\"\n  value: 1\n",
	} {
		if _, err := Parse(strings.NewReader(src)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParse_Empty(t *testing.T) {
	p, err := Parse(strings.NewReader(""))
	if err != nil || p != nil {
		t.Errorf("empty: got %v, %v", p, err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("email: a@b.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(p) != 1 || p[0].Key != "email" {
		t.Errorf("ParseFile: got %+v", p)
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}
}
