package naming

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/csindex/internal/domain"
)

type stubIndex struct {
	name, namespace, class, override string
}

func (s *stubIndex) Name() string       { return s.name }
func (s *stubIndex) Namespace() string  { return s.namespace }
func (s *stubIndex) ClassName() string  { return s.class }
func (s *stubIndex) DomainName() string { return s.override }

func TestDerive(t *testing.T) {
	tests := []struct {
		idx  stubIndex
		want string
	}{
		{stubIndex{name: "notes", namespace: "Notes", class: "NoteIndex"}, "haystack-notes-noteindex"},
		{stubIndex{name: "notes", namespace: "notes", class: "__Private_"}, "haystack-notes-private"},
		{stubIndex{name: "notes", namespace: "notes", class: "NoteIndex", override: "my-notes"}, "haystack-my-notes"},
	}
	for _, tt := range tests {
		if got := Derive("haystack", &tt.idx); got != tt.want {
			t.Errorf("Derive(%+v) = %q, want %q", tt.idx, got, tt.want)
		}
	}
}

func TestNameFor_Memoized(t *testing.T) {
	n := New("", false, nil)
	idx := &stubIndex{name: "notes", namespace: "notes", class: "NoteIndex"}

	first, err := n.NameFor(idx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "haystack-notes-noteindex" {
		t.Errorf("NameFor = %q", first)
	}

	idx.override = "renamed"
	second, _ := n.NameFor(idx)
	if second != first {
		t.Errorf("late override took effect: %q", second)
	}

	fresh := New("", false, nil)
	if got, _ := fresh.NameFor(idx); got != "haystack-renamed" {
		t.Errorf("new namer = %q, want haystack-renamed", got)
	}
}

func TestNameFor_Strict(t *testing.T) {
	idx := &stubIndex{name: "x", namespace: "some_app", class: "AVeryLongIndexClassNameIndeed"}

	lenient := New("haystack", false, nil)
	if _, err := lenient.NameFor(idx); err != nil {
		t.Errorf("lenient namer should only warn, got %v", err)
	}

	strict := New("haystack", true, nil)
	if _, err := strict.NameFor(idx); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("strict namer error = %v, want ErrConfiguration", err)
	}
}

func TestValidate(t *testing.T) {
	for _, ok := range []string{"abc", "haystack-notes-note", "a1-b2"} {
		if err := Validate(ok); err != nil {
			t.Errorf("Validate(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"ab", "1abc", "Upper", "has_underscore", "abcdefghijklmnopqrstuvwxyz0123"} {
		if err := Validate(bad); err == nil {
			t.Errorf("Validate(%q) should fail", bad)
		}
	}
}

func TestOwns(t *testing.T) {
	n := New("haystack", false, nil)
	if !n.Owns("haystack-notes-note") || n.Owns("other-notes") || n.Owns("haystackx-a") {
		t.Error("Owns mismatch")
	}
}
