package registry

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/field"
)

var (
	noteType = domain.RecordType{Namespace: "notes", Model: "note"}
	bookType = domain.RecordType{Namespace: "library", Model: "book"}
)

func noteIndex(t *testing.T) *DeclaredIndex {
	t.Helper()
	idx, err := NewDeclaredIndex(Definition{
		Name:       "notes",
		ClassName:  "NoteIndex",
		RecordType: noteType,
		Fields: []FieldSource{
			{Declaration: field.Declaration{Name: "title", Kind: field.KindText, Stored: true}},
			{Declaration: field.Declaration{Name: "year", Kind: field.KindUint, Default: 2000}},
			{Declaration: field.Declaration{Name: "tags", Kind: field.KindLiteral, MultiValued: true, Faceted: true}, Source: "labels"},
		},
	})
	if err != nil {
		t.Fatalf("NewDeclaredIndex: %v", err)
	}
	return idx
}

func bookIndex(t *testing.T) *DeclaredIndex {
	t.Helper()
	idx, err := NewDeclaredIndex(Definition{Name: "books", RecordType: bookType, DomainName: "library"})
	if err != nil {
		t.Fatalf("NewDeclaredIndex: %v", err)
	}
	return idx
}

func TestNewDeclaredIndex_Defaults(t *testing.T) {
	idx := bookIndex(t)
	if idx.Namespace() != "library" || idx.ClassName() != "books" {
		t.Errorf("namespace/class = %q/%q", idx.Namespace(), idx.ClassName())
	}
	if idx.DomainName() != "library" {
		t.Errorf("DomainName = %q", idx.DomainName())
	}
}

func TestNewDeclaredIndex_Invalid(t *testing.T) {
	cases := map[string]Definition{
		"no name": {RecordType: noteType},
		"no type": {Name: "x"},
		"bad kind": {Name: "x", RecordType: noteType, Fields: []FieldSource{
			{Declaration: field.Declaration{Name: "when", Kind: "date"}},
		}},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewDeclaredIndex(def); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRegister_OneIndexPerType(t *testing.T) {
	r := New()
	if err := r.Register(noteIndex(t)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	dup, _ := NewDeclaredIndex(Definition{Name: "notes2", RecordType: noteType})
	if err := r.Register(dup); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("duplicate type: error = %v, want ErrConfiguration", err)
	}
	if err := r.Register(noteIndex(t)); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("duplicate name: error = %v, want ErrConfiguration", err)
	}
}

func TestRegistry_Lookups(t *testing.T) {
	r := New()
	notes, books := noteIndex(t), bookIndex(t)
	_ = r.Register(notes)
	_ = r.Register(books)

	if got := r.IndexedTypes(); !reflect.DeepEqual(got, []domain.RecordType{noteType, bookType}) {
		t.Errorf("IndexedTypes = %v", got)
	}
	if idx, err := r.ByName("books"); err != nil || idx != books {
		t.Errorf("ByName = %v, %v", idx, err)
	}
	if _, err := r.ByName("nope"); !errors.Is(err, domain.ErrIndexNotRegistered) {
		t.Errorf("ByName missing: %v", err)
	}
	if idx, err := r.ForType(noteType); err != nil || idx != notes {
		t.Errorf("ForType = %v, %v", idx, err)
	}
	if !r.IsIndexed(bookType) || r.IsIndexed(domain.RecordType{Namespace: "x", Model: "y"}) {
		t.Error("IsIndexed mismatch")
	}

	sel, err := r.Select([]string{"books", "notes"})
	if err != nil || len(sel) != 2 || sel[0] != books {
		t.Errorf("Select = %v, %v", sel, err)
	}
	all, _ := r.Select(nil)
	if len(all) != 2 || all[0] != notes {
		t.Errorf("Select(nil) = %v", all)
	}
}

func TestRegistry_ForRecord(t *testing.T) {
	r := New()
	_ = r.Register(noteIndex(t))
	_ = r.Register(bookIndex(t))

	idx, ref, err := r.ForRecord(&MapRecord{Type: bookType, PK: "9"})
	if err != nil {
		t.Fatalf("ForRecord: %v", err)
	}
	if idx.Name() != "books" || ref.Identifier() != "library.book.9" {
		t.Errorf("ForRecord = %s, %s", idx.Name(), ref.Identifier())
	}
	if _, _, err := r.ForRecord("not a record"); !errors.Is(err, domain.ErrIndexNotRegistered) {
		t.Errorf("foreign record: error = %v", err)
	}
}

func TestFullPrepare(t *testing.T) {
	idx := noteIndex(t)
	doc, err := idx.FullPrepare(MapRecord{Type: noteType, PK: "1", Values: map[string]string{
		"title":  "Hello",
		"labels": "go, search,",
	}})
	if err != nil {
		t.Fatalf("FullPrepare: %v", err)
	}
	if doc["title"] != "Hello" {
		t.Errorf("title = %v", doc["title"])
	}
	if doc["year"] != uint64(2000) {
		t.Errorf("year = %v (%T), want default 2000", doc["year"], doc["year"])
	}
	if !reflect.DeepEqual(doc["tags"], []any{"go", "search"}) {
		t.Errorf("tags = %v", doc["tags"])
	}
}

func TestFullPrepare_Errors(t *testing.T) {
	idx := noteIndex(t)
	if _, err := idx.FullPrepare(MapRecord{Type: noteType, PK: "1", Values: map[string]string{"year": "-3"}}); !errors.Is(err, domain.ErrInvalidFieldValue) {
		t.Errorf("negative uint: error = %v", err)
	}
	if _, err := idx.FullPrepare(MapRecord{Type: bookType, PK: "1"}); err == nil {
		t.Error("foreign type should fail")
	}
	if _, err := idx.FullPrepare(MapRecord{Type: noteType}); err == nil {
		t.Error("missing pk should fail")
	}
}
