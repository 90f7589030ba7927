package csindex

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain/field"
)

type Note struct {
	ID     string   `csindex:",pk"`
	Title  string   `csindex:"title,stored"`
	Year   uint     `csindex:"year,stored,default=2000"`
	Tags   []string `csindex:"tags,faceted"`
	Author string   `csindex:"author,literal,noindex,stored"`
	Draft  bool
}

type Book struct {
	ISBN  int64 `csindex:"isbn,pk"`
	Pages int   `csindex:"pages,stored"`
}

type noPK struct {
	Title string `csindex:"title"`
}

type storedFacet struct {
	ID  string `csindex:",pk"`
	Tag string `csindex:"tag,literal,stored,faceted"`
}

type badOption struct {
	ID  string `csindex:",pk"`
	Tag string `csindex:"tag,sortable"`
}

type floatField struct {
	ID    string  `csindex:",pk"`
	Score float64 `csindex:"score"`
}

func TestNewIndex_Defaults(t *testing.T) {
	idx, err := NewIndex[Note](nil, "Notes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Name() != "notes.note" || idx.ClassName() != "NoteIndex" || idx.Namespace() != "notes" {
		t.Errorf("name/class/namespace = %q/%q/%q", idx.Name(), idx.ClassName(), idx.Namespace())
	}
	if idx.RecordType() != (RecordType{Namespace: "notes", Model: "note"}) {
		t.Errorf("record type = %v", idx.RecordType())
	}
}

func TestNewIndex_Options(t *testing.T) {
	idx, err := NewIndex[Book](nil, "library",
		WithIndexName("books"), WithModel("volume"), WithClassName("Catalog"), WithDomainName("shelf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Name() != "books" || idx.ClassName() != "Catalog" || idx.DomainName() != "shelf" {
		t.Errorf("index = %+v", idx)
	}
	if idx.RecordType().String() != "library.volume" {
		t.Errorf("record type = %s", idx.RecordType())
	}
}

func TestNewIndex_Fields(t *testing.T) {
	idx, err := NewIndex[Note](nil, "notes")
	if err != nil {
		t.Fatal(err)
	}
	want := []field.Declaration{
		{Name: "title", Kind: field.KindText, Stored: true, Indexed: true},
		{Name: "year", Kind: field.KindUint, Stored: true, Indexed: true, Default: "2000"},
		{Name: "tags", Kind: field.KindLiteral, Faceted: true, Indexed: true, MultiValued: true},
		{Name: "author", Kind: field.KindLiteral, Stored: true},
	}
	if got := idx.Fields(); !reflect.DeepEqual(got, want) {
		t.Errorf("fields =\n%+v\nwant\n%+v", got, want)
	}
}

func TestNewIndex_Invalid(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{"no pk", func() error { _, err := NewIndex[noPK](nil, "x"); return err }, nil},
		{"non-struct", func() error { _, err := NewIndex[int](nil, "x"); return err }, nil},
		{"stored and faceted", func() error { _, err := NewIndex[storedFacet](nil, "x"); return err }, ErrInvalidFieldConfiguration},
		{"unknown option", func() error { _, err := NewIndex[badOption](nil, "x"); return err }, nil},
		{"uninferable kind", func() error { _, err := NewIndex[floatField](nil, "x"); return err }, ErrUnsupportedFieldKind},
		{"empty namespace", func() error { _, err := NewIndex[Note](nil, ""); return err }, ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTypedIndex_FullPrepare(t *testing.T) {
	idx, err := NewIndex[Note](nil, "notes")
	if err != nil {
		t.Fatal(err)
	}

	doc, err := idx.FullPrepare(&Note{ID: "1", Title: "Hello", Tags: []string{"go", "search"}})
	if err != nil {
		t.Fatalf("FullPrepare: %v", err)
	}
	if doc["title"] != "Hello" {
		t.Errorf("title = %v", doc["title"])
	}
	if doc["year"] != uint64(2000) {
		t.Errorf("year = %v (%T), want default", doc["year"], doc["year"])
	}
	if !reflect.DeepEqual(doc["tags"], []any{"go", "search"}) {
		t.Errorf("tags = %v", doc["tags"])
	}
	if _, ok := doc["Draft"]; ok {
		t.Error("untagged fields must not be indexed")
	}

	ref, ok := idx.RecordRef(Note{ID: "7"})
	if !ok || ref.Identifier() != "notes.note.7" {
		t.Errorf("RecordRef = %v, %v", ref, ok)
	}
	if _, ok := idx.RecordRef(Book{}); ok {
		t.Error("foreign record should not match")
	}
}

func TestTypedIndex_FullPrepareErrors(t *testing.T) {
	notes, _ := NewIndex[Note](nil, "notes")
	if _, err := notes.FullPrepare(Note{}); err == nil {
		t.Error("missing pk should fail")
	}
	if _, err := notes.FullPrepare("nope"); !errors.Is(err, ErrIndexNotRegistered) {
		t.Errorf("foreign record: error = %v", err)
	}

	books, _ := NewIndex[Book](nil, "library")
	if _, err := books.FullPrepare(Book{ISBN: 1, Pages: -3}); !errors.Is(err, ErrInvalidFieldValue) {
		t.Errorf("negative uint: error = %v", err)
	}
}

func TestSearchBuilder_Chaining(t *testing.T) {
	idx, err := NewIndex[Note](nil, "notes")
	if err != nil {
		t.Fatal(err)
	}
	b := idx.Search().
		Query("hello").
		Parser(ParserLucene).
		Return("title").
		Facet("tags", 5).
		Constrain("tags", "go").
		Start(10).
		Limit(20)

	if b.q != "hello" || b.opts.Parser != ParserLucene || b.opts.Start != 10 || b.opts.Size != 20 {
		t.Errorf("builder = %+v", b)
	}
	if b.opts.FacetTopN["tags"] != 5 || len(b.opts.FacetConstraints["tags"]) != 1 {
		t.Errorf("facets = %+v", b.opts)
	}
}

func TestTypedIndex_UpdateAndSearch(t *testing.T) {
	c, remote := newTestClient(t)
	idx, err := NewIndex[Note](c, "notes")
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	ctx := context.Background()

	report, err := idx.Update(ctx, []Note{{ID: "1", Title: "Hello", Year: 1999}}, false)
	if err != nil || report.Prepared != 1 {
		t.Fatalf("Update = %+v, %v", report, err)
	}
	if _, err := c.IndexEvent(ctx, idx.Name()); err != nil {
		t.Fatalf("IndexEvent: %v", err)
	}

	domainName, _ := c.DomainName(idx)
	remote.SetSearchResponse(domainName, cloudsearch.SearchResponse{
		Found: 1,
		Hits: []cloudsearch.Hit{{ID: "notes__note__1", Fields: map[string][]string{
			"record_type": {"notes.note"},
			"record_id":   {"1"},
			"title":       {"Hello"},
			"year":        {"1999"},
			"tags":        {"go", "search"},
		}}},
	})

	page, err := idx.Search().Query("hello").Do(ctx)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if page.Total != 1 || len(page.Hits) != 1 {
		t.Fatalf("page = %+v", page)
	}
	want := Note{ID: "1", Title: "Hello", Year: 1999, Tags: []string{"go", "search"}}
	if got := page.Hits[0]; !reflect.DeepEqual(got.Item, want) || got.Score != 1 {
		t.Errorf("hit = %+v", got)
	}
	if q := remote.Searches[0].Query; q.Query != "hello" {
		t.Errorf("query = %+v", q)
	}

	if err := idx.Remove(ctx, want); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestTypedIndex_NilRecord(t *testing.T) {
	c, remote := newTestClient(t)
	idx, err := NewIndex[Note](c, "notes")
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	ctx := context.Background()

	if _, ok := idx.RecordRef(nil); ok {
		t.Error("nil record should not resolve")
	}
	if _, err := idx.FullPrepare(nil); !errors.Is(err, ErrIndexNotRegistered) {
		t.Errorf("FullPrepare(nil): error = %v", err)
	}
	if err := c.RemoveRecord(ctx, nil); !errors.Is(err, ErrIndexNotRegistered) {
		t.Errorf("RemoveRecord(nil): error = %v", err)
	}
	if _, err := c.Update(ctx, idx.Name(), []any{nil}, false); !errors.Is(err, ErrPreparation) {
		t.Errorf("Update with nil record: error = %v", err)
	}
	if n := remote.Count(cloudsearch.OpUploadDocuments); n != 0 {
		t.Errorf("uploads = %d, want 0", n)
	}
}

func TestTypedIndex_WithoutClient(t *testing.T) {
	idx, err := NewIndex[Note](nil, "notes")
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	ctx := context.Background()

	if _, err := idx.Update(ctx, []Note{{ID: "1"}}, false); !errors.Is(err, ErrIndexNotRegistered) {
		t.Errorf("Update: error = %v", err)
	}
	if err := idx.Remove(ctx, Note{ID: "1"}); !errors.Is(err, ErrIndexNotRegistered) {
		t.Errorf("Remove: error = %v", err)
	}
	if _, err := idx.Search().Query("x").Do(ctx); !errors.Is(err, ErrIndexNotRegistered) {
		t.Errorf("Search: error = %v", err)
	}
}
