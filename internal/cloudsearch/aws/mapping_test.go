package aws

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cstypes "github.com/aws/aws-sdk-go-v2/service/cloudsearch/types"
	csd "github.com/aws/aws-sdk-go-v2/service/cloudsearchdomain"
	csdtypes "github.com/aws/aws-sdk-go-v2/service/cloudsearchdomain/types"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/field"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
)

func TestIndexField_RoundTrip(t *testing.T) {
	ideal, err := schema.Build([]field.Declaration{
		{Name: "title", Kind: field.KindText, Stored: true, Indexed: true},
		{Name: "year", Kind: field.KindUint, Default: 2000},
		{Name: "tag", Kind: field.KindLiteral, Faceted: true, Indexed: true, Default: "misc"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	live := make(schema.Schema, 0, len(ideal))
	for _, d := range ideal {
		f, err := toIndexField(d)
		if err != nil {
			t.Fatalf("toIndexField(%s): %v", d.Name, err)
		}
		back, ok := fromIndexField(f)
		if !ok {
			t.Fatalf("fromIndexField(%s) skipped", d.Name)
		}
		live = append(live, back)
	}
	if !schema.Equal(ideal, live) {
		t.Errorf("round trip drifted: %v", schema.Diff(ideal, live))
	}
}

func TestToIndexField_UintUsesIntType(t *testing.T) {
	def := "2000"
	f, err := toIndexField(schema.Descriptor{Name: "year", Type: field.TypeUint, Options: schema.Options{DefaultValue: &def}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(f.IndexFieldType) != "int" {
		t.Errorf("type = %q, want int", f.IndexFieldType)
	}
	if f.IntOptions == nil || aws.ToInt64(f.IntOptions.DefaultValue) != 2000 {
		t.Errorf("int options = %+v", f.IntOptions)
	}
}

func TestToIndexField_Rejects(t *testing.T) {
	neg := "-1"
	cases := map[string]schema.Descriptor{
		"faceted text":     {Name: "body", Type: field.TypeText, Options: schema.Options{FacetEnabled: true}},
		"negative default": {Name: "n", Type: field.TypeUint, Options: schema.Options{DefaultValue: &neg}},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := toIndexField(d)
			if !errors.Is(err, domain.ErrInvalidFieldConfiguration) {
				t.Errorf("error = %v, want ErrInvalidFieldConfiguration", err)
			}
		})
	}
	if _, err := toIndexField(schema.Descriptor{Name: "d", Type: "date"}); !errors.Is(err, domain.ErrUnsupportedFieldKind) {
		t.Errorf("error = %v, want ErrUnsupportedFieldKind", err)
	}
}

func TestFromIndexField_SkipsForeignTypes(t *testing.T) {
	_, ok := fromIndexField(&cstypes.IndexField{
		IndexFieldName: aws.String("loc"),
		IndexFieldType: cstypes.IndexFieldType("latlon"),
	})
	if ok {
		t.Error("latlon field should be skipped")
	}
}

func TestToDomainStatus(t *testing.T) {
	s := toDomainStatus(&cstypes.DomainStatus{
		DomainName:             aws.String("haystack-notes-noteindex"),
		Created:                aws.Bool(true),
		Processing:             aws.Bool(true),
		RequiresIndexDocuments: aws.Bool(false),
		DocService:             &cstypes.ServiceEndpoint{Endpoint: aws.String("doc-x.amazonaws.com")},
		SearchService:          &cstypes.ServiceEndpoint{Endpoint: aws.String("search-x.amazonaws.com")},
	})
	want := cloudsearch.DomainStatus{
		Name:           "haystack-notes-noteindex",
		Created:        true,
		Processing:     true,
		DocEndpoint:    "doc-x.amazonaws.com",
		SearchEndpoint: "search-x.amazonaws.com",
	}
	if s != want {
		t.Errorf("status = %+v, want %+v", s, want)
	}
}

func TestFacetParam(t *testing.T) {
	raw, err := facetParam([]cloudsearch.FacetRequest{
		{Field: "tag", Size: 5},
		{Field: "author", Constraints: []string{"ann"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]facetOptions
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("invalid facet json %s: %v", raw, err)
	}
	want := map[string]facetOptions{
		"tag":    {Sort: "count", Size: 5},
		"author": {Buckets: []string{"ann"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("facets = %+v, want %+v", got, want)
	}

	if empty, _ := facetParam(nil); empty != "" {
		t.Errorf("facetParam(nil) = %q", empty)
	}
}

func TestToSearchInput(t *testing.T) {
	in, err := toSearchInput(cloudsearch.Query{
		Query:        "star",
		Parser:       "simple",
		ReturnFields: []string{"title", "id"},
		Start:        10,
		Size:         5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(in.Query) != "star" || aws.ToString(in.Return) != "title,id" {
		t.Errorf("input = %+v", in)
	}
	if in.Start != 10 || in.Size != 5 || in.QueryParser != csdtypes.QueryParser("simple") {
		t.Errorf("paging/parser = %d %d %q", in.Start, in.Size, in.QueryParser)
	}
	if in.Facet != nil {
		t.Errorf("facet = %q, want nil", aws.ToString(in.Facet))
	}
}

func TestFromSearchOutput(t *testing.T) {
	resp := fromSearchOutput(&csd.SearchOutput{
		Hits: &csdtypes.Hits{
			Found: 12,
			Start: 2,
			Hit: []csdtypes.Hit{
				{Id: aws.String("notes__note__1"), Fields: map[string][]string{"title": {"a"}}},
			},
		},
		Facets: map[string]csdtypes.BucketInfo{
			"tag": {Buckets: []csdtypes.Bucket{{Value: aws.String("go"), Count: 3}}},
		},
	})
	if resp.Found != 12 || resp.Start == nil || *resp.Start != 2 {
		t.Errorf("found/start = %d/%v", resp.Found, resp.Start)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].ID != "notes__note__1" {
		t.Errorf("hits = %+v", resp.Hits)
	}
	if !reflect.DeepEqual(resp.Facets["tag"], []cloudsearch.Bucket{{Value: "go", Count: 3}}) {
		t.Errorf("facets = %+v", resp.Facets)
	}
}
