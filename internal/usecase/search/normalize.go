package search

import (
	"fmt"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/field"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
	"github.com/kailas-cloud/csindex/internal/domain/search/result"
)

// normalize turns one domain's raw page into results. The score is the
// domain's hit count minus the hit's absolute offset. Hits whose type tag is
// not an indexed record type are dropped.
func (s *Service) normalize(raw cloudsearch.SearchResponse) (result.Response, error) {
	resp := result.Response{
		Results: make([]result.Result, 0, len(raw.Hits)),
		Hits:    raw.Found,
		Facets:  make(map[string][]result.FacetCount, len(raw.Facets)),
	}

	var offset int64
	if raw.Start != nil {
		offset = *raw.Start
	}
	for i, hit := range raw.Hits {
		r, ok, err := s.reconstruct(hit, raw.Found-(offset+int64(i)))
		if err != nil {
			return result.Response{}, err
		}
		if ok {
			resp.Results = append(resp.Results, r)
		}
	}

	for name, buckets := range raw.Facets {
		counts := make([]result.FacetCount, len(buckets))
		for i, b := range buckets {
			counts[i] = result.FacetCount{Value: b.Value, Count: b.Count}
		}
		resp.Facets[name] = counts
	}
	return resp, nil
}

func first(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (s *Service) reconstruct(hit cloudsearch.Hit, score int64) (result.Result, bool, error) {
	tag, ok := first(hit.Fields[schema.FieldRecordType])
	if !ok {
		return result.Result{}, false, nil
	}
	rt, err := domain.ParseRecordType(tag)
	if err != nil {
		return result.Result{}, false, nil
	}
	idx, err := s.reg.ForType(rt)
	if err != nil {
		return result.Result{}, false, nil
	}
	pk, _ := first(hit.Fields[schema.FieldRecordID])

	decls := make(map[string]field.Declaration)
	for _, d := range idx.Fields() {
		decls[d.Name] = d
	}

	fields := make(map[string]any, len(hit.Fields))
	for name, values := range hit.Fields {
		if name == schema.FieldRecordType || name == schema.FieldRecordID {
			continue
		}
		decl, declared := decls[name]
		if !declared {
			v, _ := first(values)
			fields[name] = v
			continue
		}
		v, err := decodeValues(decl, values)
		if err != nil {
			return result.Result{}, false, fmt.Errorf("record %s.%s field %s: %w", tag, pk, name, err)
		}
		fields[name] = v
	}

	return result.Result{RecordType: rt, PK: pk, Score: score, Fields: fields}, true, nil
}

// decodeValues applies the field decoder: every value for multi-valued
// fields, the first value otherwise. No values decode to nil.
func decodeValues(decl field.Declaration, values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if !decl.MultiValued {
		return decl.Decode(values[0])
	}
	out := make([]any, 0, len(values))
	for _, raw := range values {
		v, err := decl.Decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
