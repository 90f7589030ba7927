package result

import "github.com/kailas-cloud/csindex/internal/domain"

// Result is a single reconstructed search hit.
type Result struct {
	RecordType domain.RecordType
	PK         string
	// Score is a rank surrogate (domain hits minus absolute offset), comparable
	// only within one domain's page.
	Score int64
	// Fields holds every other returned field, decoded where the field has a decoder.
	Fields map[string]any
}

// Ref returns the record reference the result points at.
func (r Result) Ref() domain.RecordRef {
	return domain.RecordRef{Type: r.RecordType, PK: r.PK}
}

// FacetCount is one facet bucket.
type FacetCount struct {
	Value string
	Count int64
}

// Response is a merged search response.
type Response struct {
	Results []Result
	Hits    int64
	Facets  map[string][]FacetCount
}

// Empty returns the response for a query with nothing to search.
func Empty() Response {
	return Response{Results: []Result{}, Facets: map[string][]FacetCount{}}
}

// Merge combines per-domain responses in the given order: results are
// concatenated without re-ranking, hits summed, and facet fields with the same
// name are taken from the last response that has them.
func Merge(parts ...Response) Response {
	out := Empty()
	for _, p := range parts {
		out.Results = append(out.Results, p.Results...)
		out.Hits += p.Hits
		for name, buckets := range p.Facets {
			out.Facets[name] = buckets
		}
	}
	return out
}
