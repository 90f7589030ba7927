package csindex

import (
	"context"
	"fmt"
)

// Hit is a typed search result.
type Hit[T any] struct {
	Item T
	// Score ranks hits within this index's page; higher is better.
	Score int64
}

// Page is one page of typed results.
type Page[T any] struct {
	Hits []Hit[T]
	// Total is the number of matches in the domain.
	Total  int64
	Facets map[string][]FacetCount
}

// SearchBuilder is a fluent builder for typed search queries.
type SearchBuilder[T any] struct {
	idx  *TypedIndex[T]
	q    string
	opts SearchOptions
}

// Query sets the query string.
func (b *SearchBuilder[T]) Query(q string) *SearchBuilder[T] {
	b.q = q
	return b
}

// Parser sets the query parser (default simple).
func (b *SearchBuilder[T]) Parser(p Parser) *SearchBuilder[T] {
	b.opts.Parser = p
	return b
}

// Return limits the returned fields.
func (b *SearchBuilder[T]) Return(fields ...string) *SearchBuilder[T] {
	b.opts.ReturnFields = append(b.opts.ReturnFields, fields...)
	return b
}

// Facet requests buckets for a faceted field. topN <= 0 keeps the default.
func (b *SearchBuilder[T]) Facet(name string, topN int) *SearchBuilder[T] {
	b.opts.Facets = append(b.opts.Facets, name)
	if topN > 0 {
		if b.opts.FacetTopN == nil {
			b.opts.FacetTopN = make(map[string]int)
		}
		b.opts.FacetTopN[name] = topN
	}
	return b
}

// Constrain restricts a facet's buckets to values.
func (b *SearchBuilder[T]) Constrain(name string, values ...string) *SearchBuilder[T] {
	if b.opts.FacetConstraints == nil {
		b.opts.FacetConstraints = make(map[string][]string)
	}
	b.opts.FacetConstraints[name] = append(b.opts.FacetConstraints[name], values...)
	return b
}

// Start sets the offset of the first hit.
func (b *SearchBuilder[T]) Start(n int) *SearchBuilder[T] {
	b.opts.Start = n
	return b
}

// Limit sets the page size.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	b.opts.Size = n
	return b
}

// Do executes the search and returns typed results.
func (b *SearchBuilder[T]) Do(ctx context.Context) (Page[T], error) {
	if err := b.idx.registered(); err != nil {
		return Page[T]{}, err
	}
	opts := b.opts
	opts.Indexes = []string{b.idx.name}

	resp, err := b.idx.client.Search(ctx, b.q, opts)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Hits: make([]Hit[T], 0, len(resp.Results)), Total: resp.Hits, Facets: resp.Facets}
	for _, r := range resp.Results {
		if r.RecordType != b.idx.recordType {
			continue
		}
		v, err := b.idx.meta.fromResult(r)
		if err != nil {
			return Page[T]{}, fmt.Errorf("decode %s: %w", r.Ref().Identifier(), err)
		}
		item, ok := v.Interface().(T)
		if !ok {
			// T is a pointer type.
			ptr, _ := v.Addr().Interface().(T)
			item = ptr
		}
		page.Hits = append(page.Hits, Hit[T]{Item: item, Score: r.Score})
	}
	return page, nil
}
