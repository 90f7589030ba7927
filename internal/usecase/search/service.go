package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
	"github.com/kailas-cloud/csindex/internal/domain/search/request"
	"github.com/kailas-cloud/csindex/internal/domain/search/result"
	"github.com/kailas-cloud/csindex/internal/metrics"
	"github.com/kailas-cloud/csindex/internal/registry"
)

// Service fans a query out to every domain in scope and merges the responses.
type Service struct {
	reg        Registry
	namer      Namer
	reconciler Reconciler
	remote     Remote
	parallel   bool
	logger     *zap.Logger
}

// New creates a search service. With parallel set, domains are queried
// concurrently; merge order stays the index order.
func New(reg Registry, namer Namer, reconciler Reconciler, remote Remote, parallel bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reg: reg, namer: namer, reconciler: reconciler, remote: remote, parallel: parallel, logger: logger}
}

// Search runs req against every index in scope. An empty query returns an
// empty response without touching the remote service.
func (s *Service) Search(ctx context.Context, req request.Request) (result.Response, error) {
	if req.IsEmpty() {
		return result.Empty(), nil
	}
	if err := s.reconciler.Ensure(ctx); err != nil {
		return result.Response{}, fmt.Errorf("setup before search: %w", err)
	}

	indexes, err := s.reg.Select(req.Indexes())
	if err != nil {
		return result.Response{}, fmt.Errorf("select indexes: %w", err)
	}

	parts := make([]result.Response, len(indexes))
	if s.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, idx := range indexes {
			g.Go(func() error {
				r, err := s.searchIndex(gctx, idx, req)
				parts[i] = r
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return result.Response{}, err
		}
	} else {
		for i, idx := range indexes {
			r, err := s.searchIndex(ctx, idx, req)
			if err != nil {
				return result.Response{}, err
			}
			parts[i] = r
		}
	}

	merged := result.Merge(parts...)
	metrics.SearchHits.Observe(float64(merged.Hits))
	return merged, nil
}

// searchIndex queries one index's domain and normalizes its response.
func (s *Service) searchIndex(ctx context.Context, idx registry.Index, req request.Request) (result.Response, error) {
	name, err := s.namer.NameFor(idx)
	if err != nil {
		return result.Response{}, err
	}

	status, err := s.remote.DescribeDomain(ctx, name)
	if err != nil {
		return result.Response{}, &domain.DomainError{Op: "search", Domain: name, Err: err}
	}
	switch {
	case status.Processing:
		return result.Response{}, &domain.TransientStateError{Domain: name, State: domain.ErrDomainProcessing}
	case status.RequiresIndexDocuments:
		return result.Response{}, &domain.TransientStateError{Domain: name, State: domain.ErrNeedsIndexing}
	}

	ideal, err := schema.Build(idx.Fields())
	if err != nil {
		return result.Response{}, fmt.Errorf("index %s: %w", idx.Name(), err)
	}

	q := cloudsearch.Query{
		Query:        req.Query(),
		Parser:       string(req.Parser()),
		ReturnFields: req.ReturnFields(ideal.Names(), schema.InternalFieldNames()),
		Start:        req.Start(),
		Size:         req.Size(),
	}
	for _, f := range req.Facets() {
		q.Facets = append(q.Facets, cloudsearch.FacetRequest{Field: f.Field, Size: f.TopN, Constraints: f.Constraints})
	}

	raw, err := s.remote.Search(ctx, status.SearchEndpoint, q)
	if err != nil {
		return result.Response{}, &domain.DomainError{Op: "search", Domain: name, Err: err}
	}

	resp, err := s.normalize(raw)
	if err != nil {
		return result.Response{}, &domain.DomainError{Op: "search", Domain: name, Err: err}
	}
	s.logger.Debug("searched domain",
		zap.String("domain", name),
		zap.Int64("hits", resp.Hits),
		zap.Int("results", len(resp.Results)),
	)
	return resp, nil
}
