package search

import (
	"context"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/registry"
	"github.com/kailas-cloud/csindex/internal/usecase/naming"
)

// Registry resolves the indexes in scope and the record types of results.
type Registry interface {
	Select(names []string) ([]registry.Index, error)
	ForType(t domain.RecordType) (registry.Index, error)
}

// Namer resolves domain names.
type Namer interface {
	NameFor(idx naming.Index) (string, error)
}

// Reconciler makes sure domains exist with the right schema.
type Reconciler interface {
	Ensure(ctx context.Context) error
}

// Remote is the CloudSearch subset the aggregator queries.
type Remote interface {
	DescribeDomain(ctx context.Context, name string) (cloudsearch.DomainStatus, error)
	Search(ctx context.Context, endpoint string, q cloudsearch.Query) (cloudsearch.SearchResponse, error)
}
