package lifecycle

import (
	"context"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/registry"
	"github.com/kailas-cloud/csindex/internal/usecase/naming"
)

// Registry resolves index and record type selectors.
type Registry interface {
	Indexes() []registry.Index
	Select(names []string) ([]registry.Index, error)
	ForType(t domain.RecordType) (registry.Index, error)
}

// Namer resolves domain names.
type Namer interface {
	NameFor(idx naming.Index) (string, error)
}

// Reconciler rebuilds schemas after domains are cleared.
type Reconciler interface {
	Invalidate()
	Run(ctx context.Context) error
}

// Remote is the CloudSearch subset the lifecycle manager drives.
type Remote interface {
	DescribeDomain(ctx context.Context, name string) (cloudsearch.DomainStatus, error)
	ListDomainNames(ctx context.Context) ([]string, error)
	DeleteDomain(ctx context.Context, name string) error
	IndexDocuments(ctx context.Context, name string) ([]string, error)
	DescribeAccessPolicy(ctx context.Context, domainName string) (string, error)
	UpdateAccessPolicy(ctx context.Context, domainName, policy string) error
}
