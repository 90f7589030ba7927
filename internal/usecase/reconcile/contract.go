package reconcile

import (
	"context"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
	"github.com/kailas-cloud/csindex/internal/registry"
	"github.com/kailas-cloud/csindex/internal/usecase/naming"
)

// Registry enumerates the indexes in scope.
type Registry interface {
	Indexes() []registry.Index
}

// Namer resolves domain names.
type Namer interface {
	NameFor(idx naming.Index) (string, error)
}

// Remote is the CloudSearch subset the reconciler drives.
type Remote interface {
	DescribeDomain(ctx context.Context, name string) (cloudsearch.DomainStatus, error)
	CreateDomain(ctx context.Context, name string) (cloudsearch.DomainStatus, error)
	DescribeIndexFields(ctx context.Context, domainName string) (schema.Schema, error)
	DefineIndexField(ctx context.Context, domainName string, d schema.Descriptor) error
}
