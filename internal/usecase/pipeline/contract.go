package pipeline

import (
	"context"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/registry"
	"github.com/kailas-cloud/csindex/internal/usecase/naming"
)

// Registry resolves records and record types to indexes.
type Registry interface {
	ForType(t domain.RecordType) (registry.Index, error)
	ForRecord(rec any) (registry.Index, domain.RecordRef, error)
}

// Namer resolves domain names.
type Namer interface {
	NameFor(idx naming.Index) (string, error)
}

// Reconciler makes sure domains exist with the right schema.
type Reconciler interface {
	Ensure(ctx context.Context) error
}

// Remote is the CloudSearch subset the pipeline drives.
type Remote interface {
	DescribeDomain(ctx context.Context, name string) (cloudsearch.DomainStatus, error)
	Upload(ctx context.Context, endpoint string, batch []byte) (cloudsearch.UploadStatus, error)
}
