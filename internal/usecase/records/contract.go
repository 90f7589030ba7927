package records

import (
	"context"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/registry"
	"github.com/kailas-cloud/csindex/internal/usecase/pipeline"
)

// Store persists source records.
type Store interface {
	Put(ctx context.Context, rec registry.MapRecord) (bool, error)
	Get(ctx context.Context, ref domain.RecordRef) (registry.MapRecord, error)
	List(ctx context.Context, t domain.RecordType) ([]registry.MapRecord, error)
	Delete(ctx context.Context, ref domain.RecordRef) error
	Load(ctx context.Context, refs []domain.RecordRef) ([]registry.MapRecord, error)
}

// Registry resolves the index that owns a record type.
type Registry interface {
	ByName(name string) (registry.Index, error)
	ForType(t domain.RecordType) (registry.Index, error)
}

// Indexer pushes documents to the search backend.
type Indexer interface {
	Update(ctx context.Context, idx registry.Index, records []any, allowPartial bool) (pipeline.Report, error)
	Remove(ctx context.Context, identifier string) error
}
