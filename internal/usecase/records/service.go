package records

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/registry"
	"github.com/kailas-cloud/csindex/internal/usecase/pipeline"
)

// DefaultSyncBatchSize is the number of records sent per update during a sync.
const DefaultSyncBatchSize = 100

// Config tunes the record service.
type Config struct {
	// Realtime indexes records as they are saved or deleted.
	Realtime bool
	// SyncBatchSize caps records per pipeline update; 0 means DefaultSyncBatchSize.
	SyncBatchSize int
}

// Service keeps source records and their search documents in step.
type Service struct {
	store   Store
	reg     Registry
	indexer Indexer
	cfg     Config
	logger  *zap.Logger
}

// New creates a record service.
func New(store Store, reg Registry, indexer Indexer, cfg Config, logger *zap.Logger) *Service {
	if cfg.SyncBatchSize <= 0 {
		cfg.SyncBatchSize = DefaultSyncBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, reg: reg, indexer: indexer, cfg: cfg, logger: logger}
}

// Save stores a record of an indexed type. Returns true if created.
func (s *Service) Save(ctx context.Context, rec registry.MapRecord) (bool, error) {
	idx, err := s.reg.ForType(rec.Type)
	if err != nil {
		return false, fmt.Errorf("save %s: %w", rec.Ref().Identifier(), err)
	}
	created, err := s.store.Put(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("save %s: %w", rec.Ref().Identifier(), err)
	}
	if s.cfg.Realtime {
		if _, err := s.indexer.Update(ctx, idx, []any{rec}, false); err != nil {
			return created, fmt.Errorf("index %s: %w", rec.Ref().Identifier(), err)
		}
	}
	return created, nil
}

// Get loads a stored record.
func (s *Service) Get(ctx context.Context, ref domain.RecordRef) (registry.MapRecord, error) {
	rec, err := s.store.Get(ctx, ref)
	if err != nil {
		return registry.MapRecord{}, fmt.Errorf("get %s: %w", ref.Identifier(), err)
	}
	return rec, nil
}

// Resolve loads the stored records behind search results, in result order.
func (s *Service) Resolve(ctx context.Context, refs []domain.RecordRef) ([]registry.MapRecord, error) {
	recs, err := s.store.Load(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("resolve results: %w", err)
	}
	if missing := len(refs) - len(recs); missing > 0 {
		s.logger.Warn("search results without stored records", zap.Int("missing", missing))
	}
	return recs, nil
}

// Delete removes a stored record and, in realtime mode, its document.
func (s *Service) Delete(ctx context.Context, ref domain.RecordRef) error {
	if err := s.store.Delete(ctx, ref); err != nil {
		return fmt.Errorf("delete %s: %w", ref.Identifier(), err)
	}
	if s.cfg.Realtime {
		if err := s.indexer.Remove(ctx, ref.Identifier()); err != nil {
			return fmt.Errorf("unindex %s: %w", ref.Identifier(), err)
		}
	}
	return nil
}

// Sync re-sends every stored record of an index in chunks.
func (s *Service) Sync(ctx context.Context, indexName string, allowPartial bool) (pipeline.Report, error) {
	var total pipeline.Report

	idx, err := s.reg.ByName(indexName)
	if err != nil {
		return total, fmt.Errorf("sync: %w", err)
	}
	recs, err := s.store.List(ctx, idx.RecordType())
	if err != nil {
		return total, fmt.Errorf("sync %s: %w", indexName, err)
	}

	for start := 0; start < len(recs); start += s.cfg.SyncBatchSize {
		end := min(start+s.cfg.SyncBatchSize, len(recs))
		chunk := make([]any, 0, end-start)
		for _, rec := range recs[start:end] {
			chunk = append(chunk, rec)
		}

		report, err := s.indexer.Update(ctx, idx, chunk, allowPartial)
		total.Prepared += report.Prepared
		total.Failed += report.Failed
		total.Batches += report.Batches
		if err != nil {
			return total, fmt.Errorf("sync %s: %w", indexName, err)
		}
	}

	s.logger.Info("synced index",
		zap.String("index", indexName),
		zap.Int("records", len(recs)),
		zap.Int("prepared", total.Prepared),
		zap.Int("failed", total.Failed),
	)
	return total, nil
}
