package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/document"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
	"github.com/kailas-cloud/csindex/internal/metrics"
	"github.com/kailas-cloud/csindex/internal/registry"
)

// Config tunes the pipeline.
type Config struct {
	// PrepareSilently logs and skips records that fail preparation, and logs
	// instead of returning reconciliation failures.
	PrepareSilently bool
	// MaxBatchBytes splits uploads; 0 means document.MaxBatchBytes.
	MaxBatchBytes int
	// Now supplies document versions; nil means time.Now.
	Now func() time.Time
}

// Report summarizes an update.
type Report struct {
	Prepared int
	Failed   int
	Batches  int
}

// Service prepares records into documents and uploads them.
type Service struct {
	reg        Registry
	namer      Namer
	reconciler Reconciler
	remote     Remote
	cfg        Config
	logger     *zap.Logger
}

// New creates a pipeline service.
func New(reg Registry, namer Namer, reconciler Reconciler, remote Remote, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxBatchBytes <= 0 {
		cfg.MaxBatchBytes = document.MaxBatchBytes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reg: reg, namer: namer, reconciler: reconciler, remote: remote, cfg: cfg, logger: logger}
}

// Update indexes records into idx's domain. Records are prepared before any
// network call; with allowPartial false a single failed record aborts the
// whole update.
func (s *Service) Update(ctx context.Context, idx registry.Index, records []any, allowPartial bool) (Report, error) {
	var (
		report Report
		docs   []document.Document
	)
	for _, rec := range records {
		doc, err := s.prepare(idx, rec)
		if err != nil {
			report.Failed++
			metrics.PreparationFailuresTotal.WithLabelValues(idx.Name()).Inc()
			s.logger.Error("failed to prepare record",
				zap.String("index", idx.Name()),
				zap.String("record", recordLabel(idx, rec)),
				zap.Error(err),
			)
			if !s.cfg.PrepareSilently {
				return report, err
			}
			continue
		}
		docs = append(docs, doc)
	}
	report.Prepared = len(docs)

	if !allowPartial && report.Failed > 0 {
		return report, fmt.Errorf("%w: index %s: %d of %d records prepared",
			domain.ErrPartialPreparation, idx.Name(), report.Prepared, len(records))
	}

	if err := s.reconciler.Ensure(ctx); err != nil {
		if s.cfg.PrepareSilently {
			s.logger.Error("schema setup failed, skipping update",
				zap.String("index", idx.Name()),
				zap.Error(err),
			)
			return report, nil
		}
		return report, fmt.Errorf("setup before update: %w", err)
	}
	if len(docs) == 0 {
		return report, nil
	}

	version := document.Version(s.cfg.Now())
	ops := make([]document.Op, 0, len(docs))
	for _, doc := range docs {
		op, err := document.NewAdd(doc, version)
		if err != nil {
			return report, fmt.Errorf("stage document: %w", err)
		}
		ops = append(ops, op)
	}

	batches, err := s.commit(ctx, idx, ops)
	report.Batches = batches
	if err != nil {
		return report, err
	}
	metrics.DocumentsTotal.WithLabelValues(string(document.OpAdd)).Add(float64(len(ops)))
	s.logger.Info("uploaded documents",
		zap.String("index", idx.Name()),
		zap.Int("documents", len(ops)),
		zap.Int("batches", batches),
	)
	return report, nil
}

// Remove deletes the document of a "namespace.model.pk" identifier.
func (s *Service) Remove(ctx context.Context, identifier string) error {
	ref, err := domain.ParseIdentifier(identifier)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	idx, err := s.reg.ForType(ref.Type)
	if err != nil {
		return fmt.Errorf("remove %s: %w", identifier, err)
	}
	return s.remove(ctx, idx, ref)
}

// RemoveRecord deletes the document of a record instance.
func (s *Service) RemoveRecord(ctx context.Context, rec any) error {
	idx, ref, err := s.reg.ForRecord(rec)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return s.remove(ctx, idx, ref)
}

// remove sends the delete as its own batch.
func (s *Service) remove(ctx context.Context, idx registry.Index, ref domain.RecordRef) error {
	op := document.NewDelete(ref.Identifier(), document.Version(s.cfg.Now()))
	if _, err := s.commit(ctx, idx, []document.Op{op}); err != nil {
		return fmt.Errorf("remove %s: %w", ref.Identifier(), err)
	}
	metrics.DocumentsTotal.WithLabelValues(string(document.OpDelete)).Inc()
	s.logger.Info("removed document", zap.String("index", idx.Name()), zap.String("record", ref.Identifier()))
	return nil
}

// prepare flattens a record and adds the bookkeeping fields.
func (s *Service) prepare(idx registry.Index, rec any) (document.Document, error) {
	ref, ok := idx.RecordRef(rec)
	if !ok {
		return nil, &domain.PreparationError{
			Index:  idx.Name(),
			Record: fmt.Sprintf("%T", rec),
			Err:    fmt.Errorf("%w: record is not a %s", domain.ErrIndexNotRegistered, idx.RecordType()),
		}
	}
	doc, err := idx.FullPrepare(rec)
	if err != nil {
		return nil, &domain.PreparationError{Index: idx.Name(), Record: ref.Identifier(), Err: err}
	}
	if doc == nil {
		doc = document.Document{}
	}
	doc[schema.FieldRecordType] = ref.Type.String()
	doc[schema.FieldRecordID] = ref.PK
	doc[schema.FieldDocumentID] = ref.Identifier()
	return doc, nil
}

// commit encodes ops and uploads each batch to the index's document endpoint.
func (s *Service) commit(ctx context.Context, idx registry.Index, ops []document.Op) (int, error) {
	name, err := s.namer.NameFor(idx)
	if err != nil {
		return 0, err
	}
	status, err := s.remote.DescribeDomain(ctx, name)
	if err != nil {
		return 0, &domain.DomainError{Op: "commit", Domain: name, Err: err}
	}
	if status.DocEndpoint == "" {
		return 0, &domain.DomainError{Op: "commit", Domain: name, Err: &domain.TransientStateError{
			Domain: name, State: domain.ErrDomainProcessing,
		}}
	}

	batches, err := document.EncodeBatches(ops, s.cfg.MaxBatchBytes)
	if err != nil {
		return 0, &domain.DomainError{Op: "commit", Domain: name, Err: err}
	}
	for i, batch := range batches {
		if _, err := s.remote.Upload(ctx, status.DocEndpoint, batch); err != nil {
			return i, &domain.DomainError{Op: "commit", Domain: name, Err: err}
		}
	}
	return len(batches), nil
}

func recordLabel(idx registry.Index, rec any) string {
	if ref, ok := idx.RecordRef(rec); ok {
		return ref.Identifier()
	}
	return fmt.Sprintf("%T", rec)
}
