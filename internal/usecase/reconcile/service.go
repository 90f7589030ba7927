package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
	"github.com/kailas-cloud/csindex/internal/metrics"
	"github.com/kailas-cloud/csindex/internal/registry"
)

// Service converges remote domain schemas with the registered indexes.
type Service struct {
	reg    Registry
	namer  Namer
	remote Remote
	logger *zap.Logger

	converged atomic.Bool
	group     singleflight.Group
}

// New creates a reconcile service.
func New(reg Registry, namer Namer, remote Remote, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reg: reg, namer: namer, remote: remote, logger: logger}
}

// Converged reports whether the last pass found every domain up to date.
func (s *Service) Converged() bool { return s.converged.Load() }

// Invalidate forces the next Ensure to run a pass.
func (s *Service) Invalidate() { s.converged.Store(false) }

// Ensure runs a pass unless already converged. Concurrent callers share one pass.
func (s *Service) Ensure(ctx context.Context) error {
	if s.converged.Load() {
		return nil
	}
	_, err, _ := s.group.Do("reconcile", func() (any, error) {
		if s.converged.Load() {
			return nil, nil
		}
		return nil, s.Run(ctx)
	})
	return err //nolint:wrapcheck // Run wraps
}

// Run reconciles every index. The converged flag is set only when no index
// needed a build during the whole pass.
func (s *Service) Run(ctx context.Context) error {
	clean := true
	for _, idx := range s.reg.Indexes() {
		built, err := s.reconcileIndex(ctx, idx)
		if err != nil {
			metrics.ReconcilePassesTotal.WithLabelValues("failed").Inc()
			return err
		}
		if built {
			clean = false
		}
	}

	if clean {
		s.converged.Store(true)
		metrics.ReconcilePassesTotal.WithLabelValues("converged").Inc()
		s.logger.Debug("schemas converged")
		return nil
	}
	s.converged.Store(false)
	metrics.ReconcilePassesTotal.WithLabelValues("built").Inc()
	return nil
}

// reconcileIndex brings one domain in line and reports whether it had to build
// or is still waiting for a pending delete.
func (s *Service) reconcileIndex(ctx context.Context, idx registry.Index) (bool, error) {
	name, err := s.namer.NameFor(idx)
	if err != nil {
		return false, fmt.Errorf("name domain: %w", err)
	}

	decls := idx.Fields()
	ideal, err := schema.Build(decls)
	if err != nil {
		return false, fmt.Errorf("index %s: %w", idx.Name(), err)
	}
	for _, f := range schema.TruncatedDefaults(decls) {
		s.logger.Warn("multi-valued default truncated to its first element",
			zap.String("index", idx.Name()),
			zap.String("field", f),
		)
	}

	mustBuild := false
	status, err := s.remote.DescribeDomain(ctx, name)
	switch {
	case err == nil && status.Deleted:
		// The domain is still observable while it is being deleted. Leave the
		// pass unconverged so a later pass recreates it once it is gone.
		s.logger.Info("search domain is being deleted, deferring build",
			zap.String("index", idx.Name()),
			zap.String("domain", name),
		)
		return true, nil
	case errors.Is(err, domain.ErrDomainNotFound):
		if _, err := s.remote.CreateDomain(ctx, name); err != nil {
			return false, domain.NewSchemaError(cloudsearch.OpCreateDomain, name, err)
		}
		s.logger.Info("created search domain", zap.String("index", idx.Name()), zap.String("domain", name))
		mustBuild = true
	case err != nil:
		return false, domain.NewSchemaError(cloudsearch.OpDescribeDomains, name, err)
	default:
		live, err := s.remote.DescribeIndexFields(ctx, name)
		if err != nil {
			return false, domain.NewSchemaError(cloudsearch.OpDescribeIndexFields, name, err)
		}
		if !schema.Equal(ideal, live) {
			s.logger.Info("schema drift detected",
				zap.String("domain", name),
				zap.Strings("fields", schema.Diff(ideal, live)),
			)
			mustBuild = true
		}
	}

	if !mustBuild {
		return false, nil
	}
	for _, d := range ideal {
		if err := s.remote.DefineIndexField(ctx, name, d); err != nil {
			return true, domain.NewSchemaError(cloudsearch.OpDefineIndexField, name, fmt.Errorf("field %s: %w", d.Name, err))
		}
		metrics.FieldDefinitionsTotal.Inc()
	}
	s.logger.Info("defined index fields", zap.String("domain", name), zap.Int("fields", len(ideal)))
	return true, nil
}
