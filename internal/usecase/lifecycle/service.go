package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/access"
)

// Selector picks domains to clear. Explicit lists are combined; when no list
// is given every remote domain owned by the registry is selected, or every
// remote domain at all with Everything.
type Selector struct {
	Domains     []string
	Indexes     []string
	RecordTypes []domain.RecordType
	Everything  bool
}

func (s Selector) explicit() bool {
	return len(s.Domains) > 0 || len(s.Indexes) > 0 || len(s.RecordTypes) > 0
}

// ClearOptions tune Clear.
type ClearOptions struct {
	// NoWait skips waiting for deletions to finish.
	NoWait bool
	// NoRebuild skips the schema pass after deletion.
	NoRebuild bool
}

// AccessResult reports which grants changed the policy.
type AccessResult struct {
	Search   bool
	Document bool
}

// Service creates, deletes and polls domains and edits their access policies.
type Service struct {
	reg        Registry
	namer      Namer
	remote     Remote
	reconciler Reconciler
	poller     *Poller
	logger     *zap.Logger
}

// New creates a lifecycle service.
func New(reg Registry, namer Namer, remote Remote, reconciler Reconciler, poller *Poller, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poller == nil {
		poller = NewPoller(0, 0, logger)
	}
	return &Service{reg: reg, namer: namer, remote: remote, reconciler: reconciler, poller: poller, logger: logger}
}

// Resolve turns a selector into a sorted, de-duplicated domain name list.
func (s *Service) Resolve(ctx context.Context, sel Selector) ([]string, error) {
	set := make(map[string]bool)
	for _, d := range sel.Domains {
		set[d] = true
	}
	if len(sel.Indexes) > 0 {
		indexes, err := s.reg.Select(sel.Indexes)
		if err != nil {
			return nil, fmt.Errorf("resolve indexes: %w", err)
		}
		for _, idx := range indexes {
			name, err := s.namer.NameFor(idx)
			if err != nil {
				return nil, err
			}
			set[name] = true
		}
	}
	for _, rt := range sel.RecordTypes {
		idx, err := s.reg.ForType(rt)
		if err != nil {
			return nil, fmt.Errorf("resolve record types: %w", err)
		}
		name, err := s.namer.NameFor(idx)
		if err != nil {
			return nil, err
		}
		set[name] = true
	}

	if !sel.explicit() {
		remote, err := s.remote.ListDomainNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("list domains: %w", err)
		}
		owned := make(map[string]bool)
		if !sel.Everything {
			for _, idx := range s.reg.Indexes() {
				name, err := s.namer.NameFor(idx)
				if err != nil {
					return nil, err
				}
				owned[name] = true
			}
		}
		for _, name := range remote {
			if sel.Everything || owned[name] {
				set[name] = true
			}
		}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Clear deletes the selected domains, waits until none is observable and
// rebuilds the schemas. It returns the deleted domain names.
func (s *Service) Clear(ctx context.Context, sel Selector, opts ClearOptions) ([]string, error) {
	domains, err := s.Resolve(ctx, sel)
	if err != nil {
		return nil, err
	}

	s.logger.Info("deleting domains", zap.Strings("domains", domains))
	for _, name := range domains {
		if err := s.remote.DeleteDomain(ctx, name); err != nil {
			return nil, &domain.DomainError{Op: "delete domain", Domain: name, Err: err}
		}
	}
	s.reconciler.Invalidate()

	if !opts.NoWait && len(domains) > 0 {
		what := "deletion of " + strings.Join(domains, ", ")
		if err := s.poller.Until(ctx, what, s.allGone(domains)); err != nil {
			return domains, err
		}
	}
	if opts.NoRebuild {
		return domains, nil
	}
	if err := s.reconciler.Run(ctx); err != nil {
		return domains, fmt.Errorf("rebuild after clear: %w", err)
	}
	return domains, nil
}

func (s *Service) allGone(domains []string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		for _, name := range domains {
			_, err := s.remote.DescribeDomain(ctx, name)
			if errors.Is(err, domain.ErrDomainNotFound) {
				continue
			}
			if err != nil {
				return false, err
			}
			return false, nil
		}
		return true, nil
	}
}

// EnableIndexAccess grants search and document access on an index's domain.
func (s *Service) EnableIndexAccess(ctx context.Context, indexName, ip string) (AccessResult, error) {
	indexes, err := s.reg.Select([]string{indexName})
	if err != nil {
		return AccessResult{}, err
	}
	name, err := s.namer.NameFor(indexes[0])
	if err != nil {
		return AccessResult{}, err
	}
	return s.EnableDomainAccess(ctx, name, ip)
}

// EnableDomainAccess grants search and document access to ip. The policy is
// written only when a grant changed it.
func (s *Service) EnableDomainAccess(ctx context.Context, domainName, ip string) (AccessResult, error) {
	if _, err := s.remote.DescribeDomain(ctx, domainName); err != nil {
		return AccessResult{}, &domain.DomainError{Op: "enable access", Domain: domainName, Err: err}
	}

	raw, err := s.remote.DescribeAccessPolicy(ctx, domainName)
	if err != nil {
		return AccessResult{}, &domain.DomainError{Op: "enable access", Domain: domainName, Err: err}
	}
	policy, err := access.Parse(raw)
	if err != nil {
		return AccessResult{}, &domain.DomainError{Op: "enable access", Domain: domainName, Err: err}
	}

	var res AccessResult
	if res.Search, err = policy.Allow(access.ScopeSearch, ip); err != nil {
		return AccessResult{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if res.Document, err = policy.Allow(access.ScopeDocument, ip); err != nil {
		return AccessResult{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if !res.Search && !res.Document {
		return res, nil
	}

	if err := s.remote.UpdateAccessPolicy(ctx, domainName, policy.String()); err != nil {
		return AccessResult{}, &domain.DomainError{Op: "enable access", Domain: domainName, Err: err}
	}
	s.logger.Info("granted domain access",
		zap.String("domain", domainName),
		zap.String("ip", ip),
		zap.Bool("search", res.Search),
		zap.Bool("document", res.Document),
	)
	return res, nil
}

// IndexEvent asks CloudSearch to rebuild an index's domain.
func (s *Service) IndexEvent(ctx context.Context, indexName string) ([]string, error) {
	indexes, err := s.reg.Select([]string{indexName})
	if err != nil {
		return nil, err
	}
	name, err := s.namer.NameFor(indexes[0])
	if err != nil {
		return nil, err
	}
	fields, err := s.remote.IndexDocuments(ctx, name)
	if err != nil {
		return nil, &domain.DomainError{Op: "index documents", Domain: name, Err: err}
	}
	return fields, nil
}
