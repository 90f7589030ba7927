package csindex

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	csaws "github.com/kailas-cloud/csindex/internal/cloudsearch/aws"
	"github.com/kailas-cloud/csindex/internal/config"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/registry"
	lifecycleuc "github.com/kailas-cloud/csindex/internal/usecase/lifecycle"
	"github.com/kailas-cloud/csindex/internal/usecase/naming"
	pipelineuc "github.com/kailas-cloud/csindex/internal/usecase/pipeline"
	reconcileuc "github.com/kailas-cloud/csindex/internal/usecase/reconcile"
	searchuc "github.com/kailas-cloud/csindex/internal/usecase/search"
)

const defaultRegion = "us-east-1"

// Client is the csindex entry point: one registry of indexes bound to one
// CloudSearch account and region.
type Client struct {
	remote     cloudsearch.Client
	registry   *registry.Registry
	namer      *naming.Namer
	reconciler *reconcileuc.Service
	lifecycle  *lifecycleuc.Service
	pipeline   *pipelineuc.Service
	search     *searchuc.Service
	ipAddress  string
	logger     *zap.Logger
}

// New validates the options and connects to CloudSearch.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{region: defaultRegion}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	if !slices.Contains(config.Regions, cfg.region) {
		return nil, fmt.Errorf("csindex: %w: region %q is not one of %s",
			domain.ErrConfiguration, cfg.region, strings.Join(config.Regions, ", "))
	}
	if cfg.ipAddress == "" {
		return nil, fmt.Errorf("csindex: %w: ip address is required (use WithIPAddress)", domain.ErrConfiguration)
	}

	remote := cfg.backend
	if remote == nil {
		c, err := csaws.New(ctx, csaws.Config{
			AccessKeyID:       cfg.accessKeyID,
			SecretAccessKey:   cfg.secretAccessKey,
			Region:            cfg.region,
			Endpoint:          cfg.endpoint,
			RequestsPerSecond: cfg.requestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("csindex: %w", err)
		}
		remote = c
	}

	return wireClient(remote, cfg), nil
}

func wireClient(remote cloudsearch.Client, cfg *clientConfig) *Client {
	reg := registry.New()
	namer := naming.New(cfg.domainPrefix, cfg.strictDomainNames, cfg.logger)
	reconciler := reconcileuc.New(reg, namer, remote, cfg.logger)
	poller := lifecycleuc.NewPoller(cfg.spinlockInterval, cfg.maxSpinlock, cfg.logger)

	return &Client{
		remote:     remote,
		registry:   reg,
		namer:      namer,
		reconciler: reconciler,
		lifecycle:  lifecycleuc.New(reg, namer, remote, reconciler, poller, cfg.logger),
		pipeline: pipelineuc.New(reg, namer, reconciler, remote, pipelineuc.Config{
			PrepareSilently: cfg.prepareSilently,
			MaxBatchBytes:   cfg.maxBatchBytes,
		}, cfg.logger),
		search:    searchuc.New(reg, namer, reconciler, remote, cfg.parallelSearch, cfg.logger),
		ipAddress: cfg.ipAddress,
		logger:    cfg.logger,
	}
}

// Register adds indexes to the client's scope. A registered index is
// reconciled on the next setup pass.
func (c *Client) Register(indexes ...Index) error {
	for _, idx := range indexes {
		if err := c.registry.Register(idx); err != nil {
			return fmt.Errorf("register %s: %w", idx.Name(), err)
		}
	}
	c.reconciler.Invalidate()
	return nil
}

// Declare builds a map-record index from a definition and registers it.
func (c *Client) Declare(def Definition) (Index, error) {
	idx, err := registry.NewDeclaredIndex(def)
	if err != nil {
		return nil, fmt.Errorf("declare %s: %w", def.Name, err)
	}
	if err := c.Register(idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// Indexes returns the registered indexes in registration order.
func (c *Client) Indexes() []Index {
	return c.registry.Indexes()
}

// DomainName returns the CloudSearch domain an index lives in.
func (c *Client) DomainName(idx Index) (string, error) {
	return c.namer.NameFor(idx)
}

// Setup reconciles every registered index with its domain, creating
// domains and (re)defining drifted fields.
func (c *Client) Setup(ctx context.Context) error {
	if err := c.reconciler.Run(ctx); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	return nil
}

// Converged reports whether the last setup pass found nothing to change.
func (c *Client) Converged() bool {
	return c.reconciler.Converged()
}

// Update prepares records of the named index and uploads them. With
// allowPartial, records that fail preparation are skipped.
func (c *Client) Update(ctx context.Context, indexName string, records []any, allowPartial bool) (Report, error) {
	idx, err := c.registry.ByName(indexName)
	if err != nil {
		return Report{}, fmt.Errorf("update: %w", err)
	}
	return c.pipeline.Update(ctx, idx, records, allowPartial)
}

// Remove deletes the document with the "namespace.model.pk" identifier.
func (c *Client) Remove(ctx context.Context, identifier string) error {
	return c.pipeline.Remove(ctx, identifier)
}

// RemoveRecord deletes the document of a record.
func (c *Client) RemoveRecord(ctx context.Context, rec any) error {
	return c.pipeline.RemoveRecord(ctx, rec)
}

// Clear deletes the selected domains, optionally waits for them to
// disappear, and rebuilds the registered schemas. It returns the domains
// it deleted.
func (c *Client) Clear(ctx context.Context, sel Selector, opts ClearOptions) ([]string, error) {
	return c.lifecycle.Clear(ctx, sel, opts)
}

// EnableIndexAccess grants the configured IP address search and document
// access on an index's domain.
func (c *Client) EnableIndexAccess(ctx context.Context, indexName string) (AccessResult, error) {
	return c.lifecycle.EnableIndexAccess(ctx, indexName, c.ipAddress)
}

// EnableDomainAccess grants ip search and document access on a domain.
func (c *Client) EnableDomainAccess(ctx context.Context, domainName, ip string) (AccessResult, error) {
	return c.lifecycle.EnableDomainAccess(ctx, domainName, ip)
}

// IndexEvent asks CloudSearch to rebuild an index's domain and returns the
// fields being rebuilt.
func (c *Client) IndexEvent(ctx context.Context, indexName string) ([]string, error) {
	return c.lifecycle.IndexEvent(ctx, indexName)
}
