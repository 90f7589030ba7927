// Package aws implements cloudsearch.Client on top of aws-sdk-go-v2.
package aws

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cs "github.com/aws/aws-sdk-go-v2/service/cloudsearch"
	csd "github.com/aws/aws-sdk-go-v2/service/cloudsearchdomain"
	csdtypes "github.com/aws/aws-sdk-go-v2/service/cloudsearchdomain/types"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
	"github.com/kailas-cloud/csindex/internal/metrics"
)

// Compile-time check: Client implements cloudsearch.Client.
var _ cloudsearch.Client = (*Client)(nil)

// Config holds connection parameters for CloudSearch.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	// Endpoint overrides the configuration API endpoint (local emulators).
	Endpoint string
	// RequestsPerSecond throttles configuration API calls; 0 disables throttling.
	RequestsPerSecond float64
}

// Client talks to the CloudSearch configuration API and to per-domain
// document and search endpoints.
type Client struct {
	cfg     aws.Config
	config  *cs.Client
	limiter *rate.Limiter
	domains *xsync.MapOf[string, *csd.Client]
}

// New loads the SDK configuration with static credentials.
func New(ctx context.Context, c Config) (*Client, error) {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return nil, fmt.Errorf("%w: access key id and secret are required", domain.ErrConfiguration)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		),
	}
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	configClient := cs.NewFromConfig(cfg, func(o *cs.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	})

	limiter := rate.NewLimiter(rate.Inf, 1)
	if c.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1)
	}

	return &Client{
		cfg:     cfg,
		config:  configClient,
		limiter: limiter,
		domains: xsync.NewMapOf[string, *csd.Client](),
	}, nil
}

// call throttles, times and wraps one configuration API call.
func (c *Client) call(ctx context.Context, op, domainName string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &cloudsearch.Error{Op: op, Domain: domainName, Err: err}
	}
	start := time.Now()
	err := fn()
	metrics.ObserveRemote(op, start, err)
	if err != nil {
		return wrapError(op, domainName, err)
	}
	return nil
}

// DescribeDomain returns the status of a single domain.
func (c *Client) DescribeDomain(ctx context.Context, name string) (cloudsearch.DomainStatus, error) {
	var out *cs.DescribeDomainsOutput
	err := c.call(ctx, cloudsearch.OpDescribeDomains, name, func() (err error) {
		out, err = c.config.DescribeDomains(ctx, &cs.DescribeDomainsInput{DomainNames: []string{name}})
		return err
	})
	if err != nil {
		return cloudsearch.DomainStatus{}, err
	}
	for i := range out.DomainStatusList {
		if aws.ToString(out.DomainStatusList[i].DomainName) == name {
			return toDomainStatus(&out.DomainStatusList[i]), nil
		}
	}
	return cloudsearch.DomainStatus{}, &cloudsearch.Error{
		Op: cloudsearch.OpDescribeDomains, Domain: name, Err: domain.ErrDomainNotFound,
	}
}

// ListDomainNames returns every domain name of the account in the region.
func (c *Client) ListDomainNames(ctx context.Context) ([]string, error) {
	var out *cs.ListDomainNamesOutput
	err := c.call(ctx, cloudsearch.OpListDomainNames, "", func() (err error) {
		out, err = c.config.ListDomainNames(ctx, &cs.ListDomainNamesInput{})
		return err
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.DomainNames))
	for name := range out.DomainNames {
		names = append(names, name)
	}
	return names, nil
}

// CreateDomain creates a domain. Creating an existing domain is a no-op remotely.
func (c *Client) CreateDomain(ctx context.Context, name string) (cloudsearch.DomainStatus, error) {
	var out *cs.CreateDomainOutput
	err := c.call(ctx, cloudsearch.OpCreateDomain, name, func() (err error) {
		out, err = c.config.CreateDomain(ctx, &cs.CreateDomainInput{DomainName: aws.String(name)})
		return err
	})
	if err != nil {
		return cloudsearch.DomainStatus{}, err
	}
	if out.DomainStatus == nil {
		return cloudsearch.DomainStatus{Name: name, Created: true}, nil
	}
	return toDomainStatus(out.DomainStatus), nil
}

// DeleteDomain starts asynchronous deletion of a domain.
func (c *Client) DeleteDomain(ctx context.Context, name string) error {
	return c.call(ctx, cloudsearch.OpDeleteDomain, name, func() error {
		_, err := c.config.DeleteDomain(ctx, &cs.DeleteDomainInput{DomainName: aws.String(name)})
		return err
	})
}

// IndexDocuments rebuilds a domain's index and returns the indexed field names.
func (c *Client) IndexDocuments(ctx context.Context, name string) ([]string, error) {
	var out *cs.IndexDocumentsOutput
	err := c.call(ctx, cloudsearch.OpIndexDocuments, name, func() (err error) {
		out, err = c.config.IndexDocuments(ctx, &cs.IndexDocumentsInput{DomainName: aws.String(name)})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out.FieldNames, nil
}

// DescribeIndexFields returns the live schema of a domain.
func (c *Client) DescribeIndexFields(ctx context.Context, domainName string) (schema.Schema, error) {
	var out *cs.DescribeIndexFieldsOutput
	err := c.call(ctx, cloudsearch.OpDescribeIndexFields, domainName, func() (err error) {
		out, err = c.config.DescribeIndexFields(ctx, &cs.DescribeIndexFieldsInput{DomainName: aws.String(domainName)})
		return err
	})
	if err != nil {
		return nil, err
	}

	live := make(schema.Schema, 0, len(out.IndexFields))
	for _, st := range out.IndexFields {
		if st.Options == nil {
			continue
		}
		if d, ok := fromIndexField(st.Options); ok {
			live = append(live, d)
		}
	}
	return live, nil
}

// DefineIndexField creates or updates one index field.
func (c *Client) DefineIndexField(ctx context.Context, domainName string, d schema.Descriptor) error {
	field, err := toIndexField(d)
	if err != nil {
		return &cloudsearch.Error{Op: cloudsearch.OpDefineIndexField, Domain: domainName, Err: err}
	}
	return c.call(ctx, cloudsearch.OpDefineIndexField, domainName, func() error {
		_, err := c.config.DefineIndexField(ctx, &cs.DefineIndexFieldInput{
			DomainName: aws.String(domainName),
			IndexField: field,
		})
		return err
	})
}

// DescribeAccessPolicy returns the domain's access policy JSON.
func (c *Client) DescribeAccessPolicy(ctx context.Context, domainName string) (string, error) {
	var out *cs.DescribeServiceAccessPoliciesOutput
	err := c.call(ctx, cloudsearch.OpDescribeAccessPolicies, domainName, func() (err error) {
		out, err = c.config.DescribeServiceAccessPolicies(ctx, &cs.DescribeServiceAccessPoliciesInput{
			DomainName: aws.String(domainName),
		})
		return err
	})
	if err != nil {
		return "", err
	}
	if out.AccessPolicies == nil {
		return "", nil
	}
	return aws.ToString(out.AccessPolicies.Options), nil
}

// UpdateAccessPolicy replaces the domain's access policy JSON.
func (c *Client) UpdateAccessPolicy(ctx context.Context, domainName, policy string) error {
	return c.call(ctx, cloudsearch.OpUpdateAccessPolicies, domainName, func() error {
		_, err := c.config.UpdateServiceAccessPolicies(ctx, &cs.UpdateServiceAccessPoliciesInput{
			DomainName:     aws.String(domainName),
			AccessPolicies: aws.String(policy),
		})
		return err
	})
}

// endpointClient returns the cached data-plane client for a domain endpoint.
func (c *Client) endpointClient(endpoint string) *csd.Client {
	client, _ := c.domains.LoadOrCompute(endpoint, func() *csd.Client {
		base := endpoint
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			base = "https://" + base
		}
		return csd.NewFromConfig(c.cfg, func(o *csd.Options) {
			o.BaseEndpoint = aws.String(base)
		})
	})
	return client
}

// Upload posts one JSON batch to a document endpoint.
func (c *Client) Upload(ctx context.Context, endpoint string, batch []byte) (cloudsearch.UploadStatus, error) {
	start := time.Now()
	out, err := c.endpointClient(endpoint).UploadDocuments(ctx, &csd.UploadDocumentsInput{
		ContentType: csdtypes.ContentType("application/json"),
		Documents:   bytes.NewReader(batch),
	})
	metrics.ObserveRemote(cloudsearch.OpUploadDocuments, start, err)
	if err != nil {
		return cloudsearch.UploadStatus{}, wrapError(cloudsearch.OpUploadDocuments, endpoint, err)
	}
	return cloudsearch.UploadStatus{Adds: out.Adds, Deletes: out.Deletes}, nil
}

// Search runs one query against a search endpoint.
func (c *Client) Search(ctx context.Context, endpoint string, q cloudsearch.Query) (cloudsearch.SearchResponse, error) {
	in, err := toSearchInput(q)
	if err != nil {
		return cloudsearch.SearchResponse{}, &cloudsearch.Error{Op: cloudsearch.OpSearch, Domain: endpoint, Err: err}
	}

	start := time.Now()
	out, err := c.endpointClient(endpoint).Search(ctx, in)
	metrics.ObserveRemote(cloudsearch.OpSearch, start, err)
	if err != nil {
		return cloudsearch.SearchResponse{}, wrapError(cloudsearch.OpSearch, endpoint, err)
	}
	return fromSearchOutput(out), nil
}
