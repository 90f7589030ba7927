// Package fake provides an in-memory cloudsearch.Client for tests.
package fake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
)

var _ cloudsearch.Client = (*Client)(nil)

// SearchEndpoint returns the fake search endpoint of a domain.
func SearchEndpoint(name string) string { return "search-" + name + ".fake" }

// DocEndpoint returns the fake document endpoint of a domain.
func DocEndpoint(name string) string { return "doc-" + name + ".fake" }

// Upload records one document batch.
type Upload struct {
	Endpoint string
	Batch    []byte
}

// SearchCall records one search request.
type SearchCall struct {
	Endpoint string
	Query    cloudsearch.Query
}

type domainState struct {
	status cloudsearch.DomainStatus
	fields map[string]schema.Descriptor
	policy string
}

// Client is a concurrency-safe in-memory CloudSearch.
type Client struct {
	mu        sync.Mutex
	domains   map[string]*domainState
	calls     map[string]int
	failures  map[string]error
	responses map[string]cloudsearch.SearchResponse

	// LingerDeletes keeps deleted domains observable (Deleted and Processing set).
	LingerDeletes bool

	Uploads  []Upload
	Searches []SearchCall
	Defined  []string
}

// New creates an empty fake.
func New() *Client {
	return &Client{
		domains:   make(map[string]*domainState),
		calls:     make(map[string]int),
		failures:  make(map[string]error),
		responses: make(map[string]cloudsearch.SearchResponse),
	}
}

// AddDomain seeds an existing domain with the given fields.
func (c *Client) AddDomain(name string, fields schema.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.newDomain(name)
	for _, d := range fields {
		st.fields[d.Name] = d
	}
}

// SetStatus mutates a seeded domain's status.
func (c *Client) SetStatus(name string, fn func(*cloudsearch.DomainStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.domains[name]; ok {
		fn(&st.status)
	}
}

// SetSearchResponse fixes the response returned for a domain's search endpoint.
func (c *Client) SetSearchResponse(domainName string, resp cloudsearch.SearchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[SearchEndpoint(domainName)] = resp
}

// Fail makes every call of op return err. A nil err clears the failure.
func (c *Client) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, op)
		return
	}
	c.failures[op] = err
}

// Count returns how many times op was called.
func (c *Client) Count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// Total returns the number of calls across all ops.
func (c *Client) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// Exists reports whether a domain is observable.
func (c *Client) Exists(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.domains[name]
	return ok
}

// Purge finishes a lingering delete by dropping the domain.
func (c *Client) Purge(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.domains, name)
}

// Policy returns a domain's access policy.
func (c *Client) Policy(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.domains[name]; ok {
		return st.policy
	}
	return ""
}

// Reset clears recorded calls, uploads and searches.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = make(map[string]int)
	c.Uploads = nil
	c.Searches = nil
	c.Defined = nil
}

func (c *Client) newDomain(name string) *domainState {
	st := &domainState{
		status: cloudsearch.DomainStatus{
			Name:           name,
			Created:        true,
			DocEndpoint:    DocEndpoint(name),
			SearchEndpoint: SearchEndpoint(name),
		},
		fields: make(map[string]schema.Descriptor),
	}
	c.domains[name] = st
	return st
}

// begin records a call and returns the injected failure, if any. Caller holds mu.
func (c *Client) begin(op, domainName string) error {
	c.calls[op]++
	if err, ok := c.failures[op]; ok {
		return &cloudsearch.Error{Op: op, Domain: domainName, Err: err}
	}
	return nil
}

func (c *Client) lookup(op, name string) (*domainState, error) {
	st, ok := c.domains[name]
	if !ok {
		return nil, &cloudsearch.Error{Op: op, Domain: name, Err: domain.ErrDomainNotFound}
	}
	return st, nil
}

// DescribeDomain implements cloudsearch.DomainManager.
func (c *Client) DescribeDomain(_ context.Context, name string) (cloudsearch.DomainStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpDescribeDomains, name); err != nil {
		return cloudsearch.DomainStatus{}, err
	}
	st, err := c.lookup(cloudsearch.OpDescribeDomains, name)
	if err != nil {
		return cloudsearch.DomainStatus{}, err
	}
	return st.status, nil
}

// ListDomainNames implements cloudsearch.DomainManager.
func (c *Client) ListDomainNames(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpListDomainNames, ""); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(c.domains))
	for name := range c.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CreateDomain implements cloudsearch.DomainManager.
func (c *Client) CreateDomain(_ context.Context, name string) (cloudsearch.DomainStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpCreateDomain, name); err != nil {
		return cloudsearch.DomainStatus{}, err
	}
	if st, ok := c.domains[name]; ok {
		return st.status, nil
	}
	return c.newDomain(name).status, nil
}

// DeleteDomain implements cloudsearch.DomainManager.
func (c *Client) DeleteDomain(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpDeleteDomain, name); err != nil {
		return err
	}
	st, ok := c.domains[name]
	if !ok {
		return nil
	}
	if c.LingerDeletes {
		st.status.Deleted = true
		st.status.Processing = true
		return nil
	}
	delete(c.domains, name)
	return nil
}

// IndexDocuments implements cloudsearch.DomainManager.
func (c *Client) IndexDocuments(_ context.Context, name string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpIndexDocuments, name); err != nil {
		return nil, err
	}
	st, err := c.lookup(cloudsearch.OpIndexDocuments, name)
	if err != nil {
		return nil, err
	}
	st.status.RequiresIndexDocuments = false
	names := make([]string, 0, len(st.fields))
	for n := range st.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// DescribeIndexFields implements cloudsearch.SchemaManager.
func (c *Client) DescribeIndexFields(_ context.Context, domainName string) (schema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpDescribeIndexFields, domainName); err != nil {
		return nil, err
	}
	st, err := c.lookup(cloudsearch.OpDescribeIndexFields, domainName)
	if err != nil {
		return nil, err
	}
	out := make(schema.Schema, 0, len(st.fields))
	for _, d := range st.fields {
		out = append(out, d)
	}
	return out.Sorted(), nil
}

// DefineIndexField implements cloudsearch.SchemaManager.
func (c *Client) DefineIndexField(_ context.Context, domainName string, d schema.Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpDefineIndexField, domainName); err != nil {
		return err
	}
	st, err := c.lookup(cloudsearch.OpDefineIndexField, domainName)
	if err != nil {
		return err
	}
	st.fields[d.Name] = d
	st.status.RequiresIndexDocuments = true
	c.Defined = append(c.Defined, domainName+"."+d.Name)
	return nil
}

// DescribeAccessPolicy implements cloudsearch.AccessManager.
func (c *Client) DescribeAccessPolicy(_ context.Context, domainName string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpDescribeAccessPolicies, domainName); err != nil {
		return "", err
	}
	st, err := c.lookup(cloudsearch.OpDescribeAccessPolicies, domainName)
	if err != nil {
		return "", err
	}
	return st.policy, nil
}

// UpdateAccessPolicy implements cloudsearch.AccessManager.
func (c *Client) UpdateAccessPolicy(_ context.Context, domainName, policy string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpUpdateAccessPolicies, domainName); err != nil {
		return err
	}
	st, err := c.lookup(cloudsearch.OpUpdateAccessPolicies, domainName)
	if err != nil {
		return err
	}
	st.policy = policy
	return nil
}

// Upload implements cloudsearch.DocumentUploader.
func (c *Client) Upload(_ context.Context, endpoint string, batch []byte) (cloudsearch.UploadStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpUploadDocuments, endpoint); err != nil {
		return cloudsearch.UploadStatus{}, err
	}
	c.Uploads = append(c.Uploads, Upload{Endpoint: endpoint, Batch: append([]byte(nil), batch...)})
	return cloudsearch.UploadStatus{}, nil
}

// Search implements cloudsearch.Searcher.
func (c *Client) Search(_ context.Context, endpoint string, q cloudsearch.Query) (cloudsearch.SearchResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(cloudsearch.OpSearch, endpoint); err != nil {
		return cloudsearch.SearchResponse{}, err
	}
	c.Searches = append(c.Searches, SearchCall{Endpoint: endpoint, Query: q})
	resp, ok := c.responses[endpoint]
	if !ok {
		return cloudsearch.SearchResponse{}, fmt.Errorf("fake: no response for %s", endpoint)
	}
	return resp, nil
}
