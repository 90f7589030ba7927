// Package cloudsearch defines the wire contract for the CloudSearch
// configuration, document and search services.
package cloudsearch

import (
	"context"

	"github.com/kailas-cloud/csindex/internal/domain/schema"
)

// Client is the facade over all CloudSearch endpoints.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces
type Client interface {
	DomainManager
	SchemaManager
	AccessManager
	DocumentUploader
	Searcher
}

// DomainStatus is the subset of a domain description the adapter acts on.
type DomainStatus struct {
	Name                   string
	Created                bool
	Deleted                bool
	Processing             bool
	RequiresIndexDocuments bool
	DocEndpoint            string
	SearchEndpoint         string
}

// DomainManager provides domain lifecycle operations.
type DomainManager interface {
	// DescribeDomain returns ErrDomainNotFound when the domain does not exist.
	DescribeDomain(ctx context.Context, name string) (DomainStatus, error)
	ListDomainNames(ctx context.Context) ([]string, error)
	CreateDomain(ctx context.Context, name string) (DomainStatus, error)
	DeleteDomain(ctx context.Context, name string) error
	IndexDocuments(ctx context.Context, name string) ([]string, error)
}

// SchemaManager provides index field operations.
type SchemaManager interface {
	DescribeIndexFields(ctx context.Context, domainName string) (schema.Schema, error)
	DefineIndexField(ctx context.Context, domainName string, d schema.Descriptor) error
}

// AccessManager reads and replaces a domain's access policy document.
type AccessManager interface {
	DescribeAccessPolicy(ctx context.Context, domainName string) (string, error)
	UpdateAccessPolicy(ctx context.Context, domainName, policy string) error
}

// UploadStatus reports one batch upload.
type UploadStatus struct {
	Adds    int64
	Deletes int64
}

// DocumentUploader posts search data format batches to a document endpoint.
type DocumentUploader interface {
	Upload(ctx context.Context, endpoint string, batch []byte) (UploadStatus, error)
}

// Bucket is one raw facet bucket.
type Bucket struct {
	Value string
	Count int64
}

// FacetRequest asks for buckets of one field.
type FacetRequest struct {
	Field       string
	Size        int
	Constraints []string
}

// Query is a single-domain search request.
type Query struct {
	Query        string
	Parser       string
	ReturnFields []string
	Start        int
	Size         int
	Facets       []FacetRequest
}

// Hit is one raw search hit.
type Hit struct {
	ID     string
	Fields map[string][]string
}

// SearchResponse is the raw response of one domain.
type SearchResponse struct {
	Found int64
	// Start is nil when the service omitted the offset.
	Start  *int64
	Hits   []Hit
	Facets map[string][]Bucket
}

// Searcher queries a search endpoint.
type Searcher interface {
	Search(ctx context.Context, endpoint string, q Query) (SearchResponse, error)
}
