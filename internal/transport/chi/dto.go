package chi

import (
	"github.com/kailas-cloud/csindex/internal/domain/search/result"
	"github.com/kailas-cloud/csindex/internal/usecase/pipeline"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeNotFound           ErrorCode = "not_found"
	CodeIndexNotRegistered ErrorCode = "index_not_registered"
	CodeDomainNotFound     ErrorCode = "domain_not_found"
	CodeRecordNotFound     ErrorCode = "record_not_found"
	CodePreparationFailed  ErrorCode = "preparation_failed"
	CodeDocumentTooLarge   ErrorCode = "document_too_large"
	CodeDomainUnavailable  ErrorCode = "domain_unavailable"
	CodeTimeout            ErrorCode = "timeout"
	CodeReconcileFailed    ErrorCode = "schema_reconciliation_failed"
	CodeInvalidConfig      ErrorCode = "invalid_configuration"
	CodeRecordsDisabled    ErrorCode = "records_disabled"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// IndexResponse describes a registered index.
type IndexResponse struct {
	Name       string   `json:"name"`
	RecordType string   `json:"record_type"`
	Domain     string   `json:"domain"`
	Fields     []string `json:"fields"`
}

// SetupResponse reports a reconcile pass.
type SetupResponse struct {
	Converged bool `json:"converged"`
}

// RecordBody carries one record.
type RecordBody struct {
	PK     string            `json:"pk"`
	Values map[string]string `json:"values"`
}

// UpdateRequest carries records to index.
type UpdateRequest struct {
	Records []RecordBody `json:"records"`
}

// UpdateResponse reports an update or sync.
type UpdateResponse struct {
	Prepared int `json:"prepared"`
	Failed   int `json:"failed"`
	Batches  int `json:"batches"`
}

func updateResponse(r pipeline.Report) UpdateResponse {
	return UpdateResponse{Prepared: r.Prepared, Failed: r.Failed, Batches: r.Batches}
}

// FacetBody configures one facet in a search request.
type FacetBody struct {
	TopN        int      `json:"top_n,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query        string               `json:"query"`
	Indexes      []string             `json:"indexes,omitempty"`
	ReturnFields []string             `json:"return_fields,omitempty"`
	Start        int                  `json:"start,omitempty"`
	Size         int                  `json:"size,omitempty"`
	Parser       string               `json:"parser,omitempty"`
	Facets       map[string]FacetBody `json:"facets,omitempty"`
}

// SearchHit is one result.
type SearchHit struct {
	ID         string         `json:"id"`
	RecordType string         `json:"record_type"`
	PK         string         `json:"pk"`
	Score      int64          `json:"score"`
	Fields     map[string]any `json:"fields"`
}

// FacetBucket is one facet count.
type FacetBucket struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// SearchResponse is the merged search response.
type SearchResponse struct {
	Hits    int64                    `json:"hits"`
	Results []SearchHit              `json:"results"`
	Facets  map[string][]FacetBucket `json:"facets,omitempty"`
}

func searchResponse(r result.Response) SearchResponse {
	out := SearchResponse{Hits: r.Hits, Results: make([]SearchHit, len(r.Results))}
	for i, res := range r.Results {
		out.Results[i] = SearchHit{
			ID:         res.Ref().Identifier(),
			RecordType: res.RecordType.String(),
			PK:         res.PK,
			Score:      res.Score,
			Fields:     res.Fields,
		}
	}
	if len(r.Facets) > 0 {
		out.Facets = make(map[string][]FacetBucket, len(r.Facets))
		for name, counts := range r.Facets {
			buckets := make([]FacetBucket, len(counts))
			for i, c := range counts {
				buckets[i] = FacetBucket{Value: c.Value, Count: c.Count}
			}
			out.Facets[name] = buckets
		}
	}
	return out
}

// ClearRequest selects domains to delete.
type ClearRequest struct {
	Domains     []string `json:"domains,omitempty"`
	Indexes     []string `json:"indexes,omitempty"`
	RecordTypes []string `json:"record_types,omitempty"`
	Everything  bool     `json:"everything,omitempty"`
	NoWait      bool     `json:"no_wait,omitempty"`
	NoRebuild   bool     `json:"no_rebuild,omitempty"`
}

// ClearResponse lists deleted domains.
type ClearResponse struct {
	Deleted []string `json:"deleted"`
}

// AccessRequest optionally overrides the configured IP address.
type AccessRequest struct {
	IP string `json:"ip,omitempty"`
}

// AccessResponse reports which statements changed.
type AccessResponse struct {
	Search   bool `json:"search"`
	Document bool `json:"document"`
}

// ReindexResponse lists the fields being rebuilt.
type ReindexResponse struct {
	Fields []string `json:"fields"`
}
