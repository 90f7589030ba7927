package request

import (
	"fmt"
	"sort"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultSize    = 20
	MaxSize        = 10000
	DefaultTopN    = 10
)

// Parser is the query language CloudSearch uses to interpret the query string.
type Parser string

// Supported query parsers.
const (
	ParserSimple     Parser = "simple"
	ParserStructured Parser = "structured"
	ParserLucene     Parser = "lucene"
	ParserDismax     Parser = "dismax"
)

// IsValid checks if the parser is known to CloudSearch.
func (p Parser) IsValid() bool {
	switch p {
	case ParserSimple, ParserStructured, ParserLucene, ParserDismax:
		return true
	}
	return false
}

// Options are the caller-facing search options.
type Options struct {
	// Indexes limits the search to these index names. Empty means every registered index.
	Indexes []string
	// ReturnFields limits returned fields; internal bookkeeping fields are always added.
	ReturnFields []string
	Start        int
	Size         int
	Parser       Parser
	// Facets names the fields to aggregate.
	Facets []string
	// FacetTopN caps the number of buckets per facet field.
	FacetTopN map[string]int
	// FacetConstraints restricts buckets to the listed values per facet field.
	FacetConstraints map[string][]string
}

// Request is a validated search query.
type Request struct {
	query string
	opts  Options
}

// New validates and normalizes search parameters.
// An empty query is valid and yields an empty response without remote calls.
func New(query string, opts Options) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if opts.Start < 0 {
		return Request{}, fmt.Errorf("start must be non-negative")
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Size > MaxSize {
		opts.Size = MaxSize
	}
	if opts.Parser == "" {
		opts.Parser = ParserSimple
	}
	if !opts.Parser.IsValid() {
		return Request{}, fmt.Errorf("invalid query parser: %q", opts.Parser)
	}
	for name, n := range opts.FacetTopN {
		if n <= 0 {
			return Request{}, fmt.Errorf("facet %q: top-n must be positive", name)
		}
	}
	return Request{query: query, opts: opts}, nil
}

// Query returns the query string as given.
func (r Request) Query() string { return r.query }

// IsEmpty reports whether the query string has zero length. A blank but
// non-empty query is sent to CloudSearch as is.
func (r Request) IsEmpty() bool { return r.query == "" }

// Indexes returns the index names in scope; nil means all.
func (r Request) Indexes() []string { return r.opts.Indexes }

// Start returns the absolute offset of the first result.
func (r Request) Start() int { return r.opts.Start }

// Size returns the page size.
func (r Request) Size() int { return r.opts.Size }

// Parser returns the query parser.
func (r Request) Parser() Parser { return r.opts.Parser }

// ReturnFields resolves the field set to return for one index: the requested
// fields plus internal ones, or every schema field when none were requested.
func (r Request) ReturnFields(schemaFields, internal []string) []string {
	if len(r.opts.ReturnFields) == 0 {
		out := make([]string, len(schemaFields))
		copy(out, schemaFields)
		return out
	}
	seen := make(map[string]bool, len(r.opts.ReturnFields)+len(internal))
	out := make([]string, 0, len(r.opts.ReturnFields)+len(internal))
	for _, list := range [][]string{r.opts.ReturnFields, internal} {
		for _, f := range list {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// FacetSpec is the per-field facet request.
type FacetSpec struct {
	Field       string
	TopN        int
	Constraints []string
}

// Facets returns facet specs sorted by field. Fields only named in
// FacetTopN or FacetConstraints are included too.
func (r Request) Facets() []FacetSpec {
	names := make(map[string]bool)
	for _, f := range r.opts.Facets {
		names[f] = true
	}
	for f := range r.opts.FacetTopN {
		names[f] = true
	}
	for f := range r.opts.FacetConstraints {
		names[f] = true
	}
	if len(names) == 0 {
		return nil
	}

	out := make([]FacetSpec, 0, len(names))
	for name := range names {
		fs := FacetSpec{Field: name, TopN: DefaultTopN, Constraints: r.opts.FacetConstraints[name]}
		if n, ok := r.opts.FacetTopN[name]; ok {
			fs.TopN = n
		}
		out = append(out, fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
