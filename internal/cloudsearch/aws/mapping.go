package aws

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cstypes "github.com/aws/aws-sdk-go-v2/service/cloudsearch/types"
	csd "github.com/aws/aws-sdk-go-v2/service/cloudsearchdomain"
	csdtypes "github.com/aws/aws-sdk-go-v2/service/cloudsearchdomain/types"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/field"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
)

// The API names the unsigned integer type "int".
const apiTypeInt = "int"

func toDomainStatus(s *cstypes.DomainStatus) cloudsearch.DomainStatus {
	out := cloudsearch.DomainStatus{
		Name:                   aws.ToString(s.DomainName),
		Created:                aws.ToBool(s.Created),
		Deleted:                aws.ToBool(s.Deleted),
		Processing:             aws.ToBool(s.Processing),
		RequiresIndexDocuments: aws.ToBool(s.RequiresIndexDocuments),
	}
	if s.DocService != nil {
		out.DocEndpoint = aws.ToString(s.DocService.Endpoint)
	}
	if s.SearchService != nil {
		out.SearchEndpoint = aws.ToString(s.SearchService.Endpoint)
	}
	return out
}

// toIndexField maps a descriptor to the API shape. Text facets cannot be
// expressed and are rejected.
func toIndexField(d schema.Descriptor) (*cstypes.IndexField, error) {
	f := &cstypes.IndexField{IndexFieldName: aws.String(d.Name)}
	o := d.Options

	switch d.Type {
	case field.TypeUint:
		f.IndexFieldType = cstypes.IndexFieldType(apiTypeInt)
		opts := &cstypes.IntOptions{}
		if o.DefaultValue != nil {
			n, err := strconv.ParseInt(*o.DefaultValue, 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: field %q default %q is not an unsigned integer",
					domain.ErrInvalidFieldConfiguration, d.Name, *o.DefaultValue)
			}
			opts.DefaultValue = aws.Int64(n)
		}
		f.IntOptions = opts
	case field.TypeText:
		if o.FacetEnabled {
			return nil, fmt.Errorf("%w: text field %q cannot be faceted, declare it literal",
				domain.ErrInvalidFieldConfiguration, d.Name)
		}
		f.IndexFieldType = cstypes.IndexFieldType(field.TypeText)
		f.TextOptions = &cstypes.TextOptions{
			DefaultValue:  o.DefaultValue,
			ReturnEnabled: aws.Bool(o.ResultEnabled),
		}
	case field.TypeLiteral:
		f.IndexFieldType = cstypes.IndexFieldType(field.TypeLiteral)
		f.LiteralOptions = &cstypes.LiteralOptions{
			DefaultValue:  o.DefaultValue,
			FacetEnabled:  aws.Bool(o.FacetEnabled),
			ReturnEnabled: aws.Bool(o.ResultEnabled),
			SearchEnabled: aws.Bool(o.SearchEnabled),
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFieldKind, d.Type)
	}
	return f, nil
}

// fromIndexField maps a live field back to a descriptor using the same option
// subset toIndexField writes, so an unchanged schema compares equal.
// Fields of types the adapter never defines are skipped.
func fromIndexField(f *cstypes.IndexField) (schema.Descriptor, bool) {
	d := schema.Descriptor{Name: aws.ToString(f.IndexFieldName)}

	switch string(f.IndexFieldType) {
	case apiTypeInt:
		d.Type = field.TypeUint
		if f.IntOptions != nil && f.IntOptions.DefaultValue != nil {
			v := strconv.FormatInt(*f.IntOptions.DefaultValue, 10)
			d.Options.DefaultValue = &v
		}
	case string(field.TypeText):
		d.Type = field.TypeText
		if o := f.TextOptions; o != nil {
			d.Options.DefaultValue = o.DefaultValue
			d.Options.ResultEnabled = aws.ToBool(o.ReturnEnabled)
		}
	case string(field.TypeLiteral):
		d.Type = field.TypeLiteral
		if o := f.LiteralOptions; o != nil {
			d.Options.DefaultValue = o.DefaultValue
			d.Options.FacetEnabled = aws.ToBool(o.FacetEnabled)
			d.Options.ResultEnabled = aws.ToBool(o.ReturnEnabled)
			d.Options.SearchEnabled = aws.ToBool(o.SearchEnabled)
		}
	default:
		return schema.Descriptor{}, false
	}
	return d, true
}

type facetOptions struct {
	Sort    string   `json:"sort,omitempty"`
	Size    int      `json:"size,omitempty"`
	Buckets []string `json:"buckets,omitempty"`
}

// facetParam renders the JSON facet parameter of the search API.
func facetParam(facets []cloudsearch.FacetRequest) (string, error) {
	if len(facets) == 0 {
		return "", nil
	}
	m := make(map[string]facetOptions, len(facets))
	for _, f := range facets {
		if len(f.Constraints) > 0 {
			m[f.Field] = facetOptions{Buckets: f.Constraints}
			continue
		}
		m[f.Field] = facetOptions{Sort: "count", Size: f.Size}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode facets: %w", err)
	}
	return string(raw), nil
}

func toSearchInput(q cloudsearch.Query) (*csd.SearchInput, error) {
	in := &csd.SearchInput{
		Query: aws.String(q.Query),
		Start: int64(q.Start),
		Size:  int64(q.Size),
	}
	if q.Parser != "" {
		in.QueryParser = csdtypes.QueryParser(q.Parser)
	}
	if len(q.ReturnFields) > 0 {
		in.Return = aws.String(strings.Join(q.ReturnFields, ","))
	}
	facet, err := facetParam(q.Facets)
	if err != nil {
		return nil, err
	}
	if facet != "" {
		in.Facet = aws.String(facet)
	}
	return in, nil
}

func fromSearchOutput(out *csd.SearchOutput) cloudsearch.SearchResponse {
	resp := cloudsearch.SearchResponse{Facets: make(map[string][]cloudsearch.Bucket, len(out.Facets))}
	if out.Hits != nil {
		start := out.Hits.Start
		resp.Found = out.Hits.Found
		resp.Start = &start
		resp.Hits = make([]cloudsearch.Hit, 0, len(out.Hits.Hit))
		for _, h := range out.Hits.Hit {
			resp.Hits = append(resp.Hits, cloudsearch.Hit{ID: aws.ToString(h.Id), Fields: h.Fields})
		}
	}
	for name, info := range out.Facets {
		buckets := make([]cloudsearch.Bucket, 0, len(info.Buckets))
		for _, b := range info.Buckets {
			buckets = append(buckets, cloudsearch.Bucket{Value: aws.ToString(b.Value), Count: b.Count})
		}
		resp.Facets[name] = buckets
	}
	return resp
}
