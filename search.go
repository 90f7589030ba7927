package csindex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/csindex/internal/domain/search/request"
)

// Search runs query against the selected indexes (all when opts.Indexes is
// empty). Results keep domain order: they are concatenated, never re-ranked.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (Response, error) {
	req, err := request.New(query, opts)
	if err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}
	resp, err := c.search.Search(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}
	return resp, nil
}
