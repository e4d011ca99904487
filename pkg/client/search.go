package permitsearch

import (
	"context"
	"fmt"
	"net/http"
)

// Search runs a permit search and returns hits ranked by descending score.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	var resp struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/search", req, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return resp.Results, nil
}
