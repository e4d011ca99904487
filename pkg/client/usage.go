package permitsearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Usage returns the embedding usage report for a period
// ("day", "month" or "total"). Empty period means "month".
func (c *Client) Usage(ctx context.Context, period string) (UsageReport, error) {
	path := "/usage"
	if period != "" {
		path += "?period=" + url.QueryEscape(period)
	}

	var out UsageReport
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return UsageReport{}, fmt.Errorf("usage: %w", err)
	}
	return out, nil
}
