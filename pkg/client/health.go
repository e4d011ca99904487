package permitsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Health returns the service readiness report. A degraded service answers
// 503 but still carries a report, so that is not an error here.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	resp, err := c.roundtrip(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return HealthReport{}, fmt.Errorf("health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthReport{}, fmt.Errorf("health: %w", decodeAPIError(resp))
	}

	var report HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthReport{}, fmt.Errorf("health: decode response: %w", err)
	}
	return report, nil
}
