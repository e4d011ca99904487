package permitsearch

// SearchRequest describes one search call. Zero values are omitted on the
// wire and fall back to server defaults (semantic mode, top_k=5).
type SearchRequest struct {
	Query    string         `json:"query"`
	Mode     string         `json:"mode,omitempty"` // semantic | keyword | hybrid
	Filters  map[string]any `json:"filters,omitempty"`
	TopK     int            `json:"top_k,omitempty"`
	MinScore float64        `json:"min_score,omitempty"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Document        string         `json:"document"`
	Metadata        map[string]any `json:"metadata"`
	SimilarityScore float64        `json:"similarity_score"`
}

// Document is a permit record. Metadata values are strings for tag fields
// and float64 for numeric fields.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ListResult is one page of documents.
type ListResult struct {
	Items      []Document `json:"items"`
	NextCursor string     `json:"next_cursor"`
	HasMore    bool       `json:"has_more"`
	Total      int        `json:"total"`
}

// BatchItemResult is the per-document outcome of a batch upsert.
type BatchItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "ok" | "error"
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether the item was stored.
func (r BatchItemResult) OK() bool { return r.Status == "ok" }

// BatchResult is the outcome of a batch upsert.
type BatchResult struct {
	Items     []BatchItemResult `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// HealthCheck is one component entry in the readiness report.
type HealthCheck struct {
	Component string `json:"component"`
	Status    string `json:"status"` // "ok" | "error"
	Detail    string `json:"detail,omitempty"`
}

// HealthReport is the service readiness report.
type HealthReport struct {
	Status string        `json:"status"` // "ok" | "degraded"
	Checks []HealthCheck `json:"checks"`
}

// Healthy reports whether every component check passed.
func (r HealthReport) Healthy() bool { return r.Status == "ok" }

// Budget is the embedding budget section of a usage report.
type Budget struct {
	TokensLimit     int   `json:"tokens_limit"` // 0 = unlimited
	TokensRemaining int   `json:"tokens_remaining"`
	Exhausted       bool  `json:"exhausted"`
	ResetsAt        int64 `json:"resets_at"` // unix seconds, 0 when unlimited
}

// UsageReport is the embedding usage for one period.
type UsageReport struct {
	Period            string `json:"period"` // day | month | total
	PeriodStart       int64  `json:"period_start"`
	PeriodEnd         int64  `json:"period_end"`
	Collection        string `json:"collection"`
	EmbeddingRequests int    `json:"embedding_requests"`
	TokensUsed        int    `json:"tokens_used"`
	CostMillidollars  int    `json:"cost_millidollars"`
	Budget            Budget `json:"budget"`
}
