package chi

// Wire types for the JSON API.

// Error codes carried in ErrorResponse.Code.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeUnauthorized     = "unauthorized"
	codeQuotaExceeded    = "quota_exceeded"
	codeRateLimited      = "rate_limited"
	codeNotImplemented   = "not_implemented"
	codeUpstreamError    = "upstream_error"
	codeInternal         = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query    string         `json:"query"`
	Mode     *string        `json:"mode,omitempty"`
	Filters  map[string]any `json:"filters,omitempty"`
	TopK     *int           `json:"top_k,omitempty"`
	MinScore *float64       `json:"min_score,omitempty"`
}

// SearchResultItem is one ranked hit.
type SearchResultItem struct {
	Document        string         `json:"document"`
	Metadata        map[string]any `json:"metadata"`
	SimilarityScore float64        `json:"similarity_score"`
}

// SearchResponse is the POST /search reply, ranked by descending score.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
}

// UpsertDocumentRequest is the PUT /documents/{id} body.
type UpsertDocumentRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentResponse is a stored permit record as returned by the API.
type DocumentResponse struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentListResponse is the GET /documents reply.
type DocumentListResponse struct {
	Items      []DocumentResponse `json:"items"`
	NextCursor *string            `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
	Total      int                `json:"total"`
}

// BatchUpsertItem is one document in a POST /documents/batch body.
type BatchUpsertItem struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BatchUpsertRequest is the POST /documents/batch body.
type BatchUpsertRequest struct {
	Items []BatchUpsertItem `json:"items"`
}

// BatchItemResult is the per-item outcome of a batch upsert.
type BatchItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchUpsertResponse is the POST /documents/batch reply.
type BatchUpsertResponse struct {
	Items     []BatchItemResult `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// HealthzResponse is the GET /healthz liveness reply.
type HealthzResponse struct {
	OK bool `json:"ok"`
}

// HealthCheckItem is one component entry in the readiness report.
type HealthCheckItem struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
}

// HealthResponse is the GET /health readiness reply.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks []HealthCheckItem `json:"checks"`
}

// BudgetStatus is the embedding budget section of the usage report.
type BudgetStatus struct {
	TokensLimit     int    `json:"tokens_limit"`
	TokensRemaining int    `json:"tokens_remaining"`
	Exhausted       bool   `json:"exhausted"`
	ResetsAt        *int64 `json:"resets_at,omitempty"`
}

// UsageResponse is the GET /usage reply.
type UsageResponse struct {
	Period            string       `json:"period"`
	PeriodStart       *int64       `json:"period_start,omitempty"`
	PeriodEnd         *int64       `json:"period_end,omitempty"`
	Collection        string       `json:"collection,omitempty"`
	EmbeddingRequests int          `json:"embedding_requests"`
	TokensUsed        int          `json:"tokens_used"`
	CostMillidollars  *int         `json:"cost_millidollars,omitempty"`
	Budget            BudgetStatus `json:"budget"`
}
