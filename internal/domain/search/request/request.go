package request

import (
	"fmt"

	"github.com/openpermit/permitsearch/internal/domain/search/filter"
	"github.com/openpermit/permitsearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 100
)

// Request is a validated search query.
type Request struct {
	query      string
	searchMode mode.Mode
	filters    filter.Filter
	topK       int
	minScore   float64
}

// New validates search parameters.
// Mode defaults to semantic. An out-of-range topK is rejected, not clamped;
// callers substitute DefaultTopK when the client omitted it.
func New(
	query string,
	m mode.Mode,
	filters filter.Filter,
	topK int,
	minScore float64,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if m == "" {
		m = mode.Semantic
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode: %q", m)
	}
	if topK <= 0 {
		return Request{}, fmt.Errorf("top_k must be positive")
	}
	if topK > MaxTopK {
		return Request{}, fmt.Errorf("top_k must be between 1 and %d", MaxTopK)
	}
	if minScore < 0 || minScore > 1 {
		return Request{}, fmt.Errorf("min_score must be between 0 and 1")
	}

	return Request{
		query:      query,
		searchMode: m,
		filters:    filters,
		topK:       topK,
		minScore:   minScore,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the pre-filter conditions.
func (r *Request) Filters() filter.Filter { return r.filters }

// TopK returns the number of results to retrieve.
func (r *Request) TopK() int { return r.topK }

// MinScore returns the minimum similarity threshold.
func (r *Request) MinScore() float64 { return r.minScore }
