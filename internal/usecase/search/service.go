package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openpermit/permitsearch/internal/domain"
	"github.com/openpermit/permitsearch/internal/domain/schema"
	"github.com/openpermit/permitsearch/internal/domain/search/filter"
	"github.com/openpermit/permitsearch/internal/domain/search/mode"
	"github.com/openpermit/permitsearch/internal/domain/search/request"
	"github.com/openpermit/permitsearch/internal/domain/search/result"
	"github.com/openpermit/permitsearch/internal/logger"
	"github.com/openpermit/permitsearch/internal/metrics"
	"github.com/openpermit/permitsearch/internal/querylog"
)

// Service handles permit search across semantic, keyword, and hybrid modes.
type Service struct {
	repo   Repository
	schema schema.Schema
	embed  Embedder
	qlog   QueryLog
}

// New creates a search service bound to the configured permit collection.
func New(repo Repository, sch schema.Schema, embed Embedder, qlog QueryLog) *Service {
	return &Service{repo: repo, schema: sch, embed: embed, qlog: qlog}
}

// Search executes a permit search. Every request is recorded in the query
// log, failed ones included; a log write never fails the search itself.
func (s *Service) Search(
	ctx context.Context, req *request.Request,
) ([]result.Result, error) {
	start := time.Now()

	results, err := s.run(ctx, req)
	s.observe(ctx, req, results, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	return results, nil
}

func (s *Service) run(
	ctx context.Context, req *request.Request,
) ([]result.Result, error) {
	if err := validateFiltersAgainstSchema(req.Filters(), s.schema); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}

	var (
		results []result.Result
		err     error
	)

	switch req.Mode() {
	case mode.Semantic:
		results, err = s.searchSemantic(ctx, req)
	case mode.Keyword:
		results, err = s.searchKeyword(ctx, req)
	case mode.Hybrid:
		results, err = s.searchHybrid(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode())
	}
	if err != nil {
		return nil, err
	}

	// Post-filter: min_score
	if req.MinScore() > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score() >= req.MinScore() {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	return results, nil
}

// searchSemantic embeds the query and runs KNN search (works on any backend).
func (s *Service) searchSemantic(
	ctx context.Context, req *request.Request,
) ([]result.Result, error) {
	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	results, err := s.repo.SearchKNN(ctx, embResult.Embedding, req.Filters(), req.TopK())
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	return results, nil
}

// searchKeyword runs BM25 search (requires a text index on the backend).
func (s *Service) searchKeyword(
	ctx context.Context, req *request.Request,
) ([]result.Result, error) {
	if !s.repo.SupportsTextSearch(ctx) {
		return nil, domain.ErrKeywordSearchNotSupported
	}

	results, err := s.repo.SearchBM25(ctx, req.Query(), req.Filters(), req.TopK())
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}
	return results, nil
}

// searchHybrid runs KNN + BM25, then fuses via RRF (requires a text index).
func (s *Service) searchHybrid(
	ctx context.Context, req *request.Request,
) ([]result.Result, error) {
	if !s.repo.SupportsTextSearch(ctx) {
		return nil, domain.ErrKeywordSearchNotSupported
	}

	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	knnResults, err := s.repo.SearchKNN(ctx, embResult.Embedding, req.Filters(), req.TopK())
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	bm25Results, err := s.repo.SearchBM25(ctx, req.Query(), req.Filters(), req.TopK())
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}

	return fuseRRF(knnResults, bm25Results, req.TopK()), nil
}

// observe записывает метрики и строку query log для выполненного запроса.
func (s *Service) observe(
	ctx context.Context, req *request.Request,
	results []result.Result, err error, elapsed time.Duration,
) {
	m := string(req.Mode())
	status := "ok"
	if err != nil {
		status = "error"
	}

	metrics.SearchRequestsTotal.WithLabelValues(m, status).Inc()
	if err == nil {
		metrics.SearchResultCount.WithLabelValues(m).Observe(float64(len(results)))
	}

	if s.qlog == nil {
		return
	}

	entry := querylog.Entry{
		RequestID:   logger.RequestIDFromContext(ctx),
		Query:       req.Query(),
		Mode:        m,
		TopK:        req.TopK(),
		Filters:     filtersForLog(req.Filters()),
		ResultCount: len(results),
		DurationMS:  elapsed.Milliseconds(),
		Err:         errorClass(err),
	}
	for i := range results {
		entry.Results = append(entry.Results, querylog.Hit{
			ID:    results[i].ID(),
			Score: results[i].Score(),
		})
	}

	s.qlog.Write(entry)
}

// validateFiltersAgainstSchema ensures filter fields exist in the collection
// schema and that filter type (match/range) matches the field kind (tag/numeric).
func validateFiltersAgainstSchema(f filter.Filter, sch schema.Schema) error {
	if f.IsEmpty() {
		return nil
	}
	for _, c := range f.Conditions() {
		kind, ok := sch.FieldKind(c.Key())
		if !ok {
			return fmt.Errorf("unknown filter field %q", c.Key())
		}
		if c.IsMatch() && kind != schema.Tag {
			return fmt.Errorf("match filter on non-tag field %q", c.Key())
		}
		if c.IsRange() && kind != schema.Numeric {
			return fmt.Errorf("range filter on non-numeric field %q", c.Key())
		}
	}
	return nil
}

// filtersForLog flattens conditions into the JSON shape the audit log stores.
// A degenerate range (gte = lte) is logged as the plain number it came from.
func filtersForLog(f filter.Filter) map[string]any {
	if f.IsEmpty() {
		return nil
	}

	out := make(map[string]any, len(f.Conditions()))
	for _, c := range f.Conditions() {
		switch {
		case c.IsMatch():
			out[c.Key()] = c.Match()
		case c.IsRange():
			out[c.Key()] = rangeForLog(*c.Range())
		}
	}
	return out
}

func rangeForLog(r filter.Range) any {
	if r.GTE() != nil && r.LTE() != nil && *r.GTE() == *r.LTE() {
		return *r.GTE()
	}

	bounds := make(map[string]float64, 2)
	if r.GT() != nil {
		bounds["gt"] = *r.GT()
	}
	if r.GTE() != nil {
		bounds["gte"] = *r.GTE()
	}
	if r.LT() != nil {
		bounds["lt"] = *r.LT()
	}
	if r.LTE() != nil {
		bounds["lte"] = *r.LTE()
	}
	return bounds
}

// errorClass maps an error to a short stable label for the query log.
func errorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidSchema):
		return "invalid_filter"
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return "embedding_provider"
	case errors.Is(err, domain.ErrKeywordSearchNotSupported):
		return "keyword_not_supported"
	default:
		return "internal"
	}
}
