package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/openpermit/permitsearch/internal/db"
	"github.com/openpermit/permitsearch/internal/domain"
	"github.com/openpermit/permitsearch/internal/domain/schema"
	"github.com/openpermit/permitsearch/internal/domain/search/filter"
	"github.com/openpermit/permitsearch/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements usecase/search.Repository for the permit collection.
type Repo struct {
	store  store
	schema schema.Schema
}

// New creates a search repository.
func New(s store, sch schema.Schema) *Repo {
	return &Repo{store: s, schema: sch}
}

// SupportsTextSearch proxies the capability check from the store.
func (r *Repo) SupportsTextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

// SearchKNN performs a vector similarity search with filter pre-filtering.
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, filters filter.Filter, topK int,
) ([]result.Result, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		Collection: r.schema.Collection(),
		Filters:    filters,
		Vector:     vector,
		K:          topK,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.schema.Collection(), err)
	}

	return r.toResults(sr), nil
}

// SearchBM25 performs a keyword relevance search. Drivers without a text
// index report domain.ErrKeywordSearchNotSupported.
func (r *Repo) SearchBM25(
	ctx context.Context, query string, filters filter.Filter, topK int,
) ([]result.Result, error) {
	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		Collection: r.schema.Collection(),
		Query:      query,
		Filters:    filters,
		TopK:       topK,
	})
	if err != nil {
		if errors.Is(err, db.ErrNotSupported) {
			return nil, domain.ErrKeywordSearchNotSupported
		}
		return nil, fmt.Errorf("search bm25 %s: %w", r.schema.Collection(), err)
	}

	return r.toResults(sr), nil
}

// toResults converts db entries into domain results, re-typing schema
// numeric fields that raw-string drivers leave in the tag map.
func (r *Repo) toResults(sr *db.SearchResult) []result.Result {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		tags, numerics := splitMetadata(r.schema, entry.Tags, entry.Numerics)
		results = append(results, result.New(entry.ID, entry.Score, entry.Content, tags, numerics))
	}
	return results
}

// splitMetadata moves schema numeric fields from the raw tag map into the
// numeric map. Unknown fields and unparseable values stay as tags.
func splitMetadata(
	sch schema.Schema, rawTags map[string]string, rawNumerics map[string]float64,
) (map[string]string, map[string]float64) {
	tags := make(map[string]string, len(rawTags))
	numerics := make(map[string]float64, len(rawNumerics)+len(rawTags))

	for k, v := range rawNumerics {
		numerics[k] = v
	}
	for k, v := range rawTags {
		if sch.HasField(k, schema.Numeric) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				numerics[k] = f
				continue
			}
		}
		tags[k] = v
	}

	return tags, numerics
}
