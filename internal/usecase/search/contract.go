package search

import (
	"context"

	"github.com/openpermit/permitsearch/internal/domain"
	"github.com/openpermit/permitsearch/internal/domain/search/filter"
	"github.com/openpermit/permitsearch/internal/domain/search/result"
	"github.com/openpermit/permitsearch/internal/querylog"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	SearchKNN(
		ctx context.Context, vector []float32, filters filter.Filter, topK int,
	) ([]result.Result, error)

	SearchBM25(
		ctx context.Context, query string, filters filter.Filter, topK int,
	) ([]result.Result, error)

	SupportsTextSearch(ctx context.Context) bool
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// QueryLog records executed queries for the audit trail.
type QueryLog interface {
	Write(e querylog.Entry)
}
