package document

import (
	"context"

	"github.com/openpermit/permitsearch/internal/domain"
	domdoc "github.com/openpermit/permitsearch/internal/domain/document"
)

// Repository defines the storage contract for permit records.
type Repository interface {
	Upsert(ctx context.Context, doc *domdoc.Document) (created bool, err error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context, cursor string, limit int) (
		docs []domdoc.Document, nextCursor string, err error,
	)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
