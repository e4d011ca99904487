package batch

import (
	"context"

	"github.com/openpermit/permitsearch/internal/domain"
	domdoc "github.com/openpermit/permitsearch/internal/domain/document"
)

// BulkUpserter stores multiple permit records in one round-trip.
type BulkUpserter interface {
	UpsertBatch(ctx context.Context, docs []domdoc.Document) error
}

// DocumentDeleter deletes a permit record from storage.
type DocumentDeleter interface {
	Delete(ctx context.Context, id string) error
}

// BatchEmbedder vectorizes many texts in a single provider call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
