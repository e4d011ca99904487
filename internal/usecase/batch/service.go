package batch

import (
	"context"
	"fmt"

	"github.com/openpermit/permitsearch/internal/domain"
	dombatch "github.com/openpermit/permitsearch/internal/domain/batch"
	domdoc "github.com/openpermit/permitsearch/internal/domain/document"
	"github.com/openpermit/permitsearch/internal/domain/schema"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 100

// Service handles batch permit operations with per-item error reporting.
type Service struct {
	docs         BulkUpserter
	del          DocumentDeleter
	schema       schema.Schema
	embed        BatchEmbedder
	maxBatchSize int
}

// New creates a batch service bound to the configured permit collection.
func New(docs BulkUpserter, del DocumentDeleter, sch schema.Schema, embed BatchEmbedder) *Service {
	return &Service{
		docs: docs, del: del, schema: sch, embed: embed,
		maxBatchSize: MaxBatchSize,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Upsert creates or updates permit records in batch. Invalid items fail
// individually; one embedding call covers all valid items, so an embedding
// failure fails all of them at once.
func (s *Service) Upsert(ctx context.Context, items []domdoc.Document) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i, item := range items {
			results[i] = dombatch.NewError(
				item.ID(),
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidSchema),
			)
		}
		return results
	}

	// Validate items; collect valid ones for the shared embedding call.
	valid := make([]int, 0, len(items))
	texts := make([]string, 0, len(items))
	for i := range items {
		if err := validateItemFields(&items[i], s.schema); err != nil {
			results[i] = dombatch.NewError(items[i].ID(), err)
			continue
		}
		valid = append(valid, i)
		texts = append(texts, items[i].Content())
	}

	if len(valid) == 0 {
		return results
	}

	embRes, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		for _, i := range valid {
			results[i] = dombatch.NewError(items[i].ID(), fmt.Errorf("vectorize: %w", err))
		}
		return results
	}

	domain.UsageFromContext(ctx).AddTokens(embRes.TotalTokens)

	// Per-item dimension check: провайдер мог вернуть усечённые векторы
	stored := make([]domdoc.Document, 0, len(valid))
	storedIdx := make([]int, 0, len(valid))
	for n, i := range valid {
		vec := embRes.Embeddings[n]
		if len(vec) != s.schema.VectorDim() {
			results[i] = dombatch.NewError(items[i].ID(), fmt.Errorf(
				"vector dimension mismatch: got %d, want %d: %w",
				len(vec), s.schema.VectorDim(), domain.ErrVectorDimMismatch,
			))
			continue
		}
		items[i].SetVector(vec)
		stored = append(stored, items[i])
		storedIdx = append(storedIdx, i)
	}

	if len(stored) == 0 {
		return results
	}

	if err := s.docs.UpsertBatch(ctx, stored); err != nil {
		for _, i := range storedIdx {
			results[i] = dombatch.NewError(items[i].ID(), fmt.Errorf("batch upsert: %w", err))
		}
		return results
	}

	for _, i := range storedIdx {
		results[i] = dombatch.NewOK(items[i].ID())
	}
	return results
}

// Delete removes permit records by ID in batch.
func (s *Service) Delete(ctx context.Context, ids []string) []dombatch.Result {
	results := make([]dombatch.Result, len(ids))

	if len(ids) > s.maxBatchSize {
		for i, id := range ids {
			results[i] = dombatch.NewError(
				id, fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidSchema),
			)
		}
		return results
	}

	for i, id := range ids {
		if err := s.del.Delete(ctx, id); err != nil {
			results[i] = dombatch.NewError(id, fmt.Errorf("delete: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(id)
	}

	return results
}

func validateItemFields(doc *domdoc.Document, sch schema.Schema) error {
	for k := range doc.Tags() {
		kind, ok := sch.FieldKind(k)
		if !ok {
			return fmt.Errorf("unknown field %q: %w", k, domain.ErrInvalidSchema)
		}
		if kind != schema.Tag {
			return fmt.Errorf("field %q is %s, not tag: %w", k, kind, domain.ErrInvalidSchema)
		}
	}
	for k := range doc.Numerics() {
		kind, ok := sch.FieldKind(k)
		if !ok {
			return fmt.Errorf("unknown field %q: %w", k, domain.ErrInvalidSchema)
		}
		if kind != schema.Numeric {
			return fmt.Errorf("field %q is %s, not numeric: %w", k, kind, domain.ErrInvalidSchema)
		}
	}
	return nil
}
