package document

import (
	"context"
	"fmt"

	"github.com/openpermit/permitsearch/internal/domain"
	domdoc "github.com/openpermit/permitsearch/internal/domain/document"
	"github.com/openpermit/permitsearch/internal/domain/schema"
)

// Service handles permit record CRUD with automatic vectorization.
type Service struct {
	repo            Repository
	schema          schema.Schema
	embed           Embedder
	defaultPageSize int
	maxPageSize     int
}

// New creates a document service bound to the configured permit collection.
func New(repo Repository, sch schema.Schema, embed Embedder) *Service {
	return &Service{
		repo:            repo,
		schema:          sch,
		embed:           embed,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Upsert creates or updates a permit record with automatic vectorization.
// Returns true if the record was created, false if replaced.
func (s *Service) Upsert(ctx context.Context, doc *domdoc.Document) (bool, error) {
	if err := validateDocFields(doc, s.schema); err != nil {
		return false, err
	}

	result, err := s.embed.Embed(ctx, doc.Content())
	if err != nil {
		return false, fmt.Errorf("vectorize document: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)

	if len(result.Embedding) != s.schema.VectorDim() {
		return false, fmt.Errorf(
			"vector dimension mismatch: got %d, want %d: %w",
			len(result.Embedding), s.schema.VectorDim(), domain.ErrVectorDimMismatch,
		)
	}

	doc.SetVector(result.Embedding)
	created, err := s.repo.Upsert(ctx, doc)
	if err != nil {
		return false, fmt.Errorf("upsert document: %w", err)
	}

	return created, nil
}

// Get retrieves a permit record by ID.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns a paginated list of permit records.
func (s *Service) List(
	ctx context.Context, cursor string, limit int,
) ([]domdoc.Document, string, error) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	docs, nextCursor, err := s.repo.List(ctx, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list documents: %w", err)
	}
	return docs, nextCursor, nil
}

// Delete removes a permit record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Count returns the number of permit records in the collection.
func (s *Service) Count(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// validateDocFields checks Tags/Numerics against the collection schema.
func validateDocFields(doc *domdoc.Document, sch schema.Schema) error {
	return validateSchemaFields(keysStr(doc.Tags()), keysFloat(doc.Numerics()), sch)
}

func validateSchemaFields(tagKeys, numericKeys []string, sch schema.Schema) error {
	for _, k := range tagKeys {
		kind, ok := sch.FieldKind(k)
		if !ok {
			return fmt.Errorf(
				"unknown field %q (not in collection schema): %w",
				k, domain.ErrInvalidSchema,
			)
		}
		if kind != schema.Tag {
			return fmt.Errorf(
				"field %q is %s, not tag: %w",
				k, kind, domain.ErrInvalidSchema,
			)
		}
	}

	for _, k := range numericKeys {
		kind, ok := sch.FieldKind(k)
		if !ok {
			return fmt.Errorf(
				"unknown field %q (not in collection schema): %w",
				k, domain.ErrInvalidSchema,
			)
		}
		if kind != schema.Numeric {
			return fmt.Errorf(
				"field %q is %s, not numeric: %w",
				k, kind, domain.ErrInvalidSchema,
			)
		}
	}

	return nil
}

func keysStr(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func keysFloat(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
