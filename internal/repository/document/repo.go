package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpermit/permitsearch/internal/db"
	"github.com/openpermit/permitsearch/internal/domain"
	domdoc "github.com/openpermit/permitsearch/internal/domain/document"
	"github.com/openpermit/permitsearch/internal/domain/schema"
)

// store is the consumer interface for permit records (ISP).
type store interface {
	UpsertRecord(ctx context.Context, collection string, rec db.Record) error
	UpsertRecords(ctx context.Context, collection string, recs []db.Record) error
	GetRecord(ctx context.Context, collection, id string) (db.Record, error)
	DeleteRecord(ctx context.Context, collection, id string) error
	RecordExists(ctx context.Context, collection, id string) (bool, error)
	ListRecords(ctx context.Context, q *db.ListQuery) (*db.RecordPage, error)
	CountRecords(ctx context.Context, collection string) (int64, error)
}

// Repo implements usecase/document.Repository for the permit collection.
// It is bound to one schema: the collection name and the numeric field
// set come from it.
type Repo struct {
	store  store
	schema schema.Schema
}

// New creates a document repository.
func New(s store, sch schema.Schema) *Repo {
	return &Repo{store: s, schema: sch}
}

// Upsert creates or updates a permit record. Returns true if created.
func (r *Repo) Upsert(ctx context.Context, doc *domdoc.Document) (bool, error) {
	collection := r.schema.Collection()

	exists, err := r.store.RecordExists(ctx, collection, doc.ID())
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", doc.ID(), err)
	}

	if err := r.store.UpsertRecord(ctx, collection, toRecord(doc)); err != nil {
		return false, fmt.Errorf("upsert %s: %w", doc.ID(), err)
	}

	return !exists, nil
}

// UpsertBatch stores multiple permit records in one round-trip.
func (r *Repo) UpsertBatch(ctx context.Context, docs []domdoc.Document) error {
	if len(docs) == 0 {
		return nil
	}

	recs := make([]db.Record, 0, len(docs))
	for i := range docs {
		recs = append(recs, toRecord(&docs[i]))
	}

	if err := r.store.UpsertRecords(ctx, r.schema.Collection(), recs); err != nil {
		return fmt.Errorf("upsert batch of %d: %w", len(docs), err)
	}
	return nil
}

// Get returns a permit record by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	rec, err := r.store.GetRecord(ctx, r.schema.Collection(), id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("get %s: %w", id, err)
	}
	return r.toDocument(rec), nil
}

// List returns permit records with cursor-based pagination.
func (r *Repo) List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error) {
	if limit <= 0 {
		limit = 20
	}

	page, err := r.store.ListRecords(ctx, &db.ListQuery{
		Collection: r.schema.Collection(),
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return nil, "", fmt.Errorf("list %s: %w", r.schema.Collection(), err)
	}
	if page == nil || len(page.Records) == 0 {
		return nil, "", nil
	}

	docs := make([]domdoc.Document, 0, len(page.Records))
	for _, rec := range page.Records {
		docs = append(docs, r.toDocument(rec))
	}

	return docs, page.NextCursor, nil
}

// Count returns the number of permit records in the collection.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.CountRecords(ctx, r.schema.Collection())
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.schema.Collection(), err)
	}
	return int(n), nil
}

// Delete removes a permit record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	collection := r.schema.Collection()

	exists, err := r.store.RecordExists(ctx, collection, id)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", id, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.DeleteRecord(ctx, collection, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}
