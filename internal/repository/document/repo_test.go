package document

import (
	"context"
	"errors"
	"testing"

	"github.com/openpermit/permitsearch/internal/db"
	"github.com/openpermit/permitsearch/internal/domain"
	domdoc "github.com/openpermit/permitsearch/internal/domain/document"
)

// --- Upsert ---

func TestUpsert_Create(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	doc := testDocument(t)

	ms.existsFn = func(_ context.Context, collection, id string) (bool, error) {
		if collection != "permits" || id != "permit-1" {
			t.Errorf("unexpected lookup: %s/%s", collection, id)
		}
		return false, nil
	}
	ms.upsertFn = func(_ context.Context, collection string, rec db.Record) error {
		if collection != "permits" {
			t.Errorf("unexpected collection: %s", collection)
		}
		if rec.ID != "permit-1" || rec.Content != "new deck and railing" {
			t.Errorf("unexpected record: %+v", rec)
		}
		if rec.Numerics["valuation"] != 25000 {
			t.Errorf("numerics should pass through typed: %v", rec.Numerics)
		}
		return nil
	}

	created, err := repo.Upsert(ctx, &doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected created=true for new doc")
	}
}

func TestUpsert_Update(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	doc := testDocument(t)

	ms.existsFn = func(_ context.Context, _, _ string) (bool, error) { return true, nil }

	created, err := repo.Upsert(ctx, &doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("expected created=false for existing doc")
	}
}

func TestUpsert_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	doc := testDocument(t)

	ms.upsertFn = func(_ context.Context, _ string, _ db.Record) error {
		return errors.New("OOM")
	}

	_, err := repo.Upsert(ctx, &doc)
	if err == nil {
		t.Fatal("expected error on store failure")
	}
}

// --- UpsertBatch ---

func TestUpsertBatch_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var captured []db.Record
	ms.upsertBatchFn = func(_ context.Context, collection string, recs []db.Record) error {
		if collection != "permits" {
			t.Errorf("unexpected collection: %s", collection)
		}
		captured = recs
		return nil
	}

	doc1 := testDocument(t)
	doc2 := testDocument(t)
	err := repo.UpsertBatch(ctx, []domdoc.Document{doc1, doc2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured) != 2 {
		t.Fatalf("expected 2 records, got %d", len(captured))
	}
}

func TestUpsertBatch_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.upsertBatchFn = func(_ context.Context, _ string, _ []db.Record) error {
		t.Error("store should not be called for empty batch")
		return nil
	}

	if err := repo.UpsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Get ---

func TestGet_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.getFn = func(_ context.Context, collection, id string) (db.Record, error) {
		if collection != "permits" || id != "permit-1" {
			t.Errorf("unexpected lookup: %s/%s", collection, id)
		}
		return db.Record{
			ID:      "permit-1",
			Content: "new deck and railing",
			// так отдаёт redis: все метаданные сырыми строками
			Tags: map[string]string{
				"status":    "issued",
				"valuation": "25000",
			},
			Vector: []float32{0.1, 0.2},
		}, nil
	}

	doc, err := repo.Get(ctx, "permit-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "permit-1" {
		t.Fatalf("expected ID permit-1, got %s", doc.ID())
	}
	if doc.Content() != "new deck and railing" {
		t.Fatalf("unexpected content: %s", doc.Content())
	}
	if doc.Tags()["status"] != "issued" {
		t.Fatalf("expected tag status=issued, got %v", doc.Tags())
	}
	if doc.Numerics()["valuation"] != 25000 {
		t.Fatalf("expected numeric valuation=25000, got %v", doc.Numerics())
	}
	if _, ok := doc.Tags()["valuation"]; ok {
		t.Fatal("schema numeric field should not stay a tag")
	}
}

func TestGet_TypedDriver(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	// так отдаёт qdrant: числа уже типизированы
	ms.getFn = func(_ context.Context, _, _ string) (db.Record, error) {
		return db.Record{
			ID:       "permit-1",
			Content:  "re-roof",
			Tags:     map[string]string{"status": "final"},
			Numerics: map[string]float64{"valuation": 9000},
		}, nil
	}

	doc, err := repo.Get(ctx, "permit-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Numerics()["valuation"] != 9000 {
		t.Fatalf("unexpected numerics: %v", doc.Numerics())
	}
	if doc.Tags()["status"] != "final" {
		t.Fatalf("unexpected tags: %v", doc.Tags())
	}
}

func TestGet_LeadingZeroTagSurvives(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	// permit_type объявлен тегом, "007" не должен превратиться в число
	ms.getFn = func(_ context.Context, _, _ string) (db.Record, error) {
		return db.Record{
			ID:      "permit-1",
			Content: "x",
			Tags:    map[string]string{"permit_type": "007"},
		}, nil
	}

	doc, err := repo.Get(ctx, "permit-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Tags()["permit_type"] != "007" {
		t.Fatalf("tag value mangled: %v", doc.Tags())
	}
	if len(doc.Numerics()) != 0 {
		t.Fatalf("unexpected numerics: %v", doc.Numerics())
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.getFn = func(_ context.Context, _, _ string) (db.Record, error) {
		return db.Record{}, db.ErrKeyNotFound
	}

	_, err := repo.Get(ctx, "nonexistent")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

// --- Delete ---

func TestDelete_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.existsFn = func(_ context.Context, _, id string) (bool, error) {
		return id == "permit-1", nil
	}
	ms.deleteFn = func(_ context.Context, _, _ string) error { return nil }

	if err := repo.Delete(ctx, "permit-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.existsFn = func(_ context.Context, _, _ string) (bool, error) { return false, nil }

	err := repo.Delete(ctx, "permit-1")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

// --- List ---

func TestList_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.listFn = func(_ context.Context, q *db.ListQuery) (*db.RecordPage, error) {
		if q.Collection != "permits" || q.Cursor != "" || q.Limit != 2 {
			t.Errorf("unexpected query: %+v", q)
		}
		return &db.RecordPage{
			Records: []db.Record{
				{ID: "permit-1", Content: "deck", Tags: map[string]string{"valuation": "100"}},
				{ID: "permit-2", Content: "roof", Tags: map[string]string{"valuation": "200"}},
			},
			NextCursor: "2",
		}, nil
	}

	docs, nextCursor, err := repo.List(ctx, "", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID() != "permit-1" || docs[1].ID() != "permit-2" {
		t.Fatalf("unexpected ids: %s, %s", docs[0].ID(), docs[1].ID())
	}
	if docs[0].Numerics()["valuation"] != 100 {
		t.Fatalf("expected re-typed valuation, got %v", docs[0].Numerics())
	}
	if nextCursor != "2" {
		t.Fatalf("expected nextCursor=2, got %q", nextCursor)
	}
}

func TestList_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.listFn = func(_ context.Context, _ *db.ListQuery) (*db.RecordPage, error) {
		return &db.RecordPage{}, nil
	}

	docs, nextCursor, err := repo.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected 0 docs, got %d", len(docs))
	}
	if nextCursor != "" {
		t.Fatalf("expected empty cursor, got %q", nextCursor)
	}
}

func TestList_DefaultLimit(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.listFn = func(_ context.Context, q *db.ListQuery) (*db.RecordPage, error) {
		if q.Limit != 20 {
			t.Errorf("expected default limit 20, got %d", q.Limit)
		}
		return &db.RecordPage{}, nil
	}

	if _, _, err := repo.List(ctx, "", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Count ---

func TestCount_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.countFn = func(_ context.Context, collection string) (int64, error) {
		if collection != "permits" {
			t.Errorf("unexpected collection: %s", collection)
		}
		return 42, nil
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
}

func TestCount_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.countFn = func(_ context.Context, _ string) (int64, error) {
		return 0, errors.New("index missing")
	}

	if _, err := repo.Count(ctx); err == nil {
		t.Fatal("expected error")
	}
}
