package document

import (
	"context"
	"testing"

	"github.com/openpermit/permitsearch/internal/db"
	domdoc "github.com/openpermit/permitsearch/internal/domain/document"
	"github.com/openpermit/permitsearch/internal/domain/schema"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	upsertFn      func(ctx context.Context, collection string, rec db.Record) error
	upsertBatchFn func(ctx context.Context, collection string, recs []db.Record) error
	getFn         func(ctx context.Context, collection, id string) (db.Record, error)
	deleteFn      func(ctx context.Context, collection, id string) error
	existsFn      func(ctx context.Context, collection, id string) (bool, error)
	listFn        func(ctx context.Context, q *db.ListQuery) (*db.RecordPage, error)
	countFn       func(ctx context.Context, collection string) (int64, error)
}

func (m *mockStore) UpsertRecord(ctx context.Context, collection string, rec db.Record) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, collection, rec)
	}
	return nil
}

func (m *mockStore) UpsertRecords(ctx context.Context, collection string, recs []db.Record) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, collection, recs)
	}
	return nil
}

func (m *mockStore) GetRecord(ctx context.Context, collection, id string) (db.Record, error) {
	if m.getFn != nil {
		return m.getFn(ctx, collection, id)
	}
	return db.Record{}, nil
}

func (m *mockStore) DeleteRecord(ctx context.Context, collection, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, collection, id)
	}
	return nil
}

func (m *mockStore) RecordExists(ctx context.Context, collection, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, collection, id)
	}
	return false, nil
}

func (m *mockStore) ListRecords(ctx context.Context, q *db.ListQuery) (*db.RecordPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, q)
	}
	return &db.RecordPage{}, nil
}

func (m *mockStore) CountRecords(ctx context.Context, collection string) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, collection)
	}
	return 0, nil
}

func testSchema(t *testing.T) schema.Schema {
	t.Helper()
	sch, err := schema.FromConfig("permits", 4, map[string]string{
		"status":      "tag",
		"permit_type": "tag",
		"valuation":   "numeric",
		"units":       "numeric",
	})
	if err != nil {
		t.Fatalf("test schema: %v", err)
	}
	return sch
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, testSchema(t))
	return repo, ms
}

func testDocument(t *testing.T) domdoc.Document {
	t.Helper()
	return domdoc.Reconstruct("permit-1", "new deck and railing",
		map[string]string{"status": "issued"},
		map[string]float64{"valuation": 25000},
		testVector(4),
	)
}

func testVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(i) * 0.001
	}
	return vec
}
