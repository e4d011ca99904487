package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	RecordStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Record is the driver-neutral stored form of a permit document.
// Drivers own the physical layout (hash fields, point payload).
type Record struct {
	ID       string
	Content  string
	Tags     map[string]string
	Numerics map[string]float64
	Vector   []float32
}

// RecordStore provides document storage operations within a collection.
type RecordStore interface {
	UpsertRecord(ctx context.Context, collection string, rec Record) error
	UpsertRecords(ctx context.Context, collection string, recs []Record) error
	GetRecord(ctx context.Context, collection, id string) (Record, error)
	DeleteRecord(ctx context.Context, collection, id string) error
	RecordExists(ctx context.Context, collection, id string) (bool, error)
}

// KVStore provides simple key-value operations.
// Drivers without a KV surface return ErrNotSupported.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// IndexManager provisions the searchable collection.
type IndexManager interface {
	// EnsureIndex creates the collection index when missing. When the
	// backend reports existing vector dimensions they are checked against
	// the definition and a mismatch is an error.
	EnsureIndex(ctx context.Context, def *IndexDefinition) error
	SupportsTextSearch(ctx context.Context) bool
}

// Searcher provides search and listing operations over the collection.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
	ListRecords(ctx context.Context, q *ListQuery) (*RecordPage, error)
	CountRecords(ctx context.Context, collection string) (int64, error)
}
