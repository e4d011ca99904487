package qdrant

import (
	"context"
	"time"

	"github.com/openpermit/permitsearch/internal/db"
)

// Qdrant has no key-value surface. Features that need one (embedding
// cache, budget counters) are wired only for KV-capable drivers.

// Get always fails with ErrNotSupported.
func (s *Store) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, db.ErrNotSupported
}

// Set always fails with ErrNotSupported.
func (s *Store) Set(_ context.Context, _ string, _ []byte) error {
	return db.ErrNotSupported
}

// SetWithTTL always fails with ErrNotSupported.
func (s *Store) SetWithTTL(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return db.ErrNotSupported
}

// IncrBy always fails with ErrNotSupported.
func (s *Store) IncrBy(_ context.Context, _ string, _ int64) error {
	return db.ErrNotSupported
}

// Expire always fails with ErrNotSupported.
func (s *Store) Expire(_ context.Context, _ string, _ time.Duration, _ bool) error {
	return db.ErrNotSupported
}
