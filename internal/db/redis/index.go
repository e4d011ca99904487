package redis

import (
	"context"
	"strconv"

	"github.com/openpermit/permitsearch/internal/db"
)

// EnsureIndex creates the FT index for a collection when it is missing.
// Redis exposes no cheap way to read back the vector DIM of an existing
// index, so dimension mismatches surface at search time instead.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	name := s.indexName(def.Collection)

	exists, err := s.indexExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(s.buildCreateArgs(name, def)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil // lost a create race, the index is there
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// indexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) indexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// SupportsTextSearch returns true: Redis 8+ supports TEXT fields and BM25 scoring.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return true
}

func (s *Store) buildCreateArgs(name string, def *db.IndexDefinition) []string {
	args := []string{name, "ON", "HASH", "PREFIX", "1", s.prefix + def.Collection + ":"}

	args = append(args, "SCHEMA")
	args = append(args, fieldContent, "TEXT")
	args = append(args, buildVectorFieldArgs(def)...)

	for _, f := range def.Fields {
		switch f.Type {
		case db.IndexFieldNumeric:
			args = append(args, f.Name, "NUMERIC")
		case db.IndexFieldTag:
			args = append(args, f.Name, "TAG")
		}
	}

	return args
}

func buildVectorFieldArgs(def *db.IndexDefinition) []string {
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(def.VectorDim),
		"DISTANCE_METRIC", string(def.Distance),
	}

	if def.HNSWM > 0 {
		attrs = append(attrs, "M", strconv.Itoa(def.HNSWM))
	}
	if def.HNSWEFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(def.HNSWEFConstruct))
	}

	result := make([]string, 0, 3+len(attrs))
	result = append(result, fieldVector, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
	result = append(result, attrs...)

	return result
}
