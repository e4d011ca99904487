package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/openpermit/permitsearch/internal/db"
)

// EnsureIndex creates the collection and its payload field indexes when
// missing. An existing collection has its vector size checked against
// the definition.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	exists, err := s.collectionExists(ctx, def.Collection)
	if err != nil {
		return err
	}
	if exists {
		return s.verifyVectorSize(ctx, def)
	}

	if err := s.createCollection(ctx, def); err != nil {
		return err
	}
	return s.createFieldIndexes(ctx, def)
}

// SupportsTextSearch returns false: Qdrant has no BM25 scorer.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return false
}

func (s *Store) collectionExists(ctx context.Context, name string) (bool, error) {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, &db.Error{Op: db.OpListCollections, Err: err}
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) verifyVectorSize(ctx context.Context, def *db.IndexDefinition) error {
	info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: def.Collection})
	if err != nil {
		return &db.Error{Op: db.OpGetCollection, Err: err}
	}

	size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != 0 && size != uint64(def.VectorDim) {
		return fmt.Errorf("collection %s stores %d-dim vectors, config wants %d",
			def.Collection, size, def.VectorDim)
	}
	return nil
}

func (s *Store) createCollection(ctx context.Context, def *db.IndexDefinition) error {
	create := &pb.CreateCollection{
		CollectionName: def.Collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(def.VectorDim),
					Distance: toDistance(def.Distance),
				},
			},
		},
	}

	if def.HNSWM > 0 || def.HNSWEFConstruct > 0 {
		hnsw := &pb.HnswConfigDiff{}
		if def.HNSWM > 0 {
			m := uint64(def.HNSWM)
			hnsw.M = &m
		}
		if def.HNSWEFConstruct > 0 {
			ef := uint64(def.HNSWEFConstruct)
			hnsw.EfConstruct = &ef
		}
		create.HnswConfig = hnsw
	}

	if _, err := s.collections.Create(ctx, create); err != nil {
		return &db.Error{Op: db.OpCreateCollection, Err: err}
	}
	return nil
}

// createFieldIndexes provisions payload indexes so metadata filters do
// not fall back to full scans.
func (s *Store) createFieldIndexes(ctx context.Context, def *db.IndexDefinition) error {
	wait := true
	for _, f := range def.Fields {
		ft := toFieldType(f.Type)
		_, err := s.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: def.Collection,
			Wait:           &wait,
			FieldName:      f.Name,
			FieldType:      &ft,
		})
		if err != nil {
			return &db.Error{Op: db.OpCreateFieldIndex, Err: fmt.Errorf("field %s: %w", f.Name, err)}
		}
	}
	return nil
}

func toDistance(d db.DistanceMetric) pb.Distance {
	switch d {
	case db.DistanceL2:
		return pb.Distance_Euclid
	case db.DistanceIP:
		return pb.Distance_Dot
	default:
		return pb.Distance_Cosine
	}
}

func toFieldType(t db.IndexFieldType) pb.FieldType {
	if t == db.IndexFieldNumeric {
		return pb.FieldType_FieldTypeFloat
	}
	return pb.FieldType_FieldTypeKeyword
}
