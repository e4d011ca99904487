package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/openpermit/permitsearch/internal/db"
	"github.com/openpermit/permitsearch/internal/domain/search/filter"
)

// SearchKNN runs a vector similarity search over the collection.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.Collection,
		Vector:         q.Vector,
		Limit:          uint64(q.K),
		WithPayload:    withPayload(),
		Filter:         buildFilter(q.Filters),
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpSearchPoints, Err: err}
	}

	hits := resp.GetResult()
	entries := make([]db.SearchEntry, 0, len(hits))
	for _, hit := range hits {
		rec := payloadToRecord("", hit.GetPayload())
		entries = append(entries, db.SearchEntry{
			ID:       rec.ID,
			Score:    max(0, float64(hit.GetScore())), // cosine similarity, clamped to [0,1]
			Content:  rec.Content,
			Tags:     rec.Tags,
			Numerics: rec.Numerics,
		})
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// SearchBM25 is not available on this driver.
func (s *Store) SearchBM25(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
	return nil, db.ErrNotSupported
}

// ListRecords pages through the collection by scrolling points. The
// cursor is the next point UUID reported by Qdrant.
func (s *Store) ListRecords(ctx context.Context, q *db.ListQuery) (*db.RecordPage, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	limit := uint32(q.Limit)
	req := &pb.ScrollPoints{
		CollectionName: q.Collection,
		Limit:          &limit,
		WithPayload:    withPayload(),
		WithVectors:    withVectors(),
	}
	if q.Cursor != "" {
		req.Offset = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: q.Cursor}}
	}

	resp, err := s.points.Scroll(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpScrollPoints, Err: err}
	}

	points := resp.GetResult()
	records := make([]db.Record, 0, len(points))
	for _, p := range points {
		rec := payloadToRecord("", p.GetPayload())
		rec.Vector = p.GetVectors().GetVector().GetData()
		records = append(records, rec)
	}

	page := &db.RecordPage{Records: records}
	if next := resp.GetNextPageOffset(); next != nil {
		page.NextCursor = next.GetUuid()
	}
	return page, nil
}

// CountRecords returns the exact number of points in the collection.
func (s *Store) CountRecords(ctx context.Context, collection string) (int64, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, &db.Error{Op: db.OpCountPoints, Err: err}
	}
	return int64(resp.GetResult().GetCount()), nil
}

// buildFilter translates a filter into Qdrant must-conditions.
func buildFilter(f filter.Filter) *pb.Filter {
	if f.IsEmpty() {
		return nil
	}

	conds := f.Conditions()
	must := make([]*pb.Condition, 0, len(conds))
	for _, cond := range conds {
		must = append(must, buildCondition(cond))
	}
	return &pb.Filter{Must: must}
}

func buildCondition(cond filter.Condition) *pb.Condition {
	fc := &pb.FieldCondition{Key: cond.Key()}

	if cond.IsMatch() {
		fc.Match = &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: cond.Match()}}
	} else if r := cond.Range(); r != nil {
		fc.Range = &pb.Range{Gt: r.GT(), Gte: r.GTE(), Lt: r.LT(), Lte: r.LTE()}
	}

	return &pb.Condition{ConditionOneOf: &pb.Condition_Field{Field: fc}}
}
