package qdrant

import (
	"context"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/openpermit/permitsearch/internal/db"
)

// Payload fields the driver manages itself. Metadata fields are stored
// under their plain names next to these; plain names cannot collide
// because the schema forbids leading underscores.
const (
	payloadID      = "__id"
	payloadContent = "__content"
)

// UpsertRecord stores a single document point.
func (s *Store) UpsertRecord(ctx context.Context, collection string, rec db.Record) error {
	return s.UpsertRecords(ctx, collection, []db.Record{rec})
}

// UpsertRecords stores multiple document points in one call.
func (s *Store) UpsertRecords(ctx context.Context, collection string, recs []db.Record) error {
	if len(recs) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(recs))
	for i, rec := range recs {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(rec.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: rec.Vector},
			}},
			Payload: recordToPayload(rec),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return &db.Error{Op: db.OpUpsertPoints, Err: err}
	}
	return nil
}

// GetRecord fetches a document point with payload and vector.
func (s *Store) GetRecord(ctx context.Context, collection, id string) (db.Record, error) {
	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: collection,
		Ids:            []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(id)}}},
		WithPayload:    withPayload(),
		WithVectors:    withVectors(),
	})
	if err != nil {
		return db.Record{}, &db.Error{Op: db.OpGetPoints, Err: err}
	}
	if len(resp.GetResult()) == 0 {
		return db.Record{}, db.ErrKeyNotFound
	}

	p := resp.GetResult()[0]
	rec := payloadToRecord(id, p.GetPayload())
	rec.Vector = p.GetVectors().GetVector().GetData()
	return rec, nil
}

// DeleteRecord removes a document point.
func (s *Store) DeleteRecord(ctx context.Context, collection, id string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(id)}}},
				},
			},
		},
	})
	if err != nil {
		return &db.Error{Op: db.OpDeletePoints, Err: err}
	}
	return nil
}

// RecordExists checks if a document point exists.
func (s *Store) RecordExists(ctx context.Context, collection, id string) (bool, error) {
	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: collection,
		Ids:            []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(id)}}},
	})
	if err != nil {
		return false, &db.Error{Op: db.OpGetPoints, Err: err}
	}
	return len(resp.GetResult()) > 0, nil
}

// recordToPayload flattens a record into a typed point payload.
func recordToPayload(rec db.Record) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(rec.Tags)+len(rec.Numerics)+2)
	payload[payloadID] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: rec.ID}}
	payload[payloadContent] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: rec.Content}}
	for k, v := range rec.Tags {
		payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	for k, v := range rec.Numerics {
		payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: v}}
	}
	return payload
}

// payloadToRecord rebuilds a record from a typed point payload. Payload
// values keep their native kinds, so tags and numerics separate without
// consulting the schema. Pass an empty id to take it from the payload.
func payloadToRecord(id string, payload map[string]*pb.Value) db.Record {
	rec := db.Record{
		ID:       id,
		Tags:     make(map[string]string),
		Numerics: make(map[string]float64),
	}

	for k, val := range payload {
		switch k {
		case payloadID:
			if rec.ID == "" {
				rec.ID = val.GetStringValue()
			}
			continue
		case payloadContent:
			rec.Content = val.GetStringValue()
			continue
		}

		switch kind := val.GetKind().(type) {
		case *pb.Value_StringValue:
			rec.Tags[k] = kind.StringValue
		case *pb.Value_DoubleValue:
			rec.Numerics[k] = kind.DoubleValue
		case *pb.Value_IntegerValue:
			rec.Numerics[k] = float64(kind.IntegerValue)
		}
	}

	return rec
}

func withPayload() *pb.WithPayloadSelector {
	return &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}}
}

func withVectors() *pb.WithVectorsSelector {
	return &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}}
}
