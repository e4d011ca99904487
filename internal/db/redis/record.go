package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/openpermit/permitsearch/internal/db"
)

// Hash fields the driver manages itself. Metadata fields are stored under
// their plain names next to these; plain names cannot collide because the
// schema reserves "vector" and forbids leading underscores.
const (
	fieldContent = "__content"
	fieldVector  = "vector"
)

// UpsertRecord replaces the document hash at the collection key.
func (s *Store) UpsertRecord(ctx context.Context, collection string, rec db.Record) error {
	results := s.client.DoMulti(ctx, s.upsertCmds(collection, rec)...)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: err}
		}
	}
	return nil
}

// UpsertRecords replaces multiple document hashes in a single DoMulti round-trip.
func (s *Store) UpsertRecords(ctx context.Context, collection string, recs []db.Record) error {
	if len(recs) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(recs)*2)
	for _, rec := range recs {
		cmds = append(cmds, s.upsertCmds(collection, rec)...)
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("record %s: %w", recs[i/2].ID, err)}
		}
	}
	return nil
}

// upsertCmds builds the DEL+HSET pair that replaces a document hash.
// The DEL drops metadata fields left over from a previous version.
func (s *Store) upsertCmds(collection string, rec db.Record) []rueidis.Completed {
	key := s.docKey(collection, rec.ID)

	hset := s.b().Hset().Key(key).FieldValue()
	for k, v := range recordToFields(rec) {
		hset = hset.FieldValue(k, v)
	}

	return []rueidis.Completed{
		s.b().Del().Key(key).Build(),
		hset.Build(),
	}
}

// GetRecord fetches a document hash.
func (s *Store) GetRecord(ctx context.Context, collection, id string) (db.Record, error) {
	cmd := s.b().Hgetall().Key(s.docKey(collection, id)).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return db.Record{}, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	if len(m) == 0 {
		// HGETALL returns an empty map for missing keys
		return db.Record{}, db.ErrKeyNotFound
	}
	return fieldsToRecord(id, m), nil
}

// DeleteRecord removes a document hash.
func (s *Store) DeleteRecord(ctx context.Context, collection, id string) error {
	cmd := s.b().Del().Key(s.docKey(collection, id)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// RecordExists checks if a document hash exists.
func (s *Store) RecordExists(ctx context.Context, collection, id string) (bool, error) {
	cmd := s.b().Exists().Key(s.docKey(collection, id)).Build()
	count, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return count > 0, nil
}

// recordToFields flattens a record into hash fields. Numerics use the
// shortest decimal form that survives re-parsing.
func recordToFields(rec db.Record) map[string]string {
	fields := make(map[string]string, len(rec.Tags)+len(rec.Numerics)+2)
	fields[fieldContent] = rec.Content
	if len(rec.Vector) > 0 {
		fields[fieldVector] = vectorToBytes(rec.Vector)
	}
	for k, v := range rec.Tags {
		fields[k] = v
	}
	for k, v := range rec.Numerics {
		fields[k] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fields
}

// fieldsToRecord rebuilds a record from hash fields. Hashes store every
// metadata value as a string, so everything lands in Tags; the repository
// layer re-types numeric fields using the collection schema.
func fieldsToRecord(id string, fields map[string]string) db.Record {
	rec := db.Record{ID: id, Tags: make(map[string]string, len(fields))}
	for k, v := range fields {
		switch k {
		case fieldContent:
			rec.Content = v
		case fieldVector:
			rec.Vector = bytesToVector(v)
		default:
			rec.Tags[k] = v
		}
	}
	return rec
}
