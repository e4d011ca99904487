package document

import (
	"strconv"

	"github.com/openpermit/permitsearch/internal/db"
	domdoc "github.com/openpermit/permitsearch/internal/domain/document"
	"github.com/openpermit/permitsearch/internal/domain/schema"
)

// toRecord converts a domain Document into the storage record shape.
func toRecord(doc *domdoc.Document) db.Record {
	return db.Record{
		ID:       doc.ID(),
		Content:  doc.Content(),
		Tags:     doc.Tags(),
		Numerics: doc.Numerics(),
		Vector:   doc.Vector(),
	}
}

// toDocument converts a storage record back into a domain Document.
// Drivers without typed payloads return every metadata field as a raw
// string, so schema-declared numeric fields are re-typed here.
func (r *Repo) toDocument(rec db.Record) domdoc.Document {
	tags, numerics := splitMetadata(r.schema, rec.Tags, rec.Numerics)
	return domdoc.Reconstruct(rec.ID, rec.Content, tags, numerics, rec.Vector)
}

// splitMetadata moves schema numeric fields from the raw tag map into the
// numeric map. Unknown fields and unparseable values stay as tags.
func splitMetadata(
	sch schema.Schema, rawTags map[string]string, rawNumerics map[string]float64,
) (map[string]string, map[string]float64) {
	tags := make(map[string]string, len(rawTags))
	numerics := make(map[string]float64, len(rawNumerics)+len(rawTags))

	for k, v := range rawNumerics {
		numerics[k] = v
	}
	for k, v := range rawTags {
		if sch.HasField(k, schema.Numeric) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				numerics[k] = f
				continue
			}
		}
		tags[k] = v
	}

	return tags, numerics
}
