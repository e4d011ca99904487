package db

import (
	"strconv"
	"strings"
)

// IndexBuilder is a fluent builder for collection index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition for a collection.
func NewIndex(collection string) *IndexBuilder {
	return &IndexBuilder{
		def: IndexDefinition{
			Collection: collection,
			Distance:   DistanceCosine,
		},
	}
}

// Dimensions sets the vector dimension.
func (b *IndexBuilder) Dimensions(dim int) *IndexBuilder {
	b.def.VectorDim = dim
	return b
}

// Distance sets the distance metric.
func (b *IndexBuilder) Distance(d DistanceMetric) *IndexBuilder {
	b.def.Distance = d
	return b
}

// HNSW sets the HNSW build parameters.
func (b *IndexBuilder) HNSW(m, efConstruct int) *IndexBuilder {
	b.def.HNSWM = m
	b.def.HNSWEFConstruct = efConstruct
	return b
}

// Numeric adds a NUMERIC metadata field to the index.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name: name,
		Type: IndexFieldNumeric,
	})
	return b
}

// Tag adds a TAG metadata field to the index.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name: name,
		Type: IndexFieldTag,
	})
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// String returns a debug representation of the index definition.
func (idx *IndexDefinition) String() string {
	parts := []string{
		"INDEX", idx.Collection,
		"DIM", strconv.Itoa(idx.VectorDim),
		"DISTANCE", string(idx.Distance),
	}
	if len(idx.Fields) > 0 {
		parts = append(parts, "SCHEMA")
		for i := range idx.Fields {
			f := &idx.Fields[i]
			parts = append(parts, f.Name)
			switch f.Type {
			case IndexFieldTag:
				parts = append(parts, "TAG")
			case IndexFieldNumeric:
				parts = append(parts, "NUMERIC")
			}
		}
	}
	return strings.Join(parts, " ")
}
