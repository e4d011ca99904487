package db

import (
	"errors"
	"strconv"
)

// DistanceMetric used by vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
	// DistanceCosine is cosine distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// IndexFieldType enumerates supported metadata field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a tag field.
	IndexFieldTag
)

// IndexField describes a single metadata field in the collection schema.
type IndexField struct {
	Name string
	Type IndexFieldType
}

// IndexDefinition describes the searchable collection a driver provisions.
// Content and vector storage are implied; Fields list only the filterable
// metadata. The HNSW parameters are hints a backend may ignore.
type IndexDefinition struct {
	Collection      string
	VectorDim       int
	Distance        DistanceMetric
	HNSWM           int
	HNSWEFConstruct int
	Fields          []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Collection == "" {
		return errors.New("collection name is required")
	}
	if !IsValidIdentifier(idx.Collection) {
		return errors.New("collection name contains invalid characters")
	}
	if idx.VectorDim <= 0 {
		return errors.New("vector dimension must be positive")
	}
	switch idx.Distance {
	case DistanceL2, DistanceIP, DistanceCosine:
	default:
		return errors.New("unknown distance metric: " + string(idx.Distance))
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if !IsValidIdentifier(f.Name) {
			return errors.New("field name contains invalid characters: " + f.Name)
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true
	}

	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
