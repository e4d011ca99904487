package schema

import (
	"fmt"
	"regexp"
	"sort"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// FieldKind is the indexing kind of a metadata field.
type FieldKind string

// Field kind constants.
const (
	// Tag is a tag (exact match) field.
	Tag     FieldKind = "tag"
	Numeric FieldKind = "numeric"
)

// IsValid checks if the field kind is supported.
func (k FieldKind) IsValid() bool {
	return k == Tag || k == Numeric
}

var reservedFieldNames = map[string]bool{
	"id": true, "content": true, "score": true, "vector": true,
}

// Field is an immutable value object describing an indexed metadata field.
type Field struct {
	name string
	kind FieldKind
}

// NewField validates and creates a Field.
// Name must be non-empty, max 64 chars, and not reserved.
// Kind must be tag or numeric.
func NewField(name string, kind FieldKind) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if !nameRegex.MatchString(name) {
		return Field{}, fmt.Errorf("field name %q must be alphanumeric with underscores and hyphens", name)
	}
	if reservedFieldNames[name] {
		return Field{}, fmt.Errorf("field name %q is reserved", name)
	}
	if !kind.IsValid() {
		return Field{}, fmt.Errorf("invalid field kind %q for %q", kind, name)
	}
	return Field{name: name, kind: kind}, nil
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// Kind returns the field's indexing kind.
func (f Field) Kind() FieldKind { return f.kind }

// Schema describes the permit collection: its name, vector dimension and
// the metadata fields available for filtering (immutable value object).
type Schema struct {
	collection string
	vectorDim  int
	fields     []Field
	byName     map[string]FieldKind
}

// New validates and creates a Schema.
// Collection: ^[a-zA-Z0-9_-]+$, 1-64 chars. Fields: unique names, max 64. VectorDim: > 0.
func New(collection string, vectorDim int, fields []Field) (Schema, error) {
	if collection == "" {
		return Schema{}, fmt.Errorf("collection name is required")
	}
	if len(collection) > 64 {
		return Schema{}, fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(collection) {
		return Schema{}, fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	if vectorDim <= 0 {
		return Schema{}, fmt.Errorf("vector dimension must be positive")
	}
	if len(fields) > 64 {
		return Schema{}, fmt.Errorf("too many fields (max 64)")
	}

	byName := make(map[string]FieldKind, len(fields))
	for _, f := range fields {
		if _, ok := byName[f.Name()]; ok {
			return Schema{}, fmt.Errorf("duplicate field name: %s", f.Name())
		}
		byName[f.Name()] = f.Kind()
	}

	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	return Schema{
		collection: collection,
		vectorDim:  vectorDim,
		fields:     sorted,
		byName:     byName,
	}, nil
}

// FromConfig builds a Schema from the raw config representation
// (field name -> "tag" | "numeric").
func FromConfig(collection string, vectorDim int, rawFields map[string]string) (Schema, error) {
	fields := make([]Field, 0, len(rawFields))
	for name, kind := range rawFields {
		f, err := NewField(name, FieldKind(kind))
		if err != nil {
			return Schema{}, fmt.Errorf("schema field: %w", err)
		}
		fields = append(fields, f)
	}
	return New(collection, vectorDim, fields)
}

// Collection returns the collection name.
func (s Schema) Collection() string { return s.collection }

// VectorDim returns the vector dimension.
func (s Schema) VectorDim() int { return s.vectorDim }

// Fields returns the field definitions sorted by name.
func (s Schema) Fields() []Field { return s.fields }

// FieldKind looks up a field's kind by name.
func (s Schema) FieldKind(name string) (FieldKind, bool) {
	k, ok := s.byName[name]
	return k, ok
}

// HasField checks if a field with the given name and kind exists.
func (s Schema) HasField(name string, kind FieldKind) bool {
	k, ok := s.byName[name]
	return ok && k == kind
}
