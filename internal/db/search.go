package db

import "github.com/openpermit/permitsearch/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	Collection string
	Filters    filter.Filter
	Vector     []float32
	K          int
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	Collection string
	Query      string
	Filters    filter.Filter
	TopK       int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is a similarity in [0,1], higher is better.
type SearchEntry struct {
	ID       string
	Score    float64
	Content  string
	Tags     map[string]string
	Numerics map[string]float64
}

// ListQuery is the input for cursor-based record listing.
// Cursor is driver-specific and opaque to callers; empty means start.
type ListQuery struct {
	Collection string
	Cursor     string
	Limit      int
}

// RecordPage is one page of listed records.
// NextCursor is empty when there are no further pages.
type RecordPage struct {
	Records    []Record
	NextCursor string
}
