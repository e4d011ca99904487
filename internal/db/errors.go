package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrNotSupported signals an operation the driver has no backend for.
	ErrNotSupported = errors.New("db: operation not supported by driver")
)

// Op constants map to Redis command names for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpExists      = "EXISTS"
	OpGet         = "GET"
	OpSet         = "SET"
	OpIncrBy      = "INCRBY"
	OpExpire      = "EXPIRE"
)

// Op constants for Qdrant gRPC calls.
const (
	OpUpsertPoints     = "UpsertPoints"
	OpGetPoints        = "GetPoints"
	OpDeletePoints     = "DeletePoints"
	OpSearchPoints     = "SearchPoints"
	OpScrollPoints     = "ScrollPoints"
	OpCountPoints      = "CountPoints"
	OpListCollections  = "ListCollections"
	OpCreateCollection = "CreateCollection"
	OpGetCollection    = "GetCollectionInfo"
	OpCreateFieldIndex = "CreateFieldIndex"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
