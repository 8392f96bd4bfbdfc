// Package sentinel is the public surface of the document store. It re-exports
// the pieces most callers need: opening a store, building queries and the
// document and error types. The subpackages remain importable directly for
// finer control.
package sentinel

import (
	"github.com/cyberpath-HQ/sentinel/sentinel/query"
	"github.com/cyberpath-HQ/sentinel/sentinel/store"
	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// Core types, aliased so most programs import only this package.
type (
	Document   = types.Document
	Error      = types.Error
	Code       = types.Code
	Store      = store.Store
	Collection = store.Collection
	Option     = store.Option
	Query      = query.Query
	Composite  = query.Composite
	Builder    = query.Builder
	Direction  = query.Direction
)

// Error codes.
const (
	CodeInvalidArgument = types.CodeInvalidArgument
	CodeIO              = types.CodeIO
	CodeRuntime         = types.CodeRuntime
	CodeJSON            = types.CodeJSON
	CodeNotFound        = types.CodeNotFound
	CodeConflict        = types.CodeConflict
)

// Sort directions.
const (
	Ascending  = query.Ascending
	Descending = query.Descending
)

// Open opens or creates a store at path.
func Open(path string, opts ...Option) (*Store, error) {
	return store.Open(path, opts...)
}

// NewQuery starts a query builder.
func NewQuery() *Builder {
	return query.NewBuilder()
}

// Or combines two queries into their OR-union.
func Or(a, b Query) Composite {
	return query.Or(a, b)
}

// Store options.
var (
	WithBackend     = store.WithBackend
	WithKeepDeleted = store.WithKeepDeleted
	WithoutWAL      = store.WithoutWAL
	WithWorkers     = store.WithWorkers
	WithPassphrase  = store.WithPassphrase
	WithLogger      = store.WithLogger
)

// Backend kinds.
const (
	FileBackend   = store.FileBackend
	BoltBackend   = store.BoltBackend
	MemoryBackend = store.MemoryBackend
)

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return types.IsNotFound(err) }

// IsConflict reports whether err is a duplicate-id conflict.
func IsConflict(err error) bool { return types.IsConflict(err) }
