// Package storage is the persistence layer of the sentinel store. It defines
// the Backend interface over which collections read and write documents and
// metadata, with three implementations: a directory-per-collection file
// backend, a bbolt single-file backend and an in-memory backend for tests.
package storage

import (
	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// Backend is the low-level persistence contract. A backend owns the layout
// of one store root. Implementations do not lock; the collection layer
// serializes access through a LockManager, and cross-process exclusion is
// the store's flock.
type Backend interface {
	// EnsureCollection creates the collection's backing structure when it
	// does not exist yet. Idempotent.
	EnsureCollection(name string) error

	// DeleteCollection removes the collection with all its documents and
	// metadata. Fails with a not-found error when the collection is absent.
	DeleteCollection(name string) error

	// ListCollections returns the names of all collections in ascending
	// lexical order.
	ListCollections() ([]string, error)

	// ReadDocument returns a stored document, or (nil, nil) when the id is
	// absent. Absence is a normal result, never an error.
	ReadDocument(collection, id string) (*types.Document, error)

	// WriteDocument persists a document, replacing any previous record with
	// the same id. The write is atomic: a concurrent reader sees either the
	// old record or the new one, never a partial write.
	WriteDocument(collection string, doc *types.Document) error

	// DeleteDocument removes a document record. Fails with a not-found
	// error when the id is absent.
	DeleteDocument(collection, id string) error

	// ListDocuments returns every document of a collection ordered by
	// insertion sequence.
	ListDocuments(collection string) ([]types.Document, error)

	// LoadStoreMeta returns the store metadata, or (nil, nil) for a fresh
	// root that has none yet.
	LoadStoreMeta() (*StoreMeta, error)

	// SaveStoreMeta persists the store metadata atomically.
	SaveStoreMeta(meta *StoreMeta) error

	// LoadCollectionMeta returns a collection's metadata, or (nil, nil)
	// when none has been written.
	LoadCollectionMeta(name string) (*CollectionMeta, error)

	// SaveCollectionMeta persists a collection's metadata atomically.
	SaveCollectionMeta(name string, meta *CollectionMeta) error

	// Close releases backend resources. The backend is unusable afterwards.
	Close() error
}
