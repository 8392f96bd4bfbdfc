package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// StoreMeta is the store-wide metadata record. The file backend keeps it in
// sentinel_meta.json at the store root, the bbolt backend under a dedicated
// key. Totals are folded in by the store's event loop, so they are eventually
// consistent with the per-collection counts.
type StoreMeta struct {
	Version         uint32    `json:"version"`
	StoreID         string    `json:"store_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	CollectionCount uint64    `json:"collection_count"`
	TotalDocuments  uint64    `json:"total_documents"`
	TotalSizeBytes  uint64    `json:"total_size_bytes"`

	// Passphrase gate. Salt feeds the KDF; Verifier is a sealed constant
	// that only the right key opens.
	KeySalt     string `json:"key_salt,omitempty"`
	KeyVerifier string `json:"key_verifier,omitempty"`
}

// NewStoreMeta returns metadata for a fresh store root with a random
// store identity.
func NewStoreMeta() *StoreMeta {
	now := time.Now().UTC()
	return &StoreMeta{
		Version:   types.FormatVersion,
		StoreID:   uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch refreshes the modification timestamp.
func (m *StoreMeta) Touch() { m.UpdatedAt = time.Now().UTC() }

// CollectionMeta is the per-collection metadata record: document population,
// accumulated size and the insertion sequence counter.
type CollectionMeta struct {
	Version        uint32    `json:"version"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	DocumentCount  uint64    `json:"document_count"`
	TotalSizeBytes uint64    `json:"total_size_bytes"`
	LastSeq        uint64    `json:"last_seq"`
}

// NewCollectionMeta returns metadata for a freshly created collection.
func NewCollectionMeta(name string) *CollectionMeta {
	now := time.Now().UTC()
	return &CollectionMeta{
		Version:   types.FormatVersion,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch refreshes the modification timestamp.
func (m *CollectionMeta) Touch() { m.UpdatedAt = time.Now().UTC() }

// NextSeq advances and returns the insertion sequence counter.
func (m *CollectionMeta) NextSeq() uint64 {
	m.LastSeq++
	return m.LastSeq
}

// AddDocument folds an insert into the counters.
func (m *CollectionMeta) AddDocument(sizeBytes uint64) {
	m.DocumentCount++
	m.TotalSizeBytes += sizeBytes
	m.Touch()
}

// RemoveDocument folds a delete into the counters.
func (m *CollectionMeta) RemoveDocument(sizeBytes uint64) {
	if m.DocumentCount > 0 {
		m.DocumentCount--
	}
	if m.TotalSizeBytes >= sizeBytes {
		m.TotalSizeBytes -= sizeBytes
	} else {
		m.TotalSizeBytes = 0
	}
	m.Touch()
}

// ResizeDocument folds an update into the size counter.
func (m *CollectionMeta) ResizeDocument(oldSize, newSize uint64) {
	if m.TotalSizeBytes >= oldSize {
		m.TotalSizeBytes -= oldSize
	} else {
		m.TotalSizeBytes = 0
	}
	m.TotalSizeBytes += newSize
	m.Touch()
}
