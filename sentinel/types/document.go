// Package types holds the shared leaf types of the sentinel document store:
// the document envelope, JSON value comparison helpers and the error taxonomy.
// It has no dependencies on other sentinel packages so every layer can use it.
package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FormatVersion is written into every document envelope and into store and
// collection metadata. Readers with a higher version can migrate forward.
const FormatVersion uint32 = 1

// Document is the stored envelope around a JSON value. Data holds the
// document body in Go's native JSON representation: nil, bool, float64,
// string, []interface{} or map[string]interface{}.
type Document struct {
	ID        string      `json:"id"`
	Version   uint32      `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Checksum  string      `json:"checksum"`
	Data      interface{} `json:"data"`

	// Seq is the collection-local insertion sequence number. Query results
	// fall back to it so ties and unsorted output stay deterministic.
	Seq uint64 `json:"seq,omitempty"`
}

// NewDocument builds a document envelope around data with fresh timestamps
// and a content checksum. The data value is used as-is; callers that hold
// raw JSON bytes should decode them first.
func NewDocument(id string, data interface{}) (Document, error) {
	sum, err := ChecksumOf(data)
	if err != nil {
		return Document{}, err
	}
	now := time.Now().UTC()
	return Document{
		ID:        id,
		Version:   FormatVersion,
		CreatedAt: now,
		UpdatedAt: now,
		Checksum:  sum,
		Data:      data,
	}, nil
}

// SetData replaces the document body in full, refreshes the update timestamp
// and recomputes the checksum. There is no field-level merge.
func (d *Document) SetData(data interface{}) error {
	sum, err := ChecksumOf(data)
	if err != nil {
		return err
	}
	d.Data = data
	d.Checksum = sum
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// VerifyChecksum recomputes the content checksum and reports whether it
// matches the stored one. Documents written by older versions without a
// checksum always verify.
func (d *Document) VerifyChecksum() (bool, error) {
	if d.Checksum == "" {
		return true, nil
	}
	sum, err := ChecksumOf(d.Data)
	if err != nil {
		return false, err
	}
	return sum == d.Checksum, nil
}

// Field looks up a top-level key of an object-valued document body.
// The second result is false when the body is not an object or the key
// is absent.
func (d *Document) Field(name string) (interface{}, bool) {
	obj, ok := d.Data.(map[string]interface{})
	if !ok {
		return nil, false
	}
	v, ok := obj[name]
	return v, ok
}

// ChecksumOf returns the canonical content checksum of a JSON value.
// json.Marshal sorts object keys, so the encoding is stable across runs.
func ChecksumOf(data interface{}) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", NewError(CodeJSON, "encoding document data", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(raw)), nil
}
