package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

const boltFile = "sentinel.db"

var (
	bucketCollections = []byte("collections")
	bucketStore       = []byte("store")
	bucketDocs        = []byte("docs")
	keyMeta           = []byte("meta")
)

// boltRecord is the stored document envelope. The envelope travels as
// msgpack; the body stays JSON so a decode returns the same value types the
// rest of the engine works with.
type boltRecord struct {
	ID        string    `msgpack:"id"`
	Version   uint32    `msgpack:"version"`
	CreatedAt time.Time `msgpack:"created_at"`
	UpdatedAt time.Time `msgpack:"updated_at"`
	Checksum  string    `msgpack:"checksum"`
	Seq       uint64    `msgpack:"seq"`
	Data      []byte    `msgpack:"data"`
}

func recordFromDocument(doc *types.Document) (*boltRecord, error) {
	body, err := json.Marshal(doc.Data)
	if err != nil {
		return nil, types.NewError(types.CodeJSON, fmt.Sprintf("encoding document %s", doc.ID), err)
	}
	return &boltRecord{
		ID:        doc.ID,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Checksum:  doc.Checksum,
		Seq:       doc.Seq,
		Data:      body,
	}, nil
}

func (r *boltRecord) toDocument() (*types.Document, error) {
	var data interface{}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return nil, types.NewError(types.CodeRuntime, fmt.Sprintf("document %s is corrupted", r.ID), err)
	}
	return &types.Document{
		ID:        r.ID,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Checksum:  r.Checksum,
		Seq:       r.Seq,
		Data:      data,
	}, nil
}

// BoltBackend keeps the whole store in a single bbolt file: one sub-bucket
// per collection under "collections", each holding a "docs" bucket plus its
// metadata record. Mutations ride bbolt transactions, so partial writes are
// never visible.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens (or creates) the bbolt database under root.
func NewBoltBackend(root string) (*BoltBackend, error) {
	db, err := bolt.Open(filepath.Join(root, boltFile), 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, types.NewError(types.CodeIO, fmt.Sprintf("opening database in %s", root), err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCollections); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketStore)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, types.NewError(types.CodeIO, "initializing database buckets", err)
	}
	return &BoltBackend{db: db}, nil
}

func collectionBucket(tx *bolt.Tx, name string) *bolt.Bucket {
	root := tx.Bucket(bucketCollections)
	if root == nil {
		return nil
	}
	return root.Bucket([]byte(name))
}

// EnsureCollection creates the collection's buckets when missing.
func (b *BoltBackend) EnsureCollection(name string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		cb, err := tx.Bucket(bucketCollections).CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		_, err = cb.CreateBucketIfNotExists(bucketDocs)
		return err
	})
	if err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("creating collection %s", name), err)
	}
	return nil
}

// DeleteCollection drops the collection bucket.
func (b *BoltBackend) DeleteCollection(name string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		if root.Bucket([]byte(name)) == nil {
			return types.Errorf(types.CodeNotFound, "collection %q not found", name)
		}
		if err := root.DeleteBucket([]byte(name)); err != nil {
			return types.NewError(types.CodeIO, fmt.Sprintf("deleting collection %s", name), err)
		}
		return nil
	})
}

// ListCollections returns bucket names; bbolt iterates keys in order.
func (b *BoltBackend) ListCollections() ([]string, error) {
	names := []string{}
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEachBucket(func(k []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, types.NewError(types.CodeIO, "listing collections", err)
	}
	return names, nil
}

// ReadDocument returns the decoded record, or (nil, nil) when absent.
func (b *BoltBackend) ReadDocument(collection, id string) (*types.Document, error) {
	var doc *types.Document
	err := b.db.View(func(tx *bolt.Tx) error {
		cb := collectionBucket(tx, collection)
		if cb == nil {
			return nil
		}
		raw := cb.Bucket(bucketDocs).Get([]byte(id))
		if raw == nil {
			return nil
		}
		var rec boltRecord
		if err := msgpack.Unmarshal(raw, &rec); err != nil {
			return types.NewError(types.CodeRuntime, fmt.Sprintf("document %s/%s is corrupted", collection, id), err)
		}
		var err error
		doc, err = rec.toDocument()
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// WriteDocument stores the msgpack-encoded record in one transaction.
func (b *BoltBackend) WriteDocument(collection string, doc *types.Document) error {
	rec, err := recordFromDocument(doc)
	if err != nil {
		return err
	}
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		return types.NewError(types.CodeRuntime, fmt.Sprintf("encoding record %s/%s", collection, doc.ID), err)
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		cb := collectionBucket(tx, collection)
		if cb == nil {
			return types.Errorf(types.CodeNotFound, "collection %q not found", collection)
		}
		return cb.Bucket(bucketDocs).Put([]byte(doc.ID), raw)
	})
	if err != nil {
		if types.CodeOf(err) == types.CodeNotFound {
			return err
		}
		return types.NewError(types.CodeIO, fmt.Sprintf("writing document %s/%s", collection, doc.ID), err)
	}
	return nil
}

// DeleteDocument removes the record.
func (b *BoltBackend) DeleteDocument(collection, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		cb := collectionBucket(tx, collection)
		if cb == nil {
			return types.Errorf(types.CodeNotFound, "collection %q not found", collection)
		}
		docs := cb.Bucket(bucketDocs)
		if docs.Get([]byte(id)) == nil {
			return types.Errorf(types.CodeNotFound, "document %q not found in collection %q", id, collection)
		}
		if err := docs.Delete([]byte(id)); err != nil {
			return types.NewError(types.CodeIO, fmt.Sprintf("deleting document %s/%s", collection, id), err)
		}
		return nil
	})
}

// ListDocuments decodes every record and orders by insertion sequence.
func (b *BoltBackend) ListDocuments(collection string) ([]types.Document, error) {
	docs := []types.Document{}
	err := b.db.View(func(tx *bolt.Tx) error {
		cb := collectionBucket(tx, collection)
		if cb == nil {
			return nil
		}
		return cb.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := msgpack.Unmarshal(v, &rec); err != nil {
				return types.NewError(types.CodeRuntime, fmt.Sprintf("document %s/%s is corrupted", collection, k), err)
			}
			doc, err := rec.toDocument()
			if err != nil {
				return err
			}
			docs = append(docs, *doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })
	return docs, nil
}

// LoadStoreMeta reads the store metadata record, or (nil, nil) when fresh.
func (b *BoltBackend) LoadStoreMeta() (*StoreMeta, error) {
	var meta *StoreMeta
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketStore).Get(keyMeta)
		if raw == nil {
			return nil
		}
		meta = &StoreMeta{}
		if err := msgpack.Unmarshal(raw, meta); err != nil {
			return types.NewError(types.CodeRuntime, "store metadata is corrupted", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// SaveStoreMeta writes the store metadata record.
func (b *BoltBackend) SaveStoreMeta(meta *StoreMeta) error {
	raw, err := msgpack.Marshal(meta)
	if err != nil {
		return types.NewError(types.CodeRuntime, "encoding store metadata", err)
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStore).Put(keyMeta, raw)
	})
	if err != nil {
		return types.NewError(types.CodeIO, "writing store metadata", err)
	}
	return nil
}

// LoadCollectionMeta reads a collection's metadata record.
func (b *BoltBackend) LoadCollectionMeta(name string) (*CollectionMeta, error) {
	var meta *CollectionMeta
	err := b.db.View(func(tx *bolt.Tx) error {
		cb := collectionBucket(tx, name)
		if cb == nil {
			return nil
		}
		raw := cb.Get(keyMeta)
		if raw == nil {
			return nil
		}
		meta = &CollectionMeta{}
		if err := msgpack.Unmarshal(raw, meta); err != nil {
			return types.NewError(types.CodeRuntime, fmt.Sprintf("metadata of collection %s is corrupted", name), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// SaveCollectionMeta writes a collection's metadata record.
func (b *BoltBackend) SaveCollectionMeta(name string, meta *CollectionMeta) error {
	raw, err := msgpack.Marshal(meta)
	if err != nil {
		return types.NewError(types.CodeRuntime, fmt.Sprintf("encoding metadata of collection %s", name), err)
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		cb := collectionBucket(tx, name)
		if cb == nil {
			return types.Errorf(types.CodeNotFound, "collection %q not found", name)
		}
		return cb.Put(keyMeta, raw)
	})
	if err != nil {
		if types.CodeOf(err) == types.CodeNotFound {
			return err
		}
		return types.NewError(types.CodeIO, fmt.Sprintf("writing metadata of collection %s", name), err)
	}
	return nil
}

// Close closes the database file.
func (b *BoltBackend) Close() error {
	if err := b.db.Close(); err != nil {
		return types.NewError(types.CodeIO, "closing database", err)
	}
	return nil
}
