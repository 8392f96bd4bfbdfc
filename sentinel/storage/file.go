package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

const (
	dataDir       = "data"
	deletedDir    = "deleted"
	storeMetaFile = "sentinel_meta.json"
	collMetaFile  = "collection_meta.json"
	docExt        = ".json"
)

// FileBackend persists each collection as a directory of one JSON file per
// document under <root>/data/<collection>/, with metadata JSON files beside
// them. Writes go through a temp file plus rename, so a record on disk is
// always complete.
type FileBackend struct {
	root        string
	keepDeleted bool
}

// NewFileBackend opens (or initializes) a file backend at root. With
// keepDeleted, deleted documents move into a deleted/ subdirectory instead
// of being removed.
func NewFileBackend(root string, keepDeleted bool) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Join(root, dataDir), 0o755); err != nil {
		return nil, types.NewError(types.CodeIO, fmt.Sprintf("creating store root %s", root), err)
	}
	return &FileBackend{root: root, keepDeleted: keepDeleted}, nil
}

func (b *FileBackend) collectionDir(name string) string {
	return filepath.Join(b.root, dataDir, name)
}

func (b *FileBackend) documentPath(collection, id string) string {
	return filepath.Join(b.collectionDir(collection), id+docExt)
}

// EnsureCollection creates the collection directory when missing.
func (b *FileBackend) EnsureCollection(name string) error {
	if err := os.MkdirAll(b.collectionDir(name), 0o755); err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("creating collection %s", name), err)
	}
	return nil
}

// DeleteCollection removes the collection directory recursively.
func (b *FileBackend) DeleteCollection(name string) error {
	dir := b.collectionDir(name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return types.Errorf(types.CodeNotFound, "collection %q not found", name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("deleting collection %s", name), err)
	}
	return nil
}

// ListCollections lists the data directory in ascending lexical order.
func (b *FileBackend) ListCollections() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(b.root, dataDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, types.NewError(types.CodeIO, "listing collections", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadDocument decodes a document record, or returns (nil, nil) when the
// file does not exist.
func (b *FileBackend) ReadDocument(collection, id string) (*types.Document, error) {
	raw, err := os.ReadFile(b.documentPath(collection, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, types.NewError(types.CodeIO, fmt.Sprintf("reading document %s/%s", collection, id), err)
	}
	var doc types.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, types.NewError(types.CodeRuntime, fmt.Sprintf("document %s/%s is corrupted", collection, id), err)
	}
	return &doc, nil
}

// WriteDocument writes the record to a temp file and renames it into place.
func (b *FileBackend) WriteDocument(collection string, doc *types.Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return types.NewError(types.CodeJSON, fmt.Sprintf("encoding document %s/%s", collection, doc.ID), err)
	}
	return b.atomicWrite(b.documentPath(collection, doc.ID), raw)
}

// DeleteDocument removes the record, or moves it under deleted/ when the
// backend keeps deleted documents.
func (b *FileBackend) DeleteDocument(collection, id string) error {
	path := b.documentPath(collection, id)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return types.Errorf(types.CodeNotFound, "document %q not found in collection %q", id, collection)
	}
	if b.keepDeleted {
		dest := filepath.Join(b.collectionDir(collection), deletedDir)
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return types.NewError(types.CodeIO, "creating deleted directory", err)
		}
		if err := os.Rename(path, filepath.Join(dest, id+docExt)); err != nil {
			return types.NewError(types.CodeIO, fmt.Sprintf("archiving document %s/%s", collection, id), err)
		}
		return nil
	}
	if err := os.Remove(path); err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("deleting document %s/%s", collection, id), err)
	}
	return nil
}

// ListDocuments decodes every record in the collection directory and orders
// them by insertion sequence.
func (b *FileBackend) ListDocuments(collection string) ([]types.Document, error) {
	entries, err := os.ReadDir(b.collectionDir(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.Document{}, nil
		}
		return nil, types.NewError(types.CodeIO, fmt.Sprintf("listing collection %s", collection), err)
	}
	docs := make([]types.Document, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == collMetaFile || !strings.HasSuffix(name, docExt) {
			continue
		}
		doc, err := b.ReadDocument(collection, strings.TrimSuffix(name, docExt))
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })
	return docs, nil
}

// LoadStoreMeta reads sentinel_meta.json, or (nil, nil) on a fresh root.
func (b *FileBackend) LoadStoreMeta() (*StoreMeta, error) {
	raw, err := os.ReadFile(filepath.Join(b.root, storeMetaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, types.NewError(types.CodeIO, "reading store metadata", err)
	}
	var meta StoreMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, types.NewError(types.CodeRuntime, "store metadata is corrupted", err)
	}
	return &meta, nil
}

// SaveStoreMeta writes sentinel_meta.json atomically.
func (b *FileBackend) SaveStoreMeta(meta *StoreMeta) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return types.NewError(types.CodeJSON, "encoding store metadata", err)
	}
	return b.atomicWrite(filepath.Join(b.root, storeMetaFile), raw)
}

// LoadCollectionMeta reads a collection's metadata file, or (nil, nil) when
// it has not been written yet.
func (b *FileBackend) LoadCollectionMeta(name string) (*CollectionMeta, error) {
	raw, err := os.ReadFile(filepath.Join(b.collectionDir(name), collMetaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, types.NewError(types.CodeIO, fmt.Sprintf("reading metadata of collection %s", name), err)
	}
	var meta CollectionMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, types.NewError(types.CodeRuntime, fmt.Sprintf("metadata of collection %s is corrupted", name), err)
	}
	return &meta, nil
}

// SaveCollectionMeta writes the collection metadata file atomically.
func (b *FileBackend) SaveCollectionMeta(name string, meta *CollectionMeta) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return types.NewError(types.CodeJSON, fmt.Sprintf("encoding metadata of collection %s", name), err)
	}
	return b.atomicWrite(filepath.Join(b.collectionDir(name), collMetaFile), raw)
}

// Close is a no-op; the file backend holds no open handles between calls.
func (b *FileBackend) Close() error { return nil }

// atomicWrite writes data to a temp file in the target's directory and
// renames it over the target.
func (b *FileBackend) atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("writing %s", tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return types.NewError(types.CodeIO, fmt.Sprintf("renaming %s into place", tmp), err)
	}
	return nil
}
