package storage

import (
	"sort"
	"sync"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// MemoryBackend is a map-backed Backend. It is used by tests and by callers
// that want an ephemeral store with full engine semantics.
type MemoryBackend struct {
	mu          sync.Mutex
	storeMeta   *StoreMeta
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	meta *CollectionMeta
	docs map[string]types.Document
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]*memoryCollection)}
}

func (m *MemoryBackend) EnsureCollection(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = &memoryCollection{docs: make(map[string]types.Document)}
	}
	return nil
}

func (m *MemoryBackend) DeleteCollection(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		return types.Errorf(types.CodeNotFound, "collection %q not found", name)
	}
	delete(m.collections, name)
	return nil
}

func (m *MemoryBackend) ListCollections() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryBackend) ReadDocument(collection, id string) (*types.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil, nil
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, nil
	}
	copied := doc
	return &copied, nil
}

func (m *MemoryBackend) WriteDocument(collection string, doc *types.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return types.Errorf(types.CodeNotFound, "collection %q not found", collection)
	}
	c.docs[doc.ID] = *doc
	return nil
}

func (m *MemoryBackend) DeleteDocument(collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return types.Errorf(types.CodeNotFound, "collection %q not found", collection)
	}
	if _, ok := c.docs[id]; !ok {
		return types.Errorf(types.CodeNotFound, "document %q not found in collection %q", id, collection)
	}
	delete(c.docs, id)
	return nil
}

func (m *MemoryBackend) ListDocuments(collection string) ([]types.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return []types.Document{}, nil
	}
	docs := make([]types.Document, 0, len(c.docs))
	for _, doc := range c.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })
	return docs, nil
}

func (m *MemoryBackend) LoadStoreMeta() (*StoreMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeMeta == nil {
		return nil, nil
	}
	copied := *m.storeMeta
	return &copied, nil
}

func (m *MemoryBackend) SaveStoreMeta(meta *StoreMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *meta
	m.storeMeta = &copied
	return nil
}

func (m *MemoryBackend) LoadCollectionMeta(name string) (*CollectionMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok || c.meta == nil {
		return nil, nil
	}
	copied := *c.meta
	return &copied, nil
}

func (m *MemoryBackend) SaveCollectionMeta(name string, meta *CollectionMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return types.Errorf(types.CodeNotFound, "collection %q not found", name)
	}
	copied := *meta
	c.meta = &copied
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
