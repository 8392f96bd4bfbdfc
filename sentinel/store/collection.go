package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cyberpath-HQ/sentinel/internal/validation"
	"github.com/cyberpath-HQ/sentinel/sentinel/query"
	"github.com/cyberpath-HQ/sentinel/sentinel/storage"
	"github.com/cyberpath-HQ/sentinel/sentinel/types"
	"github.com/cyberpath-HQ/sentinel/sentinel/wal"
)

// Collection is a handle on one named collection. Handles on the same
// collection share engine state; writes are serialized per collection and
// reads run concurrently. Each handle must be closed.
type Collection struct {
	name   string
	core   *core
	st     *collState
	mu     sync.Mutex
	closed bool
}

// DocumentPair is one (id, body) entry of a bulk insert.
type DocumentPair struct {
	ID   string
	Data interface{}
}

// Name returns the collection name.
func (col *Collection) Name() string { return col.name }

func (col *Collection) guard() error {
	col.mu.Lock()
	defer col.mu.Unlock()
	if col.closed {
		return types.Errorf(types.CodeInvalidArgument, "collection handle is closed")
	}
	return nil
}

// Insert stores a new document. It fails with a conflict error when the id
// already exists and with a JSON error when the body cannot be encoded.
func (col *Collection) Insert(id string, data interface{}) error {
	if err := col.guard(); err != nil {
		return err
	}
	if err := validation.DocumentID(id); err != nil {
		return err
	}
	return col.st.lm.Execute(storage.WriteOperation, func() error {
		return col.insertLocked(id, data)
	})
}

func (col *Collection) insertLocked(id string, data interface{}) error {
	c, st := col.core, col.st
	existing, err := c.backend.ReadDocument(st.name, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return types.Errorf(types.CodeConflict, "document %q already exists in collection %q", id, st.name)
	}
	doc, err := types.NewDocument(id, data)
	if err != nil {
		return err
	}
	doc.Seq = st.meta.NextSeq()
	size, err := docSize(&doc)
	if err != nil {
		return err
	}
	if err := col.journal(wal.OpInsert, &doc); err != nil {
		return err
	}
	if err := c.backend.WriteDocument(st.name, &doc); err != nil {
		return err
	}
	st.meta.AddDocument(size)
	if err := c.backend.SaveCollectionMeta(st.name, st.meta); err != nil {
		// Undo the document write so a failed insert has no effect. If the
		// undo itself fails the journal entry stays for replay on reopen.
		st.meta.RemoveDocument(size)
		if derr := c.backend.DeleteDocument(st.name, id); derr != nil {
			c.log.Warn("insert rollback failed", "collection", st.name, "id", id, "error", derr)
		} else {
			col.checkpoint()
		}
		return err
	}
	col.checkpoint()
	c.emit(newEvent(EventInsert, st.name, id, 1, int64(size)))
	c.log.Debug("document inserted", "collection", st.name, "id", id, "seq", doc.Seq)
	return nil
}

// Get returns the document, or (nil, nil) when absent. Absence is a normal
// result, never an error. A stored document failing its checksum surfaces
// as a runtime error.
func (col *Collection) Get(id string) (*types.Document, error) {
	if err := col.guard(); err != nil {
		return nil, err
	}
	if err := validation.DocumentID(id); err != nil {
		return nil, err
	}
	var doc *types.Document
	err := col.st.lm.Execute(storage.ReadOperation, func() error {
		var err error
		doc, err = col.core.backend.ReadDocument(col.name, id)
		if err != nil || doc == nil {
			return err
		}
		ok, err := doc.VerifyChecksum()
		if err != nil {
			return err
		}
		if !ok {
			return types.Errorf(types.CodeRuntime,
				"document %q in collection %q failed its checksum", id, col.name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Update replaces the document body in full. It fails with a not-found
// error when the id is absent; there is no field-level merge.
func (col *Collection) Update(id string, data interface{}) error {
	if err := col.guard(); err != nil {
		return err
	}
	if err := validation.DocumentID(id); err != nil {
		return err
	}
	return col.st.lm.Execute(storage.WriteOperation, func() error {
		return col.updateLocked(id, data)
	})
}

func (col *Collection) updateLocked(id string, data interface{}) error {
	c, st := col.core, col.st
	doc, err := c.backend.ReadDocument(st.name, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return types.Errorf(types.CodeNotFound, "document %q not found in collection %q", id, st.name)
	}
	oldSize, err := docSize(doc)
	if err != nil {
		return err
	}
	prev := *doc
	if err := doc.SetData(data); err != nil {
		return err
	}
	newSize, err := docSize(doc)
	if err != nil {
		return err
	}
	if err := col.journal(wal.OpUpdate, doc); err != nil {
		return err
	}
	if err := c.backend.WriteDocument(st.name, doc); err != nil {
		return err
	}
	st.meta.ResizeDocument(oldSize, newSize)
	if err := c.backend.SaveCollectionMeta(st.name, st.meta); err != nil {
		// Restore the previous body so a failed update has no effect.
		st.meta.ResizeDocument(newSize, oldSize)
		if werr := c.backend.WriteDocument(st.name, &prev); werr != nil {
			c.log.Warn("update rollback failed", "collection", st.name, "id", id, "error", werr)
		} else {
			col.checkpoint()
		}
		return err
	}
	col.checkpoint()
	c.emit(newEvent(EventUpdate, st.name, id, 0, int64(newSize)-int64(oldSize)))
	c.log.Debug("document updated", "collection", st.name, "id", id)
	return nil
}

// Delete removes the document. It fails with a not-found error when absent.
func (col *Collection) Delete(id string) error {
	if err := col.guard(); err != nil {
		return err
	}
	if err := validation.DocumentID(id); err != nil {
		return err
	}
	c, st := col.core, col.st
	return st.lm.Execute(storage.WriteOperation, func() error {
		doc, err := c.backend.ReadDocument(st.name, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return types.Errorf(types.CodeNotFound, "document %q not found in collection %q", id, st.name)
		}
		size, err := docSize(doc)
		if err != nil {
			return err
		}
		if st.journal != nil {
			if err := st.journal.Append(wal.OpDelete, id, nil); err != nil {
				return err
			}
		}
		if err := c.backend.DeleteDocument(st.name, id); err != nil {
			return err
		}
		st.meta.RemoveDocument(size)
		if err := c.backend.SaveCollectionMeta(st.name, st.meta); err != nil {
			// Put the document back so a failed delete has no effect.
			st.meta.AddDocument(size)
			if werr := c.backend.WriteDocument(st.name, doc); werr != nil {
				c.log.Warn("delete rollback failed", "collection", st.name, "id", id, "error", werr)
			} else {
				col.checkpoint()
			}
			return err
		}
		col.checkpoint()
		c.emit(newEvent(EventDelete, st.name, id, -1, -int64(size)))
		c.log.Debug("document deleted", "collection", st.name, "id", id)
		return nil
	})
}

// Upsert inserts or replaces. It reports whether the call inserted.
func (col *Collection) Upsert(id string, data interface{}) (bool, error) {
	if err := col.guard(); err != nil {
		return false, err
	}
	if err := validation.DocumentID(id); err != nil {
		return false, err
	}
	var inserted bool
	err := col.st.lm.Execute(storage.WriteOperation, func() error {
		existing, err := col.core.backend.ReadDocument(col.name, id)
		if err != nil {
			return err
		}
		if existing == nil {
			inserted = true
			return col.insertLocked(id, data)
		}
		return col.updateLocked(id, data)
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// BulkInsert inserts the pairs in order. The whole batch is validated first;
// a duplicate id inside the batch or against the collection rejects the
// batch before anything is written.
func (col *Collection) BulkInsert(pairs []DocumentPair) error {
	if err := col.guard(); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := validation.DocumentID(p.ID); err != nil {
			return err
		}
	}
	c, st := col.core, col.st
	return st.lm.Execute(storage.WriteOperation, func() error {
		seen := make(map[string]bool, len(pairs))
		for _, p := range pairs {
			if seen[p.ID] {
				return types.Errorf(types.CodeConflict, "duplicate id %q in batch", p.ID)
			}
			seen[p.ID] = true
			existing, err := c.backend.ReadDocument(st.name, p.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return types.Errorf(types.CodeConflict,
					"document %q already exists in collection %q", p.ID, st.name)
			}
		}
		for _, p := range pairs {
			if err := col.insertLocked(p.ID, p.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of documents. It reflects every synchronous
// mutation that returned before the call.
func (col *Collection) Count() (int, error) {
	if err := col.guard(); err != nil {
		return 0, err
	}
	var n int
	err := col.st.lm.Execute(storage.ReadOperation, func() error {
		n = int(col.st.meta.DocumentCount)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Query evaluates q against the collection and returns full documents in
// order. Zero matches yields an empty slice, never nil.
func (col *Collection) Query(q query.Query) ([]types.Document, error) {
	if err := col.guard(); err != nil {
		return nil, err
	}
	var out []types.Document
	err := col.st.lm.Execute(storage.ReadOperation, func() error {
		docs, err := col.core.backend.ListDocuments(col.name)
		if err != nil {
			return err
		}
		out = q.Execute(docs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryComposite evaluates the OR-union of two queries over the collection.
func (col *Collection) QueryComposite(cq query.Composite) ([]types.Document, error) {
	if err := col.guard(); err != nil {
		return nil, err
	}
	var out []types.Document
	err := col.st.lm.Execute(storage.ReadOperation, func() error {
		docs, err := col.core.backend.ListDocuments(col.name)
		if err != nil {
			return err
		}
		out = cq.Execute(docs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the handle. The backing store stays alive while other
// handles or the Store itself remain open. Close is idempotent.
func (col *Collection) Close() error {
	col.mu.Lock()
	if col.closed {
		col.mu.Unlock()
		return nil
	}
	col.closed = true
	col.mu.Unlock()
	return col.core.release()
}

// journal appends the document's full envelope to the collection journal.
func (col *Collection) journal(op wal.Op, doc *types.Document) error {
	if col.st.journal == nil {
		return nil
	}
	return col.st.journal.Append(op, doc.ID, doc)
}

// checkpoint truncates the journal after the backend durably applied the
// mutation. A checkpoint failure only costs replay time on the next open.
func (col *Collection) checkpoint() {
	if col.st.journal == nil {
		return
	}
	if err := col.st.journal.Checkpoint(); err != nil {
		col.core.log.Warn("journal checkpoint failed", "collection", col.name, "error", err)
	}
}

// recover replays journal entries the backend never applied. A mutation is
// journaled first and checkpointed after the backend write, so any entry
// still present may or may not have reached the backend; replay reconciles
// the difference and fixes the collection counters. Caller holds c.mu.
func (c *core) recover(st *collState) error {
	replayed := 0
	err := st.journal.Replay(func(e wal.Entry) error {
		switch e.Op {
		case wal.OpInsert, wal.OpUpdate:
			var doc types.Document
			if err := json.Unmarshal(e.Data, &doc); err != nil {
				return types.NewError(types.CodeRuntime,
					fmt.Sprintf("journal entry %d of %s is corrupted", e.Seq, st.name), err)
			}
			existing, err := c.backend.ReadDocument(st.name, doc.ID)
			if err != nil {
				return err
			}
			if existing != nil && !existing.UpdatedAt.Before(doc.UpdatedAt) {
				return nil
			}
			if err := c.backend.WriteDocument(st.name, &doc); err != nil {
				return err
			}
			size, err := docSize(&doc)
			if err != nil {
				return err
			}
			if existing == nil {
				st.meta.AddDocument(size)
			} else {
				oldSize, err := docSize(existing)
				if err != nil {
					return err
				}
				st.meta.ResizeDocument(oldSize, size)
			}
			if doc.Seq > st.meta.LastSeq {
				st.meta.LastSeq = doc.Seq
			}
			replayed++
		case wal.OpDelete:
			existing, err := c.backend.ReadDocument(st.name, e.DocID)
			if err != nil {
				return err
			}
			if existing == nil {
				return nil
			}
			size, err := docSize(existing)
			if err != nil {
				return err
			}
			if err := c.backend.DeleteDocument(st.name, e.DocID); err != nil {
				return err
			}
			st.meta.RemoveDocument(size)
			replayed++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if replayed == 0 {
		return nil
	}
	if err := c.backend.SaveCollectionMeta(st.name, st.meta); err != nil {
		return err
	}
	if err := st.journal.Checkpoint(); err != nil {
		return err
	}
	c.log.Info("journal replayed", "collection", st.name, "entries", replayed)
	return nil
}

// docSize measures the document's canonical JSON encoding, the unit the
// collection size counters track.
func docSize(doc *types.Document) (uint64, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, types.NewError(types.CodeJSON, fmt.Sprintf("encoding document %s", doc.ID), err)
	}
	return uint64(len(raw)), nil
}
