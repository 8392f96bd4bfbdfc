package compat

import (
	"context"
	"encoding/json"

	"github.com/cyberpath-HQ/sentinel/sentinel/query"
	"github.com/cyberpath-HQ/sentinel/sentinel/store"
	"github.com/cyberpath-HQ/sentinel/sentinel/task"
	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// submitOn schedules fn on the given pool. It returns 0 and records the
// failure when scheduling is impossible; any nonzero id will see exactly
// one of onOK and onErr fire, on a worker goroutine.
func (s *Session) submitOn(d *task.Dispatcher, kind string, fn func() (string, error), onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	id := d.Submit(kind, func(context.Context) (interface{}, error) {
		return fn()
	}, func(taskID uint64, result interface{}, err error) {
		if err != nil {
			if onErr != nil {
				onErr(taskID, statusOf(err), err.Error(), ctx)
			}
			return
		}
		if onOK != nil {
			out, _ := result.(string)
			onOK(taskID, out, ctx)
		}
	})
	if id == 0 {
		s.recordStatus(StatusRuntimeError, "task dispatcher is closed")
	}
	return id
}

// submit schedules fn on the store's worker pool.
func (s *Session) submit(kind string, fn func() (string, error), onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	st, ok := s.getStore()
	if !ok {
		s.recordStatus(StatusNullPointer, "store handle is nil")
		return 0
	}
	return s.submitOn(st.Dispatcher(), kind, fn, onOK, onErr, ctx)
}

// OpenStoreAsync schedules opening or creating the store backing this
// session. It runs on the session's own pool, which exists before any
// store does. The success callback's result is "".
func (s *Session) OpenStoreAsync(path string, opts []store.Option, onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	return s.submitOn(s.dispatcher(), "open_store", func() (string, error) {
		st, err := store.Open(path, opts...)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.store = st
		s.mu.Unlock()
		return "", nil
	}, onOK, onErr, ctx)
}

// CollectionFunc receives the collection handle opened by CollectionAsync.
type CollectionFunc func(taskID uint64, col *store.Collection, ctx interface{})

// CollectionAsync schedules a get-or-create of the named collection and
// delivers the handle to the success callback. Scheduling from inside an
// OpenStoreAsync success callback is safe: the store is attached before
// that callback fires.
func (s *Session) CollectionAsync(name string, onOK CollectionFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	st, ok := s.getStore()
	if !ok {
		s.recordStatus(StatusNullPointer, "store handle is nil")
		return 0
	}
	id := s.dispatcher().Submit("collection", func(context.Context) (interface{}, error) {
		return st.Collection(name)
	}, func(taskID uint64, result interface{}, err error) {
		if err != nil {
			if onErr != nil {
				onErr(taskID, statusOf(err), err.Error(), ctx)
			}
			return
		}
		if onOK != nil {
			onOK(taskID, result.(*store.Collection), ctx)
		}
	})
	if id == 0 {
		s.recordStatus(StatusRuntimeError, "task dispatcher is closed")
	}
	return id
}

// InsertAsync schedules an insert. The success callback's result is "".
func (s *Session) InsertAsync(col *store.Collection, id, doc string, onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	if col == nil {
		s.recordStatus(StatusNullPointer, "collection handle is nil")
		return 0
	}
	return s.submit("insert", func() (string, error) {
		data, err := decodeBody(doc)
		if err != nil {
			return "", err
		}
		return "", col.Insert(id, data)
	}, onOK, onErr, ctx)
}

// GetAsync schedules a read. The success callback receives the document
// body as JSON text, or "" when the id is absent.
func (s *Session) GetAsync(col *store.Collection, id string, onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	if col == nil {
		s.recordStatus(StatusNullPointer, "collection handle is nil")
		return 0
	}
	return s.submit("get", func() (string, error) {
		doc, err := col.Get(id)
		if err != nil {
			return "", err
		}
		if doc == nil {
			return "", nil
		}
		raw, err := json.Marshal(doc.Data)
		if err != nil {
			return "", types.NewError(types.CodeJSON, "encoding document body", err)
		}
		return string(raw), nil
	}, onOK, onErr, ctx)
}

// UpdateAsync schedules a full-replacement update.
func (s *Session) UpdateAsync(col *store.Collection, id, doc string, onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	if col == nil {
		s.recordStatus(StatusNullPointer, "collection handle is nil")
		return 0
	}
	return s.submit("update", func() (string, error) {
		data, err := decodeBody(doc)
		if err != nil {
			return "", err
		}
		return "", col.Update(id, data)
	}, onOK, onErr, ctx)
}

// DeleteAsync schedules a delete.
func (s *Session) DeleteAsync(col *store.Collection, id string, onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	if col == nil {
		s.recordStatus(StatusNullPointer, "collection handle is nil")
		return 0
	}
	return s.submit("delete", func() (string, error) {
		return "", col.Delete(id)
	}, onOK, onErr, ctx)
}

// UpsertAsync schedules an upsert. The success callback's result is "true"
// when the call inserted and "false" when it replaced.
func (s *Session) UpsertAsync(col *store.Collection, id, doc string, onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	if col == nil {
		s.recordStatus(StatusNullPointer, "collection handle is nil")
		return 0
	}
	return s.submit("upsert", func() (string, error) {
		data, err := decodeBody(doc)
		if err != nil {
			return "", err
		}
		inserted, err := col.Upsert(id, data)
		if err != nil {
			return "", err
		}
		if inserted {
			return "true", nil
		}
		return "false", nil
	}, onOK, onErr, ctx)
}

// CountAsync schedules a count. The success callback's result is the count
// in decimal.
func (s *Session) CountAsync(col *store.Collection, onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	if col == nil {
		s.recordStatus(StatusNullPointer, "collection handle is nil")
		return 0
	}
	return s.submit("count", func() (string, error) {
		n, err := col.Count()
		if err != nil {
			return "", err
		}
		raw, err := json.Marshal(n)
		if err != nil {
			return "", types.NewError(types.CodeJSON, "encoding count", err)
		}
		return string(raw), nil
	}, onOK, onErr, ctx)
}

// QueryAsync schedules a query. The success callback receives the matching
// bodies as a JSON array.
func (s *Session) QueryAsync(col *store.Collection, q query.Query, onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	if col == nil {
		s.recordStatus(StatusNullPointer, "collection handle is nil")
		return 0
	}
	return s.submit("query", func() (string, error) {
		docs, err := col.Query(q)
		if err != nil {
			return "", err
		}
		return marshalResults(docs)
	}, onOK, onErr, ctx)
}

// QueryCompositeAsync schedules an OR-union query.
func (s *Session) QueryCompositeAsync(col *store.Collection, cq query.Composite, onOK SuccessFunc, onErr ErrorFunc, ctx interface{}) uint64 {
	if col == nil {
		s.recordStatus(StatusNullPointer, "collection handle is nil")
		return 0
	}
	return s.submit("query_or", func() (string, error) {
		docs, err := col.QueryComposite(cq)
		if err != nil {
			return "", err
		}
		return marshalResults(docs)
	}, onOK, onErr, ctx)
}
