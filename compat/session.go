// Package compat exposes the engine through a flat, sentinel-value calling
// convention for foreign-function wrappers: documents travel as JSON text,
// failures return a zero value, and the detail of the most recent failure is
// read back from the session's last-error slot. Each wrapper thread is
// expected to own one Session; errors recorded on one Session are never
// visible on another.
package compat

import (
	"encoding/json"
	"sync"

	"github.com/cyberpath-HQ/sentinel/sentinel/query"
	"github.com/cyberpath-HQ/sentinel/sentinel/store"
	"github.com/cyberpath-HQ/sentinel/sentinel/task"
	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// Status is the numeric result category of a compat call.
type Status int

const (
	StatusOK Status = iota
	StatusNullPointer
	StatusInvalidArgument
	StatusIoError
	StatusRuntimeError
	StatusJsonParseError
	StatusNotFound
	StatusConflict
)

// String returns the status name used in wrapper error messages.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNullPointer:
		return "null pointer"
	case StatusInvalidArgument:
		return "invalid argument"
	case StatusIoError:
		return "io error"
	case StatusRuntimeError:
		return "runtime error"
	case StatusJsonParseError:
		return "json parse error"
	case StatusNotFound:
		return "not found"
	case StatusConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

func statusOf(err error) Status {
	switch types.CodeOf(err) {
	case types.CodeInvalidArgument:
		return StatusInvalidArgument
	case types.CodeIO:
		return StatusIoError
	case types.CodeJSON:
		return StatusJsonParseError
	case types.CodeNotFound:
		return StatusNotFound
	case types.CodeConflict:
		return StatusConflict
	default:
		return StatusRuntimeError
	}
}

// SuccessFunc receives an async task's result as JSON text ("" for
// operations without a result) plus the opaque context given at scheduling.
type SuccessFunc func(taskID uint64, resultJSON string, ctx interface{})

// ErrorFunc receives an async task's failure.
type ErrorFunc func(taskID uint64, status Status, message string, ctx interface{})

// Session is one wrapper-side handle on a store plus a last-error slot.
// A successful call does not clear a stale error; callers must check the
// primary result before reading LastError.
type Session struct {
	mu      sync.Mutex
	store   *store.Store
	tasks   *task.Dispatcher
	lastSt  Status
	lastMsg string
}

// NewSession returns a session with no store attached.
func NewSession() *Session {
	return &Session{}
}

// dispatcher returns the session's own worker pool, starting it on first
// use. It serves tasks that cannot run on a store's pool, such as opening
// the store itself.
func (s *Session) dispatcher() *task.Dispatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks == nil {
		s.tasks = task.NewDispatcher(0, nil)
	}
	return s.tasks
}

// Close releases the session: the store handle if one is still open, and
// the session's worker pool. Close waits for in-flight session tasks to
// fire their callbacks.
func (s *Session) Close() {
	s.mu.Lock()
	st := s.store
	s.store = nil
	d := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	if d != nil {
		d.Close()
	}
	if st != nil {
		_ = st.Close()
	}
}

// record stores err in the last-error slot and reports false.
func (s *Session) record(err error) bool {
	s.mu.Lock()
	s.lastSt = statusOf(err)
	s.lastMsg = err.Error()
	s.mu.Unlock()
	return false
}

func (s *Session) recordStatus(st Status, msg string) bool {
	s.mu.Lock()
	s.lastSt = st
	s.lastMsg = msg
	s.mu.Unlock()
	return false
}

// LastError returns the most recent failure recorded on this session.
func (s *Session) LastError() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSt, s.lastMsg
}

// OpenStore opens or creates the store backing this session.
func (s *Session) OpenStore(path string, opts ...store.Option) bool {
	st, err := store.Open(path, opts...)
	if err != nil {
		return s.record(err)
	}
	s.mu.Lock()
	s.store = st
	s.mu.Unlock()
	return true
}

// CloseStore releases the session's store handle.
func (s *Session) CloseStore() bool {
	s.mu.Lock()
	st := s.store
	s.store = nil
	s.mu.Unlock()
	if st == nil {
		return s.recordStatus(StatusNullPointer, "store handle is nil")
	}
	if err := st.Close(); err != nil {
		return s.record(err)
	}
	return true
}

func (s *Session) getStore() (*store.Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil, false
	}
	return s.store, true
}

// Collection returns a handle on the named collection, or nil on failure.
func (s *Session) Collection(name string) *store.Collection {
	st, ok := s.getStore()
	if !ok {
		s.recordStatus(StatusNullPointer, "store handle is nil")
		return nil
	}
	col, err := st.Collection(name)
	if err != nil {
		s.record(err)
		return nil
	}
	return col
}

// CloseCollection releases a collection handle.
func (s *Session) CloseCollection(col *store.Collection) bool {
	if col == nil {
		return s.recordStatus(StatusNullPointer, "collection handle is nil")
	}
	if err := col.Close(); err != nil {
		return s.record(err)
	}
	return true
}

// DeleteCollection removes a collection and its documents.
func (s *Session) DeleteCollection(name string) bool {
	st, ok := s.getStore()
	if !ok {
		return s.recordStatus(StatusNullPointer, "store handle is nil")
	}
	if err := st.DeleteCollection(name); err != nil {
		return s.record(err)
	}
	return true
}

// ListCollections returns the sorted collection names, or nil on failure.
func (s *Session) ListCollections() []string {
	st, ok := s.getStore()
	if !ok {
		s.recordStatus(StatusNullPointer, "store handle is nil")
		return nil
	}
	names, err := st.ListCollections()
	if err != nil {
		s.record(err)
		return nil
	}
	return names
}

func decodeBody(doc string) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return nil, types.NewError(types.CodeJSON, "parsing document body", err)
	}
	return data, nil
}

// Insert stores a new document given as JSON text.
func (s *Session) Insert(col *store.Collection, id, doc string) bool {
	if col == nil {
		return s.recordStatus(StatusNullPointer, "collection handle is nil")
	}
	data, err := decodeBody(doc)
	if err != nil {
		return s.record(err)
	}
	if err := col.Insert(id, data); err != nil {
		return s.record(err)
	}
	return true
}

// Get returns the document body as JSON text. An absent id is a normal
// result: ("", true). The boolean is false only on failure.
func (s *Session) Get(col *store.Collection, id string) (string, bool) {
	if col == nil {
		return "", s.recordStatus(StatusNullPointer, "collection handle is nil")
	}
	doc, err := col.Get(id)
	if err != nil {
		return "", s.record(err)
	}
	if doc == nil {
		return "", true
	}
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return "", s.record(types.NewError(types.CodeJSON, "encoding document body", err))
	}
	return string(raw), true
}

// Update replaces a document body in full.
func (s *Session) Update(col *store.Collection, id, doc string) bool {
	if col == nil {
		return s.recordStatus(StatusNullPointer, "collection handle is nil")
	}
	data, err := decodeBody(doc)
	if err != nil {
		return s.record(err)
	}
	if err := col.Update(id, data); err != nil {
		return s.record(err)
	}
	return true
}

// Delete removes a document.
func (s *Session) Delete(col *store.Collection, id string) bool {
	if col == nil {
		return s.recordStatus(StatusNullPointer, "collection handle is nil")
	}
	if err := col.Delete(id); err != nil {
		return s.record(err)
	}
	return true
}

// Upsert inserts or replaces; the first result reports an insert.
func (s *Session) Upsert(col *store.Collection, id, doc string) (bool, bool) {
	if col == nil {
		return false, s.recordStatus(StatusNullPointer, "collection handle is nil")
	}
	data, err := decodeBody(doc)
	if err != nil {
		return false, s.record(err)
	}
	inserted, err := col.Upsert(id, data)
	if err != nil {
		return false, s.record(err)
	}
	return inserted, true
}

// Count returns the collection's document count, or -1 on failure.
func (s *Session) Count(col *store.Collection) int {
	if col == nil {
		s.recordStatus(StatusNullPointer, "collection handle is nil")
		return -1
	}
	n, err := col.Count()
	if err != nil {
		s.record(err)
		return -1
	}
	return n
}

func marshalResults(docs []types.Document) (string, error) {
	bodies := make([]interface{}, len(docs))
	for i, d := range docs {
		bodies[i] = d.Data
	}
	raw, err := json.Marshal(bodies)
	if err != nil {
		return "", types.NewError(types.CodeJSON, "encoding query results", err)
	}
	return string(raw), nil
}

// Query evaluates q and returns the matching bodies as a JSON array. Zero
// matches yields "[]", never "".
func (s *Session) Query(col *store.Collection, q query.Query) (string, bool) {
	if col == nil {
		return "", s.recordStatus(StatusNullPointer, "collection handle is nil")
	}
	docs, err := col.Query(q)
	if err != nil {
		return "", s.record(err)
	}
	out, err := marshalResults(docs)
	if err != nil {
		return "", s.record(err)
	}
	return out, true
}

// QueryComposite evaluates the OR-union of two queries.
func (s *Session) QueryComposite(col *store.Collection, cq query.Composite) (string, bool) {
	if col == nil {
		return "", s.recordStatus(StatusNullPointer, "collection handle is nil")
	}
	docs, err := col.QueryComposite(cq)
	if err != nil {
		return "", s.record(err)
	}
	out, err := marshalResults(docs)
	if err != nil {
		return "", s.record(err)
	}
	return out, true
}
