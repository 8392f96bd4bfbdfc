// Package wal implements a per-collection append-only journal. Each mutation
// is recorded as one JSON line before the storage backend applies it, so a
// crash between journal and backend can be repaired on the next open by
// replaying entries newer than the last checkpoint.
package wal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// Op identifies the mutation a journal entry records.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

const logExt = ".log"

// Entry is one journal record. Checksum covers the entry's own fields, so a
// torn tail write is detected during replay instead of being applied.
type Entry struct {
	Seq      uint64          `json:"seq"`
	Op       Op              `json:"op"`
	DocID    string          `json:"doc_id"`
	Data     json.RawMessage `json:"data,omitempty"`
	At       time.Time       `json:"at"`
	Checksum string          `json:"checksum"`
}

func (e *Entry) computeChecksum() string {
	h := xxhash.New()
	fmt.Fprintf(h, "%d|%s|%s|", e.Seq, e.Op, e.DocID)
	h.Write(e.Data)
	return fmt.Sprintf("%016x", h.Sum64())
}

func (e *Entry) valid() bool {
	return e.Checksum == e.computeChecksum()
}

// Log is the journal for a single collection. Appends are serialized and
// synced before returning.
type Log struct {
	mu      sync.Mutex
	path    string
	f       *os.File
	nextSeq uint64
}

// Open opens (or creates) the journal for collection under dir. Existing
// entries stay in place; the sequence continues after the last valid entry.
func Open(dir, collection string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewError(types.CodeIO, fmt.Sprintf("creating journal directory %s", dir), err)
	}
	path := filepath.Join(dir, collection+logExt)
	l := &Log{path: path, nextSeq: 1}
	if err := l.Replay(func(e Entry) error {
		l.nextSeq = e.Seq + 1
		return nil
	}); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, types.NewError(types.CodeIO, fmt.Sprintf("opening journal %s", path), err)
	}
	l.f = f
	return l, nil
}

// Append records a mutation. data may be nil for deletes.
func (l *Log) Append(op Op, docID string, data interface{}) error {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return types.NewError(types.CodeJSON, fmt.Sprintf("encoding journal entry for %s", docID), err)
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{
		Seq:   l.nextSeq,
		Op:    op,
		DocID: docID,
		Data:  raw,
		At:    time.Now().UTC(),
	}
	e.Checksum = e.computeChecksum()
	line, err := json.Marshal(&e)
	if err != nil {
		return types.NewError(types.CodeJSON, "encoding journal entry", err)
	}
	line = append(line, '\n')
	if _, err := l.f.Write(line); err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("appending to journal %s", l.path), err)
	}
	if err := l.f.Sync(); err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("syncing journal %s", l.path), err)
	}
	l.nextSeq++
	return nil
}

// Replay calls fn for each valid entry in order. Replay stops silently at the
// first undecodable or checksum-failed line; a torn tail write is expected
// after a crash and everything before it is still good.
func (l *Log) Replay(fn func(Entry) error) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return types.NewError(types.CodeIO, fmt.Sprintf("opening journal %s", l.path), err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil
		}
		if !e.valid() {
			return nil
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("reading journal %s", l.path), err)
	}
	return nil
}

// Checkpoint discards all entries. Call it after the backend has durably
// applied everything the journal records. The sequence keeps counting up so
// entry numbers never repeat within a process.
func (l *Log) Checkpoint() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.f.Truncate(0); err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("truncating journal %s", l.path), err)
	}
	if _, err := l.f.Seek(0, 0); err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("rewinding journal %s", l.path), err)
	}
	return nil
}

// Close closes the journal file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	if err != nil {
		return types.NewError(types.CodeIO, fmt.Sprintf("closing journal %s", l.path), err)
	}
	return nil
}
