// Package store implements the document store: a persistence root owning
// named collections of JSON documents. A Store hands out Collection handles;
// handles from one Store share its backend and stay valid until the last
// handle and the Store itself are closed.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/cyberpath-HQ/sentinel/internal/validation"
	"github.com/cyberpath-HQ/sentinel/sentinel/crypto"
	"github.com/cyberpath-HQ/sentinel/sentinel/storage"
	"github.com/cyberpath-HQ/sentinel/sentinel/task"
	"github.com/cyberpath-HQ/sentinel/sentinel/types"
	"github.com/cyberpath-HQ/sentinel/sentinel/wal"
)

// keyVerifierPlaintext is sealed with the derived key and checked on reopen.
const keyVerifierPlaintext = "sentinel-key-verifier-v1"

const (
	walDir          = "wal"
	eventBufferSize = 256
)

// core is the shared state behind a Store and all Collection handles derived
// from it. It is reference counted: the backend, file lock and worker pool
// shut down only when the Store and every Collection handle are closed.
type core struct {
	mu          sync.Mutex
	root        string
	opts        Options
	backend     storage.Backend
	meta        *storage.StoreMeta
	collections map[string]*collState
	lock        *flock.Flock
	dispatcher  *task.Dispatcher
	events      chan Event
	aggDone     chan struct{}
	log         *slog.Logger
	refs        int
	shut        bool
}

// collState is the per-collection engine state shared by all handles on
// that collection.
type collState struct {
	name    string
	lm      *storage.LockManager
	meta    *storage.CollectionMeta
	journal *wal.Log
}

// Store owns a persistence root and its collections.
type Store struct {
	core   *core
	closed bool
	mu     sync.Mutex
}

// Open opens or creates a store at path. Opening fails with an I/O error
// when the path is inaccessible or another process holds the store, with a
// runtime error when existing state is corrupted, and with an invalid
// argument error on a wrong passphrase.
func Open(path string, opts ...Option) (*Store, error) {
	o := buildOptions(opts)
	c := &core{
		root:        path,
		opts:        o,
		collections: make(map[string]*collState),
		events:      make(chan Event, eventBufferSize),
		aggDone:     make(chan struct{}),
		log:         o.Logger,
		refs:        1,
	}

	if o.Backend != MemoryBackend {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, types.NewError(types.CodeIO, fmt.Sprintf("creating store root %s", path), err)
		}
		lock, err := acquireLock(path)
		if err != nil {
			return nil, err
		}
		c.lock = lock
	}

	backend, err := openBackend(path, o)
	if err != nil {
		c.releaseLock()
		return nil, err
	}
	c.backend = backend

	meta, err := backend.LoadStoreMeta()
	if err != nil {
		c.shutdownBackend()
		return nil, err
	}
	fresh := meta == nil
	if fresh {
		meta = storage.NewStoreMeta()
	}
	c.meta = meta

	if err := c.checkPassphrase(fresh); err != nil {
		c.shutdownBackend()
		return nil, err
	}
	if err := backend.SaveStoreMeta(c.meta); err != nil {
		c.shutdownBackend()
		return nil, err
	}

	c.dispatcher = task.NewDispatcher(o.Workers, o.Logger)
	go c.aggregate()
	c.log.Info("store opened", "path", path, "backend", string(o.Backend), "fresh", fresh)
	return &Store{core: c}, nil
}

func openBackend(path string, o Options) (storage.Backend, error) {
	switch o.Backend {
	case FileBackend, "":
		return storage.NewFileBackend(path, o.KeepDeleted)
	case BoltBackend:
		return storage.NewBoltBackend(path)
	case MemoryBackend:
		return storage.NewMemoryBackend(), nil
	default:
		return nil, types.Errorf(types.CodeInvalidArgument, "unknown backend %q", o.Backend)
	}
}

// checkPassphrase derives the key and verifies it against the sealed
// verifier record, creating the record on a fresh store.
func (c *core) checkPassphrase(fresh bool) error {
	switch {
	case c.meta.KeySalt == "" && c.opts.Passphrase == "":
		return nil
	case c.meta.KeySalt == "" && c.opts.Passphrase != "":
		if !fresh {
			return types.Errorf(types.CodeInvalidArgument,
				"store at %s was created without a passphrase", c.root)
		}
		salt, err := crypto.NewSalt()
		if err != nil {
			return err
		}
		key := crypto.DeriveKey(c.opts.Passphrase, salt)
		verifier, err := crypto.Seal([]byte(keyVerifierPlaintext), key)
		if err != nil {
			return err
		}
		c.meta.KeySalt = crypto.EncodeSalt(salt)
		c.meta.KeyVerifier = verifier
		return nil
	case c.opts.Passphrase == "":
		return types.Errorf(types.CodeInvalidArgument,
			"store at %s requires a passphrase", c.root)
	default:
		salt, err := crypto.DecodeSalt(c.meta.KeySalt)
		if err != nil {
			return types.NewError(types.CodeRuntime, "store key salt is corrupted", err)
		}
		key := crypto.DeriveKey(c.opts.Passphrase, salt)
		plain, err := crypto.Open(c.meta.KeyVerifier, key)
		if err != nil || string(plain) != keyVerifierPlaintext {
			return types.Errorf(types.CodeInvalidArgument, "wrong passphrase for store at %s", c.root)
		}
		return nil
	}
}

// Collection returns a handle on the named collection, creating it when
// absent. Handles are independent; each must be closed.
func (s *Store) Collection(name string) (*Collection, error) {
	if err := validation.CollectionName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, types.Errorf(types.CodeInvalidArgument, "store is closed")
	}
	s.mu.Unlock()

	c := s.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shut {
		return nil, types.Errorf(types.CodeInvalidArgument, "store is closed")
	}
	st, ok := c.collections[name]
	if !ok {
		var err error
		st, err = c.openCollection(name)
		if err != nil {
			return nil, err
		}
		c.collections[name] = st
	}
	c.refs++
	return &Collection{name: name, core: c, st: st}, nil
}

// openCollection loads or creates the collection's engine state. Caller
// holds c.mu.
func (c *core) openCollection(name string) (*collState, error) {
	if err := c.backend.EnsureCollection(name); err != nil {
		return nil, err
	}
	meta, err := c.backend.LoadCollectionMeta(name)
	if err != nil {
		return nil, err
	}
	created := meta == nil
	if created {
		meta = storage.NewCollectionMeta(name)
		if err := c.backend.SaveCollectionMeta(name, meta); err != nil {
			return nil, err
		}
	}
	st := &collState{name: name, lm: storage.NewLockManager(), meta: meta}

	if c.journalingEnabled() {
		journal, err := wal.Open(c.walPath(), name)
		if err != nil {
			return nil, err
		}
		st.journal = journal
		if err := c.recover(st); err != nil {
			journal.Close()
			return nil, err
		}
	}
	if created {
		c.emit(newEvent(EventCollectionCreated, name, "", 0, 0))
		c.log.Info("collection created", "collection", name)
	}
	return st, nil
}

func (c *core) journalingEnabled() bool {
	return !c.opts.DisableWAL && c.opts.Backend != MemoryBackend
}

func (c *core) walPath() string {
	return fmt.Sprintf("%s/%s", c.root, walDir)
}

// emit queues an event for aggregation. Events are dropped rather than
// blocking a mutation when the aggregator falls far behind.
func (c *core) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("event dropped", "kind", string(ev.Kind), "collection", ev.Collection)
	}
}

// DeleteCollection removes the collection, its documents and its registry
// entry. It fails with a not-found error when the collection is absent.
func (s *Store) DeleteCollection(name string) error {
	if err := validation.CollectionName(name); err != nil {
		return err
	}
	c := s.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shut {
		return types.Errorf(types.CodeInvalidArgument, "store is closed")
	}

	var docs, size int64
	if st, ok := c.collections[name]; ok {
		_ = st.lm.Execute(storage.ReadOperation, func() error {
			docs = int64(st.meta.DocumentCount)
			size = int64(st.meta.TotalSizeBytes)
			return nil
		})
		if st.journal != nil {
			_ = st.journal.Checkpoint()
			_ = st.journal.Close()
		}
		delete(c.collections, name)
	} else {
		meta, err := c.backend.LoadCollectionMeta(name)
		if err != nil {
			return err
		}
		if meta != nil {
			docs = int64(meta.DocumentCount)
			size = int64(meta.TotalSizeBytes)
		}
	}
	if err := c.backend.DeleteCollection(name); err != nil {
		return err
	}
	c.emit(newEvent(EventCollectionDropped, name, "", -docs, -size))
	c.log.Info("collection deleted", "collection", name)
	return nil
}

// ListCollections returns the names of all collections, sorted.
func (s *Store) ListCollections() ([]string, error) {
	c := s.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shut {
		return nil, types.Errorf(types.CodeInvalidArgument, "store is closed")
	}
	return c.backend.ListCollections()
}

// Stats returns a snapshot of the store metadata counters. The counters are
// folded from mutation events on a background goroutine, so a snapshot taken
// immediately after a mutation may not include it yet.
func (s *Store) Stats() storage.StoreMeta {
	c := s.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.meta
}

// Dispatcher exposes the store's async worker pool.
func (s *Store) Dispatcher() *task.Dispatcher {
	return s.core.dispatcher
}

// Close releases the Store handle. The backend, file lock and worker pool
// stay alive until every outstanding Collection handle is also closed.
// Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.core.release()
}

// release drops one reference; the last reference shuts everything down.
func (c *core) release() error {
	c.mu.Lock()
	c.refs--
	if c.refs > 0 {
		c.mu.Unlock()
		return nil
	}
	c.shut = true
	c.mu.Unlock()

	c.dispatcher.Close()
	close(c.events)
	<-c.aggDone

	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	if err := c.backend.SaveStoreMeta(c.meta); err != nil {
		firstErr = err
	}
	for _, st := range c.collections {
		if st.journal != nil {
			if err := st.journal.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := c.backend.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.releaseLock()
	c.log.Info("store closed", "path", c.root)
	return firstErr
}

func (c *core) releaseLock() {
	if c.lock != nil {
		_ = c.lock.Unlock()
		c.lock = nil
	}
}

// shutdownBackend tears down a partially opened core during Open failures.
func (c *core) shutdownBackend() {
	_ = c.backend.Close()
	c.releaseLock()
}
