package store

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names a store mutation.
type EventKind string

const (
	EventInsert            EventKind = "insert"
	EventUpdate            EventKind = "update"
	EventDelete            EventKind = "delete"
	EventCollectionCreated EventKind = "collection_created"
	EventCollectionDropped EventKind = "collection_dropped"
)

// Event records one mutation for store-level aggregation.
type Event struct {
	ID         string
	Kind       EventKind
	Collection string
	DocID      string
	DocDelta   int64
	SizeDelta  int64
	At         time.Time
}

func newEvent(kind EventKind, collection, docID string, docDelta, sizeDelta int64) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Collection: collection,
		DocID:      docID,
		DocDelta:   docDelta,
		SizeDelta:  sizeDelta,
		At:         time.Now().UTC(),
	}
}

// aggregate folds events into the store metadata counters until the events
// channel closes. It runs on its own goroutine; the core takes its mutex
// for each fold so Stats sees consistent values.
func (c *core) aggregate() {
	defer close(c.aggDone)
	for ev := range c.events {
		c.mu.Lock()
		switch ev.Kind {
		case EventCollectionCreated:
			c.meta.CollectionCount++
		case EventCollectionDropped:
			if c.meta.CollectionCount > 0 {
				c.meta.CollectionCount--
			}
		}
		// A dropped collection carries negative deltas for its contents.
		c.meta.TotalDocuments = addClamped(c.meta.TotalDocuments, ev.DocDelta)
		c.meta.TotalSizeBytes = addClamped(c.meta.TotalSizeBytes, ev.SizeDelta)
		c.meta.Touch()
		c.log.Debug("event aggregated",
			"event_id", ev.ID, "kind", string(ev.Kind), "collection", ev.Collection)
		c.mu.Unlock()
	}
}

func addClamped(base uint64, delta int64) uint64 {
	if delta >= 0 {
		return base + uint64(delta)
	}
	d := uint64(-delta)
	if d > base {
		return 0
	}
	return base - d
}
