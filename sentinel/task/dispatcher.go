// Package task runs store operations asynchronously on a bounded worker
// pool. Every accepted task fires its callback exactly once, with either the
// result or the error, and always from a worker goroutine.
package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// DefaultWorkers bounds the pool when the caller does not choose a size.
const DefaultWorkers = 4

// Func is the work a task performs. The context is the dispatcher's; it is
// not canceled by Close, which drains instead of aborting.
type Func func(ctx context.Context) (interface{}, error)

// Callback receives the task's outcome. Exactly one of result and err is
// meaningful; err is nil on success.
type Callback func(id uint64, result interface{}, err error)

type submission struct {
	id   uint64
	kind string
	fn   Func
	cb   Callback
}

// Dispatcher schedules tasks onto a fixed-size worker pool. Task ids start
// at 1 and increase monotonically; Submit returns 0 if and only if the task
// was not scheduled.
//
// Acceptance is decoupled from execution: Submit appends to an internal
// queue and returns at once, and a feeder goroutine hands queued tasks to
// the workers in submission order. A full pool therefore never blocks
// Submit, and a callback can schedule a dependent task even on a
// single-worker dispatcher.
type Dispatcher struct {
	pool *pool.Pool
	log  *slog.Logger
	ctx  context.Context
	next atomic.Uint64

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []submission
	closed bool

	drained chan struct{}
	done    chan struct{}
}

// NewDispatcher starts a dispatcher with the given number of workers.
// workers <= 0 falls back to DefaultWorkers. A nil logger discards logs.
func NewDispatcher(workers int, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Dispatcher{
		pool:    pool.New().WithMaxGoroutines(workers),
		log:     log,
		ctx:     context.Background(),
		drained: make(chan struct{}),
		done:    make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.feed()
	return d
}

// Submit schedules fn and returns its task id, or 0 when the dispatcher is
// closed. Submit never blocks on busy workers. The callback fires exactly
// once on a worker goroutine, never inline: a caller can take locks in the
// callback that it holds across Submit. cb may be nil.
func (d *Dispatcher) Submit(kind string, fn Func, cb Callback) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	id := d.next.Add(1)
	d.queue = append(d.queue, submission{id: id, kind: kind, fn: fn, cb: cb})
	d.cond.Signal()
	return id
}

// feed drains the queue onto the pool. pool.Go blocks while every worker is
// busy; only the feeder waits there, so Submit stays non-blocking.
func (d *Dispatcher) feed() {
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			close(d.drained)
			return
		}
		s := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		d.pool.Go(func() {
			d.run(s.id, s.kind, s.fn, s.cb)
		})
	}
}

func (d *Dispatcher) run(id uint64, kind string, fn Func, cb Callback) {
	var (
		result interface{}
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = types.Errorf(types.CodeRuntime, "task %d (%s) panicked: %v", id, kind, r)
			}
		}()
		result, err = fn(d.ctx)
	}()
	if err != nil {
		d.log.Error("task failed", "task_id", id, "kind", kind, "error", err)
	} else {
		d.log.Debug("task completed", "task_id", id, "kind", kind)
	}
	if cb != nil {
		cb(id, result, err)
	}
}

// Close stops accepting tasks and waits for queued and in-flight ones to
// finish and fire their callbacks. Submit returns 0 afterwards. Close is
// idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
	<-d.drained
	d.pool.Wait()
	close(d.done)
}

// String reports pool state for logs.
func (d *Dispatcher) String() string {
	return fmt.Sprintf("dispatcher(submitted=%d)", d.next.Load())
}
