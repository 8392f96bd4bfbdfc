package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

func TestSubmitReturnsMonotonicIDs(t *testing.T) {
	d := NewDispatcher(2, nil)
	defer d.Close()

	var prev uint64
	for i := 0; i < 10; i++ {
		id := d.Submit("noop", func(context.Context) (interface{}, error) {
			return nil, nil
		}, nil)
		if id == 0 {
			t.Fatalf("Submit returned 0 for a live dispatcher")
		}
		if id <= prev {
			t.Fatalf("ids not increasing: %d after %d", id, prev)
		}
		prev = id
	}
}

func TestCallbackFiresExactlyOnce(t *testing.T) {
	d := NewDispatcher(4, nil)

	var fired atomic.Int64
	done := make(chan uint64, 1)
	wantID := d.Submit("compute", func(context.Context) (interface{}, error) {
		return 42, nil
	}, func(id uint64, result interface{}, err error) {
		fired.Add(1)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != 42 {
			t.Errorf("result = %v, want 42", result)
		}
		done <- id
	})
	select {
	case id := <-done:
		if id != wantID {
			t.Errorf("callback saw id %d, want %d", id, wantID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
	d.Close()
	if got := fired.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
}

func TestCallbackReceivesError(t *testing.T) {
	d := NewDispatcher(1, nil)
	defer d.Close()

	boom := errors.New("boom")
	done := make(chan error, 1)
	d.Submit("failing", func(context.Context) (interface{}, error) {
		return nil, boom
	}, func(_ uint64, _ interface{}, err error) {
		done <- err
	})
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("callback error = %v, want %v", err, boom)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestPanicBecomesRuntimeError(t *testing.T) {
	d := NewDispatcher(1, nil)
	defer d.Close()

	done := make(chan error, 1)
	d.Submit("panicking", func(context.Context) (interface{}, error) {
		panic("kaboom")
	}, func(_ uint64, _ interface{}, err error) {
		done <- err
	})
	select {
	case err := <-done:
		if types.CodeOf(err) != types.CodeRuntime {
			t.Errorf("panic surfaced as %v, want runtime error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestCloseDrainsAndRejects(t *testing.T) {
	d := NewDispatcher(2, nil)

	var completed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		id := d.Submit("slow", func(context.Context) (interface{}, error) {
			time.Sleep(5 * time.Millisecond)
			return nil, nil
		}, func(uint64, interface{}, error) {
			completed.Add(1)
			wg.Done()
		})
		if id == 0 {
			t.Fatalf("Submit returned 0 before Close")
		}
	}
	d.Close()
	wg.Wait()
	if got := completed.Load(); got != 20 {
		t.Errorf("completed %d tasks after Close, want 20", got)
	}
	if id := d.Submit("late", func(context.Context) (interface{}, error) {
		return nil, nil
	}, nil); id != 0 {
		t.Errorf("Submit after Close = %d, want 0", id)
	}
	// Idempotent.
	d.Close()
}

func TestSubmitReturnsWhileWorkersBusy(t *testing.T) {
	d := NewDispatcher(1, nil)

	// Park the only worker.
	gate := make(chan struct{})
	running := make(chan struct{})
	d.Submit("parked", func(context.Context) (interface{}, error) {
		close(running)
		<-gate
		return nil, nil
	}, nil)
	<-running

	returned := make(chan uint64, 1)
	go func() {
		returned <- d.Submit("queued", func(context.Context) (interface{}, error) {
			return nil, nil
		}, nil)
	}()
	select {
	case id := <-returned:
		if id == 0 {
			t.Fatal("Submit returned 0 for a live dispatcher")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked while the only worker was busy")
	}
	close(gate)
	d.Close()
}

func TestCallbackCanSubmitDependentTask(t *testing.T) {
	d := NewDispatcher(1, nil)
	defer d.Close()

	// A callback scheduling follow-up work runs on the worker that would
	// execute that work; scheduling must not wait for the worker to free.
	done := make(chan uint64, 1)
	first := d.Submit("first", func(context.Context) (interface{}, error) {
		return nil, nil
	}, func(uint64, interface{}, error) {
		id := d.Submit("second", func(context.Context) (interface{}, error) {
			return nil, nil
		}, func(id uint64, _ interface{}, _ error) {
			done <- id
		})
		if id == 0 {
			t.Error("dependent Submit returned 0")
		}
	})
	select {
	case second := <-done:
		if second <= first {
			t.Errorf("dependent task id %d not after %d", second, first)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dependent task never ran on a single-worker dispatcher")
	}
}

func TestCallbacksRunOffCaller(t *testing.T) {
	d := NewDispatcher(1, nil)
	defer d.Close()

	// A mutex held across Submit must not deadlock with the callback.
	var mu sync.Mutex
	done := make(chan struct{})
	mu.Lock()
	d.Submit("locking", func(context.Context) (interface{}, error) {
		return nil, nil
	}, func(uint64, interface{}, error) {
		mu.Lock()
		mu.Unlock()
		close(done)
	})
	time.Sleep(10 * time.Millisecond)
	mu.Unlock()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback deadlocked against the caller")
	}
}
