// Package workqueue runs a function on a single worker goroutine after a
// delay, with at most one invocation pending at any time.
package workqueue

import (
	"context"
	"sync"
	"time"
)

// Work is a cancellable delayed work item. The function never runs
// concurrently with itself and may reschedule itself.
type Work struct {
	fn func(ctx context.Context)

	mu      sync.Mutex
	pending bool
	stopped bool
	gen     uint64
	timer   *time.Timer
	trigger chan uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts the worker for fn. Nothing runs until Schedule is called.
func New(fn func(ctx context.Context)) *Work {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Work{
		fn:      fn,
		trigger: make(chan uint64, 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	w.wg.Add(1)
	go w.run()
	return w
}

func (w *Work) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case gen := <-w.trigger:
			w.mu.Lock()
			current := gen == w.gen && !w.stopped
			if current {
				w.pending = false
				w.timer = nil
			}
			w.mu.Unlock()

			// a trigger that raced with Cancel is dropped
			if current {
				w.fn(w.ctx)
			}
		}
	}
}

// Schedule queues one invocation after delay. It returns false when an
// invocation is already pending or the work has been stopped.
func (w *Work) Schedule(delay time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped || w.pending {
		return false
	}
	w.pending = true

	if delay <= 0 {
		w.fire()
		return true
	}
	gen := w.gen
	w.timer = time.AfterFunc(delay, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if gen == w.gen && !w.stopped {
			w.fire()
		}
	})
	return true
}

// fire hands a trigger to the worker. Caller holds mu.
func (w *Work) fire() {
	select {
	case w.trigger <- w.gen:
	default:
	}
}

// Cancel drops a pending invocation without stopping the worker. It
// reports whether one was pending. A running invocation is not affected.
func (w *Work) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancelPending()
}

// cancelPending must be called with mu held.
func (w *Work) cancelPending() bool {
	was := w.pending
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	select {
	case <-w.trigger:
	default:
	}
	w.pending = false
	return was
}

// Pending reports whether an invocation is queued.
func (w *Work) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Stop cancels any pending invocation, cancels the context of a running
// one and waits for the worker to exit. Later Schedule calls return false.
// Stop must not be called from within the work function.
func (w *Work) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		w.wg.Wait()
		return
	}
	w.stopped = true
	w.cancelPending()
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}
