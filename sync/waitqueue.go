// Package sync provides synchronization primitives for coroutines spawned
// by the root zephyr package: Mutex, RWMutex, Cond, Semaphore, WaitGroup,
// and mpsc/mpmc channels. Every blocking operation here suspends the
// calling coroutine through the scheduler's park/wake contract instead of
// blocking the OS thread driving it, the same way timers and I/O do.
//
// Calling one of these from a plain goroutine that zephyr didn't spawn is
// also supported: it parks that goroutine on a plain channel instead,
// mirroring the OS-thread fallback the root package's LocalKey gives
// coroutine-local storage.
package sync

import "github.com/zephyrrt/zephyr/internal/sched"

// waiter is a single parked caller: a coroutine, armed on a WakeupCell and
// woken cooperatively, or — when there is no current coroutine — a plain
// goroutine parked on a buffered channel instead.
type waiter struct {
	cell *sched.WakeupCell
	ch   chan interface{}
}

// newWaiter arms a waiter for the calling coroutine, or, called outside
// any coroutine, allocates a plain channel to park the calling goroutine
// on instead.
func newWaiter() *waiter {
	if co := sched.CurrentCoroutine(); co != nil {
		cell := &sched.WakeupCell{}
		cell.Arm(co)
		return &waiter{cell: cell}
	}
	return &waiter{ch: make(chan interface{}, 1)}
}

// deliver wakes the waiter with v. Safe to call from any goroutine.
func (w *waiter) deliver(v interface{}) {
	if w.cell != nil {
		w.cell.Take(v)
		return
	}
	w.ch <- v
}

// wait blocks until deliver is called, returning whatever value it was
// given. Must be called from the same goroutine that created w via
// newWaiter, immediately after releasing whatever lock guarded the
// enqueue, with no other coroutine-visible work in between.
func (w *waiter) wait() interface{} {
	if w.cell != nil {
		return sched.CurrentCoroutine().Suspend()
	}
	return <-w.ch
}

// waitQueue is a FIFO of callers parked on a contended primitive's state.
// It holds no lock of its own: every method requires the caller to
// already hold whatever lock guards the state the queue is conditioned on
// — the same monitor-style discipline as sync.Cond — so that "recheck the
// condition" and "enqueue myself to be woken" happen atomically with
// respect to the state change a waker makes, closing the classic
// lost-wakeup race a naive check-then-park would have.
type waitQueue struct {
	waiters []*waiter
}

// enqueue arms a waiter for the calling coroutine (or goroutine) and
// appends it to the queue; the caller is not parked until it calls the
// waiter's wait method. The caller must release its lock and call the returned
// waiter's wait method immediately afterward, with no other
// coroutine-visible work in between.
func (q *waitQueue) enqueue() *waiter {
	w := newWaiter()
	q.waiters = append(q.waiters, w)
	return w
}

// wakeOneLocked wakes the oldest parked waiter, if any. Caller must hold
// the queue's governing lock.
func (q *waitQueue) wakeOneLocked() {
	if len(q.waiters) == 0 {
		return
	}
	w := q.waiters[0]
	q.waiters = q.waiters[1:]
	w.deliver(nil)
}

// wakeAllLocked wakes every parked waiter. Caller must hold the queue's
// governing lock.
func (q *waitQueue) wakeAllLocked() {
	waiters := q.waiters
	q.waiters = nil
	for _, w := range waiters {
		w.deliver(nil)
	}
}
