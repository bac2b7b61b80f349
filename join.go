package zephyr

import (
	"sync"

	"github.com/zephyrrt/zephyr/internal/sched"
)

// completionGate is a one-shot, dual-mode wait point: fire marks it done
// and wakes every waiter, cooperatively if the waiter is a coroutine or by
// closing a channel if it is a plain goroutine; wait blocks until fire is
// called, suspending the calling coroutine instead of its worker thread
// when called from inside one.
type completionGate struct {
	mu      sync.Mutex
	fired   bool
	ch      chan struct{}
	waiters []*sched.WakeupCell
}

func newCompletionGate() completionGate {
	return completionGate{ch: make(chan struct{})}
}

func (g *completionGate) fire() {
	g.mu.Lock()
	if g.fired {
		g.mu.Unlock()
		return
	}
	g.fired = true
	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()

	for _, cell := range waiters {
		cell.Take(nil)
	}
	close(g.ch)
}

func (g *completionGate) wait() {
	co := sched.CurrentCoroutine()
	if co == nil {
		<-g.ch
		return
	}

	g.mu.Lock()
	if g.fired {
		g.mu.Unlock()
		return
	}
	cell := &sched.WakeupCell{}
	cell.Arm(co)
	g.waiters = append(g.waiters, cell)
	g.mu.Unlock()
	co.Suspend()
}

// JoinHandle is returned by Spawn. Join blocks until the spawned coroutine
// finishes, returning its result. If the coroutine's entry function
// panicked, Join re-raises that panic in the joining goroutine; a
// cancelled coroutine surfaces as a panic carrying ErrCancelled.
type JoinHandle[T any] struct {
	co       *sched.Coroutine
	gate     completionGate
	val      T
	panicVal interface{}
}

func newJoinHandle[T any]() *JoinHandle[T] {
	return &JoinHandle[T]{gate: newCompletionGate()}
}

// Complete implements sched.Completer. It is called exactly once, by the
// worker that drove the coroutine to completion.
func (h *JoinHandle[T]) Complete(result interface{}, panicVal interface{}) {
	if result != nil {
		h.val = result.(T)
	}
	h.panicVal = panicVal
	h.gate.fire()
}

// Join blocks until the coroutine finishes and returns its result,
// cooperatively suspending the calling coroutine if called from inside
// one, or parking the calling OS thread otherwise. A coroutine that was
// cancelled before completing surfaces here as a panic carrying
// ErrCancelled; any other panic during the coroutine's entry function
// surfaces with its original payload.
func (h *JoinHandle[T]) Join() T {
	h.gate.wait()
	if h.panicVal != nil {
		if h.panicVal == sched.ErrCancelled {
			panic(ErrCancelled)
		}
		panic(h.panicVal)
	}
	return h.val
}

// Done returns a channel closed once the coroutine finishes, for use
// alongside other suspension points in a select statement.
func (h *JoinHandle[T]) Done() <-chan struct{} { return h.gate.ch }

// Cancel asks the spawned coroutine to stop. It is observed the next time
// the coroutine reaches a suspension point, not preemptively. A coroutine
// currently suspended in Sleep or in a net I/O call is woken at once and
// unwinds. A coroutine parked on a sync primitive or in Join is not woken
// by Cancel; it unwinds only once that wait is satisfied and it resumes.
func (h *JoinHandle[T]) Cancel() { h.co.CancelStatus().Cancel() }

var _ sched.Completer = (*JoinHandle[int])(nil)
