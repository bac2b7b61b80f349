package sched

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
)

// ErrCancelled is the panic payload a join sees for a coroutine that
// unwound via cancellation rather than running to completion or a real
// panic — the "cancellation marker" §4.8's Join contract calls for,
// rendered as a recognizable panic value rather than a third return path.
var ErrCancelled = errors.New("sched: cancelled")

// CancelFunc aborts whatever operation most recently registered itself as
// the cancellable thing a coroutine is currently suspended on (an in-flight
// syscall, a pending timer).
type CancelFunc func()

// CancelStatus tracks whether a coroutine has been asked to stop, and the
// most recently published cancel handle for whatever it is currently
// suspended on. Operations that can suspend publish a handle immediately
// before yielding, and re-check the cancelled flag immediately after
// publication, so a cancel racing the publication is never missed.
type CancelStatus struct {
	cancelled atomic.Bool
	handle    atomic.Value // holds CancelFunc
}

// Cancel marks the coroutine cancelled and, if a cancel handle is
// currently published, invokes it. Safe to call more than once.
func (c *CancelStatus) Cancel() {
	c.cancelled.Store(true)
	if v := c.handle.Load(); v != nil {
		if fn, _ := v.(CancelFunc); fn != nil {
			fn()
		}
	}
}

// Cancelled reports whether Cancel has been called.
func (c *CancelStatus) Cancelled() bool { return c.cancelled.Load() }

// PublishCancelHandle records fn as the thing to call if this coroutine is
// cancelled while suspended. If the coroutine is already cancelled, fn is
// invoked immediately instead of being merely recorded, closing the race
// between "publish a handle" and "a cancel that already happened".
func (c *CancelStatus) PublishCancelHandle(fn CancelFunc) {
	c.handle.Store(fn)
	if fn != nil && c.cancelled.Load() {
		fn()
	}
}

// cancelUnwind is the sentinel panic value a suspended coroutine raises
// upon observing CancelStatus.Cancelled at a suspension point, to unwind
// its own stack. It is recovered at the coroutine's own goroutine boundary
// (see newCoroutine's job wrapper) and never escapes to the process.
type cancelUnwind struct{}

// Completer receives a finished coroutine's result (or, if its entry
// function panicked for a reason other than cancellation, the panic
// value). Implemented by the public package's generic JoinHandle.
type Completer interface {
	Complete(result interface{}, panicVal interface{})
}

// Coroutine is the scheduler's unit of work: a goroutine-backed,
// cooperatively-suspended "stackful" coroutine driven one suspend point at
// a time by its shell's baton.
type Coroutine struct {
	id        uint64
	name      string
	sched     *Scheduler
	shell     *shell
	stackHint int
	join      Completer

	yieldFn func()
	cancel  CancelStatus

	// lastWorker is the worker that most recently resumed this coroutine,
	// captured by Worker.run immediately before each Resume. I/O
	// operations use it to reach that worker's poller. The timer wheel
	// does not use it: a fired deadline is rescheduled from the timer
	// goroutine, which schedule's gidToIdx lookup never matches, so it
	// always lands on the global injector.
	lastWorker atomic.Pointer[Worker]

	clsMu sync.Mutex
	cls   map[reflect.Type]interface{}

	lastParam interface{}
	result    interface{}
	panicVal  interface{}
}

var coroutineSeq atomic.Uint64

// runningByGID maps the goroutine id of a coroutine's own backing
// goroutine to the Coroutine currently executing on it, so CurrentCoroutine
// can be answered cheaply from inside any suspension point or primitive.
var runningByGID sync.Map // uint64 -> *Coroutine

// CurrentCoroutine returns the Coroutine whose entry function is executing
// on the calling goroutine, or nil if the calling goroutine is not a
// coroutine backing goroutine managed by this package.
func CurrentCoroutine() *Coroutine {
	v, ok := runningByGID.Load(currentGID())
	if !ok {
		return nil
	}
	return v.(*Coroutine)
}

// newCoroutine allocates a Coroutine, acquires (or creates) a backing shell
// from the scheduler's stack pool, and starts the entry function running
// on it. The coroutine does not begin executing until its first Resume.
func (s *Scheduler) newCoroutine(name string, stackHint int, entry func(c *Coroutine) interface{}, join Completer) *Coroutine {
	c := &Coroutine{
		id:        coroutineSeq.Add(1),
		name:      name,
		sched:     s,
		stackHint: stackHint,
		join:      join,
		cls:       make(map[reflect.Type]interface{}),
	}
	c.shell = s.pool.acquire(stackHint)
	c.shell.start(func(yield func()) {
		c.yieldFn = yield
		g := currentGID()
		runningByGID.Store(g, c)
		defer runningByGID.Delete(g)
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(cancelUnwind); ok {
					c.panicVal = ErrCancelled
					return
				}
				c.panicVal = r
			}
		}()
		c.result = entry(c)
	})
	return c
}

// Resume hands the baton to the coroutine, delivering param as the value
// its pending Suspend call observes, and blocks until it next suspends
// (true) or finishes (false).
func (c *Coroutine) Resume(param interface{}) (alive bool) {
	c.lastParam = param
	return c.shell.resume()
}

// Suspend yields control back to whichever worker called Resume, and
// blocks the calling coroutine until it is resumed again. If the coroutine
// has been cancelled in the meantime, Suspend unwinds the coroutine's own
// stack via a recovered panic instead of returning a value.
func (c *Coroutine) Suspend() interface{} {
	c.yieldFn()
	if c.cancel.Cancelled() {
		panic(cancelUnwind{})
	}
	return c.lastParam
}

// Yield reschedules the coroutine onto a run queue and suspends until some
// worker resumes it — the basic cooperative-yield building block every
// other blocking primitive (sleep, I/O, locks) is expressed in terms of.
func (c *Coroutine) Yield() interface{} {
	c.sched.schedule(c)
	return c.Suspend()
}

// onFinished releases the coroutine's shell back to the stack pool and
// signals its JoinHandle, if any. Called exactly once, by the worker that
// observed Resume return false.
func (c *Coroutine) onFinished() {
	c.sched.pool.release(c.stackHint, c.shell)
	if c.join != nil {
		c.join.Complete(c.result, c.panicVal)
	}
}

// ID returns the coroutine's scheduler-assigned sequence number, used only
// for log correlation.
func (c *Coroutine) ID() uint64 { return c.id }

// Scheduler returns the scheduler this coroutine is running on.
func (c *Coroutine) Scheduler() *Scheduler { return c.sched }

// CancelStatus returns this coroutine's cancellation state.
func (c *Coroutine) CancelStatus() *CancelStatus { return &c.cancel }

// CurrentWorker returns the worker that most recently resumed this
// coroutine, or nil if it has never been resumed by one (not expected in
// practice — a coroutine only runs at all because some worker resumed it).
func (c *Coroutine) CurrentWorker() *Worker { return c.lastWorker.Load() }

// LocalData returns the coroutine-local storage map private to this
// coroutine. Never shared with any other coroutine or with the
// OS-thread-fallback map used outside any coroutine — that isolation is
// the entire point of coroutine-local storage.
func (c *Coroutine) LocalData() (map[reflect.Type]interface{}, *sync.Mutex) {
	return c.cls, &c.clsMu
}
