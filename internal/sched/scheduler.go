// Package sched implements the scheduler core: work-stealing run queues, a
// parked-worker wakeup bitmap, per-worker event-loop integration, a
// hierarchical timer wheel, and the coroutine object that rides on top of
// all of it. It is grounded directly on the original runtime's
// scheduler.rs: the same local/steal/global run-queue order, the same
// rotated per-worker stealer table, and the same park/wake contract,
// translated into goroutines, channels, and atomics.
package sched

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zephyrrt/zephyr/internal/gid"
	"github.com/zephyrrt/zephyr/internal/iopoll"
	"github.com/zephyrrt/zephyr/internal/timerwheel"
)

func currentGID() uint64 { return gid.Current() }

// Logger is the small seam the owning package uses to inject its
// structured, logiface-backed logger without this package importing it
// directly.
type Logger interface {
	Warnf(category string, format string, args ...interface{})
}

// DiagnosticLimiter bounds how often a given diagnostic category is
// allowed to log, so a pathological workload (a worker repeatedly failing
// to steal, a poller repeatedly erroring) cannot flood the log.
type DiagnosticLimiter interface {
	Allow(category string) bool
}

type noopLogger struct{}

func (noopLogger) Warnf(string, string, ...interface{}) {}

type alwaysAllow struct{}

func (alwaysAllow) Allow(string) bool { return true }

func (s *Scheduler) logf(category, format string, args ...interface{}) {
	if s.limiter.Allow(category) {
		s.log.Warnf(category, format, args...)
	}
}

// Worker is a single OS-thread-pinned driver: its own local run queue, its
// own I/O poller, and a slot in the scheduler's park bitmap.
type Worker struct {
	id    int
	sched *Scheduler
	local *localQueue
	poll  *iopoll.Loop
	gid   atomic.Uint64
}

// Poller returns this worker's event-loop integration, for use by I/O
// operations issued from a coroutine currently running on it. Nil if the
// poller failed to initialize.
func (w *Worker) Poller() *iopoll.Loop { return w.poll }

// Scheduler is the process-wide runtime singleton coordinating worker
// threads, their run queues, the timer wheel, and coroutine wakeups.
// Grounded on the original's Scheduler{pool, event_loop, global_queue,
// local_queues, workers, timer_thread, stealers, sleeps, worker_ids}.
type Scheduler struct {
	workers  []*Worker
	global   globalInjector
	park     parkBits
	stealers [][]int // per worker: rotated steal order over peer indices
	pool     *stackPool
	wheel    *timerwheel.Wheel

	gidToIdx sync.Map // goroutine id (uint64) -> worker index (int)

	closing   atomic.Bool
	startOnce sync.Once

	log     Logger
	limiter DiagnosticLimiter
}

// New constructs a Scheduler with numWorkers worker drivers (GOMAXPROCS if
// numWorkers <= 0). Workers are not started until Start is called.
func New(numWorkers int, log Logger, limiter DiagnosticLimiter) *Scheduler {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = noopLogger{}
	}
	if limiter == nil {
		limiter = alwaysAllow{}
	}

	s := &Scheduler{
		pool:    newStackPool(256),
		wheel:   timerwheel.New(time.Millisecond),
		log:     log,
		limiter: limiter,
	}

	s.workers = make([]*Worker, numWorkers)
	for i := range s.workers {
		s.workers[i] = &Worker{id: i, sched: s, local: newLocalQueue(256)}
	}

	s.stealers = make([][]int, numWorkers)
	for i := range s.stealers {
		order := make([]int, 0, numWorkers-1)
		for off := 1; off < numWorkers; off++ {
			order = append(order, (i+off)%numWorkers)
		}
		s.stealers[i] = order
	}

	return s
}

// NewWithPoolCapacity is New with an explicit stack-shell reuse pool
// capacity per size bucket, and an explicit timer wheel tick.
func NewWithPoolCapacity(numWorkers, poolCapacity int, tick time.Duration, log Logger, limiter DiagnosticLimiter) *Scheduler {
	s := New(numWorkers, log, limiter)
	s.pool = newStackPool(poolCapacity)
	if tick > 0 {
		s.wheel = timerwheel.New(tick)
	}
	return s
}

// Start spins up every worker's driver loop and the timer thread. Safe to
// call more than once; only the first call has effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		for _, w := range s.workers {
			go w.run()
		}
		go s.runTimerThread()
	})
}

// NumWorkers returns the configured worker count.
func (s *Scheduler) NumWorkers() int { return len(s.workers) }

// Spawn creates a coroutine running entry and schedules it for its first
// resume.
func (s *Scheduler) Spawn(name string, stackHint int, entry func(c *Coroutine) interface{}, join Completer) *Coroutine {
	c := s.newCoroutine(name, stackHint, entry, join)
	s.schedule(c)
	return c
}

// Wheel exposes the scheduler's timer wheel to I/O and sleep operations
// that need to race a deadline against another event.
func (s *Scheduler) Wheel() *timerwheel.Wheel { return s.wheel }

// TimeoutPayload is what every timer-wheel entry created by this package
// carries as its Payload: the cell to take, and the value that should be
// delivered as the resumed coroutine's Suspend() result if this entry is
// the one that wins the race. A plain Sleep delivers nil (nothing else is
// racing it); a timed I/O operation delivers a distinguishable timedOut
// marker so AwaitFD can tell a deadline firing apart from an I/O-ready
// wakeup without a second side channel.
type TimeoutPayload struct {
	Cell   *WakeupCell
	Result interface{}
}

// SleepDeadline suspends c for at least d, racing only cancellation — a
// plain sleep is simply a wakeup cell taken by the timer wheel or by a
// cancel.
func (s *Scheduler) SleepDeadline(c *Coroutine, d time.Duration) {
	cell := &WakeupCell{}
	cell.Arm(c)
	entry := s.wheel.Schedule(d, &TimeoutPayload{Cell: cell})

	c.cancel.PublishCancelHandle(func() {
		entry.Cancel()
		cell.Take(nil)
	})
	c.Suspend()
	c.cancel.PublishCancelHandle(nil)
}

// runTimerThread drives the timer wheel on its own goroutine for the
// lifetime of the scheduler, delivering each fired entry's wakeup cell.
func (s *Scheduler) runTimerThread() {
	s.wheel.Run(func(fired []*timerwheel.Entry) {
		for _, e := range fired {
			if p, ok := e.Payload.(*TimeoutPayload); ok {
				p.Cell.Take(p.Result)
			}
		}
	})
}

// schedule routes a ready coroutine to the calling goroutine's own
// worker's local queue if the call happens from inside a worker's driver
// loop, and to the global injector (plus a wake) otherwise — mirroring
// schedule vs schedule_global in the original, dispatched here by the
// calling goroutine's identity instead of a thread-local WORKER_ID.
func (s *Scheduler) schedule(c *Coroutine) {
	if v, ok := s.gidToIdx.Load(currentGID()); ok {
		s.workers[v.(int)].local.pushBack(c)
		return
	}
	s.scheduleGlobal(c)
}

// scheduleGlobal always uses the overflow queue, used by wakeups arriving
// from outside any worker (I/O completions delivered on a worker's own
// poller still count as "inside" that worker, since Deliver callbacks run
// on the worker's own driver goroutine).
func (s *Scheduler) scheduleGlobal(c *Coroutine) {
	s.global.push(c)
	s.wakeOneWorker()
}

func (s *Scheduler) wakeOneWorker() {
	idx, ok := s.park.wakeOne()
	if !ok {
		return
	}
	s.wakeWorker(idx)
}

func (s *Scheduler) wakeWorker(idx int) {
	w := s.workers[idx]
	if w.poll != nil {
		w.poll.Wake()
		return
	}
	s.park.markPendingWake(idx)
}

// Close stops all workers and the timer thread. Workers observe closing at
// their next scheduling decision; in-flight coroutines are not forcibly
// unwound.
func (s *Scheduler) Close() {
	s.closing.Store(true)
	s.wheel.Stop()
	for _, w := range s.workers {
		s.wakeWorker(w.id)
	}
}

func (w *Worker) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	myGID := currentGID()
	w.gid.Store(myGID)
	w.sched.gidToIdx.Store(myGID, w.id)
	defer w.sched.gidToIdx.Delete(myGID)

	loop, err := iopoll.NewLoop()
	if err != nil {
		w.sched.logf("poll", "worker %d: poller init failed: %v", w.id, err)
	} else {
		w.poll = loop
		defer loop.Close()
	}

	for !w.sched.closing.Load() {
		c := w.local.popFront()
		if c == nil {
			c = w.steal()
		}
		if c == nil {
			c = w.sched.global.pop()
		}
		if c == nil {
			w.park()
			continue
		}
		c.lastWorker.Store(w)
		if alive := c.Resume(c.lastParam); !alive {
			c.onFinished()
		}
	}
}

// steal walks this worker's rotated peer order (the original's
// steal_local), skipping currently-parked peers (an idle peer has nothing
// worth taking), and takes half of the first queue holding at least two
// coroutines (a queue with a single coroutine yields nothing).
func (w *Worker) steal() *Coroutine {
	for _, peer := range w.sched.stealers[w.id] {
		if w.sched.park.isParked(peer) {
			continue
		}
		if n := w.sched.workers[peer].local.stealHalf(w.local); n > 0 {
			return w.local.popFront()
		}
	}
	return nil
}

// park is this worker's idle wait: mark parked, check for a pending wake
// that raced the marking, then block in the poller's blocking wait (which
// doubles as both the I/O wait and the 1-second self-wake safety net,
// since Poll always returns at its timeout even with nothing ready).
func (w *Worker) park() {
	w.sched.park.markParked(w.id)
	defer w.sched.park.clearParked(w.id)

	if w.sched.park.takePendingWake(w.id) {
		return
	}

	if w.poll != nil {
		w.poll.Poll(1000)
		return
	}
	time.Sleep(time.Second)
}
