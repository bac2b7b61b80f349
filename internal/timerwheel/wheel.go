// Package timerwheel implements a hierarchical timing wheel: a cascading
// array of tick buckets used to manage large numbers of short-lived
// timeouts far more cheaply than a classic min-heap when timers are
// created and cancelled at a high rate, which is the scheduler's dominant
// access pattern (every coroutine sleep, and every I/O deadline, registers
// and usually cancels one).
//
// No hierarchical-wheel library appeared anywhere in the available
// dependency surface, so this is hand-rolled on top of container/list; see
// the algorithm's classic description (Varghese & Lauck, "Hashed and
// Hierarchical Timing Wheels").
package timerwheel

import (
	"container/list"
	"sync"
	"time"
)

const (
	numLevels   = 4
	slotsPerLvl = 64
)

// Entry is a single scheduled firing, returned by Schedule so callers can
// cancel it before it fires.
type Entry struct {
	Payload interface{}

	wheel *Wheel
	due   uint64
	level int
	slot  int
	elem  *list.Element
}

// Cancel removes the entry if it has not already fired. It is safe to call
// Cancel more than once, or after the entry has fired.
func (e *Entry) Cancel() {
	e.wheel.mu.Lock()
	defer e.wheel.mu.Unlock()
	if e.elem == nil {
		return
	}
	e.wheel.levels[e.level][e.slot].Remove(e.elem)
	e.elem = nil
}

// Wheel is a hierarchical timing wheel: numLevels cascading arrays of
// slotsPerLvl buckets each, where level L covers slotsPerLvl^(L+1) ticks.
// A single driving goroutine (started by Run) advances the lowest level
// once per tick and cascades entries down from coarser levels as their
// bucket comes due.
type Wheel struct {
	mu      sync.Mutex
	tick    time.Duration
	levels  [numLevels][slotsPerLvl]*list.List
	current uint64
	stopCh  chan struct{}
	stopped bool
}

// New creates a wheel with the given base tick duration. The wheel does
// not start advancing until Run is called.
func New(tick time.Duration) *Wheel {
	if tick <= 0 {
		tick = time.Millisecond
	}
	w := &Wheel{tick: tick, stopCh: make(chan struct{})}
	for l := 0; l < numLevels; l++ {
		for s := 0; s < slotsPerLvl; s++ {
			w.levels[l][s] = list.New()
		}
	}
	return w
}

// Schedule adds a new timer that fires no sooner than d from now.
func (w *Wheel) Schedule(d time.Duration, payload interface{}) *Entry {
	if d < 0 {
		d = 0
	}
	// Round up to whole ticks, plus one for the partial tick already in
	// progress, so the entry never fires before d has elapsed.
	ticks := uint64(d / w.tick)
	if d%w.tick != 0 {
		ticks++
	}
	ticks++

	w.mu.Lock()
	defer w.mu.Unlock()

	due := w.current + ticks
	e := &Entry{wheel: w, Payload: payload, due: due}
	e.level, e.slot = locate(w.current, due)
	e.elem = w.levels[e.level][e.slot].PushBack(e)
	return e
}

// locate picks the coarsest level whose span covers delta ticks from now,
// and the slot within that level due is destined for.
func locate(current, due uint64) (level, slot int) {
	delta := due - current
	span := uint64(slotsPerLvl)
	for l := 0; l < numLevels; l++ {
		if delta < span || l == numLevels-1 {
			return l, int((due / (span / slotsPerLvl)) % slotsPerLvl)
		}
		span *= slotsPerLvl
	}
	return numLevels - 1, int(due % slotsPerLvl)
}

// Run drives the wheel on the calling goroutine, advancing one tick at a
// time and invoking onFire with every entry due each tick, until Stop is
// called. It is meant to be run on its own dedicated goroutine.
func (w *Wheel) Run(onFire func(fired []*Entry)) {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.advance(onFire)
		}
	}
}

// Stop halts a running Run loop. It is safe to call more than once.
func (w *Wheel) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()
	close(w.stopCh)
}

func (w *Wheel) advance(onFire func(fired []*Entry)) {
	w.mu.Lock()

	w.current++
	slot0 := int(w.current % slotsPerLvl)

	// Cascade down one level each time a coarser level's own slot comes
	// due (i.e. every time a lower level wraps back to zero), rehoming
	// its entries at their now-correct, finer-grained slot. This runs
	// before slot0 is drained, so an entry due on this very tick is
	// rehomed into slot0 and fires now.
	if slot0 == 0 {
		span := uint64(slotsPerLvl)
		for l := 1; l < numLevels; l++ {
			idx := int((w.current / span) % slotsPerLvl)
			bucket := w.levels[l][idx]
			rehome := drainBucket(bucket)
			for _, e := range rehome {
				e.level, e.slot = locate(w.current, e.due)
				e.elem = w.levels[e.level][e.slot].PushBack(e)
			}
			span *= slotsPerLvl
			if idx != 0 {
				break
			}
		}
	}

	fired := drainBucket(w.levels[0][slot0])

	w.mu.Unlock()

	if len(fired) > 0 {
		onFire(fired)
	}
}

func drainBucket(l *list.List) []*Entry {
	if l.Len() == 0 {
		return nil
	}
	out := make([]*Entry, 0, l.Len())
	for e := l.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*Entry)
		entry.elem = nil
		out = append(out, entry)
		e = next
	}
	l.Init()
	return out
}
