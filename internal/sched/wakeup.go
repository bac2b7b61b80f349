package sched

import "sync/atomic"

// WakeupCell is a single-slot atomic handoff point used to resolve races
// between the independent events that can ready a suspended coroutine —
// I/O completion, timer fire, and cancellation. A coroutine Arms a cell
// before suspending; whichever of those events calls Take first "wins" and
// is the one that actually reschedules the coroutine, and every other
// caller observes an already-empty cell and no-ops. This is the
// scheduler's rendering of the original's AtomicOption<Coroutine>.
type WakeupCell struct {
	v atomic.Pointer[wakeupEntry]
}

type wakeupEntry struct {
	co *Coroutine
}

// Arm installs co as the coroutine this cell will wake, replacing whatever
// was previously armed.
func (w *WakeupCell) Arm(co *Coroutine) {
	w.v.Store(&wakeupEntry{co: co})
}

// Take clears the cell and, if it held a coroutine, delivers param as its
// next Suspend's return value and reschedules it. Reports whether this
// call was the one to win the race (true), or whether the cell was
// already empty (false).
func (w *WakeupCell) Take(param interface{}) bool {
	e := w.v.Swap(nil)
	if e == nil {
		return false
	}
	e.co.lastParam = param
	e.co.sched.schedule(e.co)
	return true
}

// Armed reports whether the cell currently holds a coroutine, without
// taking it. Useful only for diagnostics; racy by construction.
func (w *WakeupCell) Armed() bool {
	return w.v.Load() != nil
}
