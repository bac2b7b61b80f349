package zephyr

import "github.com/zephyrrt/zephyr/internal/sched"

// Coroutine is a handle to the currently running coroutine, used to
// observe cancellation and to key coroutine-local storage.
type Coroutine struct {
	co *sched.Coroutine
}

// Current returns a handle to the coroutine executing on the calling
// goroutine, or nil if called from outside any coroutine spawned by this
// package (for example, from main, or from an ordinary goroutine the
// caller started themselves).
func Current() *Coroutine {
	co := sched.CurrentCoroutine()
	if co == nil {
		return nil
	}
	return &Coroutine{co: co}
}

// ID returns a scheduler-assigned identifier for this coroutine, unique
// for the life of the process, used only for log correlation.
func (c *Coroutine) ID() uint64 { return c.co.ID() }

// Cancelled reports whether this coroutine has been asked to stop.
func (c *Coroutine) Cancelled() bool { return c.co.CancelStatus().Cancelled() }
