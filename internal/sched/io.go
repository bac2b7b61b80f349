package sched

import (
	"errors"
	"time"

	"github.com/zephyrrt/zephyr/internal/iopoll"
)

// ErrTimeout is returned by AwaitFD when a deadline fires before the
// underlying operation becomes ready.
var ErrTimeout = errors.New("sched: i/o timeout")

// ErrNoPoller is returned by AwaitFD when the calling coroutine has no
// worker-backed poller to register interest with — it was never resumed
// by a worker whose poller initialized successfully.
var ErrNoPoller = errors.New("sched: no poller available for this worker")

// timedOut is the sentinel TimeoutPayload.Result value AwaitFD's timer
// entries carry, distinguishing "the deadline fired" from "fd became
// ready" when both race the same wakeup cell.
type timedOut struct{}

// Poller returns the iopoll.Loop belonging to the worker that most
// recently resumed c, or nil if none is available.
func (c *Coroutine) Poller() *iopoll.Loop {
	w := c.CurrentWorker()
	if w == nil {
		return nil
	}
	return w.Poller()
}

// AwaitFD is the concrete rendering of the §4.4 subscribe contract shared
// by every I/O operation: it builds an event-data record (the poller
// registration plus, if deadline is non-zero, a timer-wheel entry) on the
// calling coroutine's own stack, installs the coroutine into the record's
// wakeup cell, issues perform, and if perform reports wouldBlock,
// publishes a cancel handle and suspends. Whichever of {fd readiness,
// deadline, cancel} resolves the wakeup cell first resumes the coroutine;
// AwaitFD then retries perform, unless the deadline won, in which case it
// returns ErrTimeout without retrying.
func (c *Coroutine) AwaitFD(fd int, want iopoll.IOEvents, deadline time.Time, wouldBlock func(error) bool, perform func() (int, error)) (int, error) {
	for {
		n, err := perform()
		if err == nil || !wouldBlock(err) {
			return n, err
		}

		poller := c.Poller()
		if poller == nil {
			return 0, ErrNoPoller
		}

		cell := &WakeupCell{}
		cell.Arm(c)

		var entry interface{ Cancel() }
		if !deadline.IsZero() {
			d := time.Until(deadline)
			if d <= 0 {
				return 0, ErrTimeout
			}
			entry = c.sched.wheel.Schedule(d, &TimeoutPayload{Cell: cell, Result: timedOut{}})
		}

		handle := &iopoll.WakeupHandle{
			FD:   fd,
			Want: want,
			Deliver: func(ev iopoll.Event) {
				cell.Take(ev)
			},
		}
		if regErr := poller.Register(handle); regErr != nil {
			if entry != nil {
				entry.Cancel()
			}
			return 0, regErr
		}

		c.cancel.PublishCancelHandle(func() {
			if entry != nil {
				entry.Cancel()
			}
			cell.Take(nil)
		})

		result := c.Suspend()

		c.cancel.PublishCancelHandle(nil)
		poller.Unregister(fd)
		if entry != nil {
			entry.Cancel()
		}

		if _, ok := result.(timedOut); ok {
			return 0, ErrTimeout
		}
		// Otherwise either the fd reported readiness (an iopoll.Event) or
		// the cell was taken with no particular value; either way, loop
		// back and retry perform — it is the only source of truth for
		// whether the operation actually succeeded.
	}
}
