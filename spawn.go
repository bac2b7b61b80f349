package zephyr

import (
	"time"

	"github.com/zephyrrt/zephyr/internal/sched"
)

// Spawn starts a new coroutine running entry, scheduling it onto the
// runtime's work-stealing pool, and returns a handle used to wait for its
// result.
func Spawn[T any](entry func() T) *JoinHandle[T] {
	return SpawnSized[T](0, entry)
}

// SpawnSized is Spawn with an explicit stack-size hint, used only to
// bucket coroutine-shell reuse — it is not an enforced stack limit, since
// Go exposes no such control over a goroutine's stack.
func SpawnSized[T any](stackHint int, entry func() T) *JoinHandle[T] {
	s := ensureRuntime()
	h := newJoinHandle[T]()
	h.co = s.Spawn("", stackHint, func(co *sched.Coroutine) interface{} {
		return entry()
	}, h)
	return h
}

// YieldNow suspends the calling coroutine, giving other ready coroutines a
// chance to run, then resumes as soon as some worker picks it back up.
// Outside any coroutine, it is a no-op.
func YieldNow() {
	if co := sched.CurrentCoroutine(); co != nil {
		co.Yield()
	}
}

// Sleep suspends the calling coroutine for at least d. Outside any
// coroutine, it falls back to blocking the calling goroutine with
// time.Sleep.
func Sleep(d time.Duration) {
	co := sched.CurrentCoroutine()
	if co == nil {
		time.Sleep(d)
		return
	}
	co.Scheduler().SleepDeadline(co, d)
}
