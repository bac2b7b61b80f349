package sync

import stdsync "sync"

// Locker is satisfied by Mutex and RWMutex's write side.
type Locker interface {
	Lock()
	Unlock()
}

// Cond is a condition variable for coroutines, used with an external
// Locker exactly like sync.Cond: callers hold L, check their condition,
// and call Wait to atomically release L and suspend until signaled, then
// reacquire L before returning.
type Cond struct {
	L Locker

	mu      stdsync.Mutex
	waiters waitQueue
}

// NewCond creates a Cond using l as its associated locker.
func NewCond(l Locker) *Cond { return &Cond{L: l} }

// Wait releases L, suspends the calling coroutine until Signal or
// Broadcast wakes it, then reacquires L before returning. As with
// sync.Cond, the condition must be re-checked in a loop after Wait
// returns, since a spurious or shared wakeup is possible.
func (c *Cond) Wait() {
	c.mu.Lock()
	w := c.waiters.enqueue()
	c.mu.Unlock()

	c.L.Unlock()
	w.wait()
	c.L.Lock()
}

// Signal wakes one waiter, if any.
func (c *Cond) Signal() {
	c.mu.Lock()
	c.waiters.wakeOneLocked()
	c.mu.Unlock()
}

// Broadcast wakes every waiter.
func (c *Cond) Broadcast() {
	c.mu.Lock()
	c.waiters.wakeAllLocked()
	c.mu.Unlock()
}
