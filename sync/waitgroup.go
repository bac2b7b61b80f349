package sync

import stdsync "sync"

// WaitGroup is a coroutine-suspending analogue of sync.WaitGroup: Wait
// suspends the calling coroutine until the counter reaches zero, instead
// of blocking its worker.
type WaitGroup struct {
	mu      stdsync.Mutex
	count   int
	waiters waitQueue
}

// Add adds delta (which may be negative) to the counter. Add with a
// positive delta should happen before the Wait call it is meant to be
// visible to, exactly as with sync.WaitGroup.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	wg.count += delta
	if wg.count < 0 {
		wg.mu.Unlock()
		panic("zephyr/sync: negative WaitGroup counter")
	}
	if wg.count == 0 {
		wg.waiters.wakeAllLocked()
	}
	wg.mu.Unlock()
}

// Done decrements the counter by one.
func (wg *WaitGroup) Done() { wg.Add(-1) }

// Wait suspends the calling coroutine until the counter reaches zero.
func (wg *WaitGroup) Wait() {
	for {
		wg.mu.Lock()
		if wg.count == 0 {
			wg.mu.Unlock()
			return
		}
		w := wg.waiters.enqueue()
		wg.mu.Unlock()
		w.wait()
	}
}
