package sync

import stdsync "sync"

// Semaphore is a counting semaphore for coroutines: Acquire suspends the
// calling coroutine while no permits are available, instead of blocking
// its worker.
type Semaphore struct {
	mu      stdsync.Mutex
	permits int
	waiters waitQueue
}

// NewSemaphore creates a Semaphore with n permits initially available.
func NewSemaphore(n int) *Semaphore {
	return &Semaphore{permits: n}
}

// Acquire takes one permit, suspending while none are available.
func (s *Semaphore) Acquire() {
	s.AcquireN(1)
}

// AcquireN takes n permits atomically, suspending until all n are
// available together.
func (s *Semaphore) AcquireN(n int) {
	for {
		s.mu.Lock()
		if s.permits >= n {
			s.permits -= n
			s.mu.Unlock()
			return
		}
		w := s.waiters.enqueue()
		s.mu.Unlock()
		w.wait()
	}
}

// TryAcquire takes one permit without suspending, reporting whether it
// succeeded.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits < 1 {
		return false
	}
	s.permits--
	return true
}

// Release returns one permit, waking every waiter parked on this
// semaphore (it is ReleaseN(1)). A waiter blocked in AcquireN for more
// permits than are now available simply rechecks and re-parks, the same
// way a Cond waiter rechecks its condition after a spurious wake.
func (s *Semaphore) Release() {
	s.ReleaseN(1)
}

// ReleaseN returns n permits, waking every current waiter so each can
// recheck whether enough permits are now available.
func (s *Semaphore) ReleaseN(n int) {
	s.mu.Lock()
	s.permits += n
	s.waiters.wakeAllLocked()
	s.mu.Unlock()
}
