package sync_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/zephyrrt/zephyr"
	zsync "github.com/zephyrrt/zephyr/sync"
)

func TestSemaphoreLimitsConcurrency(t *testing.T) {
	sem := zsync.NewSemaphore(3)
	var inFlight atomic.Int32
	var maxSeen atomic.Int32
	var wg zsync.WaitGroup

	const n = 30
	wg.Add(n)
	for i := 0; i < n; i++ {
		zephyr.Spawn(func() struct{} {
			defer wg.Done()
			sem.Acquire()
			defer sem.Release()

			cur := inFlight.Add(1)
			for {
				m := maxSeen.Load()
				if cur <= m || maxSeen.CompareAndSwap(m, cur) {
					break
				}
			}
			zephyr.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			return struct{}{}
		})
	}
	wg.Wait()

	if got := maxSeen.Load(); got > 3 {
		t.Fatalf("expected at most 3 concurrent holders, saw %d", got)
	}
}

func TestSemaphoreTryAcquire(t *testing.T) {
	sem := zsync.NewSemaphore(1)
	if !sem.TryAcquire() {
		t.Fatal("expected first TryAcquire to succeed")
	}
	if sem.TryAcquire() {
		t.Fatal("expected second TryAcquire to fail")
	}
	sem.Release()
	if !sem.TryAcquire() {
		t.Fatal("expected TryAcquire to succeed after Release")
	}
}
