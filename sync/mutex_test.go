package sync_test

import (
	"sync/atomic"
	"testing"

	"github.com/zephyrrt/zephyr"
	zsync "github.com/zephyrrt/zephyr/sync"
)

func init() {
	zephyr.Configure(zephyr.WithWorkers(4))
}

func TestMutexMutualExclusion(t *testing.T) {
	var mu zsync.Mutex
	var counter int
	var wg zsync.WaitGroup

	const n = 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		zephyr.Spawn(func() struct{} {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			counter++
			return struct{}{}
		})
	}
	wg.Wait()

	if counter != n {
		t.Fatalf("expected counter %d, got %d", n, counter)
	}
}

func TestMutexTryLock(t *testing.T) {
	var mu zsync.Mutex
	if !mu.TryLock() {
		t.Fatal("expected uncontended TryLock to succeed")
	}
	if mu.TryLock() {
		t.Fatal("expected contended TryLock to fail")
	}
	mu.Unlock()
}

func TestMutexPoisonsOnPanickingHolder(t *testing.T) {
	var mu zsync.Mutex
	var poisoned atomic.Bool

	h := zephyr.Spawn(func() struct{} {
		mu.Lock()
		defer mu.Unlock()
		panic("held lock panic")
	})

	func() {
		defer func() { recover() }()
		h.Join()
	}()

	next := zephyr.Spawn(func() struct{} {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(*zsync.PoisonedError); ok {
					poisoned.Store(true)
				}
			}
		}()
		mu.Lock()
		return struct{}{}
	})
	next.Join()

	if !poisoned.Load() {
		t.Fatal("expected next locker to observe a PoisonedError")
	}
}
