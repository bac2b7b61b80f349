package sync_test

import (
	"testing"
	"time"

	"github.com/zephyrrt/zephyr"
	zsync "github.com/zephyrrt/zephyr/sync"
)

func TestRWMutexAllowsConcurrentReaders(t *testing.T) {
	var rw zsync.RWMutex
	var wg zsync.WaitGroup

	const n = 10
	wg.Add(n)
	for i := 0; i < n; i++ {
		zephyr.Spawn(func() struct{} {
			defer wg.Done()
			rw.RLock()
			defer rw.RUnlock()
			zephyr.Sleep(time.Millisecond)
			return struct{}{}
		})
	}
	wg.Wait()
}

func TestRWMutexExcludesWriter(t *testing.T) {
	var rw zsync.RWMutex
	var shared int

	var wg zsync.WaitGroup
	wg.Add(2)
	zephyr.Spawn(func() struct{} {
		defer wg.Done()
		rw.Lock()
		defer rw.Unlock()
		shared = 1
		zephyr.Sleep(5 * time.Millisecond)
		if shared != 1 {
			t.Error("writer's value was clobbered during its own critical section")
		}
		return struct{}{}
	})
	zephyr.Spawn(func() struct{} {
		defer wg.Done()
		zephyr.Sleep(time.Millisecond)
		rw.Lock()
		defer rw.Unlock()
		shared = 2
		return struct{}{}
	})
	wg.Wait()

	if shared != 2 {
		t.Fatalf("expected final value 2, got %d", shared)
	}
}
