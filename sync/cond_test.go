package sync_test

import (
	"testing"

	"github.com/zephyrrt/zephyr"
	zsync "github.com/zephyrrt/zephyr/sync"
)

func TestCondSignalWakesOneWaiter(t *testing.T) {
	var mu zsync.Mutex
	cond := zsync.NewCond(&mu)
	ready := false

	done := zephyr.Spawn(func() struct{} {
		mu.Lock()
		for !ready {
			cond.Wait()
		}
		mu.Unlock()
		return struct{}{}
	})

	zephyr.Spawn(func() struct{} {
		zephyr.YieldNow()
		mu.Lock()
		ready = true
		cond.Signal()
		mu.Unlock()
		return struct{}{}
	})

	done.Join()
}

func TestCondBroadcastWakesAllWaiters(t *testing.T) {
	var mu zsync.Mutex
	cond := zsync.NewCond(&mu)
	ready := false
	var wg zsync.WaitGroup

	const n = 8
	wg.Add(n)
	for i := 0; i < n; i++ {
		zephyr.Spawn(func() struct{} {
			defer wg.Done()
			mu.Lock()
			for !ready {
				cond.Wait()
			}
			mu.Unlock()
			return struct{}{}
		})
	}

	zephyr.Spawn(func() struct{} {
		zephyr.YieldNow()
		mu.Lock()
		ready = true
		cond.Broadcast()
		mu.Unlock()
		return struct{}{}
	})

	wg.Wait()
}
