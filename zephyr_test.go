package zephyr_test

import (
	"sync/atomic"
	"testing"
	"time"

	. "github.com/zephyrrt/zephyr"
	zsync "github.com/zephyrrt/zephyr/sync"
)

func init() {
	Configure(WithWorkers(4), WithStackPoolCapacity(64))
}

// Scenario 1 from the spec's testable-properties suite: two coroutines
// share an unbuffered channel, one produces 1..=1000, the other sums them.
func TestPingPongUnbufferedChannel(t *testing.T) {
	ch := zsync.NewChan[int](0)

	sum := Spawn(func() int {
		total := 0
		for {
			v, ok := ch.Recv()
			if !ok {
				return total
			}
			total += v
		}
	})

	producer := Spawn(func() struct{} {
		for i := 1; i <= 1000; i++ {
			if err := ch.Send(i); err != nil {
				t.Errorf("send: %v", err)
			}
		}
		ch.Close()
		return struct{}{}
	})

	producer.Join()
	got := sum.Join()
	if got != 500500 {
		t.Fatalf("expected sum 500500, got %d", got)
	}
}

// Scenario 4: a coroutine cancelled while sleeping observes the
// cancellation and its parent's Join completes quickly rather than waiting
// out the full sleep.
func TestCancellationOfSleepingCoroutine(t *testing.T) {
	start := time.Now()
	h := Spawn(func() int {
		Sleep(10 * time.Second)
		return 1
	})

	time.Sleep(20 * time.Millisecond)
	h.Cancel()

	func() {
		defer func() {
			r := recover()
			if r != ErrCancelled {
				t.Fatalf("expected ErrCancelled from Join, got %v", r)
			}
		}()
		h.Join()
	}()

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("join took too long after cancel: %v", elapsed)
	}
}

// Scenario 6: 100 coroutines each store their own index into a CLS key and
// observe it again after a YieldNow, verifying no crosstalk between them.
func TestCoroutineLocalStorageIsolation(t *testing.T) {
	key := NewLocalKey(func() *int {
		v := -1
		return &v
	})

	const n = 100
	results := make(chan bool, n)

	for i := 0; i < n; i++ {
		idx := i
		Spawn(func() struct{} {
			key.With(func(v *int) { *v = idx })
			YieldNow()
			ok := false
			key.With(func(v *int) { ok = *v == idx })
			results <- ok
			return struct{}{}
		})
	}

	for i := 0; i < n; i++ {
		if !<-results {
			t.Fatal("observed crosstalk between coroutine-local slots")
		}
	}
}

func TestSpawnJoinReturnsValue(t *testing.T) {
	h := Spawn(func() string { return "hello" })
	if got := h.Join(); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestSpawnJoinPropagatesPanic(t *testing.T) {
	h := Spawn(func() int { panic("boom") })
	defer func() {
		r := recover()
		if r != "boom" {
			t.Fatalf("expected panic %q to propagate, got %v", "boom", r)
		}
	}()
	h.Join()
}

func TestYieldNowOutsideCoroutineIsNoop(t *testing.T) {
	YieldNow() // must not panic or block
}

func TestScopeJoinsAllChildren(t *testing.T) {
	var done atomic.Int32
	RunScope(func(sc *Scope) {
		for i := 0; i < 20; i++ {
			sc.Go(func() {
				done.Add(1)
			})
		}
	})
	if got := done.Load(); got != 20 {
		t.Fatalf("expected 20 children to finish before RunScope returned, got %d", got)
	}
}

func TestScopePropagatesChildPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != "scoped boom" {
			t.Fatalf("expected scoped panic to propagate, got %v", r)
		}
	}()
	RunScope(func(sc *Scope) {
		sc.Go(func() { panic("scoped boom") })
	})
}

func TestSleepElapsesAtLeastRequestedDuration(t *testing.T) {
	h := Spawn(func() time.Duration {
		start := time.Now()
		Sleep(30 * time.Millisecond)
		return time.Since(start)
	})
	if elapsed := h.Join(); elapsed < 30*time.Millisecond {
		t.Fatalf("Sleep returned early: %v", elapsed)
	}
}

func TestNumWorkers(t *testing.T) {
	if NumWorkers() < 1 {
		t.Fatal("expected at least one worker")
	}
}
