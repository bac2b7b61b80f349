package timerwheel

import (
	"sync"
	"testing"
	"time"
)

func TestWheelFiresAfterDeadline(t *testing.T) {
	var mu sync.Mutex
	var fired []interface{}
	done := make(chan struct{})

	w := New(time.Millisecond)
	go w.Run(func(entries []*Entry) {
		mu.Lock()
		for _, e := range entries {
			fired = append(fired, e.Payload)
		}
		mu.Unlock()
		close(done)
	})
	defer w.Stop()

	w.Schedule(20*time.Millisecond, "hello")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != "hello" {
		t.Fatalf("expected [hello], got %v", fired)
	}
}

func TestEntryCancelPreventsFiring(t *testing.T) {
	w := New(time.Millisecond)
	go w.Run(func(entries []*Entry) {
		for range entries {
			t.Error("cancelled entry must not fire")
		}
	})
	defer w.Stop()

	e := w.Schedule(10*time.Millisecond, "x")
	e.Cancel()
	e.Cancel() // idempotent

	time.Sleep(50 * time.Millisecond)
}
