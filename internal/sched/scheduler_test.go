package sched

import (
	"sync"
	"testing"
	"time"
)

type testJoin struct {
	ch  chan struct{}
	val interface{}
}

func newTestJoin() *testJoin { return &testJoin{ch: make(chan struct{})} }

func (j *testJoin) Complete(result interface{}, panicVal interface{}) {
	j.val = result
	close(j.ch)
}

func (j *testJoin) wait() interface{} {
	<-j.ch
	return j.val
}

func TestSchedulerSpawnAndJoin(t *testing.T) {
	s := New(2, nil, nil)
	s.Start()

	j := newTestJoin()
	s.Spawn("t", 0, func(c *Coroutine) interface{} { return 7 }, j)

	if got := j.wait(); got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestSchedulerManyNoopCoroutinesComplete(t *testing.T) {
	s := New(4, nil, nil)
	s.Start()

	const n = 5000
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		s.Spawn("", 0, func(c *Coroutine) interface{} { return nil }, completerFunc(func(interface{}, interface{}) {
			wg.Done()
		}))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("coroutines did not all complete in time")
	}
}

type completerFunc func(result interface{}, panicVal interface{})

func (f completerFunc) Complete(result interface{}, panicVal interface{}) { f(result, panicVal) }

func TestSchedulerYieldThenComplete(t *testing.T) {
	s := New(2, nil, nil)
	s.Start()

	j := newTestJoin()
	s.Spawn("", 0, func(c *Coroutine) interface{} {
		c.Yield()
		c.Yield()
		return "done"
	}, j)

	if got := j.wait(); got != "done" {
		t.Fatalf("expected done, got %v", got)
	}
}
