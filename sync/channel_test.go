package sync_test

import (
	"testing"

	"github.com/zephyrrt/zephyr"
	zsync "github.com/zephyrrt/zephyr/sync"
)

func TestChanUnbufferedHandoff(t *testing.T) {
	ch := zsync.NewChan[int](0)

	recvd := zephyr.Spawn(func() int {
		v, ok := ch.Recv()
		if !ok {
			t.Fatal("unexpected closed channel")
		}
		return v
	})

	zephyr.Spawn(func() struct{} {
		if err := ch.Send(42); err != nil {
			t.Errorf("send: %v", err)
		}
		return struct{}{}
	})

	if got := recvd.Join(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestChanBufferedDoesNotBlockUnderCapacity(t *testing.T) {
	ch := zsync.NewChan[int](4)
	h := zephyr.Spawn(func() int {
		for i := 0; i < 4; i++ {
			if err := ch.Send(i); err != nil {
				t.Errorf("send: %v", err)
			}
		}
		return ch.Len()
	})
	if got := h.Join(); got != 4 {
		t.Fatalf("expected buffer to hold all 4 sends, got len %d", got)
	}
}

func TestChanCloseWakesBlockedReceiver(t *testing.T) {
	ch := zsync.NewChan[int](0)
	h := zephyr.Spawn(func() bool {
		_, ok := ch.Recv()
		return ok
	})

	ch.Close()

	if ok := h.Join(); ok {
		t.Fatal("expected Recv on a closed, empty channel to report ok=false")
	}
}

func TestChanSendOnClosedReturnsErrClosed(t *testing.T) {
	ch := zsync.NewChan[int](1)
	ch.Close()
	h := zephyr.Spawn(func() error {
		return ch.Send(1)
	})
	if err := h.Join(); err != zephyr.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
