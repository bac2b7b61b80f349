package sched

import "testing"

func TestParkBitsMarkAndClear(t *testing.T) {
	var p parkBits
	if p.isParked(2) {
		t.Fatal("worker 2 should not start parked")
	}
	p.markParked(2)
	if !p.isParked(2) {
		t.Fatal("expected worker 2 to be parked")
	}
	p.clearParked(2)
	if p.isParked(2) {
		t.Fatal("expected worker 2 to no longer be parked")
	}
}

func TestParkBitsWakeOnePicksLowestParkedIndex(t *testing.T) {
	var p parkBits
	p.markParked(3)
	p.markParked(1)
	p.markParked(5)

	idx, ok := p.wakeOne()
	if !ok || idx != 1 {
		t.Fatalf("expected to wake worker 1, got %d (ok=%v)", idx, ok)
	}
	if p.isParked(1) {
		t.Fatal("expected worker 1 to be cleared after waking")
	}
	if !p.isParked(3) || !p.isParked(5) {
		t.Fatal("expected other parked workers to remain parked")
	}
}

func TestParkBitsWakeOneWithNoneParkedReportsFalse(t *testing.T) {
	var p parkBits
	if _, ok := p.wakeOne(); ok {
		t.Fatal("expected wakeOne to report false with nobody parked")
	}
}

func TestParkBitsPendingWake(t *testing.T) {
	var p parkBits
	if p.takePendingWake(4) {
		t.Fatal("expected no pending wake initially")
	}
	p.markPendingWake(4)
	if !p.takePendingWake(4) {
		t.Fatal("expected pending wake to be observed")
	}
	if p.takePendingWake(4) {
		t.Fatal("expected pending wake to be consumed exactly once")
	}
}
