package sched

import (
	"math/bits"
	"sync/atomic"
)

// parkBits packs up to 32 workers' parked flags into the low half of a
// uint64, and a pending-wake flag per worker into the high half.
//
// The original scheduler encodes parked/pending state ambiguously in a
// single bitmap shared across both meanings (see the design notes' open
// question on this); this resolves it the recommended way: parked flags
// and pending-wake flags live in separate halves of the word. The pending
// half is set by markPendingWake (the scheduler uses it for a worker that
// has no poller to signal), and a worker checks it immediately after
// marking itself parked, before actually blocking. A wakeOne call that
// finds no parked worker records nothing; the idle worker then relies on
// its 1-second self-wake.
type parkBits struct {
	bits atomic.Uint64
}

const parkedHalfMask = 0xFFFFFFFF

func (p *parkBits) markParked(worker int) {
	p.bits.Or(uint64(1) << uint(worker))
}

func (p *parkBits) clearParked(worker int) {
	p.bits.And(^(uint64(1) << uint(worker)))
}

func (p *parkBits) isParked(worker int) bool {
	return p.bits.Load()&(uint64(1)<<uint(worker)) != 0
}

// takePendingWake reports and clears whether worker has a pending wake
// that arrived while it was in the process of parking.
func (p *parkBits) takePendingWake(worker int) bool {
	bit := uint64(1) << uint(32+worker)
	for {
		old := p.bits.Load()
		if old&bit == 0 {
			return false
		}
		if p.bits.CompareAndSwap(old, old&^bit) {
			return true
		}
	}
}

// wakeOne finds the right-most (lowest-index) currently parked worker,
// clears its parked bit, and reports its index — mirroring the original's
// rms := parked & !parked.wrapping_sub(1) trick for locating the lowest
// set bit. If no worker is parked, it changes nothing and reports false;
// callers fall back on the 1-second poller-timeout self-wake in that case,
// exactly as the original scheduler does when wake_one finds nobody
// parked.
func (p *parkBits) wakeOne() (worker int, ok bool) {
	for {
		old := p.bits.Load()
		parked := old & parkedHalfMask
		if parked == 0 {
			return 0, false
		}
		idx := bits.TrailingZeros64(parked)
		next := old &^ (uint64(1) << uint(idx))
		if p.bits.CompareAndSwap(old, next) {
			return idx, true
		}
	}
}

// markPendingWake records a wake intended for worker that arrived before
// it finished parking (or while it was never parked in the first place),
// so the next time it checks takePendingWake it observes it immediately.
func (p *parkBits) markPendingWake(worker int) {
	p.bits.Or(uint64(1) << uint(32+worker))
}
