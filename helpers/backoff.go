package helpers

import (
	"sync/atomic"
	"time"

	"github.com/temoto/atomic_clock"
)

// Backoff is exponential retry delay limited by [Min, Max].
// Delay is counted from last Failure or Success, so time spent in
// failed attempt is not waited twice.
//
//   for err := op(); err != nil; err = op() {
//     time.Sleep(backoff.Failure())
//   }
//   backoff.Success()
type Backoff struct {
	next int64 // atomic, must stay first for alignment on 32bit
	last atomic_clock.Clock

	Min time.Duration
	Max time.Duration
	K   float32
	Res time.Duration // default=1ms
}

// Failure multiplies delay by K, returns remaining delay.
func (b *Backoff) Failure() time.Duration {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		next = b.Min
	}
	next = b.clamp(time.Duration(float32(next) * b.K))
	atomic.StoreInt64(&b.next, int64(next))
	b.last.SetNow()
	return b.Remaining()
}

// Success drops delay back to Min.
func (b *Backoff) Success() {
	atomic.StoreInt64(&b.next, int64(b.Min))
	b.last.SetNow()
}

// Remaining is zero before first Failure or when delay has passed.
func (b *Backoff) Remaining() time.Duration {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		return 0
	}
	elapsed := atomic_clock.Since(&b.last)
	if elapsed >= next {
		return 0
	}
	return b.round(next - elapsed)
}

func (b *Backoff) clamp(d time.Duration) time.Duration {
	switch {
	case d < b.Min:
		d = b.Min
	case d > b.Max:
		d = b.Max
	}
	return b.round(d)
}

func (b *Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = time.Millisecond
	}
	return d - d%res
}
