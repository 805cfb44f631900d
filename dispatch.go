package csp

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// blockingPromise is a one-shot, single-value future: exactly one deliver
// call ever has effect, and await blocks until it happens. It is the
// minimal building block BPut/BGet need to turn a possibly-parked Handler
// callback into a synchronous return — grounded on eventloop/promise.go's
// Promise (State/Result/ToChannel/Resolve/fanOut), trimmed down to a single
// waiter and a single value: a Chan op has exactly one caller waiting on
// it, never the fan-out subscriber list a JS-facing Promise needs.
type blockingPromise struct {
	delivered chan struct{}
	val       any
}

func newPromise() *blockingPromise {
	return &blockingPromise{delivered: make(chan struct{})}
}

// deliver is a DeliveryFunc: it settles the promise with val. A Handler
// commits at most once, so deliver is only ever called once per promise —
// unlike eventloop's Promise.Resolve, it doesn't need to guard against a
// second call.
func (p *blockingPromise) deliver(val any) {
	p.val = val
	close(p.delivered)
}

// await blocks the calling goroutine until deliver has been called, then
// returns the delivered value.
func (p *blockingPromise) await() any {
	<-p.delivered
	return p.val
}

// dispatchSem bounds the number of FPut/FGet calls in flight across the
// whole process at once, held from the start of the call until its outcome
// (synchronous or parked-then-delivered) is known. A caller firing FPut/FGet
// in a tight loop against several channels nobody is draining could
// otherwise accumulate an unbounded number of parked fire-and-forget
// operations; once the slots are used up, further FPut/FGet calls block in
// acquireDispatchSlot — this is that backstop, process-wide rather than per-Chan, since a
// single caller's fire-and-forget budget is a caller-level concern.
var dispatchSem = semaphore.NewWeighted(int64(MaxQueueSize))

// FPut is a fire-and-forget Put: cb is invoked with the outcome, either
// synchronously on the calling goroutine (if the Put resolves without
// parking) or later, on whatever goroutine resolves the parked Handler —
// another Put/Get/Alt call (Close resolves parked gets only, never parked
// puts). FPut itself blocks only long enough
// to acquire a dispatchSem slot (see acquireDispatchSlot), never waiting on
// the Put itself.
func (c *Chan) FPut(val any, cb func(accepted bool)) {
	if cb == nil {
		cb = func(bool) {}
	}
	if !acquireDispatchSlot() {
		return
	}
	release := onceReleaser()
	h := NewFnHandler(true, func(v any) {
		release()
		cb(v.(bool))
	})
	if out := c.put(h, val, true); out != nil {
		release()
		cb(out.accepted)
	}
}

// FGet is a fire-and-forget Get: cb is invoked with the received value and
// whether it was a genuine payload (false signals the closed-and-drained
// sentinel), either synchronously or later, under the same rules as FPut.
func (c *Chan) FGet(cb func(val any, ok bool)) {
	if cb == nil {
		cb = func(any, bool) {}
	}
	if !acquireDispatchSlot() {
		return
	}
	release := onceReleaser()
	h := NewFnHandler(true, func(v any) {
		release()
		cb(v, v != nil)
	})
	if out := c.get(h, true); out != nil {
		release()
		cb(out.val, out.val != nil)
	}
}

// acquireDispatchSlot blocks until a process-wide dispatchSem slot is free,
// held for the lifetime of one FPut/FGet call (synchronous or parked
// alike) — simpler, and race-free, compared to wiring the release into the
// Handler's callback only after it's already been exposed to other
// goroutines via c.put/c.get, which could let a racing commit fire the
// unwired callback and leak the slot.
func acquireDispatchSlot() bool {
	return dispatchSem.Acquire(context.Background(), 1) == nil
}

// onceReleaser returns a release function safe to call from both the
// synchronous return path and the Handler's delivery callback — exactly
// one of which will ever actually run for a given FPut/FGet call — without
// double-releasing the semaphore if both somehow raced.
func onceReleaser() func() {
	var once sync.Once
	return func() { once.Do(func() { dispatchSem.Release(1) }) }
}
