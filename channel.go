package csp

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// MaxQueueSize bounds each of a Chan's internal takes/puts FIFOs. Exceeding
// it raises a *QueueSizeExceededError — a programming-error signal, not a
// runtime condition a well-behaved caller should ever hit (spec §3).
const MaxQueueSize = 1024

// putEntry is a parked (Handler, value) pair awaiting delivery.
type putEntry struct {
	h   Handler
	val any
}

// putOutcome is the synchronous result of a Put call that did not park.
type putOutcome struct {
	accepted bool
}

// getOutcome is the synchronous result of a Get call that did not park.
// val may legitimately be nil — that's the closed-and-drained sentinel.
type getOutcome struct {
	val any
}

// Chan is a CSP-style channel: a synchronous rendezvous, or a
// buffered/transformed conduit when constructed WithBuffer. See NewChan.
type Chan struct {
	mu sync.Mutex

	buf    Buffer
	takes  []Handler
	puts   []putEntry
	closed bool

	xformDone bool
	rf        ReduceFunc

	logger Logger
}

// NewChan constructs a Chan. With no options it is an unbuffered
// rendezvous channel. WithBuffer gives it a Buffer; WithTransducer further
// requires WithBuffer and embeds a Transducer on the put path; WithExHandler
// further requires WithTransducer. Violating those combinations panics
// with a *TypeError, matching spec §6's constructor contract.
func NewChan(opts ...ChanOption) *Chan {
	cfg, err := resolveChanOptions(opts)
	if err != nil {
		panic(err)
	}
	c := &Chan{buf: cfg.buf, logger: cfg.logger}
	c.rf = c.buildReduceFunc(cfg.xform, cfg.exHandler)
	c.logger.Log(Entry{Level: LevelInfo, Category: "chan", Message: "constructed"})
	return c
}

// buildReduceFunc wires the channel's buffer write as the terminal step of
// the (possibly identity) transducer chain, then wraps the whole thing so
// a panic raised anywhere in it is routed through exHandler — grounded on
// chanpy/channel.py's ex_handler_xform and the channel's own internal
// `step` closure.
func (c *Chan) buildReduceFunc(xform Transducer, exHandler ExHandler) ReduceFunc {
	terminal := NewReduceFunc(func(_, val any) any {
		if val == nil {
			panic(&TypeError{Message: "csp: transducer produced a nil value"})
		}
		c.buf.Put(val)
		return nil
	})
	return wrapExHandler(xform(terminal), exHandler, c.buf.Put, c.logger)
}

// wrapExHandler recovers a panic raised by any arity of rf, routes the
// resulting error through h, and — if h recovers a value — appends it
// straight to the buffer via bufPut, bypassing the rest of the transducer
// chain (spec §4.3). If h itself panics, that panic is left to propagate.
func wrapExHandler(rf ReduceFunc, h ExHandler, bufPut func(any), logger Logger) ReduceFunc {
	safe := func(call func() any) (result any) {
		defer func() {
			if r := recover(); r != nil {
				err := panicToError(r)
				if logger.Enabled(LevelWarn) {
					logger.Log(Entry{Level: LevelWarn, Category: "xform", Message: "recovered transducer panic", Err: err})
				}
				recovered, ok := h(err)
				if ok {
					bufPut(recovered)
				}
			}
		}()
		return call()
	}
	return ReduceFunc{
		initF:     func() any { return safe(rf.Init) },
		completeF: func(acc any) any { return safe(func() any { return rf.Complete(acc) }) },
		stepF:     func(acc, val any) any { return safe(func() any { return rf.Step(acc, val) }) },
	}
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &TypeError{Message: fmt.Sprintf("%v", r)}
}

// commitHandler locks h, and — if active — commits it and returns its
// delivery callback. If h is already inactive (a sibling Handler sharing
// its commit flag won elsewhere, as Alt's do), it returns ok==false and
// the caller must treat this operation as already resolved by that
// sibling: no callback to invoke, no queue slot to take.
func commitHandler(h Handler) (cb DeliveryFunc, ok bool) {
	h.Lock()
	defer h.Unlock()
	if !h.IsActive() {
		return nil, false
	}
	return h.Commit(), true
}

// prune drops any parked Handler (or put entry) that has gone inactive
// since it was enqueued — cancellation via ctx, or a sibling Alt op
// winning elsewhere. Called at the start of every Put, Get and Close,
// matching spec §5's "prune-on-touch" design (no proactive removal).
func (c *Chan) prune() {
	c.takes = slices.DeleteFunc(c.takes, func(h Handler) bool {
		h.Lock()
		active := h.IsActive()
		h.Unlock()
		return !active
	})
	c.puts = slices.DeleteFunc(c.puts, func(p putEntry) bool {
		p.h.Lock()
		active := p.h.IsActive()
		p.h.Unlock()
		return !active
	})
}

// put is the core primitive from spec §4.4. Returns nil if h parked (or
// was already resolved by a sibling Handler), else the synchronous
// outcome. commitIfUnready governs only the final non-blockable fallback:
// Offer passes true ("nothing available" IS the answer, commit h with
// accepted=false); Alt's default-branch dispatch passes false (leave h
// active and report nil, so Alt can move on to the next op or the default
// value without falsely claiming a close/rejection — spec §4.5 step 4/5).
func (c *Chan) put(h Handler, val any, commitIfUnready bool) *putOutcome {
	if val == nil {
		panic(&TypeError{Message: "csp: Put: val must not be nil"})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()

	if c.closed {
		if _, ok := commitHandler(h); ok {
			return &putOutcome{accepted: false}
		}
		return nil
	}

	// Attempt to transfer val onto buf.
	if c.buf != nil && !c.buf.IsFull() {
		if cb, ok := commitHandler(h); ok {
			_ = cb // discarded: the synchronous return informs the caller
		} else {
			return nil
		}
		c.bufPut(val)
		c.drainTakesFromBuffer()
		c.logPutDebug("accepted onto buffer")
		return &putOutcome{accepted: true}
	}

	// Attempt to transfer val directly to a parked taker (rendezvous). The
	// head entry is only popped once its fate is known: an inactive taker
	// is discarded and the next one tried, but a still-active taker facing
	// an inactive h (a sibling Alt branch already won elsewhere) must stay
	// in the queue for a later Put/Get/Offer/Poll to reach — matching spec
	// §4.4, not chanpy's old pop-then-check _put bug.
	if c.buf == nil {
		for len(c.takes) > 0 {
			taker := c.takes[0]
			release := acquireHandlers(h, taker)
			if !taker.IsActive() {
				c.takes = c.takes[1:]
				release()
				continue
			}
			if !h.IsActive() {
				release()
				return nil
			}
			c.takes = c.takes[1:]
			h.Commit()
			takerCb := taker.Commit()
			release()
			takerCb(val)
			c.logPutDebug("delivered directly to parked taker")
			return &putOutcome{accepted: true}
		}
	}

	if !h.IsBlockable() {
		if commitIfUnready {
			if _, ok := commitHandler(h); ok {
				return &putOutcome{accepted: false}
			}
		}
		return nil
	}

	if len(c.puts) >= MaxQueueSize {
		panic(&QueueSizeExceededError{Kind: PutsQueue})
	}
	c.puts = append(c.puts, putEntry{h: h, val: val})
	c.logPutDebug("parked")
	return nil
}

// logPutDebug logs a debug-level "put" category Entry if the channel's
// Logger has debug logging enabled — gated up front so an unused Logger
// costs nothing beyond the Enabled check, per spec §3's zero-overhead
// logging requirement.
func (c *Chan) logPutDebug(msg string) {
	if c.logger.Enabled(LevelDebug) {
		c.logger.Log(Entry{Level: LevelDebug, Category: "put", Message: msg})
	}
}

// logGetDebug is logPutDebug's symmetric counterpart for the "get" category.
func (c *Chan) logGetDebug(msg string) {
	if c.logger.Enabled(LevelDebug) {
		c.logger.Log(Entry{Level: LevelDebug, Category: "get", Message: msg})
	}
}

// get is the core primitive from spec §4.4. Returns nil if h parked (or
// was already resolved by a sibling Handler), else the synchronous
// outcome (whose val may legitimately be nil: the closed sentinel).
// commitIfUnready has the same meaning as in put.
func (c *Chan) get(h Handler, commitIfUnready bool) *getOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()

	// Attempt to take a value from buf.
	if c.buf != nil && c.buf.Len() > 0 {
		if _, ok := commitHandler(h); !ok {
			return nil
		}
		val := c.buf.Get()

		for len(c.puts) > 0 && !c.buf.IsFull() {
			p := c.puts[0]
			c.puts = c.puts[1:]
			if cb, ok := commitHandler(p.h); ok {
				cb(true)
				c.bufPut(p.val)
			}
		}

		c.completeXformIfReady()
		c.logGetDebug("taken from buffer")
		return &getOutcome{val: val}
	}

	// Attempt to take a value from a parked putter (rendezvous). Same
	// peek-before-pop discipline as put's symmetric loop: an inactive
	// putter is discarded and the next one tried, but a still-active
	// putter is never dropped just because h itself turned out inactive.
	if c.buf == nil {
		for len(c.puts) > 0 {
			p := c.puts[0]
			release := acquireHandlers(h, p.h)
			if !p.h.IsActive() {
				c.puts = c.puts[1:]
				release()
				continue
			}
			if !h.IsActive() {
				release()
				return nil
			}
			c.puts = c.puts[1:]
			h.Commit()
			putterCb := p.h.Commit()
			release()
			putterCb(true)
			c.logGetDebug("taken directly from parked putter")
			return &getOutcome{val: p.val}
		}
	}

	if c.closed || (!h.IsBlockable() && commitIfUnready) {
		if _, ok := commitHandler(h); ok {
			return &getOutcome{val: nil}
		}
		return nil
	}
	if !h.IsBlockable() {
		return nil
	}

	if len(c.takes) >= MaxQueueSize {
		panic(&QueueSizeExceededError{Kind: TakesQueue})
	}
	c.takes = append(c.takes, h)
	c.logGetDebug("parked")
	return nil
}

// bufPut feeds val through the channel's (possibly identity, possibly
// exception-wrapped) transducer chain, whose terminal step appends to buf.
// If the chain signals early termination via Reduced, every parked putter
// is rejected and the channel is closed — spec §4.4.1.
func (c *Chan) bufPut(val any) {
	if IsReduced(c.rf.Step(nil, val)) {
		for _, p := range c.puts {
			if cb, ok := commitHandler(p.h); ok {
				cb(false)
			}
		}
		c.puts = nil
		c.closeLocked()
	}
}

// drainTakesFromBuffer hands buffered values to parked takers until
// either runs dry.
func (c *Chan) drainTakesFromBuffer() {
	for len(c.takes) > 0 && c.buf.Len() > 0 {
		taker := c.takes[0]
		c.takes = c.takes[1:]
		if cb, ok := commitHandler(taker); ok {
			cb(c.buf.Get())
		}
	}
}

// completeXformIfReady runs the transducer's completion arity exactly
// once, the instant the channel is closed, drained of parked puts, and
// hasn't completed yet — spec §4.4.2.
func (c *Chan) completeXformIfReady() {
	if c.closed && len(c.puts) == 0 && !c.xformDone {
		c.xformDone = true
		c.rf.Complete(nil)
	}
}

// Close idempotently closes the channel: prunes, marks closed, flushes
// any ready transducer completion and drains the buffer into parked
// takers, then rejects every remaining parked taker with the closed
// sentinel. Parked putters are deliberately NOT rejected — spec §4.4/§9:
// preserved, documented open-question behaviour, not "fixed" silently.
func (c *Chan) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()
	c.closeLocked()
}

func (c *Chan) closeLocked() {
	c.closed = true
	c.logger.Log(Entry{Level: LevelInfo, Category: "close", Message: "channel closed"})

	if c.buf != nil {
		c.completeXformIfReady()
		c.drainTakesFromBuffer()
	}

	for _, taker := range c.takes {
		if cb, ok := commitHandler(taker); ok {
			cb(nil)
		}
	}
	c.takes = nil
}

// Put returns a future resolved with true if val was accepted, false if
// the channel is closed. ctx cancellation cancels a parked Put; the
// returned channel then never resolves (matching spec §5's
// "cancellation... no forceful wake-up": the caller simply stops waiting).
func (c *Chan) Put(ctx context.Context, val any) <-chan bool {
	result := make(chan bool, 1)
	h := NewFnHandler(true, func(v any) {
		result <- v.(bool)
		close(result)
	})
	if out := c.put(h, val, true); out != nil {
		result <- out.accepted
		close(result)
		return result
	}
	go cancelOnDone(ctx, h)
	return result
}

// Get returns a future resolved with the received GetResult. ctx
// cancellation cancels a parked Get; see Put's cancellation note.
func (c *Chan) Get(ctx context.Context) <-chan GetResult {
	result := make(chan GetResult, 1)
	h := NewFnHandler(true, func(v any) {
		result <- GetResult{Val: v, Closed: v == nil}
		close(result)
	})
	if out := c.get(h, true); out != nil {
		result <- GetResult{Val: out.val, Closed: out.val == nil}
		close(result)
		return result
	}
	go cancelOnDone(ctx, h)
	return result
}

// GetResult is the resolved value of a Get future. Closed is true iff Val
// is the closed-and-drained sentinel (a nil received from a closed,
// drained channel) rather than a genuine nil payload — Go's Put already
// forbids a nil payload (spec §4.4.3), so in practice Closed==(Val==nil).
type GetResult struct {
	Val    any
	Closed bool
}

// cancelOnDone cancels h when ctx is done, letting a future parked
// operation become eligible for pruning. It does not force a wakeup;
// per spec §5 cancellation is lazy, discovered on the channel's next
// prune pass.
func cancelOnDone(ctx context.Context, h Handler) {
	if ctx == nil || ctx.Done() == nil {
		return
	}
	<-ctx.Done()
	h.Lock()
	if fh, ok := h.(*fnHandler); ok {
		fh.active = false
	}
	h.Unlock()
}

// Offer is a synchronous, non-blocking Put: it never parks. Returns true
// if val was accepted.
func (c *Chan) Offer(val any) bool {
	var accepted bool
	h := NewFnHandler(false, func(v any) { accepted = v.(bool) })
	if out := c.put(h, val, true); out != nil {
		return out.accepted
	}
	return accepted
}

// Poll is a synchronous, non-blocking Get: it never parks. Returns
// (val, true) if a real value was available, or (nil, false) if nothing
// was available right now OR the channel is closed and drained — spec
// §6's poll() collapses both cases to the same null result, and Poll
// preserves that: ok is shorthand for val != nil, not a third state.
func (c *Chan) Poll() (any, bool) {
	var val any
	h := NewFnHandler(false, func(v any) { val = v })
	if out := c.get(h, true); out != nil {
		return out.val, out.val != nil
	}
	return val, val != nil
}

// BPut blocks the calling goroutine until val is accepted or the channel
// is found closed, returning the outcome.
func (c *Chan) BPut(val any) bool {
	prom := newPromise()
	h := NewFnHandler(true, prom.deliver)
	if out := c.put(h, val, true); out != nil {
		return out.accepted
	}
	return prom.await().(bool)
}

// BGet blocks the calling goroutine until a value is received or the
// channel is found closed and drained.
func (c *Chan) BGet() (any, bool) {
	prom := newPromise()
	h := NewFnHandler(true, prom.deliver)
	if out := c.get(h, true); out != nil {
		return out.val, out.val != nil
	}
	v := prom.await()
	return v, v != nil
}
