package csp

import (
	"context"
	"math/rand/v2"
)

// opKind distinguishes a put op ((channel, value) pair) from a get op
// (channel only), mirroring spec §4.5's "each op is either a channel (get
// op) or a (channel, value) pair (put op)".
type opKind int

const (
	getKind opKind = iota
	putKind
)

// Op is one candidate operation passed to Alt/BAlt: either a get on a
// channel (GetOp) or a put of a value onto a channel (PutOp).
type Op struct {
	kind opKind
	ch   *Chan
	val  any
}

// GetOp builds a get candidate for Alt/BAlt.
func GetOp(ch *Chan) Op {
	return Op{kind: getKind, ch: ch}
}

// PutOp builds a put candidate for Alt/BAlt, offering val onto ch.
func PutOp(ch *Chan, val any) Op {
	return Op{kind: putKind, ch: ch, val: val}
}

// AltResult is the outcome of a committed Alt/BAlt call.
type AltResult struct {
	// Val is the received value for a winning get op (nil if the channel
	// was closed and drained), the accepted/rejected bool for a winning
	// put op, or the caller-supplied default value if the default branch
	// fired.
	Val any
	// Chan is the winning op's channel, or nil if the default branch fired.
	Chan *Chan
	// Default reports whether no op was ready and WithDefault's value was
	// returned instead.
	Default bool
}

// orderOps returns ops in the order Alt should try them: unchanged if
// priority, else a uniform random permutation — spec §4.5 step 1.
func orderOps(ops []Op, priority bool) []Op {
	ordered := append([]Op(nil), ops...)
	if priority {
		return ordered
	}
	rand.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})
	return ordered
}

func validateOps(ops []Op) {
	if len(ops) == 0 {
		panic(&ValueError{Message: "csp: Alt: at least one op is required"})
	}
	seen := make(map[*Chan]struct{}, len(ops))
	for _, op := range ops {
		if _, dup := seen[op.ch]; dup {
			panic(&ValueError{Message: "csp: Alt: duplicate channel across ops"})
		}
		seen[op.ch] = struct{}{}
	}
}

// altDeliveryFor builds the DeliveryFunc a parked alt op's Handler invokes
// once some other goroutine commits it: it packages the delivered value
// together with that op's own channel into an AltResult before handing it
// to deliver. Used only for ops that actually park; a synchronously
// resolved op builds its AltResult directly from put's/get's return value.
func altDeliveryFor(op Op, deliver func(AltResult)) DeliveryFunc {
	return func(val any) {
		deliver(AltResult{Val: val, Chan: op.ch})
	}
}

// commitFlagDirectly attempts to commit flag without any associated
// Handler — used by the default branch (spec §4.5 step 5: "attempt to
// commit the flag locally").
func commitFlagDirectly(flag *commitFlag) bool {
	flag.mu.Lock()
	defer flag.mu.Unlock()
	if !flag.active {
		return false
	}
	flag.active = false
	return true
}

// dispatchAltOps runs the shared non-blocking-then-maybe-park pass
// described in spec §4.5 steps 2-4 for both Alt and BAlt: it builds one
// flagHandler per op (sharing flag), tries each op's channel in order, and
// returns the first synchronous win. deliver is wired into every parked
// op's Handler so a later winner (resolved from another goroutine) can
// still report its result.
func dispatchAltOps(ops []Op, flag *commitFlag, blockable, commitIfUnready bool, deliver func(AltResult)) *AltResult {
	for _, op := range ops {
		h := NewFlagHandler(flag, blockable, altDeliveryFor(op, deliver))
		switch op.kind {
		case putKind:
			if out := op.ch.put(h, op.val, commitIfUnready); out != nil {
				logAltDebug(op.ch, "put op won synchronously")
				return &AltResult{Val: out.accepted, Chan: op.ch}
			}
		case getKind:
			if out := op.ch.get(h, commitIfUnready); out != nil {
				logAltDebug(op.ch, "get op won synchronously")
				return &AltResult{Val: out.val, Chan: op.ch}
			}
		}
	}
	return nil
}

// logAltDebug logs through the winning op's own Chan logger — Alt has no
// logger of its own, since it coordinates across potentially many
// independently-configured channels.
func logAltDebug(ch *Chan, msg string) {
	if ch.logger.Enabled(LevelDebug) {
		ch.logger.Log(Entry{Level: LevelDebug, Category: "alt", Message: msg})
	}
}

// Alt returns a channel that resolves with the AltResult of whichever op
// wins the committed choice, per spec §4.5. ctx cancellation behaves as it
// does for Chan.Get/Put: a parked alt simply stops waiting (its shared
// flag is flipped inactive), discovered lazily by the losing channels'
// next prune pass — there is no forceful wake-up.
func Alt(ctx context.Context, ops []Op, opts ...AltOption) <-chan AltResult {
	validateOps(ops)
	cfg := resolveAltOptions(opts)
	result := make(chan AltResult, 1)
	deliver := func(r AltResult) {
		result <- r
		close(result)
	}

	ordered := orderOps(ops, cfg.priority)
	flag := newCommitFlag()
	blockable := !cfg.hasDefault
	commitIfUnready := !cfg.hasDefault

	if out := dispatchAltOps(ordered, flag, blockable, commitIfUnready, deliver); out != nil {
		deliver(*out)
		return result
	}

	if cfg.hasDefault && commitFlagDirectly(flag) {
		deliver(AltResult{Val: cfg.defaultVal, Default: true})
		return result
	}

	if ctx != nil && ctx.Done() != nil {
		go cancelAltOnDone(ctx, flag)
	}
	return result
}

// cancelAltOnDone cancels every op parked under flag when ctx is done, the
// Alt equivalent of channel.go's cancelOnDone.
func cancelAltOnDone(ctx context.Context, flag *commitFlag) {
	<-ctx.Done()
	flag.mu.Lock()
	flag.active = false
	flag.mu.Unlock()
}

// BAlt blocks the calling goroutine until an op commits, returning its
// AltResult synchronously.
func BAlt(ops []Op, opts ...AltOption) AltResult {
	validateOps(ops)
	cfg := resolveAltOptions(opts)
	ordered := orderOps(ops, cfg.priority)
	flag := newCommitFlag()
	prom := newPromise()
	deliver := func(r AltResult) { prom.deliver(r) }

	blockable := !cfg.hasDefault
	commitIfUnready := !cfg.hasDefault

	if out := dispatchAltOps(ordered, flag, blockable, commitIfUnready, deliver); out != nil {
		return *out
	}

	if cfg.hasDefault && commitFlagDirectly(flag) {
		return AltResult{Val: cfg.defaultVal, Default: true}
	}

	return prom.await().(AltResult)
}
