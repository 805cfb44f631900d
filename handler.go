package csp

import (
	"sync"
	"sync/atomic"
)

// nextLockID is a process-wide monotonic counter. It totalises lock
// acquisition order across distinct Handlers: whenever more than one
// Handler lock must be held at once (Alt, or a direct rendezvous between a
// putter and a taker), the locks are taken in ascending LockID order. IDs
// are never reused.
var nextLockID atomic.Uint64

func newLockID() uint64 {
	return nextLockID.Add(1)
}

// DeliveryFunc is the callback a committed Handler hands back from Commit.
// The channel invokes it with the delivered value (or, for a put Handler,
// the bool accepted/rejected result) after releasing the Handler's own
// lock, but while still holding the channel's lock, so it may safely
// re-enter the library.
type DeliveryFunc func(val any)

// Handler is a one-shot commitment slot: the atom of Alt's atomicity.
//
// A Handler starts active. Exactly one caller may successfully Commit it;
// every other Handler sharing its commit semantics (as sibling Alt
// operations do) then observes IsActive() == false.
//
// Lock/Unlock must be held around any read of IsActive and around Commit.
// When a caller needs to hold more than one Handler's lock simultaneously,
// it must acquire them in ascending LockID order — see acquireHandlers.
type Handler interface {
	// LockID returns the Handler's place in the global lock order. Stable
	// for the Handler's lifetime.
	LockID() uint64

	// IsBlockable reports whether this Handler's owning operation is
	// allowed to park (wait) when it cannot be satisfied immediately.
	IsBlockable() bool

	// Lock acquires the Handler's internal mutex.
	Lock()

	// Unlock releases the Handler's internal mutex.
	Unlock()

	// IsActive reports whether the Handler has not yet committed. Only
	// meaningful while the lock is held.
	IsActive() bool

	// Commit marks the Handler inactive and returns its delivery
	// callback. Must be called with the lock held, and only when
	// IsActive() is true; panics otherwise.
	Commit() DeliveryFunc
}

// acquireHandlers locks every given Handler in ascending LockID order and
// returns a function that releases them all. This is the single choke
// point responsible for the deadlock-free ordering invariant described in
// spec §4.1/§5: every code path that holds more than one Handler lock at
// once must go through here.
func acquireHandlers(handlers ...Handler) func() {
	ordered := append([]Handler(nil), handlers...)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].LockID() < ordered[j-1].LockID(); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	for _, h := range ordered {
		h.Lock()
	}
	return func() {
		for _, h := range ordered {
			h.Unlock()
		}
	}
}

// fnHandler is the "fn-handler" kind from spec §4.1: a delivery callback
// with its own private active flag, gated only by its own commit.
type fnHandler struct {
	mu         sync.Mutex
	active     bool
	blockable  bool
	lockID     uint64
	deliveryFn DeliveryFunc
}

var _ Handler = (*fnHandler)(nil)

// NewFnHandler builds a Handler whose commit calls cb exactly once. It is
// used directly by BPut/BGet/Offer/Poll, which don't need Alt's shared
// commit-flag semantics.
func NewFnHandler(blockable bool, cb DeliveryFunc) Handler {
	return &fnHandler{
		active:     true,
		blockable:  blockable,
		lockID:     newLockID(),
		deliveryFn: cb,
	}
}

func (h *fnHandler) LockID() uint64     { return h.lockID }
func (h *fnHandler) IsBlockable() bool  { return h.blockable }
func (h *fnHandler) Lock()              { h.mu.Lock() }
func (h *fnHandler) Unlock()            { h.mu.Unlock() }
func (h *fnHandler) IsActive() bool     { return h.active }

func (h *fnHandler) Commit() DeliveryFunc {
	if !h.active {
		panic("csp: Commit called on an already-committed Handler")
	}
	h.active = false
	return h.deliveryFn
}

// commitFlag is the object multiple flagHandlers reference to share commit
// semantics: the first sibling to commit flips active to false under its
// own lock; every other sibling observes IsActive() == false once it
// acquires the (shared) lock.
type commitFlag struct {
	mu     sync.Mutex
	active bool
}

// newCommitFlag creates a flag starting active, as spec §4.5 step 2
// describes for Alt.
func newCommitFlag() *commitFlag {
	return &commitFlag{active: true}
}

// flagHandler is the "flag-handler" kind from spec §4.1, used exclusively
// by Alt: many flagHandlers, one per candidate op, share a single
// commitFlag so that committing any one of them deactivates all the
// others.
type flagHandler struct {
	flag       *commitFlag
	blockable  bool
	lockID     uint64
	deliveryFn DeliveryFunc
}

var _ Handler = (*flagHandler)(nil)

// NewFlagHandler builds a Handler sharing flag's commit semantics with any
// other Handler built from the same flag.
func NewFlagHandler(flag *commitFlag, blockable bool, cb DeliveryFunc) Handler {
	return &flagHandler{
		flag:       flag,
		blockable:  blockable,
		lockID:     newLockID(),
		deliveryFn: cb,
	}
}

func (h *flagHandler) LockID() uint64    { return h.lockID }
func (h *flagHandler) IsBlockable() bool { return h.blockable }
func (h *flagHandler) Lock()             { h.flag.mu.Lock() }
func (h *flagHandler) Unlock()           { h.flag.mu.Unlock() }
func (h *flagHandler) IsActive() bool    { return h.flag.active }

func (h *flagHandler) Commit() DeliveryFunc {
	if !h.flag.active {
		panic("csp: Commit called on an already-committed Handler")
	}
	h.flag.active = false
	return h.deliveryFn
}
