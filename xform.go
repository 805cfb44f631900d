package csp

// Reduced wraps a value to signal "no further input may be fed". A step
// function returns a *Reduced instead of a plain accumulator to request
// early termination; the outer driver (Chan's put path) must unwrap it
// before finalizing. Do not confuse a *Reduced with a user value — callers
// that don't expect early termination should always Unreduced their
// result.
type Reduced struct {
	Value any
}

// EnsureReduced wraps v in a *Reduced unless it already is one.
func EnsureReduced(v any) *Reduced {
	if r, ok := v.(*Reduced); ok {
		return r
	}
	return &Reduced{Value: v}
}

// Unreduced returns v.Value if v is a *Reduced, else v unchanged.
func Unreduced(v any) any {
	if r, ok := v.(*Reduced); ok {
		return r.Value
	}
	return v
}

// IsReduced reports whether v is a *Reduced sentinel.
func IsReduced(v any) bool {
	_, ok := v.(*Reduced)
	return ok
}

// ReduceFunc is a reducing-step function with three call shapes, mirroring
// the Python source's *args-dispatched rf(), rf(acc), rf(acc, val): Init
// (0 inputs, unused by channels, kept for parity with the transduce
// protocol), Complete (1 input: flush retained state, called exactly once)
// and Step (2 inputs: fold val into acc, may return a *Reduced).
type ReduceFunc struct {
	initF    func() any
	completeF func(acc any) any
	stepF    func(acc, val any) any
}

// Init invokes the 0-arity shape. Channels never call this; it exists so
// ReduceFunc values remain usable with generic transduce-style drivers.
func (rf ReduceFunc) Init() any {
	if rf.initF == nil {
		return nil
	}
	return rf.initF()
}

// Complete invokes the 1-arity (completion/flush) shape.
func (rf ReduceFunc) Complete(acc any) any {
	if rf.completeF == nil {
		return acc
	}
	return rf.completeF(acc)
}

// Step invokes the 2-arity shape, folding val into acc. May return a
// *Reduced to request early termination.
func (rf ReduceFunc) Step(acc, val any) any {
	return rf.stepF(acc, val)
}

// ReduceFuncOption customizes NewReduceFunc's Init/Complete arities; most
// transducers only need to override Step and optionally Complete.
type ReduceFuncOption func(*ReduceFunc)

// WithInit overrides the 0-arity shape.
func WithInit(f func() any) ReduceFuncOption {
	return func(rf *ReduceFunc) { rf.initF = f }
}

// WithComplete overrides the 1-arity (completion) shape. The default
// completion arity is the identity function — forward acc unchanged.
func WithComplete(f func(acc any) any) ReduceFuncOption {
	return func(rf *ReduceFunc) { rf.completeF = f }
}

// NewReduceFunc builds a ReduceFunc from a step function and optional
// Init/Complete overrides.
func NewReduceFunc(step func(acc, val any) any, opts ...ReduceFuncOption) ReduceFunc {
	rf := ReduceFunc{stepF: step}
	for _, opt := range opts {
		opt(&rf)
	}
	return rf
}

// Transducer transforms a downstream ReduceFunc into a new ReduceFunc that
// performs some value-wise, stateful, or length-limiting transformation
// before forwarding to downstream.
type Transducer func(ReduceFunc) ReduceFunc

// Comp composes transducers right-to-left: Comp(f, g)(rf) == f(g(rf)),
// matching chanpy/xf.py's comp and the usual transducer composition order
// (the leftmost transducer wraps the others, so it sees values first).
func Comp(xforms ...Transducer) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		for i := len(xforms) - 1; i >= 0; i-- {
			rf = xforms[i](rf)
		}
		return rf
	}
}

// identityTransducer is the default xform a Chan uses when none is
// supplied: pass every value straight through.
func identityTransducer(rf ReduceFunc) ReduceFunc {
	return rf
}
