package csp

import (
	"math/rand/v2"
)

// passStep builds a ReduceFunc that shares downstream's Init/Complete but
// substitutes step for its Step arity — the shape nearly every value-wise
// transducer below needs (mirrors chanpy/xf.py's multi_arity(rf, rf, ...)
// idiom, where the completion and init arities are forwarded unchanged).
func passStep(downstream ReduceFunc, step func(acc, val any) any) ReduceFunc {
	return ReduceFunc{
		initF:     downstream.initF,
		completeF: downstream.Complete,
		stepF:     step,
	}
}

// withStatefulComplete builds a ReduceFunc that flushes retained state via
// complete before forwarding to downstream's own completion arity — the
// shape every stateful transducer with buffered state needs.
func withStatefulComplete(downstream ReduceFunc, step func(acc, val any) any, complete func(acc any) any) ReduceFunc {
	return ReduceFunc{
		initF:     downstream.initF,
		completeF: complete,
		stepF:     step,
	}
}

// Map returns a transducer applying f to every value.
func Map(f func(any) any) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		return passStep(rf, func(acc, val any) any {
			return rf.Step(acc, f(val))
		})
	}
}

// MapIndexed returns a transducer applying f(index, value) to every value,
// where index starts at 0.
func MapIndexed(f func(i int, val any) any) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		i := -1
		return passStep(rf, func(acc, val any) any {
			i++
			return rf.Step(acc, f(i, val))
		})
	}
}

// Filter returns a transducer keeping only values for which pred is true.
func Filter(pred func(any) bool) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		return passStep(rf, func(acc, val any) any {
			if pred(val) {
				return rf.Step(acc, val)
			}
			return acc
		})
	}
}

// Remove returns a transducer keeping only values for which pred is false.
func Remove(pred func(any) bool) Transducer {
	return Filter(func(v any) bool { return !pred(v) })
}

const undefinedSentinel = "\x00csp-undefined\x00"

// FilterIndexed returns a transducer keeping only values for which
// pred(index, value) is true.
func FilterIndexed(pred func(i int, val any) bool) Transducer {
	return Comp(
		MapIndexed(func(i int, v any) any {
			if pred(i, v) {
				return v
			}
			return undefinedSentinel
		}),
		Filter(func(v any) bool { return v != undefinedSentinel }),
	)
}

// RemoveIndexed returns a transducer keeping only values for which
// pred(index, value) is false.
func RemoveIndexed(pred func(i int, val any) bool) Transducer {
	return FilterIndexed(func(i int, v any) bool { return !pred(i, v) })
}

// Keep returns a transducer applying f to every value and dropping any
// result that is nil.
func Keep(f func(any) any) Transducer {
	return Comp(Map(f), Filter(func(v any) bool { return v != nil }))
}

// KeepIndexed returns a transducer applying f(index, value) to every
// value and dropping any result that is nil.
func KeepIndexed(f func(i int, val any) any) Transducer {
	return Comp(MapIndexed(f), Filter(func(v any) bool { return v != nil }))
}

// Cat flattens one level: each input value must be a []any, and its
// elements are fed to downstream individually.
func Cat(rf ReduceFunc) ReduceFunc {
	return passStep(rf, func(acc, val any) any {
		coll, _ := val.([]any)
		for _, v := range coll {
			acc = rf.Step(acc, v)
			if IsReduced(acc) {
				return acc
			}
		}
		return acc
	})
}

// MapCat returns a transducer applying f (which must return a []any) to
// every value, then flattening the result one level.
func MapCat(f func(any) any) Transducer {
	return Comp(Map(f), Cat)
}

// Take returns a transducer passing through only the first n values, then
// requesting early termination.
func Take(n int) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		remaining := n
		return passStep(rf, func(acc, val any) any {
			var result any = acc
			if remaining > 0 {
				result = rf.Step(acc, val)
			}
			remaining--
			if remaining <= 0 {
				return EnsureReduced(result)
			}
			return result
		})
	}
}

// TakeLast returns a transducer that discards everything except the final
// n values, emitting them (in order) on completion.
func TakeLast(n int) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		var buffer []any
		return withStatefulComplete(rf,
			func(acc, val any) any {
				buffer = append(buffer, val)
				if len(buffer) > n {
					buffer = buffer[1:]
				}
				return acc
			},
			func(acc any) any {
				result := any(acc)
				for len(buffer) > 0 {
					v := buffer[0]
					buffer = buffer[1:]
					result = rf.Step(result, v)
					if IsReduced(result) {
						buffer = nil
					}
				}
				return rf.Complete(Unreduced(result))
			},
		)
	}
}

// TakeNth returns a transducer passing through every nth value (0-indexed:
// indices 0, n, 2n, ...). Panics if n < 1.
func TakeNth(n int) Transducer {
	if n < 1 {
		panic(&ValueError{Message: "csp: TakeNth: n must be a positive integer"})
	}
	return FilterIndexed(func(i int, _ any) bool { return i%n == 0 })
}

// TakeWhile returns a transducer passing through values while pred holds,
// then requesting early termination on the first value for which it
// doesn't.
func TakeWhile(pred func(any) bool) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		return passStep(rf, func(acc, val any) any {
			if pred(val) {
				return rf.Step(acc, val)
			}
			return EnsureReduced(acc)
		})
	}
}

// Drop returns a transducer discarding the first n values and passing
// through everything after.
func Drop(n int) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		remaining := n
		return passStep(rf, func(acc, val any) any {
			remaining--
			if remaining > -1 {
				return acc
			}
			return rf.Step(acc, val)
		})
	}
}

// DropLast returns a transducer discarding the final n values.
func DropLast(n int) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		var buffer []any
		return withStatefulComplete(rf,
			func(acc, val any) any {
				buffer = append(buffer, val)
				if len(buffer) > n {
					v := buffer[0]
					buffer = buffer[1:]
					return rf.Step(acc, v)
				}
				return acc
			},
			func(acc any) any {
				buffer = nil
				return rf.Complete(acc)
			},
		)
	}
}

// DropWhile returns a transducer discarding values while pred holds, then
// passing through everything from the first value for which it doesn't.
func DropWhile(pred func(any) bool) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		hasTaken := false
		return passStep(rf, func(acc, val any) any {
			if !hasTaken && pred(val) {
				return acc
			}
			hasTaken = true
			return rf.Step(acc, val)
		})
	}
}

// Distinct returns a transducer dropping any value equal (==) to one
// already seen over the transducer's lifetime.
func Distinct(rf ReduceFunc) ReduceFunc {
	seen := make(map[any]struct{})
	return withStatefulComplete(rf,
		func(acc, val any) any {
			if _, ok := seen[val]; ok {
				return acc
			}
			seen[val] = struct{}{}
			return rf.Step(acc, val)
		},
		func(acc any) any {
			seen = nil
			return rf.Complete(acc)
		},
	)
}

// Dedupe returns a transducer dropping a value equal (==) to the
// immediately preceding value.
func Dedupe(rf ReduceFunc) ReduceFunc {
	prev := any(undefinedSentinel)
	first := true
	return passStep(rf, func(acc, val any) any {
		if !first && val == prev {
			return acc
		}
		first = false
		prev = val
		return rf.Step(acc, val)
	})
}

// PartitionAll returns a transducer grouping every step values into a
// []any, emitted once n values have accumulated (or on completion, for
// any partial group). step defaults to n when <= 0, matching PartitionAll
// without an explicit step argument.
func PartitionAll(n, step int) Transducer {
	if n < 1 {
		panic(&ValueError{Message: "csp: PartitionAll: n must be a positive integer"})
	}
	if step <= 0 {
		step = n
	}
	return func(rf ReduceFunc) ReduceFunc {
		var buffer []any
		remainingDrops := 0
		return withStatefulComplete(rf,
			func(acc, val any) any {
				if remainingDrops > 0 {
					remainingDrops--
					return acc
				}
				buffer = append(buffer, val)
				if len(buffer) < n {
					return acc
				}
				group := append([]any(nil), buffer...)
				if step < len(buffer) {
					buffer = append([]any(nil), buffer[step:]...)
				} else {
					buffer = buffer[:0]
				}
				if step-n > 0 {
					remainingDrops = step - n
				}
				return rf.Step(acc, group)
			},
			func(acc any) any {
				result := any(acc)
				for len(buffer) > 0 {
					group := append([]any(nil), buffer...)
					if step < len(buffer) {
						buffer = append([]any(nil), buffer[step:]...)
					} else {
						buffer = buffer[:0]
					}
					result = rf.Step(result, group)
					if IsReduced(result) {
						buffer = nil
					}
				}
				return rf.Complete(Unreduced(result))
			},
		)
	}
}

// Partition returns a transducer like PartitionAll, but any trailing
// partial group is padded to length n using values drawn from pad (or
// dropped if pad is nil), matching chanpy/xf.py's partition.
func Partition(n, step int, pad []any) Transducer {
	return Comp(PartitionAll(n, step), func(rf ReduceFunc) ReduceFunc {
		return passStep(rf, func(acc, val any) any {
			group := val.([]any)
			if len(group) < n {
				if pad == nil {
					return EnsureReduced(acc)
				}
				need := n - len(group)
				if need > len(pad) {
					need = len(pad)
				}
				padded := append(append([]any(nil), group...), pad[:need]...)
				return EnsureReduced(rf.Step(acc, padded))
			}
			return rf.Step(acc, group)
		})
	})
}

// PartitionBy returns a transducer grouping consecutive values for which
// f returns an equal (==) result.
func PartitionBy(f func(any) any) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		var buffer []any
		prevRet := any(undefinedSentinel)
		return withStatefulComplete(rf,
			func(acc, val any) any {
				ret := f(val)
				if prevRet == undefinedSentinel || ret == prevRet {
					prevRet = ret
					buffer = append(buffer, val)
					return acc
				}
				prevRet = ret
				group := buffer
				buffer = []any{val}
				return rf.Step(acc, group)
			},
			func(acc any) any {
				if len(buffer) == 0 {
					return rf.Complete(acc)
				}
				flushed := Unreduced(rf.Step(acc, buffer))
				buffer = nil
				return rf.Complete(flushed)
			},
		)
	}
}

// Reductions returns a transducer emitting every intermediate accumulator
// of f starting from init, akin to a running fold: for inputs v1, v2, ...
// it emits init, f(init, v1), f(f(init, v1), v2), ...
func Reductions(f func(state, val any) any, init any) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		state := any(undefinedSentinel)
		return withStatefulComplete(rf,
			func(acc, val any) any {
				if state == undefinedSentinel {
					state = init
					acc = rf.Step(acc, init)
					if IsReduced(acc) {
						return acc
					}
				}
				state = f(Unreduced(state), val)
				result := rf.Step(acc, Unreduced(state))
				if IsReduced(state) {
					return EnsureReduced(result)
				}
				return result
			},
			func(acc any) any {
				result := acc
				if state == undefinedSentinel {
					result = Unreduced(rf.Step(acc, init))
				}
				return rf.Complete(result)
			},
		)
	}
}

// Interpose returns a transducer inserting sep between every pair of
// consecutive values.
func Interpose(sep any) Transducer {
	return func(rf ReduceFunc) ReduceFunc {
		isInitial := true
		return passStep(rf, func(acc, val any) any {
			if isInitial {
				isInitial = false
				return rf.Step(acc, val)
			}
			sepResult := rf.Step(acc, sep)
			if IsReduced(sepResult) {
				return sepResult
			}
			return rf.Step(sepResult, val)
		})
	}
}

// Replace returns a transducer substituting any value found as a key in
// smap with its mapped replacement, passing everything else through.
func Replace(smap map[any]any) Transducer {
	return Map(func(v any) any {
		if r, ok := smap[v]; ok {
			return r
		}
		return v
	})
}

// RandomSample returns a transducer keeping each value independently with
// probability p.
func RandomSample(p float64) Transducer {
	return Filter(func(any) bool { return rand.Float64() < p })
}
