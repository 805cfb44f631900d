// Package csp implements a CSP-style channel: a synchronous rendezvous /
// bounded-buffered value conduit supporting non-blocking attempts, blocking
// calls, deferred (future-style) completion, and a committed-choice Alt
// primitive that atomically selects among a heterogeneous set of candidate
// get/put operations across distinct channels.
//
// A Chan optionally embeds a transducer on its put path, letting values be
// mapped, filtered, batched, or otherwise transformed on their way from
// producer to buffer, with early termination and completion flushing.
//
// # Core primitives
//
// Every operation on a Chan is an adaptation of two primitives: put(handler,
// val) and get(handler). [Chan.Put], [Chan.Get], Offer, Poll, BPut, BGet,
// FPut and FGet all build a Handler (see [Handler]) and call through to
// those two unexported primitives.
//
// # Alt
//
// [Alt] builds one [Handler] per candidate operation, all sharing a single
// commit flag, and presents them to their respective channels in a
// deadlock-free lock order. At most one operation ever commits.
//
// # What this package does not do
//
// It does not schedule goroutines, run an event loop, or provide timers,
// pipes, or pub/sub fan-out. Those are external collaborators a caller can
// build on top of a Chan; see [context.Context]-based timeouts for the
// common "channel that closes after N ms" pattern.
package csp
