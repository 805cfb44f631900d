// Package logifaceadapter bridges a csp.Logger to an existing
// github.com/joeycumines/logiface Logger[E], so a program already using
// logiface for its own structured logging (zerolog, stumpy, logrus, or any
// other backend the logiface ecosystem provides) can route a Chan's
// diagnostic Entry values through that same pipeline, instead of standing
// up a second, unrelated logging path.
package logifaceadapter

import (
	csp "github.com/joeycumines/go-csp"
	"github.com/joeycumines/logiface"
)

// Logger adapts a *logiface.Logger[E] into a csp.Logger. E is whatever Event
// implementation the caller's logiface backend supplies (e.g. *stumpy.Event,
// *zerolog.Event) — this package is backend-agnostic.
type Logger[E logiface.Event] struct {
	backend *logiface.Logger[E]
}

var _ csp.Logger = (*Logger[logiface.Event])(nil)

// New wraps backend as a csp.Logger. A nil backend is treated the same as
// csp.NewNoopLogger: Enabled always reports false and Log is a no-op.
func New[E logiface.Event](backend *logiface.Logger[E]) *Logger[E] {
	return &Logger[E]{backend: backend}
}

// Enabled reports whether backend would write at the given csp.Level.
func (l *Logger[E]) Enabled(level csp.Level) bool {
	if l.backend == nil {
		return false
	}
	return l.backend.Level() >= toLogifaceLevel(level)
}

// Log translates e into a logiface Builder chain and commits it: e.Category
// becomes a "category" field, e.Fields are added via Builder.Field (letting
// logiface pick the most specific Event.AddXxx method per value's type),
// e.Err (if set) via Builder.Err, and e.Message is the final log line.
//
// Log never blocks on, or fails because of, a disabled level or nil
// backend — Builder's methods are nil-receiver safe, matching the noop
// behavior csp.Logger implementations are expected to have.
func (l *Logger[E]) Log(e csp.Entry) {
	if l.backend == nil {
		return
	}
	b := l.backend.Build(toLogifaceLevel(e.Level))
	if e.Category != "" {
		b = b.Str("category", e.Category)
	}
	for k, v := range e.Fields {
		b = b.Field(k, v)
	}
	if e.Err != nil {
		b = b.Err(e.Err)
	}
	b.Log(e.Message)
}

// toLogifaceLevel maps csp's four-level Level onto logiface's syslog-derived
// Level scale. csp has no analogue of logiface's Emergency/Alert/Critical or
// Notice/Trace tiers, so it collapses onto the four levels a typical syslog
// consumer would expect for application-level diagnostics.
func toLogifaceLevel(level csp.Level) logiface.Level {
	switch level {
	case csp.LevelDebug:
		return logiface.LevelDebug
	case csp.LevelInfo:
		return logiface.LevelInformational
	case csp.LevelWarn:
		return logiface.LevelWarning
	case csp.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}
