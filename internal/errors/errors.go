// Package errors defines the EEE runtime's error taxonomy.
//
// Every fallible core operation returns one of four kinds: App (semantic
// misuse), EffectSend (an effect channel's peer is gone), TriggerSend (a
// termination broadcaster was torn down before it could be pulled), or Io
// (host/executor I/O failure). None of these are ever raised as a panic.
package errors

import "errors"

// Kind identifies which of the four error classes an Error belongs to.
type Kind int

const (
	// KindApp marks a semantic misuse: duplicate name, duplicate
	// join/affect, unknown environment or entity.
	KindApp Kind = iota
	// KindEffectSend marks a failure to hand an effect to its peer.
	KindEffectSend
	// KindTriggerSend marks a failure to pull a termination trigger.
	KindTriggerSend
	// KindIo marks an executor construction or host I/O failure.
	KindIo
)

func (k Kind) String() string {
	switch k {
	case KindApp:
		return "App"
	case KindEffectSend:
		return "EffectSend"
	case KindTriggerSend:
		return "TriggerSend"
	case KindIo:
		return "Io"
	default:
		return "Unknown"
	}
}

// Error is the single error type returned by every fallible operation in
// this module.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
		}
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is one of the exported Kind sentinels and
// matches this error's Kind, letting callers write errors.Is(err, errors.AppKind).
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && e.Kind == k.kind
}

type kindSentinel struct{ kind Kind }

func (kindSentinel) Error() string { return "" }

// Sentinels for use with errors.Is(err, errors.AppKind), etc.
var (
	AppKind         error = kindSentinel{KindApp}
	EffectSendKind  error = kindSentinel{KindEffectSend}
	TriggerSendKind error = kindSentinel{KindTriggerSend}
	IoKind          error = kindSentinel{KindIo}
)

// App builds a semantic-misuse error with a fixed human-readable message.
func App(msg string) *Error { return &Error{Kind: KindApp, Msg: msg} }

// EffectSend wraps an underlying effect-channel send failure.
func EffectSend(err error) *Error { return &Error{Kind: KindEffectSend, Err: err} }

// TriggerSend wraps an underlying trigger-broadcast failure.
func TriggerSend(err error) *Error { return &Error{Kind: KindTriggerSend, Err: err} }

// Io wraps an underlying I/O failure.
func Io(err error) *Error { return &Error{Kind: KindIo, Err: err} }

// As is re-exported from the standard library for callers that only import
// this package.
func As(err error, target any) bool { return errors.As(err, target) }
