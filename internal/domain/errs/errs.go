// Package errs implements the error taxonomy every component in this module
// maps its failures onto, so transports can decide retry/backoff/status-code
// behavior without inspecting strings.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the spec's error categories.
type Kind int16

const (
	Validation Kind = iota + 1
	AuthRequired
	PermissionDenied
	NotFound
	Duplicate
	TransientStorage
	TransientCache
	TransportGone
	Shutdown
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case AuthRequired:
		return "auth_required"
	case PermissionDenied:
		return "permission_denied"
	case NotFound:
		return "not_found"
	case Duplicate:
		return "duplicate"
	case TransientStorage:
		return "transient_storage"
	case TransientCache:
		return "transient_cache"
	case TransportGone:
		return "transport_gone"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a taxonomy Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op, wrapping err under kind.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the kind represents a condition worth retrying
// (spec §7: TransientStorage/TransientCache are retryable, the rest are not).
func Retryable(err error) bool {
	return Is(err, TransientStorage) || Is(err, TransientCache)
}
