package backend

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a backend failure.
type Kind int

const (
	// KindConfig signals a missing or rejected credential, model or runtime.
	KindConfig Kind = iota + 1
	// KindTransient signals a network, timeout or provider-side failure.
	KindTransient
	// KindMalformed signals a provider answer without usable text.
	KindMalformed
	// KindCanceled signals that the caller gave up before the backend answered.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransient:
		return "transient"
	case KindMalformed:
		return "malformed"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the failure value returned by every Backend.
type Error struct {
	Kind    Kind
	Backend string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s backend: %s failure", e.Backend, e.Kind)
	}
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, backend string, err error) *Error {
	return &Error{Kind: kind, Backend: backend, Err: err}
}

// ErrConfig builds a KindConfig error for the named backend.
func ErrConfig(backend, msg string) error {
	return newError(KindConfig, backend, errors.New(msg))
}

// canceled wraps err as KindCanceled, keeping the context error reachable
// through errors.Is.
func canceled(backend string, ctxErr error) error {
	return newError(KindCanceled, backend, ctxErr)
}

// KindOf returns the Kind carried by err, or 0 when err is not a backend error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

// IsConfig reports whether err is a configuration failure.
func IsConfig(err error) bool { return KindOf(err) == KindConfig }

// IsTransient reports whether err is a transient failure.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// IsMalformed reports whether err is a malformed-response failure.
func IsMalformed(err error) bool { return KindOf(err) == KindMalformed }

// IsCanceled reports whether err means the caller's context ended first.
// A backend error answers by its Kind alone: a provider timeout wrapped as
// KindTransient is not a cancellation even though it wraps a context error.
func IsCanceled(err error) bool {
	if k := KindOf(err); k != 0 {
		return k == KindCanceled
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
