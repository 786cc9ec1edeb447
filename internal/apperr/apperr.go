// Package apperr defines the error taxonomy shared by the SkillMap client:
// every failure surfaced to a caller carries exactly one Kind.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the caller.
type Kind int

const (
	// KindUnknown is reported for errors that were never classified.
	KindUnknown Kind = iota
	// KindValidation is malformed client input, caught before any request.
	KindValidation
	// KindAuth is bad credentials or a rejected/expired session.
	KindAuth
	// KindNotFound means a referenced server-side entity no longer exists.
	KindNotFound
	// KindPermission means authenticated but not authorized.
	KindPermission
	// KindServer is a backend internal failure.
	KindServer
	// KindTimeout means the request deadline passed.
	KindTimeout
	// KindNetwork means the backend was unreachable.
	KindNetwork
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown error",
	KindValidation: "validation error",
	KindAuth:       "auth error",
	KindNotFound:   "not found",
	KindPermission: "permission denied",
	KindServer:     "server error",
	KindTimeout:    "timeout",
	KindNetwork:    "network error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is matching.
var (
	ErrValidation = errors.New(KindValidation.String())
	ErrAuth       = errors.New(KindAuth.String())
	ErrNotFound   = errors.New(KindNotFound.String())
	ErrPermission = errors.New(KindPermission.String())
	ErrServer     = errors.New(KindServer.String())
	ErrTimeout    = errors.New(KindTimeout.String())
	ErrNetwork    = errors.New(KindNetwork.String())
)

var sentinels = map[Kind]error{
	KindValidation: ErrValidation,
	KindAuth:       ErrAuth,
	KindNotFound:   ErrNotFound,
	KindPermission: ErrPermission,
	KindServer:     ErrServer,
	KindTimeout:    ErrTimeout,
	KindNetwork:    ErrNetwork,
}

// Error is a classified failure.
type Error struct {
	// Op names the operation that failed, e.g. "goals.rename".
	Op string
	// Kind is the classification.
	Kind Kind
	// Status is the HTTP status, if the failure came from a response.
	Status int
	// Message is a human-readable explanation.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// New builds a classified error without a cause.
func New(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Message: msg}
}

// Wrap builds a classified error around err.
func Wrap(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Validation is shorthand for a KindValidation error.
func Validation(op, msg string) *Error {
	return New(op, KindValidation, msg)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the human-readable part of err suitable for a
// notification line, falling back to err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
