// Package errors provides structured error types for the composer.
// Each error records the operation that failed and a Kind callers branch on.
package errors

import (
	"errors"
	"fmt"
)

// Op describes an operation, usually as "package.function".
type Op string

// Kind categorizes the type of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindIncompatibleState
	KindNotFound
	KindInvalid
	KindClosed
	KindNetwork
	KindStorage
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindIncompatibleState:
		return "incompatible state"
	case KindNotFound:
		return "not found"
	case KindInvalid:
		return "invalid"
	case KindClosed:
		return "closed"
	case KindNetwork:
		return "network error"
	case KindStorage:
		return "storage error"
	case KindConfig:
		return "configuration error"
	default:
		return "unknown error"
	}
}

// Error is the structured error type.
type Error struct {
	Op      Op     // Operation that failed
	Kind    Kind   // Category of error
	Err     error  // Underlying error
	Context string // Additional context
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Context, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new Error. Arguments can be:
// - Op: the operation name
// - Kind: the error kind
// - string: context message
// - error: the underlying error
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case string:
			e.Context = a
		case error:
			e.Err = a
		}
	}
	if e.Err == nil {
		e.Err = errors.New(e.Context)
		e.Context = ""
	}
	return e
}

// Is reports whether err is of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind returns the Kind of an error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Session errors

func SessionNotFound(op Op, id string) error {
	return E(op, KindNotFound, fmt.Sprintf("session %s not found", id))
}

func SessionClosed(op Op, id string) error {
	return E(op, KindClosed, fmt.Sprintf("session %s is closed", id))
}

func Unauthenticated(op Op) error {
	return E(op, KindUnauthenticated, "client is not authenticated")
}

// Attachment errors

func IncompatibleAttachment(op Op, have, want string) error {
	return E(op, KindIncompatibleState, fmt.Sprintf("cannot enable %s while %s is attached; clear it first", want, have))
}
