package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrRateLimited    = errors.New("too many requests")
	ErrBadRequest     = errors.New("bad request")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrPayment        = errors.New("payment rejected")
	ErrPersistence    = errors.New("persistence failed")
)

// Kind classifies a failure for callers that need to decide between
// surfacing, retrying and escalating it.
type Kind string

const (
	KindUnknown     Kind = ""
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindPayment     Kind = "payment"
	KindConflict    Kind = "conflict"
	KindPersistence Kind = "persistence"
)

var kindSentinels = map[Kind]error{
	KindValidation:  ErrInvalidInput,
	KindNotFound:    ErrNotFound,
	KindPayment:     ErrPayment,
	KindConflict:    ErrConflict,
	KindPersistence: ErrPersistence,
}

// Error is a classified application error.
type Error struct {
	Kind      Kind
	Op        string
	Field     string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a classified error against the sentinel of its kind.
func (e *Error) Is(target error) bool {
	if s, ok := kindSentinels[e.Kind]; ok && s == target {
		return true
	}
	return false
}

// Validation reports malformed input on a field.
func Validation(op, field, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Message: message}
}

// NotFound reports a missing or hidden resource.
func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message, Err: ErrNotFound}
}

// Payment reports a rejection by the payment processor. The buyer may retry
// with different details.
func Payment(op, message string, err error) *Error {
	return &Error{Kind: KindPayment, Op: op, Message: message, Retryable: true, Err: err}
}

// Conflict reports a duplicate submission or a state that forbids the operation.
func Conflict(op, message string) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: message, Err: ErrConflict}
}

// Persistence reports a write that failed after money moved.
func Persistence(op, message string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Message: message, Err: err}
}

// Retryable marks a system failure the caller may safely repeat.
func Retryable(op, message string, err error) *Error {
	return &Error{Op: op, Message: message, Retryable: true, Err: err}
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrBadRequest):
		return KindValidation
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicateEntry):
		return KindConflict
	}
	return KindUnknown
}

// IsRetryable reports whether any classified error in the chain is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
