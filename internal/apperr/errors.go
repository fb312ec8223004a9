package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure at the operation boundary.
type Kind int

const (
	// TransientIO is the zero value on purpose: anything unclassified is
	// treated as a store or network failure.
	TransientIO Kind = iota
	NotFound
	Unavailable
	Validation
	PartialConsistency
	Unauthenticated
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	case Validation:
		return "validation_failed"
	case PartialConsistency:
		return "partial_consistency"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "transient_io"
	}
}

// Error is a categorized failure. Message is safe to show to the user; Err
// carries the internal cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound        = &Error{Kind: NotFound}
	ErrUnavailable     = &Error{Kind: Unavailable}
	ErrValidation      = &Error{Kind: Validation}
	ErrTransient       = &Error{Kind: TransientIO}
	ErrPartial         = &Error{Kind: PartialConsistency}
	ErrUnauthenticated = &Error{Kind: Unauthenticated}
)

// NewNotFound reports a missing resource.
func NewNotFound(resource, id string) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf("%s not found: %s", resource, id)}
}

func NewUnavailable(msg string) *Error {
	return &Error{Kind: Unavailable, Message: msg}
}

func NewValidation(msg string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: msg, Fields: fields}
}

// NewTransient wraps a store or network failure behind a generic message.
func NewTransient(op string, err error) *Error {
	return &Error{Kind: TransientIO, Message: op, Err: err}
}

func NewPartial(msg string, err error) *Error {
	return &Error{Kind: PartialConsistency, Message: msg, Err: err}
}

func NewUnauthenticated() *Error {
	return &Error{Kind: Unauthenticated, Message: "login required"}
}

// KindOf classifies err. Errors that are not *Error are TransientIO.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return TransientIO
}

// UserMessage returns the text a shopper may see for err. Transient failures
// never expose their cause.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == TransientIO {
		return "Something went wrong. Please try again."
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}
