package domain

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures for callers.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindUnprocessable Kind = "unprocessable_entity"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

var (
	// ErrNotFound matches any NotFound error via errors.Is.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrUnprocessable matches any UnprocessableEntity error via errors.Is.
	ErrUnprocessable = &Error{Kind: KindUnprocessable}
	// ErrConflict matches any Conflict error via errors.Is.
	ErrConflict = &Error{Kind: KindConflict}
	// ErrInternal matches any Internal error via errors.Is.
	ErrInternal = &Error{Kind: KindInternal}

	// ErrDuplicateSubmission is the storage signal for a uniqueness
	// violation on a submission idempotency key.
	ErrDuplicateSubmission = errors.New("duplicate submission key")
	// ErrLessonNotFound indicates the lesson could not be loaded.
	ErrLessonNotFound = errors.New("lesson not found")
)

// Error carries a kind, a message and, when relevant, the offending problem.
type Error struct {
	Kind      Kind
	Message   string
	ProblemID *int64
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.ProblemID != nil {
		msg = fmt.Sprintf("%s (problem %d)", msg, *e.ProblemID)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so that errors.Is(err, ErrNotFound) works for any
// NotFound error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.ProblemID == nil && t.Err == nil
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unprocessable(msg string) error {
	return &Error{Kind: KindUnprocessable, Message: msg}
}

// UnprocessableProblem names the problem that failed validation.
func UnprocessableProblem(problemID int64, msg string) error {
	id := problemID
	return &Error{Kind: KindUnprocessable, Message: msg, ProblemID: &id}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Internal wraps an unexpected failure; nil stays nil.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of err, defaulting to Internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
