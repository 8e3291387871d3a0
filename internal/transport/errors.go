package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad marks a form definition that could not be fetched or decoded.
	ErrLoad = errors.New("form load failed")
	// ErrSubmit marks a response the submit endpoint did not accept.
	ErrSubmit = errors.New("form submit failed")
)

// requestError is a failed fetch or submit. kind is ErrLoad or ErrSubmit and
// err, when set, is the underlying cause.
type requestError struct {
	kind error
	step string
	err  error
}

func loadFailure(step string, err error) error {
	return &requestError{kind: ErrLoad, step: step, err: err}
}

func submitFailure(step string, err error) error {
	return &requestError{kind: ErrSubmit, step: step, err: err}
}

func (e *requestError) Error() string {
	op := "fetch form"
	if e.kind == ErrSubmit {
		op = "submit response"
	}
	if e.err == nil {
		return fmt.Sprintf("%s: %s", op, e.step)
	}
	return fmt.Sprintf("%s: %s: %v", op, e.step, e.err)
}

func (e *requestError) Is(target error) bool { return target == e.kind }

func (e *requestError) Unwrap() error { return e.err }

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
