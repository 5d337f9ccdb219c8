// Package failure defines the error kinds a pipeline run can end with.
//
// Every stage returns a *Error so the HTTP layer can map a failure to a
// status code without string matching. Errors wrap their cause and work
// with errors.Is / errors.As.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	FetchFailure          Kind = "fetch_failure"
	ParseFailure          Kind = "parse_failure"
	SchemaMismatch        Kind = "schema_mismatch"
	TypeConversionFailure Kind = "type_conversion_failure"
	NoDataFailure         Kind = "no_data"
	RemoteQueryFailure    Kind = "remote_query_failure"
	ValidationFailure     Kind = "validation_failure"
)

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "fetch feed".
	Op string
	// Status is the HTTP status code of a remote response, 0 when none was received.
	Status int
	// Detail is a human readable description shown to the user.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status code %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Wrap returns an Error of the given kind wrapping err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithStatus returns an Error carrying the remote status code.
func WithStatus(kind Kind, op string, status int) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Detail: "unexpected response"}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
