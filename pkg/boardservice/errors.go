package boardservice

import (
	"github.com/pkg/errors"
)

// ErrorKind tells what is wrong with the input of a user error.
type ErrorKind int

const (
	// KindNone is returned for errors that are not user errors.
	KindNone ErrorKind = iota
	KindInvalid
	KindNotFound
	KindForbidden
)

// userError is used to mark errors caused by a wrong input from the user (as
// opposed to runtime errors).
type userError struct {
	err  error
	kind ErrorKind
}

func (e *userError) Error() string {
	return e.err.Error()
}

// Type assertion to make sure we implement error correctly...
var _ error = &userError{}

// IsUserError checks if the given error is flagged as an error caused by a
// malformed user input or if it is a "normal" runtime error.
func IsUserError(e error) bool {
	return UserError(e) != nil
}

// UserError returns the user error inside the given error if any, or nil if e
// is nil or not a user error.
func UserError(e error) error {
	if uerror := findUserError(e); uerror != nil {
		return uerror.err
	}

	return nil
}

// Kind returns the kind of the user error inside e, or KindNone.
func Kind(e error) ErrorKind {
	if uerror := findUserError(e); uerror != nil {
		return uerror.kind
	}

	return KindNone
}

func findUserError(e error) *userError {
	for e != nil {
		if uerror, ok := e.(*userError); ok {
			return uerror
		}

		cause := errors.Cause(e)

		if cause == e {
			// e didn't implement errors.causer
			return nil
		}

		e = cause
	}

	return nil
}
