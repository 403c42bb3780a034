package emissions

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Kind classifies query failures for the API boundary.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindValidation Kind = "VALIDATION"
	KindInternal   Kind = "INTERNAL"
)

// MsgCompanyNotFound is the message returned for unknown company names.
const MsgCompanyNotFound = "Company not found"

// Error is a classified query-layer failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CompanyNotFound reports a company name lookup miss.
func CompanyNotFound() error {
	return &Error{Kind: KindNotFound, Message: MsgCompanyNotFound}
}

// Validationf reports malformed or missing input.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a store failure. A nil err yields nil so stores can write
// `return emissions.Internal(err, "...")` at the end of a call.
func Internal(err error, msg string) error {
	if err == nil {
		return nil
	}
	var qe *Error
	if errors.As(err, &qe) {
		return err
	}
	return &Error{Kind: KindInternal, Err: eris.Wrap(err, msg)}
}

// KindOf returns the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
