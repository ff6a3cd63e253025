package ledger

import (
	"errors"
	"fmt"
)

// Code categorizes ledger failures.
type Code string

const (
	// CodeInsufficientFunds: the source balance was below the amount at
	// execution time.
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"

	// CodeUnauthorized: the signer has no authority over the source account.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeCommunication: the ledger service could not be reached or answered
	// with something unintelligible.
	CodeCommunication Code = "COMMUNICATION"

	// CodeInvalidTransfer: the request was malformed (zero amount, empty
	// symbol) and never left the client.
	CodeInvalidTransfer Code = "INVALID_TRANSFER"
)

// Error is a ledger failure with a machine-readable code.
//
// errors.Is matches on Code, so a wrapped *Error with CodeInsufficientFunds
// satisfies errors.Is(err, ErrInsufficientFunds).
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Sentinels for errors.Is.
var (
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrUnauthorized      = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrCommunication     = &Error{Code: CodeCommunication, Message: "communication failure"}
	ErrInvalidTransfer   = &Error{Code: CodeInvalidTransfer, Message: "invalid transfer"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates an *Error.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CommunicationError wraps a transport failure.
func CommunicationError(op string, err error) *Error {
	return &Error{Code: CodeCommunication, Message: op, Err: err}
}

// CodeOf extracts the ledger code from err, or "" if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
