package reconcile

import (
	"errors"
	"fmt"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/symbol"
)

var (
	// ErrReserveEmpty is returned before any transfer when the reserve holds
	// none of the symbol. It applies to both directions.
	ErrReserveEmpty = errors.New("reserve is empty")

	// ErrVerificationFailed is matched by every *VerificationError.
	ErrVerificationFailed = errors.New("reconciliation verification failed")

	// ErrInvalidRequest is returned for requests missing a subject or reserve.
	ErrInvalidRequest = errors.New("invalid reconciliation request")
)

// VerificationError reports a post-reconciliation balance that differs from
// the target. Either the ledger did not apply the transfer as requested or
// something else moved funds on the subject account concurrently.
type VerificationError struct {
	Subject string
	Symbol  symbol.ID
	Target  amount.Amount
	Actual  amount.Amount
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: %s holds %s %s, want %s",
		ErrVerificationFailed, e.Subject, e.Actual, e.Symbol, e.Target)
}

func (e *VerificationError) Unwrap() error { return ErrVerificationFailed }

// IsVerificationError returns true if err is or wraps a *VerificationError.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}

// Failure codes reported by Code in addition to the ledger codes.
const (
	CodeVerificationFailed = "VERIFICATION_FAILED"
	CodeReserveEmpty       = "RESERVE_EMPTY"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnknown            = "ERROR"
)

// Code classifies a Reconcile or Send failure: the ledger error code if
// there is one, otherwise one of the reconcile codes. A nil error has no code.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if code := ledger.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case IsVerificationError(err):
		return CodeVerificationFailed
	case errors.Is(err, ErrReserveEmpty):
		return CodeReserveEmpty
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeUnknown
	}
}
