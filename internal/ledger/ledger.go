// Package ledger is the client side of the token ledger.
//
// A Client is bound to exactly one acting identity and exposes the two
// operations the rest of tokenworld needs: Balance and Send. The ledger
// service itself sits behind the Service interface; memledger provides an
// in-process implementation and httpledger talks to a remote one.
//
// Balances are never cached. A missing account/symbol pair reads as zero.
// A Send is submitted at most once; retry policy, if any, belongs to the
// Service transport and never to callers of Send.
package ledger

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/canonical"
	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/symbol"
)

// Service is the ledger service boundary.
type Service interface {
	// Balance returns the balance of addr for sym. Absence of a balance is zero.
	Balance(ctx context.Context, addr identity.Address, sym symbol.ID) (amount.Amount, error)

	// Submit executes a signed transfer atomically: either the full amount
	// moves or nothing does.
	Submit(ctx context.Context, st SignedTransfer) error
}

// Client is the capability a scenario step uses to talk to the ledger.
type Client interface {
	// Identity returns the identity whose key signs outgoing transfers.
	Identity() *identity.Identity

	Balance(ctx context.Context, addr identity.Address, sym symbol.ID) (amount.Amount, error)

	Send(ctx context.Context, args SendArgs) error
}

// Dialer hands out clients bound to a given acting identity.
type Dialer interface {
	Client(id *identity.Identity) Client
}

// SendArgs is a transfer request. A nil From means "the client's own identity".
type SendArgs struct {
	From   *identity.Address
	To     identity.Address
	Amount amount.Amount
	Symbol symbol.ID
}

// Transfer is a fully resolved transfer request.
type Transfer struct {
	RequestID string
	From      identity.Address
	To        identity.Address
	Amount    amount.Amount
	Symbol    symbol.ID
}

// SigningBytes returns the canonical JSON that signatures cover.
func (t Transfer) SigningBytes() ([]byte, error) {
	return canonical.Marshal(map[string]any{
		"request_id": t.RequestID,
		"from":       t.From,
		"to":         t.To,
		"amount":     t.Amount,
		"symbol":     string(t.Symbol),
	})
}

func (t Transfer) String() string {
	return fmt.Sprintf("%s %s %s->%s", t.Amount, t.Symbol, t.From.Short(), t.To.Short())
}

// SignedTransfer is a Transfer plus the signer's public key and signature.
type SignedTransfer struct {
	Transfer
	PublicKey ed25519.PublicKey
	Signature []byte
}

// Sign produces a SignedTransfer using signer's key.
func Sign(t Transfer, signer *identity.Identity) (SignedTransfer, error) {
	msg, err := t.SigningBytes()
	if err != nil {
		return SignedTransfer{}, fmt.Errorf("encode transfer: %w", err)
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return SignedTransfer{}, &Error{Code: CodeUnauthorized, Message: "cannot sign", Err: err}
	}
	return SignedTransfer{Transfer: t, PublicKey: signer.PublicKey(), Signature: sig}, nil
}

// Authorize checks that the signature is valid and that the signing key
// controls the source account. Services call it before moving funds.
func (st SignedTransfer) Authorize() error {
	msg, err := st.SigningBytes()
	if err != nil {
		return NewError(CodeInvalidTransfer, "encode transfer: %v", err)
	}
	if !identity.Verify(st.From, st.PublicKey, msg, st.Signature) {
		return NewError(CodeUnauthorized, "signer has no authority over %s", st.From)
	}
	return nil
}

// Validate rejects transfers that no ledger should accept.
func (t Transfer) Validate() error {
	if t.Amount.IsZero() {
		return NewError(CodeInvalidTransfer, "amount must be positive")
	}
	if t.Symbol == "" {
		return NewError(CodeInvalidTransfer, "symbol is required")
	}
	if t.From.IsZero() || t.To.IsZero() {
		return NewError(CodeInvalidTransfer, "source and destination are required")
	}
	return nil
}
