package httpledger

import (
	"encoding/hex"
	"fmt"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/symbol"
)

// Routes.
const (
	BalancesPath  = "/v1/balances"
	TransfersPath = "/v1/transfers"
)

// Wire error codes. The ledger codes are used verbatim; malformed requests
// are reported as BAD_REQUEST.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeInternal   = "INTERNAL"
)

// BalanceResponse is the body of a successful balance read.
type BalanceResponse struct {
	Balance amount.Amount `json:"balance"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TransferRequest is the body of POST /v1/transfers.
type TransferRequest struct {
	RequestID string           `json:"request_id"`
	From      identity.Address `json:"from"`
	To        identity.Address `json:"to"`
	Amount    amount.Amount    `json:"amount"`
	Symbol    string           `json:"symbol"`
	PublicKey string           `json:"public_key"`
	Signature string           `json:"signature"`
}

// EncodeTransfer converts a signed transfer to its wire form.
func EncodeTransfer(st ledger.SignedTransfer) TransferRequest {
	return TransferRequest{
		RequestID: st.RequestID,
		From:      st.From,
		To:        st.To,
		Amount:    st.Amount,
		Symbol:    string(st.Symbol),
		PublicKey: hex.EncodeToString(st.PublicKey),
		Signature: hex.EncodeToString(st.Signature),
	}
}

// Decode converts the wire form back to a signed transfer. It does not
// check the signature.
func (r TransferRequest) Decode() (ledger.SignedTransfer, error) {
	pub, err := hex.DecodeString(r.PublicKey)
	if err != nil {
		return ledger.SignedTransfer{}, fmt.Errorf("public_key: %w", err)
	}
	sig, err := hex.DecodeString(r.Signature)
	if err != nil {
		return ledger.SignedTransfer{}, fmt.Errorf("signature: %w", err)
	}
	return ledger.SignedTransfer{
		Transfer: ledger.Transfer{
			RequestID: r.RequestID,
			From:      r.From,
			To:        r.To,
			Amount:    r.Amount,
			Symbol:    symbol.ID(r.Symbol),
		},
		PublicKey: pub,
		Signature: sig,
	}, nil
}

// ToError maps a wire error back onto the ledger taxonomy.
func (e ErrorResponse) ToError(status int) error {
	switch ledger.Code(e.Code) {
	case ledger.CodeInsufficientFunds, ledger.CodeUnauthorized, ledger.CodeInvalidTransfer:
		return ledger.NewError(ledger.Code(e.Code), "%s", e.Message)
	}
	if e.Code == CodeBadRequest {
		return ledger.NewError(ledger.CodeInvalidTransfer, "%s", e.Message)
	}
	return ledger.CommunicationError("ledger",
		fmt.Errorf("status %d: %s: %s", status, e.Code, e.Message))
}

// FromError maps a ledger error to an HTTP status and wire body.
func FromError(err error) (int, ErrorResponse) {
	switch ledger.CodeOf(err) {
	case ledger.CodeInsufficientFunds:
		return 409, ErrorResponse{Code: string(ledger.CodeInsufficientFunds), Message: err.Error()}
	case ledger.CodeUnauthorized:
		return 403, ErrorResponse{Code: string(ledger.CodeUnauthorized), Message: err.Error()}
	case ledger.CodeInvalidTransfer:
		return 400, ErrorResponse{Code: CodeBadRequest, Message: err.Error()}
	case ledger.CodeCommunication:
		return 503, ErrorResponse{Code: string(ledger.CodeCommunication), Message: err.Error()}
	default:
		return 500, ErrorResponse{Code: CodeInternal, Message: err.Error()}
	}
}
