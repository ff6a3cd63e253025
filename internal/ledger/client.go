package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/symbol"
)

// RequestIDGenerator stamps each transfer with a unique request ID.
type RequestIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 request IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ClientOption configures a SigningClient.
type ClientOption func(*SigningClient)

// WithRequestIDs overrides the request ID generator.
func WithRequestIDs(gen RequestIDGenerator) ClientOption {
	return func(c *SigningClient) { c.ids = gen }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *SigningClient) { c.logger = logger }
}

// SigningClient is a Client that signs transfers with its identity's key and
// hands them to a Service.
type SigningClient struct {
	id     *identity.Identity
	svc    Service
	ids    RequestIDGenerator
	logger *slog.Logger
}

// NewClient returns a client acting as id against svc.
func NewClient(id *identity.Identity, svc Service, opts ...ClientOption) *SigningClient {
	c := &SigningClient{
		id:     id,
		svc:    svc,
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identity implements Client.
func (c *SigningClient) Identity() *identity.Identity { return c.id }

// Balance implements Client.
func (c *SigningClient) Balance(ctx context.Context, addr identity.Address, sym symbol.ID) (amount.Amount, error) {
	bal, err := c.svc.Balance(ctx, addr, sym)
	if err != nil {
		return amount.Zero, fmt.Errorf("balance of %s in %s: %w", addr.Short(), sym, err)
	}
	return bal, nil
}

// Send implements Client. The transfer is signed by the client's identity
// and submitted exactly once.
func (c *SigningClient) Send(ctx context.Context, args SendArgs) error {
	from := c.id.Address()
	if args.From != nil {
		from = *args.From
	}

	t := Transfer{
		RequestID: c.ids.Generate(),
		From:      from,
		To:        args.To,
		Amount:    args.Amount,
		Symbol:    args.Symbol,
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}

	st, err := Sign(t, c.id)
	if err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}

	c.logger.Debug("submitting transfer",
		"request_id", t.RequestID,
		"signer", c.id.Alias(),
		"from", from.Short(),
		"to", args.To.Short(),
		"amount", args.Amount.String(),
		"symbol", string(args.Symbol),
	)

	if err := c.svc.Submit(ctx, st); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	return nil
}

// ServiceDialer is a Dialer that builds SigningClients over one Service.
type ServiceDialer struct {
	Service Service
	Options []ClientOption
}

// Client implements Dialer.
func (d ServiceDialer) Client(id *identity.Identity) Client {
	return NewClient(id, d.Service, d.Options...)
}
