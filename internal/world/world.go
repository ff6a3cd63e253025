// Package world is the per-session state a scenario runs against.
//
// A World composes the symbol table, the identity registry, a ledger dialer
// and the reconciliation engine. New performs all setup; there is no
// teardown. Scenario steps receive the World explicitly and talk to the
// ledger only through it.
package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/config"
	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/reconcile"
	"github.com/roach88/tokenworld/internal/symbol"
)

// ErrReservedAlias is returned when a step tries to re-declare the faucet.
var ErrReservedAlias = errors.New("world: alias is reserved for the faucet")

// IsUnknownAlias reports whether err stems from an identity or symbol alias
// that was never registered.
func IsUnknownAlias(err error) bool {
	return errors.Is(err, identity.ErrUnknownAlias) || errors.Is(err, symbol.ErrUnknownAlias)
}

// BalanceMismatchError is returned by ExpectBalance.
type BalanceMismatchError struct {
	Alias  string
	Symbol string
	Want   amount.Amount
	Got    amount.Amount
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("balance of %s: got %s %s, want %s", e.Alias, e.Got, e.Symbol, e.Want)
}

// Step failure codes beyond those reported by reconcile.Code.
const (
	CodeBalanceMismatch     = "BALANCE_MISMATCH"
	CodeUnknownAlias        = "UNKNOWN_ALIAS"
	CodeReservedAlias       = "RESERVED_ALIAS"
	CodeArithmeticUnderflow = "ARITHMETIC_UNDERFLOW"
)

// ErrorCode classifies a failed step. Ledger and reconcile codes take
// precedence over world-level ones.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := reconcile.Code(err); code != reconcile.CodeUnknown {
		return code
	}
	var mismatch *BalanceMismatchError
	switch {
	case errors.As(err, &mismatch):
		return CodeBalanceMismatch
	case IsUnknownAlias(err):
		return CodeUnknownAlias
	case errors.Is(err, ErrReservedAlias):
		return CodeReservedAlias
	case errors.Is(err, amount.ErrArithmeticUnderflow):
		return CodeArithmeticUnderflow
	default:
		return reconcile.CodeUnknown
	}
}

// Minter credits genesis funds. memledger.Ledger satisfies it.
type Minter interface {
	Mint(addr identity.Address, sym symbol.ID, amt amount.Amount)
}

// Option configures a World.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	keys       identity.KeySource
	clientOpts []ledger.ClientOption
	engineOpts []reconcile.Option
}

// WithLogger sets the logger used by the world and passed to its clients
// and engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithKeySource overrides how declared identities get their keys. The
// default derives them from the configured namespace.
func WithKeySource(keys identity.KeySource) Option {
	return func(o *options) { o.keys = keys }
}

// WithClientOptions passes options to every ledger client.
func WithClientOptions(opts ...ledger.ClientOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithEngineOptions passes options to the reconciliation engine.
func WithEngineOptions(opts ...reconcile.Option) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, opts...) }
}

// World is one test session.
type World struct {
	cfg        *config.Config
	symbols    *symbol.Registry
	identities *identity.Registry
	faucet     *identity.Identity
	dialer     ledger.Dialer
	engine     *reconcile.Engine
	logger     *slog.Logger
}

// New sets up a session against svc.
func New(cfg *config.Config, svc ledger.Service, opts ...Option) (*World, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	if o.keys == nil {
		ns := cfg.Namespace
		if ns == "" {
			ns = config.DefaultNamespace
		}
		o.keys = identity.SeededKeys{Namespace: ns}
	}

	symbols, err := symbol.FromTable(cfg.Symbols)
	if err != nil {
		return nil, fmt.Errorf("world setup: %w", err)
	}

	faucet, err := cfg.FaucetIdentity()
	if err != nil {
		return nil, fmt.Errorf("world setup: %w", err)
	}
	identities := identity.NewRegistry(o.keys)
	if err := identities.Register(faucet.Alias(), faucet); err != nil {
		return nil, fmt.Errorf("world setup: %w", err)
	}

	clientOpts := append([]ledger.ClientOption{ledger.WithLogger(o.logger)}, o.clientOpts...)
	dialer := ledger.ServiceDialer{Service: svc, Options: clientOpts}
	engineOpts := append([]reconcile.Option{reconcile.WithLogger(o.logger)}, o.engineOpts...)

	return &World{
		cfg:        cfg,
		symbols:    symbols,
		identities: identities,
		faucet:     faucet,
		dialer:     dialer,
		engine:     reconcile.New(dialer, engineOpts...),
		logger:     o.logger,
	}, nil
}

// Config returns the session configuration.
func (w *World) Config() *config.Config { return w.cfg }

// Symbols returns the frozen symbol table.
func (w *World) Symbols() *symbol.Registry { return w.symbols }

// Identities returns the identity registry.
func (w *World) Identities() *identity.Registry { return w.identities }

// Faucet returns the reserve identity.
func (w *World) Faucet() *identity.Identity { return w.faucet }

// Seed credits the configured genesis balances to the faucet.
func (w *World) Seed(m Minter) error {
	for _, name := range w.cfg.GenesisSymbols() {
		sym, err := w.symbols.Lookup(name)
		if err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		m.Mint(w.faucet.Address(), sym, w.cfg.Genesis[name])
	}
	return nil
}

// DeclareIdentity binds alias to a fresh signing identity, replacing any
// earlier binding.
func (w *World) DeclareIdentity(ctx context.Context, alias string) (*identity.Identity, error) {
	if alias == w.faucet.Alias() {
		return nil, fmt.Errorf("%w: %q", ErrReservedAlias, alias)
	}
	id, err := w.identities.Declare(ctx, alias)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("identity declared", "alias", alias, "address", id.Address().String())
	return id, nil
}

// WatchIdentity binds alias to an address looked up through resolver. The
// identity can receive funds and be queried but cannot sign.
func (w *World) WatchIdentity(ctx context.Context, alias string, resolver identity.Resolver) (*identity.Identity, error) {
	if alias == w.faucet.Alias() {
		return nil, fmt.Errorf("%w: %q", ErrReservedAlias, alias)
	}
	return w.identities.Watch(ctx, alias, resolver)
}

// RequireSymbol checks that name is configured and returns its ID.
func (w *World) RequireSymbol(name string) (symbol.ID, error) {
	return w.symbols.Lookup(name)
}

// Identity returns the identity bound to alias.
func (w *World) Identity(alias string) (*identity.Identity, error) {
	return w.identities.Lookup(alias)
}

// Client returns a ledger client acting as alias.
func (w *World) Client(alias string) (ledger.Client, error) {
	id, err := w.identities.Lookup(alias)
	if err != nil {
		return nil, err
	}
	return w.dialer.Client(id), nil
}

// FaucetClient returns a ledger client acting as the faucet.
func (w *World) FaucetClient() ledger.Client {
	return w.dialer.Client(w.faucet)
}

// Balance reads alias's balance of the named symbol.
func (w *World) Balance(ctx context.Context, alias, symbolName string) (amount.Amount, error) {
	id, sym, err := w.resolve(alias, symbolName)
	if err != nil {
		return amount.Zero, err
	}
	return w.dialer.Client(id).Balance(ctx, id.Address(), sym)
}

// EnsureBalance reconciles alias's balance of the named symbol to target
// against the faucet.
func (w *World) EnsureBalance(ctx context.Context, alias string, target amount.Amount, symbolName string) (*reconcile.Outcome, error) {
	id, sym, err := w.resolve(alias, symbolName)
	if err != nil {
		return nil, err
	}
	return w.engine.Reconcile(ctx, reconcile.Request{
		Subject: id,
		Reserve: w.faucet,
		Symbol:  sym,
		Target:  target,
	})
}

// Send transfers amt of the named symbol from one alias to another, signed
// by the sender.
func (w *World) Send(ctx context.Context, from, to string, amt amount.Amount, symbolName string) error {
	sender, sym, err := w.resolve(from, symbolName)
	if err != nil {
		return err
	}
	receiver, err := w.identities.Lookup(to)
	if err != nil {
		return err
	}
	src := sender.Address()
	return w.dialer.Client(sender).Send(ctx, ledger.SendArgs{
		From:   &src,
		To:     receiver.Address(),
		Amount: amt,
		Symbol: sym,
	})
}

// ExpectBalance fails with *BalanceMismatchError unless alias holds exactly
// want of the named symbol.
func (w *World) ExpectBalance(ctx context.Context, alias string, want amount.Amount, symbolName string) error {
	got, err := w.Balance(ctx, alias, symbolName)
	if err != nil {
		return err
	}
	if !got.Equal(want) {
		return &BalanceMismatchError{Alias: alias, Symbol: symbolName, Want: want, Got: got}
	}
	return nil
}

func (w *World) resolve(alias, symbolName string) (*identity.Identity, symbol.ID, error) {
	id, err := w.identities.Lookup(alias)
	if err != nil {
		return nil, "", err
	}
	sym, err := w.symbols.Lookup(symbolName)
	if err != nil {
		return nil, "", err
	}
	return id, sym, nil
}
