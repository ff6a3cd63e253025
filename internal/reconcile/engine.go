// Package reconcile forces an account balance to an exact target.
//
// A reconciliation reads the subject and reserve balances, issues at most one
// corrective transfer between them, and then re-reads the subject balance to
// prove the ledger applied it. The sequence is strictly read, act, verify.
// Nothing is retried here: a failed send or a failed verification is returned
// to the caller as is.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/symbol"
)

const instrumentationName = "github.com/roach88/tokenworld/internal/reconcile"

// Direction is the way funds moved during a reconciliation.
type Direction string

const (
	// DirectionNone: the subject already held the target.
	DirectionNone Direction = "none"

	// DirectionIncrease: the reserve paid the subject.
	DirectionIncrease Direction = "increase"

	// DirectionDecrease: the subject paid the reserve.
	DirectionDecrease Direction = "decrease"
)

// Request asks for Subject to hold exactly Target of Symbol, using Reserve as
// the counterparty. Both identities must be able to sign.
type Request struct {
	Subject *identity.Identity
	Reserve *identity.Identity
	Symbol  symbol.ID
	Target  amount.Amount
}

// Outcome describes a successful reconciliation.
type Outcome struct {
	Direction   Direction
	Before      amount.Amount
	After       amount.Amount
	Transferred amount.Amount
}

// Recorder is notified after every reconciliation attempt. err is nil on
// success; out is nil when the attempt failed before completing.
type Recorder interface {
	RecordReconciliation(ctx context.Context, req Request, out *Outcome, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTracerProvider sets the provider the engine's tracer comes from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(instrumentationName) }
}

// WithRecorder attaches a recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// Engine runs reconciliations through clients handed out by a Dialer.
//
// Thread-safety: an Engine holds no mutable state and may be shared. It does
// not serialize reconciliations that touch the same account; the final
// re-read is what detects such races.
type Engine struct {
	dialer   ledger.Dialer
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// New creates an Engine.
func New(dialer ledger.Dialer, opts ...Option) *Engine {
	e := &Engine{
		dialer: dialer,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile drives req.Subject's balance of req.Symbol to req.Target.
func (e *Engine) Reconcile(ctx context.Context, req Request) (out *Outcome, err error) {
	if req.Subject == nil || req.Reserve == nil {
		return nil, fmt.Errorf("%w: subject and reserve are required", ErrInvalidRequest)
	}

	ctx, span := e.tracer.Start(ctx, "reconcile", trace.WithAttributes(
		attribute.String("reconcile.subject", req.Subject.Alias()),
		attribute.String("reconcile.reserve", req.Reserve.Alias()),
		attribute.String("reconcile.symbol", string(req.Symbol)),
		attribute.String("reconcile.target", req.Target.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("reconcile.direction", string(out.Direction)),
				attribute.String("reconcile.transferred", out.Transferred.String()),
			)
		}
		span.End()
		if e.recorder != nil {
			e.recorder.RecordReconciliation(ctx, req, out, err)
		}
	}()

	subjectAddr := req.Subject.Address()
	reserveAddr := req.Reserve.Address()
	subject := e.dialer.Client(req.Subject)
	reserve := e.dialer.Client(req.Reserve)

	current, err := subject.Balance(ctx, subjectAddr, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", req.Subject.Alias(), err)
	}
	reserveBal, err := reserve.Balance(ctx, reserveAddr, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", req.Subject.Alias(), err)
	}
	if reserveBal.IsZero() {
		return nil, fmt.Errorf("reconcile %s: %w: %s holds no %s",
			req.Subject.Alias(), ErrReserveEmpty, req.Reserve.Alias(), req.Symbol)
	}

	delta, cmp := amount.Diff(req.Target, current)
	out = &Outcome{Before: current, Transferred: delta}

	switch {
	case cmp > 0:
		out.Direction = DirectionIncrease
		err = reserve.Send(ctx, ledger.SendArgs{
			From:   &reserveAddr,
			To:     subjectAddr,
			Amount: delta,
			Symbol: req.Symbol,
		})
	case cmp < 0:
		out.Direction = DirectionDecrease
		err = subject.Send(ctx, ledger.SendArgs{
			From:   &subjectAddr,
			To:     reserveAddr,
			Amount: delta,
			Symbol: req.Symbol,
		})
	default:
		out.Direction = DirectionNone
	}
	if err != nil {
		return nil, fmt.Errorf("reconcile %s (%s %s): %w", req.Subject.Alias(), out.Direction, delta, err)
	}

	e.logger.Debug("reconcile transfer issued",
		"subject", req.Subject.Alias(),
		"symbol", string(req.Symbol),
		"direction", string(out.Direction),
		"amount", delta.String(),
	)

	after, err := subject.Balance(ctx, subjectAddr, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: verify: %w", req.Subject.Alias(), err)
	}
	if !after.Equal(req.Target) {
		return nil, &VerificationError{
			Subject: req.Subject.Alias(),
			Symbol:  req.Symbol,
			Target:  req.Target,
			Actual:  after,
		}
	}
	out.After = after
	return out, nil
}
