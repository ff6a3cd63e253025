package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/ledger/memledger"
	"github.com/roach88/tokenworld/internal/reconcile"
	"github.com/roach88/tokenworld/internal/store"
	"github.com/roach88/tokenworld/internal/testutil"
	"github.com/roach88/tokenworld/internal/world"
)

// Option configures a run.
type Option func(*runOptions)

type runOptions struct {
	logger  *slog.Logger
	store   *store.Store
	service ledger.Service
}

// WithLogger sets the logger for the run and everything it constructs.
func WithLogger(logger *slog.Logger) Option {
	return func(o *runOptions) { o.logger = logger }
}

// WithStore journals into st instead of a fresh in-memory database. The
// caller keeps ownership of st.
func WithStore(st *store.Store) Option {
	return func(o *runOptions) { o.store = st }
}

// WithService runs against svc instead of a fresh in-memory ledger. Genesis
// balances are minted only if svc implements world.Minter.
func WithService(svc ledger.Service) Option {
	return func(o *runOptions) { o.service = svc }
}

// Harness executes one scenario.
type Harness struct {
	world   *world.World
	store   *store.Store
	clock   *testutil.DeterministicClock
	session string
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Open the journal (fresh in-memory database unless WithStore)
// 2. Build the world over a journaled ledger service and seed genesis
// 3. Execute setup steps (any failure aborts the run)
// 4. Execute flow steps, checking expect clauses
// 5. Evaluate assertions
//
// A returned error means the scenario could not run; assertion and
// expectation failures are reported in Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	clock := testutil.NewDeterministicClock()
	st := o.store
	if st == nil {
		var err error
		st, err = store.Open(":memory:", store.WithClock(clock))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	svc := o.service
	if svc == nil {
		svc = memledger.New()
	}

	session := scenario.SessionName()
	journal := st.Journal(session, o.logger)
	w, err := world.New(scenario.Config, journal.Wrap(svc),
		world.WithLogger(o.logger),
		world.WithClientOptions(ledger.WithRequestIDs(testutil.NewSequenceIDs(session))),
		world.WithEngineOptions(reconcile.WithRecorder(journal)),
	)
	if err != nil {
		return nil, err
	}
	if m, ok := svc.(world.Minter); ok {
		if err := w.Seed(m); err != nil {
			return nil, err
		}
	}

	h := &Harness{
		world:   w,
		store:   st,
		clock:   clock,
		session: session,
		logger:  o.logger,
	}

	result := NewResult(session)
	for i, step := range scenario.Setup {
		ev, err := h.execute(ctx, PhaseSetup, step)
		result.AddTrace(ev)
		if err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
	}

	for i, step := range scenario.Flow {
		ev, err := h.execute(ctx, PhaseFlow, step)
		result.AddTrace(ev)
		if msg := checkExpectation(step, ev.Outcome, err); msg != "" {
			result.AddError(fmt.Sprintf("flow step %d (%s): %s", i, step.Action, msg))
			h.logger.Info("flow stopped", "step", i, "action", step.Action, "outcome", ev.Outcome)
			break
		}
		h.logger.Info("flow step completed", "step", i, "action", step.Action, "outcome", ev.Outcome)
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		World:   w,
		Session: session,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// checkExpectation returns a failure message, or "" if the step behaved as
// expected.
func checkExpectation(step Step, outcome string, err error) string {
	if step.Expect == nil {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return ""
	}
	if err == nil {
		return fmt.Sprintf("expected error %s, step succeeded", step.Expect.Error)
	}
	if outcome != step.Expect.Error {
		return fmt.Sprintf("expected error %s, got %s: %v", step.Expect.Error, outcome, err)
	}
	return ""
}

// execute runs one step and returns its trace event. The seq is taken
// before the step runs so journal rows written by it sort after the event.
func (h *Harness) execute(ctx context.Context, phase string, step Step) (TraceEvent, error) {
	ev := TraceEvent{
		Seq:    h.clock.Next(),
		Phase:  phase,
		Action: step.Action,
		Args:   step.Args,
	}

	result, err := h.dispatch(ctx, step)
	ev.Outcome = OutcomeOK
	if err != nil {
		ev.Outcome = world.ErrorCode(err)
	}
	if len(result) > 0 {
		ev.Result = result
	}
	return ev, err
}

func (h *Harness) dispatch(ctx context.Context, step Step) (map[string]string, error) {
	args := step.Args
	switch step.Action {
	case ActionIdentity:
		_, err := h.world.DeclareIdentity(ctx, args["alias"])
		return nil, err

	case ActionSymbol:
		id, err := h.world.RequireSymbol(args["name"])
		if err != nil {
			return nil, err
		}
		return map[string]string{"id": string(id)}, nil

	case ActionHas:
		out, err := h.world.EnsureBalance(ctx, args["alias"], amount.MustParse(args["amount"]), args["symbol"])
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"direction":   string(out.Direction),
			"before":      out.Before.String(),
			"transferred": out.Transferred.String(),
		}, nil

	case ActionSend:
		return nil, h.world.Send(ctx, args["from"], args["to"], amount.MustParse(args["amount"]), args["symbol"])

	case ActionBalance:
		err := h.world.ExpectBalance(ctx, args["alias"], amount.MustParse(args["amount"]), args["symbol"])
		var mismatch *world.BalanceMismatchError
		if errors.As(err, &mismatch) {
			return map[string]string{"actual": mismatch.Got.String()}, err
		}
		return nil, err

	default:
		return nil, fmt.Errorf("unknown action %q", step.Action)
	}
}
