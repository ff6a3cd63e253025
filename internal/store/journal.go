package store

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/reconcile"
)

// Journal records one session's activity into a Store.
//
// Journal writes never change the outcome of the operation being recorded:
// a failed write is logged and dropped.
type Journal struct {
	store   *Store
	session string
	logger  *slog.Logger
}

// Journal returns a journal for session.
func (s *Store) Journal(session string, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Journal{store: s, session: session, logger: logger}
}

// Session returns the session this journal writes to.
func (j *Journal) Session() string { return j.session }

// Wrap returns a ledger.Service that journals every Submit to svc.
func (j *Journal) Wrap(svc ledger.Service) ledger.Service {
	return &journaledService{Service: svc, journal: j}
}

// RecordReconciliation implements reconcile.Recorder.
func (j *Journal) RecordReconciliation(ctx context.Context, req reconcile.Request, out *reconcile.Outcome, err error) {
	e := ReconciliationEntry{
		Session: j.session,
		Subject: req.Subject.Alias(),
		Reserve: req.Reserve.Alias(),
		Symbol:  string(req.Symbol),
		Target:  req.Target,
		Outcome: outcomeOf(err),
	}
	if out != nil {
		e.Direction = string(out.Direction)
		e.Before = &out.Before
		e.After = &out.After
		e.Transferred = &out.Transferred
	}
	if err != nil {
		e.Error = err.Error()
	}
	if _, werr := j.store.WriteReconciliation(context.WithoutCancel(ctx), e); werr != nil {
		j.logger.Warn("journal write failed", "table", "reconciliations", "error", werr)
	}
}

func (j *Journal) recordTransfer(ctx context.Context, st ledger.SignedTransfer, err error) {
	e := TransferEntry{
		Session:   j.session,
		RequestID: st.RequestID,
		Signer:    identity.AddressFromPublicKey(st.PublicKey).String(),
		From:      st.From.String(),
		To:        st.To.String(),
		Amount:    st.Amount,
		Symbol:    string(st.Symbol),
		Outcome:   outcomeOf(err),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if _, werr := j.store.WriteTransfer(context.WithoutCancel(ctx), e); werr != nil {
		j.logger.Warn("journal write failed", "table", "transfers", "error", werr)
	}
}

// outcomeOf is the journal outcome column for err.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return reconcile.Code(err)
}

type journaledService struct {
	ledger.Service
	journal *Journal
}

func (s *journaledService) Submit(ctx context.Context, st ledger.SignedTransfer) error {
	err := s.Service.Submit(ctx, st)
	s.journal.recordTransfer(ctx, st, err)
	return err
}
