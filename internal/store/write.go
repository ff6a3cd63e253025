package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tokenworld/internal/amount"
)

// OutcomeOK marks a successful transfer or reconciliation.
const OutcomeOK = "ok"

// TransferEntry is one journaled transfer submission.
type TransferEntry struct {
	Seq       int64
	Session   string
	RequestID string
	Signer    string
	From      string
	To        string
	Amount    amount.Amount
	Symbol    string
	Outcome   string
	Error     string
}

// ReconciliationEntry is one journaled reconciliation attempt. Before, After
// and Transferred are nil when the attempt failed.
type ReconciliationEntry struct {
	Seq         int64
	Session     string
	Subject     string
	Reserve     string
	Symbol      string
	Target      amount.Amount
	Direction   string
	Before      *amount.Amount
	After       *amount.Amount
	Transferred *amount.Amount
	Outcome     string
	Error       string
}

// WriteTransfer appends a transfer entry. A zero Seq is stamped from the
// store clock. Returns the seq used.
func (s *Store) WriteTransfer(ctx context.Context, e TransferEntry) (int64, error) {
	if e.Seq == 0 {
		e.Seq = s.clock.Next()
	}
	if e.Outcome == "" {
		return 0, fmt.Errorf("write transfer: outcome is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfers
		(seq, session, request_id, signer, from_addr, to_addr, amount, symbol, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Seq,
		e.Session,
		e.RequestID,
		e.Signer,
		e.From,
		e.To,
		e.Amount,
		e.Symbol,
		e.Outcome,
		e.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("write transfer: %w", err)
	}
	return e.Seq, nil
}

// WriteReconciliation appends a reconciliation entry. A zero Seq is stamped
// from the store clock. Returns the seq used.
func (s *Store) WriteReconciliation(ctx context.Context, e ReconciliationEntry) (int64, error) {
	if e.Seq == 0 {
		e.Seq = s.clock.Next()
	}
	if e.Outcome == "" {
		return 0, fmt.Errorf("write reconciliation: outcome is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliations
		(seq, session, subject, reserve, symbol, target, direction, before_bal, after_bal, transferred, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Seq,
		e.Session,
		e.Subject,
		e.Reserve,
		e.Symbol,
		e.Target,
		e.Direction,
		nullableAmount(e.Before),
		nullableAmount(e.After),
		nullableAmount(e.Transferred),
		e.Outcome,
		e.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("write reconciliation: %w", err)
	}
	return e.Seq, nil
}

func nullableAmount(a *amount.Amount) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: a.String(), Valid: true}
}
