package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tokenworld/internal/amount"
)

// ListTransfers returns the transfers of session in seq order. An empty
// session lists every session.
//
// Returns an empty slice (not nil) if nothing was journaled.
func (s *Store) ListTransfers(ctx context.Context, session string) ([]TransferEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, session, request_id, signer, from_addr, to_addr, amount, symbol, outcome, error
		FROM transfers
		WHERE ? = '' OR session = ?
		ORDER BY seq ASC
	`, session, session)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	entries := []TransferEntry{}
	for rows.Next() {
		var e TransferEntry
		if err := rows.Scan(&e.Seq, &e.Session, &e.RequestID, &e.Signer, &e.From, &e.To,
			&e.Amount, &e.Symbol, &e.Outcome, &e.Error); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return entries, nil
}

// ListReconciliations returns the reconciliations of session in seq order.
// An empty session lists every session.
func (s *Store) ListReconciliations(ctx context.Context, session string) ([]ReconciliationEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, session, subject, reserve, symbol, target, direction,
		       before_bal, after_bal, transferred, outcome, error
		FROM reconciliations
		WHERE ? = '' OR session = ?
		ORDER BY seq ASC
	`, session, session)
	if err != nil {
		return nil, fmt.Errorf("query reconciliations: %w", err)
	}
	defer rows.Close()

	entries := []ReconciliationEntry{}
	for rows.Next() {
		var (
			e                          ReconciliationEntry
			before, after, transferred sql.NullString
		)
		if err := rows.Scan(&e.Seq, &e.Session, &e.Subject, &e.Reserve, &e.Symbol, &e.Target,
			&e.Direction, &before, &after, &transferred, &e.Outcome, &e.Error); err != nil {
			return nil, fmt.Errorf("scan reconciliation: %w", err)
		}
		if e.Before, err = parseNullable(before); err != nil {
			return nil, err
		}
		if e.After, err = parseNullable(after); err != nil {
			return nil, err
		}
		if e.Transferred, err = parseNullable(transferred); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconciliations: %w", err)
	}
	return entries, nil
}

// CountTransfers counts the transfers of session with the given outcome.
// An empty outcome counts all of them.
func (s *Store) CountTransfers(ctx context.Context, session, outcome string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transfers
		WHERE (? = '' OR session = ?) AND (? = '' OR outcome = ?)
	`, session, session, outcome, outcome).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return n, nil
}

// Sessions returns the distinct sessions in order of first appearance.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session FROM (
			SELECT session, MIN(seq) AS first_seq FROM (
				SELECT session, seq FROM transfers
				UNION ALL
				SELECT session, seq FROM reconciliations
			)
			GROUP BY session
		)
		ORDER BY first_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func parseNullable(ns sql.NullString) (*amount.Amount, error) {
	if !ns.Valid {
		return nil, nil
	}
	a, err := amount.Parse(ns.String)
	if err != nil {
		return nil, fmt.Errorf("stored amount %q: %w", ns.String, err)
	}
	return &a, nil
}
