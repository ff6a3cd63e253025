// Package store is the SQLite-backed journal of ledger activity.
//
// Two append-only tables are kept:
//   - transfers: every submitted transfer with its outcome ("ok" or the
//     ledger error code)
//   - reconciliations: every reconciliation attempt with its direction and
//     balances
//
// Rows are ordered by seq, a logical clock shared by both tables. Wall-clock
// time is never recorded, so identical runs produce identical journals.
// All list queries use ORDER BY seq ASC.
//
// A Journal binds the store to one session. It wraps a ledger.Service to
// record submissions and implements reconcile.Recorder.
package store
