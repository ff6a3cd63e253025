package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	All bool // list every session instead of --session
}

// JournalTransfer is one transfer row in journal output.
type JournalTransfer struct {
	Seq       int64         `json:"seq"`
	Session   string        `json:"session"`
	RequestID string        `json:"request_id"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Amount    amount.Amount `json:"amount"`
	Symbol    string        `json:"symbol"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
}

// JournalReconciliation is one reconciliation row in journal output.
type JournalReconciliation struct {
	Seq         int64          `json:"seq"`
	Session     string         `json:"session"`
	Subject     string         `json:"subject"`
	Symbol      string         `json:"symbol"`
	Target      amount.Amount  `json:"target"`
	Direction   string         `json:"direction,omitempty"`
	Before      *amount.Amount `json:"before,omitempty"`
	After       *amount.Amount `json:"after,omitempty"`
	Transferred *amount.Amount `json:"transferred,omitempty"`
	Outcome     string         `json:"outcome"`
	Error       string         `json:"error,omitempty"`
}

// JournalResult is the output of the journal command.
type JournalResult struct {
	Sessions        []string                `json:"sessions"`
	Transfers       []JournalTransfer       `json:"transfers"`
	Reconciliations []JournalReconciliation `json:"reconciliations"`
}

// WriteText implements textWriter.
func (r JournalResult) WriteText(w io.Writer) {
	if len(r.Transfers) == 0 && len(r.Reconciliations) == 0 {
		fmt.Fprintln(w, "Journal is empty.")
		return
	}
	fmt.Fprintf(w, "Transfers (%d):\n", len(r.Transfers))
	for _, t := range r.Transfers {
		fmt.Fprintf(w, "  [%d] %s %s %s -> %s %s %s\n",
			t.Seq, t.Session, t.RequestID, t.From, t.To, t.Amount, t.Symbol)
		fmt.Fprintf(w, "       %s", t.Outcome)
		if t.Error != "" {
			fmt.Fprintf(w, ": %s", t.Error)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Reconciliations (%d):\n", len(r.Reconciliations))
	for _, rc := range r.Reconciliations {
		fmt.Fprintf(w, "  [%d] %s %s -> %s %s", rc.Seq, rc.Session, rc.Subject, rc.Target, rc.Symbol)
		if rc.Direction != "" {
			fmt.Fprintf(w, " (%s %s)", rc.Direction, rc.Transferred)
		}
		fmt.Fprintf(w, " %s", rc.Outcome)
		if rc.Error != "" {
			fmt.Fprintf(w, ": %s", rc.Error)
		}
		fmt.Fprintln(w)
	}
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled transfers and reconciliations",
		Long: `Print the transfers and reconciliations recorded in a journal, in
the order they happened.

Example:
  tokenworld journal --journal ./journal.db --session demo
  tokenworld journal --journal ./journal.db --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "list every session")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	if opts.Journal == "" {
		return NewExitError(ExitCommandError, "--journal is required")
	}
	// store.Open would create a missing file.
	if _, err := os.Stat(opts.Journal); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.Journal))
	}

	f := newFormatter(opts.RootOptions, cmd)
	st, err := store.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	session := opts.Session
	if opts.All {
		session = ""
	}

	sessions, err := st.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	transfers, err := st.ListTransfers(ctx, session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list transfers", err)
	}
	recs, err := st.ListReconciliations(ctx, session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list reconciliations", err)
	}
	f.VerboseLog("Journal %s: %d session(s)", opts.Journal, len(sessions))

	return f.Success(journalResult(sessions, transfers, recs))
}

func journalResult(sessions []string, transfers []store.TransferEntry, recs []store.ReconciliationEntry) JournalResult {
	out := JournalResult{
		Sessions:        sessions,
		Transfers:       make([]JournalTransfer, 0, len(transfers)),
		Reconciliations: make([]JournalReconciliation, 0, len(recs)),
	}
	for _, t := range transfers {
		out.Transfers = append(out.Transfers, JournalTransfer{
			Seq:       t.Seq,
			Session:   t.Session,
			RequestID: t.RequestID,
			From:      t.From,
			To:        t.To,
			Amount:    t.Amount,
			Symbol:    t.Symbol,
			Outcome:   t.Outcome,
			Error:     t.Error,
		})
	}
	for _, r := range recs {
		out.Reconciliations = append(out.Reconciliations, JournalReconciliation{
			Seq:         r.Seq,
			Session:     r.Session,
			Subject:     r.Subject,
			Symbol:      r.Symbol,
			Target:      r.Target,
			Direction:   r.Direction,
			Before:      r.Before,
			After:       r.After,
			Transferred: r.Transferred,
			Outcome:     r.Outcome,
			Error:       r.Error,
		})
	}
	return out
}
