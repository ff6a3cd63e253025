package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/reconcile"
)

// BalanceResult is the output of the balance command.
type BalanceResult struct {
	Alias   string        `json:"alias"`
	Address string        `json:"address"`
	Symbol  string        `json:"symbol"`
	Amount  amount.Amount `json:"amount"`
}

func (r BalanceResult) String() string {
	return fmt.Sprintf("%s %s", r.Amount, r.Symbol)
}

// SendResult is the output of the send command.
type SendResult struct {
	From   string        `json:"from"`
	To     string        `json:"to"`
	Symbol string        `json:"symbol"`
	Amount amount.Amount `json:"amount"`
}

func (r SendResult) String() string {
	return fmt.Sprintf("sent %s %s from %s to %s", r.Amount, r.Symbol, r.From, r.To)
}

// FundResult is the output of the fund command.
type FundResult struct {
	Alias       string        `json:"alias"`
	Symbol      string        `json:"symbol"`
	Target      amount.Amount `json:"target"`
	Direction   string        `json:"direction"`
	Before      amount.Amount `json:"before"`
	After       amount.Amount `json:"after"`
	Transferred amount.Amount `json:"transferred"`
}

// WriteText implements textWriter.
func (r FundResult) WriteText(w io.Writer) {
	switch reconcile.Direction(r.Direction) {
	case reconcile.DirectionNone:
		fmt.Fprintf(w, "%s already holds %s %s\n", r.Alias, r.After, r.Symbol)
	default:
		fmt.Fprintf(w, "%s: %s -> %s %s (%s by %s)\n",
			r.Alias, r.Before, r.After, r.Symbol, r.Direction, r.Transferred)
	}
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <alias|address> <symbol>",
		Short: "Read a balance from the ledger",
		Long: `Read the balance of an identity for a configured symbol.

The identity is either an alias, whose key is derived from the config
namespace, or a literal base58 address.

Example:
  tokenworld balance alice MFX
  tokenworld balance faucet MFX --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runBalance(opts *RootOptions, alias, sym string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	s, err := openSession(opts, f)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.declare(cmd, alias); err != nil {
		return ledgerFailure(f, "balance failed", err)
	}
	bal, err := s.world.Balance(cmd.Context(), alias, sym)
	if err != nil {
		return ledgerFailure(f, "balance failed", err)
	}
	id, _ := s.world.Identity(alias)
	return f.Success(BalanceResult{
		Alias:   alias,
		Address: id.Address().String(),
		Symbol:  sym,
		Amount:  bal,
	})
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <from> <to> <amount> <symbol>",
		Short: "Transfer funds between identities",
		Long: `Submit a single signed transfer from one identity to another.

The sender must be an alias (it signs the transfer); the receiver may be
an alias or a base58 address.

Example:
  tokenworld send alice bob 40 MFX
  tokenworld send faucet alice 1000 MFX --journal ./journal.db`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(rootOpts, args, cmd)
		},
	}
}

func runSend(opts *RootOptions, args []string, cmd *cobra.Command) error {
	from, to, sym := args[0], args[1], args[3]
	amt, err := amount.Parse(args[2])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid amount", err)
	}

	f := newFormatter(opts, cmd)
	s, err := openSession(opts, f)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.declare(cmd, from, to); err != nil {
		return ledgerFailure(f, "send failed", err)
	}
	if err := s.world.Send(cmd.Context(), from, to, amt, sym); err != nil {
		return ledgerFailure(f, "send failed", err)
	}
	return f.Success(SendResult{From: from, To: to, Symbol: sym, Amount: amt})
}

// NewFundCommand creates the fund command.
func NewFundCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <alias> <target> <symbol>",
		Short: "Reconcile a balance to a target against the faucet",
		Long: `Bring an identity's balance to exactly the target amount.

A shortfall is paid by the faucet; a surplus is returned to it. The
resulting balance is read back and verified.

Exit codes:
  0 - Balance reconciled (or already at target)
  1 - Ledger rejected a transfer, the reserve is empty, or verification failed
  2 - Command error (bad config, unknown symbol, etc.)

Example:
  tokenworld fund alice 100 MFX
  tokenworld fund bob 0 MFX --journal ./journal.db --session demo`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFund(rootOpts, args, cmd)
		},
	}
}

func runFund(opts *RootOptions, args []string, cmd *cobra.Command) error {
	alias, sym := args[0], args[2]
	target, err := amount.Parse(args[1])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid target", err)
	}

	f := newFormatter(opts, cmd)
	s, err := openSession(opts, f)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.declare(cmd, alias); err != nil {
		return ledgerFailure(f, "fund failed", err)
	}
	out, err := s.world.EnsureBalance(cmd.Context(), alias, target, sym)
	if err != nil {
		return ledgerFailure(f, "fund failed", err)
	}
	return f.Success(FundResult{
		Alias:       alias,
		Symbol:      sym,
		Target:      target,
		Direction:   string(out.Direction),
		Before:      out.Before,
		After:       out.After,
		Transferred: out.Transferred,
	})
}
