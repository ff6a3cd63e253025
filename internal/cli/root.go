package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // session config (YAML or CUE)
	Journal string // sqlite journal path; empty disables journaling
	Session string // journal session name
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "tokenworld.yaml"

// NewRootCommand creates the root command for the tokenworld CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tokenworld",
		Short: "tokenworld - ledger reconciliation toolkit",
		Long: `Drive a token ledger from named identities and symbols.

Balances are brought to a target by transfers from a faucet identity,
and every transfer and reconciliation can be journaled to SQLite.
Scenario files exercise the same operations against an in-process ledger.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", DefaultConfigPath, "session config file (.yaml, .yml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal")
	cmd.PersistentFlags().StringVar(&opts.Session, "session", "cli", "journal session name")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewFundCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
