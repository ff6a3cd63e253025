package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/config"
)

// Error codes for validate output.
const (
	ErrCodeConfigNotFound = "E_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "E_CONFIG_INVALID"
)

// ValidationResult summarizes a valid configuration.
type ValidationResult struct {
	Valid         bool                     `json:"valid"`
	Namespace     string                   `json:"namespace"`
	FaucetAlias   string                   `json:"faucet_alias"`
	FaucetAddress string                   `json:"faucet_address"`
	Symbols       map[string]string        `json:"symbols"`
	Genesis       map[string]amount.Amount `json:"genesis,omitempty"`
	Endpoint      string                   `json:"endpoint,omitempty"`
}

// WriteText implements textWriter.
func (r ValidationResult) WriteText(w io.Writer) {
	fmt.Fprintln(w, "✓ Config is valid")
	fmt.Fprintf(w, "  namespace: %s\n", r.Namespace)
	fmt.Fprintf(w, "  faucet:    %s (%s)\n", r.FaucetAlias, r.FaucetAddress)
	names := make([]string, 0, len(r.Symbols))
	for name := range r.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  symbol:    %s = %s", name, r.Symbols[name])
		if g, ok := r.Genesis[name]; ok {
			fmt.Fprintf(w, " (genesis %s)", g)
		}
		fmt.Fprintln(w)
	}
	if r.Endpoint != "" {
		fmt.Fprintf(w, "  endpoint:  %s\n", r.Endpoint)
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "Validate a session config",
		Long: `Load and validate a session configuration without contacting a ledger.

YAML files are decoded strictly (unknown fields are errors); CUE files are
checked against the embedded schema first. Defaults to --config.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		msg := fmt.Sprintf("config not found: %s", path)
		if ferr := formatter.Error(ErrCodeConfigNotFound, msg, nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, msg)
	}

	formatter.VerboseLog("Loading %s", path)
	cfg, err := config.Load(path)
	if err != nil {
		var details map[string]any
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			details = map[string]any{"field": cfgErr.Field, "line": cfgErr.Line}
		}
		if ferr := formatter.Error(ErrCodeConfigInvalid, err.Error(), details); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	faucet, err := cfg.FaucetIdentity()
	if err != nil {
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	return formatter.Success(ValidationResult{
		Valid:         true,
		Namespace:     cfg.Namespace,
		FaucetAlias:   faucet.Alias(),
		FaucetAddress: faucet.Address().String(),
		Symbols:       cfg.Symbols,
		Genesis:       cfg.Genesis,
		Endpoint:      cfg.Ledger.Endpoint,
	})
}
