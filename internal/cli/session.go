package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenworld/internal/config"
	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/ledger/httpledger"
	"github.com/roach88/tokenworld/internal/reconcile"
	"github.com/roach88/tokenworld/internal/store"
	"github.com/roach88/tokenworld/internal/world"
)

// session is a world bound to the configured remote ledger, optionally
// journaled.
type session struct {
	world  *world.World
	store  *store.Store
	logger *slog.Logger
}

func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing journal", "error", err)
	}
}

// declare binds every alias other than the faucet. Keys are seeded from the
// config namespace, so an alias names the same account across invocations.
func (s *session) declare(cmd *cobra.Command, aliases ...string) error {
	for _, alias := range aliases {
		if alias == s.world.Faucet().Alias() {
			continue
		}
		if addr, err := identity.ParseAddress(alias); err == nil {
			resolver := identity.StaticResolver{alias: addr}
			if _, err := s.world.WatchIdentity(cmd.Context(), alias, resolver); err != nil {
				return err
			}
			continue
		}
		if _, err := s.world.DeclareIdentity(cmd.Context(), alias); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openSession connects to cfg.Ledger.Endpoint over HTTP.
func openSession(opts *RootOptions, f *OutputFormatter) (*session, error) {
	logger := f.Logger()

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if cfg.Ledger.Endpoint == "" {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: ledger.endpoint is required", opts.Config))
	}

	var svc ledger.Service
	svc, err = httpledger.New(cfg.Ledger.Endpoint,
		httpledger.WithTimeout(time.Duration(cfg.Ledger.Timeout)),
		httpledger.WithBalanceRetries(cfg.Ledger.Retries()),
		httpledger.WithLogger(logger),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid ledger endpoint", err)
	}

	s := &session{logger: logger}
	worldOpts := []world.Option{world.WithLogger(logger)}
	if opts.Journal != "" {
		s.store, err = store.Open(opts.Journal)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		journal := s.store.Journal(opts.Session, logger)
		svc = journal.Wrap(svc)
		worldOpts = append(worldOpts, world.WithEngineOptions(reconcile.WithRecorder(journal)))
		f.VerboseLog("Journaling to %s (session %s)", opts.Journal, opts.Session)
	}

	s.world, err = world.New(cfg, svc, worldOpts...)
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "failed to set up session", err)
	}
	return s, nil
}

// ledgerFailure reports err through f and maps it to an exit code. Lookup
// failures are command errors; everything the ledger rejected is a failure.
func ledgerFailure(f *OutputFormatter, message string, err error) error {
	code := world.ErrorCode(err)
	if ferr := f.Error(code, err.Error(), nil); ferr != nil {
		return ferr
	}
	switch code {
	case world.CodeUnknownAlias, world.CodeReservedAlias, reconcile.CodeInvalidRequest:
		return WrapExitError(ExitCommandError, message, err)
	default:
		return WrapExitError(ExitFailure, message, err)
	}
}
