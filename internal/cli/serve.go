package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/ledger/memledger"
	"github.com/roach88/tokenworld/internal/store"
	"github.com/roach88/tokenworld/internal/stubserver"
	"github.com/roach88/tokenworld/internal/world"
)

// DefaultListenAddr is used when neither --listen nor ledger.endpoint name
// an address.
const DefaultListenAddr = "127.0.0.1:8000"

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string

	// Listener overrides Listen (for testing).
	Listener net.Listener
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory ledger over HTTP",
		Long: `Serve an in-memory ledger over the HTTP wire format used by the
balance, send and fund commands.

The faucet is credited with the config's genesis balances at startup.
With --journal every submitted transfer is recorded.

Example:
  tokenworld serve --config ./tokenworld.yaml
  tokenworld serve --listen 127.0.0.1:9000 --journal ./ledger.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default: host of ledger.endpoint, else "+DefaultListenAddr+")")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := f.Logger()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	mem := memledger.New()
	var svc ledger.Service = mem
	if opts.Journal != "" {
		st, err := store.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		svc = st.Journal(opts.Session, logger).Wrap(mem)
	}

	w, err := world.New(cfg, svc, world.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up ledger", err)
	}
	if err := w.Seed(mem); err != nil {
		return WrapExitError(ExitCommandError, "failed to seed genesis", err)
	}
	for _, name := range cfg.GenesisSymbols() {
		logger.Info("genesis", "symbol", name, "amount", cfg.Genesis[name].String(), "faucet", w.Faucet().Address().String())
	}

	ln := opts.Listener
	if ln == nil {
		addr := listenAddr(opts.Listen, cfg.Ledger.Endpoint)
		ln, err = net.Listen("tcp", addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen", err)
		}
	}

	srv := stubserver.New(svc, stubserver.WithLogger(logger))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	logger.Info("ledger listening", "addr", ln.Addr().String())
	fmt.Fprintf(cmd.OutOrStdout(), "Ledger listening on http://%s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("ledger stopped gracefully")
	return nil
}

// listenAddr picks --listen, then the host of endpoint, then the default.
func listenAddr(flag, endpoint string) string {
	if flag != "" {
		return flag
	}
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		if u.Port() == "" {
			return net.JoinHostPort(u.Hostname(), "80")
		}
		return u.Host
	}
	return DefaultListenAddr
}
