// Package httpledger is a ledger.Service that talks JSON over HTTP.
//
// Balance reads are idempotent and are retried with exponential backoff on
// communication failures. Transfers are posted exactly once. Both go through
// a circuit breaker; while it is open, calls fail immediately with
// ledger.ErrCommunication. Rejections from the ledger itself (insufficient
// funds, unauthorized, bad request) do not count as breaker failures.
package httpledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/symbol"
)

// Defaults.
const (
	DefaultTimeout             = 5 * time.Second
	DefaultBalanceRetries      = 3
	DefaultInitialBackoff      = 50 * time.Millisecond
	DefaultMaxBackoff          = 2 * time.Second
	DefaultConsecutiveFailures = 5
	DefaultOpenTimeout         = 10 * time.Second
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient replaces the HTTP client. Its Timeout is left alone.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.http = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithBalanceRetries sets how many times a failed balance read is retried.
func WithBalanceRetries(n int) Option {
	return func(s *Service) { s.retries = n }
}

// WithBackoff sets the initial and maximum delay between balance retries.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(s *Service) {
		s.initialBackoff = initial
		s.maxBackoff = maxDelay
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(consecutiveFailures uint32, openFor time.Duration) Option {
	return func(s *Service) {
		s.tripAfter = consecutiveFailures
		s.openFor = openFor
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service is a remote ledger.
type Service struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger

	retries        int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	tripAfter      uint32
	openFor        time.Duration
}

// New creates a Service for the ledger at endpoint (scheme://host[:port]).
func New(endpoint string, opts ...Option) (*Service, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("ledger endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("ledger endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("ledger endpoint %q: missing host", endpoint)
	}

	s := &Service{
		endpoint:       strings.TrimRight(endpoint, "/"),
		timeout:        DefaultTimeout,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		retries:        DefaultBalanceRetries,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
		tripAfter:      DefaultConsecutiveFailures,
		openFor:        DefaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.http == nil {
		s.http = &http.Client{Timeout: s.timeout}
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ledger " + u.Host,
		Timeout: s.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.tripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || ledger.CodeOf(err) != ledger.CodeCommunication
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("ledger circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s, nil
}

// Balance implements ledger.Service.
func (s *Service) Balance(ctx context.Context, addr identity.Address, sym symbol.ID) (amount.Amount, error) {
	op := func() (amount.Amount, error) {
		bal, err := s.balanceOnce(ctx, addr, sym)
		if err == nil {
			return bal, nil
		}
		if ledger.CodeOf(err) != ledger.CodeCommunication || breakerRejected(err) {
			return amount.Zero, backoff.Permanent(err)
		}
		s.logger.Debug("balance read failed, retrying", "address", addr.Short(), "symbol", string(sym), "error", err)
		return amount.Zero, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.initialBackoff
	eb.MaxInterval = s.maxBackoff

	bal, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(s.retries+1)),
	)
	if err != nil {
		return amount.Zero, asCommunication("balance", err)
	}
	return bal, nil
}

func (s *Service) balanceOnce(ctx context.Context, addr identity.Address, sym symbol.ID) (amount.Amount, error) {
	u := fmt.Sprintf("%s%s/%s/%s", s.endpoint, BalancesPath, url.PathEscape(string(sym)), addr.String())

	res, err := s.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, ledger.CommunicationError("balance", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.http.Do(req)
		if err != nil {
			return nil, ledger.CommunicationError("balance", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, decodeError(resp)
		}
		var body BalanceResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, ledger.CommunicationError("balance", fmt.Errorf("decode response: %w", err))
		}
		return body.Balance, nil
	})
	if err != nil {
		return amount.Zero, asCommunication("balance", err)
	}
	return res.(amount.Amount), nil
}

// Submit implements ledger.Service. The transfer is posted once.
func (s *Service) Submit(ctx context.Context, st ledger.SignedTransfer) error {
	payload, err := json.Marshal(EncodeTransfer(st))
	if err != nil {
		return ledger.NewError(ledger.CodeInvalidTransfer, "encode transfer: %v", err)
	}

	_, err = s.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+TransfersPath, bytes.NewReader(payload))
		if err != nil {
			return nil, ledger.CommunicationError("submit", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.http.Do(req)
		if err != nil {
			return nil, ledger.CommunicationError("submit", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			return nil, decodeError(resp)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	})
	if err != nil {
		return asCommunication("submit", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return ledger.CommunicationError("ledger", fmt.Errorf("status %d: read body: %w", resp.StatusCode, err))
	}
	var body ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Code == "" {
		return ledger.CommunicationError("ledger", fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}
	return body.ToError(resp.StatusCode)
}

func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// asCommunication leaves ledger errors alone and wraps anything else
// (breaker rejections, context errors from the retry loop).
func asCommunication(op string, err error) error {
	if ledger.CodeOf(err) != "" {
		return err
	}
	return ledger.CommunicationError(op, err)
}
