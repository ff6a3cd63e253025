// Package stubserver exposes a ledger.Service over the HTTP wire format
// spoken by httpledger. It is meant to front a memledger so that scenarios
// can run end to end over a real socket.
package stubserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/ledger/httpledger"
	"github.com/roach88/tokenworld/internal/symbol"
)

// Server is the stub ledger HTTP server.
type Server struct {
	app    *fiber.App
	svc    ledger.Service
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New builds a server in front of svc.
func New(svc ledger.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          s.handleError,
	})
	s.app.Get(httpledger.BalancesPath+"/:symbol/:address", s.balance)
	s.app.Post(httpledger.TransfersPath, s.transfer)
	return s
}

// App returns the underlying fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) balance(c *fiber.Ctx) error {
	addr, err := identity.ParseAddress(c.Params("address"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	sym := symbol.ID(c.Params("symbol"))

	bal, err := s.svc.Balance(c.UserContext(), addr, sym)
	if err != nil {
		return s.ledgerError(c, err)
	}
	return c.Status(http.StatusOK).JSON(httpledger.BalanceResponse{Balance: bal})
}

func (s *Server) transfer(c *fiber.Ctx) error {
	var req httpledger.TransferRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid transfer body: "+err.Error())
	}
	st, err := req.Decode()
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := s.svc.Submit(c.UserContext(), st); err != nil {
		return s.ledgerError(c, err)
	}

	s.logger.Info("transfer applied",
		"request_id", st.RequestID,
		"from", st.From.Short(),
		"to", st.To.Short(),
		"amount", st.Amount.String(),
		"symbol", string(st.Symbol),
	)
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) ledgerError(c *fiber.Ctx, err error) error {
	status, body := httpledger.FromError(err)
	s.logger.Info("request rejected", "path", c.Path(), "status", status, "code", body.Code, "error", err)
	return c.Status(status).JSON(body)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	code := httpledger.CodeInternal
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		if status < 500 {
			code = httpledger.CodeBadRequest
		}
	}
	return c.Status(status).JSON(httpledger.ErrorResponse{Code: code, Message: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(httpledger.ErrorResponse{
		Code:    httpledger.CodeBadRequest,
		Message: msg,
	})
}
