package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/retry"
	"github.com/lite-lake/infra-regsync/internal/domain/service"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

type Account struct {
	Name        string
	Endpoint    string
	Credentials contract.Credentials
}

// Handle is one authenticated registry session. It connects on first use,
// serializes every command and reconnects on the call after the session was
// found broken. A failed command is never resent.
type Handle struct {
	mu         sync.Mutex
	adapter    contract.Adapter
	account    Account
	classifier *service.Classifier
	conn       contract.Conn
	closed     bool
	connects   int
	retryOpts  []retry.Option
	newTxID    func() string
}

type Option func(*Handle)

// WithConnectRetry configures the backoff used while connecting and logging
// in. Commands themselves are never retried.
func WithConnectRetry(opts ...retry.Option) Option {
	return func(h *Handle) { h.retryOpts = opts }
}

func WithTransactionIDs(fn func() string) Option {
	return func(h *Handle) { h.newTxID = fn }
}

func New(adapter contract.Adapter, account Account, opts ...Option) *Handle {
	h := &Handle{
		adapter:    adapter,
		account:    account,
		classifier: service.NewClassifier(account.Name, adapter.Profile()),
		newTxID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handle) Name() string {
	return h.account.Name
}

func (h *Handle) Profile() contract.Profile {
	return h.adapter.Profile()
}

func (h *Handle) Send(ctx context.Context, cmd contract.Command, body any) (*contract.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionClosed, h.account.Name)
	}
	if err := h.ensureConnected(ctx); err != nil {
		return nil, err
	}

	req := &contract.Request{TransactionID: h.newTxID(), Command: cmd, Body: body}
	log := logger.FromContext(ctx).With("registry", h.account.Name, "command", cmd, "cltrid", req.TransactionID)

	resp, err := h.conn.Send(ctx, req)
	if err != nil {
		classified := h.classifier.Wrap(cmd, err)
		logger.RecordCommand(h.account.Name, string(cmd), string(classified.Kind))
		if h.fatal(err) {
			log.Warn("registry session broken, reconnecting on next command", "error", classified)
			h.drop(ctx)
		} else {
			log.Debug("registry command failed", "kind", classified.Kind, "code", classified.Code)
		}
		return nil, classified
	}

	logger.RecordCommand(h.account.Name, string(cmd), "ok")
	log.Debug("registry command completed", "code", resp.Code, "svtrid", resp.ServerTransactionID)
	return resp, nil
}

// fatal reports whether the connection can no longer be trusted: transport
// failures, rejected credentials and the registry's session-closing result
// codes. Errors an adapter already classified keep the session unless their
// code or kind says otherwise.
func (h *Handle) fatal(err error) bool {
	var result *contract.ResultError
	if errors.As(err, &result) {
		return h.classifier.SessionFatal(result.Code)
	}
	var classified *domain.RegistryError
	if errors.As(err, &classified) {
		if classified.Code != 0 {
			return h.classifier.SessionFatal(classified.Code)
		}
		return classified.Kind == domain.KindUnknown || classified.Kind == domain.KindAuthFailure
	}
	return true
}

func (h *Handle) ensureConnected(ctx context.Context) error {
	if h.conn != nil {
		return nil
	}

	conn, err := retry.DoWithResult(ctx, func() (contract.Conn, error) {
		c, err := h.adapter.Connect(ctx, h.account.Endpoint)
		if err != nil {
			return nil, h.classifier.Wrap(contract.CmdConnect, err)
		}
		if err := c.Login(ctx, h.account.Credentials); err != nil {
			_ = c.Close(ctx)
			return nil, h.classifier.Wrap(contract.CmdLogin, err)
		}
		return c, nil
	}, h.retryOpts...)
	if err != nil {
		logger.RecordCommand(h.account.Name, string(contract.CmdLogin), string(domain.KindOf(err)))
		return fmt.Errorf("connect to registry %s: %w", h.account.Name, err)
	}

	h.conn = conn
	h.connects++
	logger.FromContext(ctx).Info("registry session established",
		"registry", h.account.Name, "endpoint", h.account.Endpoint, "connects", h.connects)
	return nil
}

// drop releases a broken connection. The logout attempt is best effort since
// the transport is most likely gone.
func (h *Handle) drop(ctx context.Context) {
	if h.conn == nil {
		return
	}
	_ = h.conn.Close(ctx)
	h.conn = nil
}

// Close logs out once. It is safe to call repeatedly and on a handle that
// never connected.
func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.conn == nil {
		return nil
	}
	err := h.conn.Close(ctx)
	h.conn = nil
	if err != nil {
		return h.classifier.Wrap(contract.CmdLogout, err)
	}
	logger.FromContext(ctx).Debug("registry session closed", "registry", h.account.Name)
	return nil
}

func (h *Handle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// Connects counts the connections established so far.
func (h *Handle) Connects() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects
}
