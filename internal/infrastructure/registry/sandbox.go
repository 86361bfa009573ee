package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

// Sandbox message types. TRANSFER_REQUESTED is informational and not mapped
// by the sandbox profile.
const (
	msgTransferRequested = "TRANSFER_REQUESTED"
	msgTransferIn        = "TRANSFER_IN"
	msgTransferOut       = "TRANSFER_OUT"
	msgRenewed           = "RENEWED"
)

// Sandbox transfer statuses, following the EPP trnStatus vocabulary plus one
// for orders refused over a wrong auth code.
const (
	trnPending            = "pending"
	trnServerApproved     = "serverApproved"
	trnClientRejectedAuth = "clientRejectedAuth"
)

const DefaultApproveAfter = 5 * 24 * time.Hour

var errConnClosed = errors.New("sandbox connection closed")

// Sandbox is an in-process registry backed by a YAML file. It speaks the
// adapter contract with standard EPP result codes so every shared service
// can be exercised end to end without a real registry.
type Sandbox struct {
	store        *stateStore
	profile      contract.Profile
	approveAfter time.Duration
	emptyContact bool
	now          func() time.Time
}

type SandboxOption func(*Sandbox)

// WithApproveAfter sets how long a transfer stays pending before the sandbox
// approves it on behalf of the losing registrar.
func WithApproveAfter(d time.Duration) SandboxOption {
	return func(s *Sandbox) { s.approveAfter = d }
}

// WithEmptyContactInfo makes contact info answer unknown ids with an empty
// record instead of 2303, as some registries do.
func WithEmptyContactInfo(enabled bool) SandboxOption {
	return func(s *Sandbox) { s.emptyContact = enabled }
}

func WithSandboxClock(now func() time.Time) SandboxOption {
	return func(s *Sandbox) { s.now = now }
}

func NewSandbox(path string, profile contract.Profile, opts ...SandboxOption) *Sandbox {
	s := &Sandbox{
		store:        newStateStore(path),
		profile:      profile,
		approveAfter: DefaultApproveAfter,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sandbox) Name() string {
	return string(entity.RegistryTypeSandbox)
}

func (s *Sandbox) Profile() contract.Profile {
	return s.profile
}

func (s *Sandbox) Connect(ctx context.Context, _ string) (contract.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &sandboxConn{sb: s}, nil
}

func (s *Sandbox) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// AddAccount creates or re-keys a registrar account.
func (s *Sandbox) AddAccount(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return domain.RequiredField("username and password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.store.update(func(st *sandboxState) error {
		if a := st.account(username); a != nil {
			a.PasswordHash = string(hash)
		} else {
			st.Accounts = append(st.Accounts, &sandboxAccount{Username: username, PasswordHash: string(hash)})
		}
		st.touch()
		return nil
	})
}

// SeedDomain registers name for owner directly, bypassing contact checks. It
// is used to prepare transfer scenarios.
func (s *Sandbox) SeedDomain(ctx context.Context, owner, name, authCode string) error {
	name, err := entity.NormalizeDomainName(name)
	if err != nil {
		return err
	}
	return s.store.update(func(st *sandboxState) error {
		if st.account(owner) == nil {
			return fmt.Errorf("%w: sandbox account %s", domain.ErrMissingReference, owner)
		}
		if st.domain(name) != nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateName, name)
		}
		now := s.clock()
		if authCode == "" {
			authCode = newAuthCode()
		}
		st.Domains = append(st.Domains, &sandboxDomain{
			Owner:    owner,
			AuthCode: authCode,
			Record: entity.DomainRecord{
				ID:        newObjectID("D"),
				Name:      name,
				Statuses:  entity.StatusSet{entity.StatusOK},
				CreatedAt: now,
				UpdatedAt: now,
				ExpiresAt: now.AddDate(1, 0, 0),
			},
		})
		st.touch()
		return nil
	})
}

// settleTransfers approves pending transfers older than approveAfter and
// notifies both registrars.
func (s *Sandbox) settleTransfers(st *sandboxState, now time.Time) {
	for _, t := range st.Transfers {
		if t.Status != trnPending || now.Sub(t.SubmittedAt) < s.approveAfter {
			continue
		}
		t.Status = trnServerApproved
		t.UpdatedAt = now
		t.Message = "transfer approved"
		if d := st.domain(t.Domain); d != nil {
			d.Owner = t.Gaining
			d.AuthCode = newAuthCode()
			d.Record.Statuses = d.Record.Statuses.Minus(entity.StatusSet{entity.StatusPendingTransfer})
			if len(d.Record.Statuses) == 0 {
				d.Record.Statuses = entity.StatusSet{entity.StatusOK}
			}
			d.Record.ExpiresAt = d.Record.ExpiresAt.AddDate(t.Period, 0, 0)
			d.Record.UpdatedAt = now
		}
		st.enqueue(t.Gaining, msgTransferIn, "Transfer of "+t.Domain+" completed", now, t.Domain)
		st.enqueue(t.Losing, msgTransferOut, "Domain "+t.Domain+" transferred away", now, t.Domain)
		st.touch()
	}
}

type sandboxConn struct {
	sb     *Sandbox
	mu     sync.Mutex
	user   string
	closed bool
}

func (c *sandboxConn) Login(ctx context.Context, creds contract.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	st, err := c.sb.snapshot()
	if err != nil {
		return err
	}
	acct := st.account(creds.Username)
	if acct == nil || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(creds.Password)) != nil {
		return &contract.ResultError{Code: 2200, Message: "Authentication error"}
	}
	c.user = acct.Username
	return nil
}

func (c *sandboxConn) Send(ctx context.Context, req *contract.Request) (*contract.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errConnClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.user == "" {
		return nil, c.fail(req, &contract.ResultError{Code: 2002, Message: "Command use error: not logged in"})
	}

	var body any
	code := 1000
	err := c.sb.store.update(func(st *sandboxState) error {
		now := c.sb.clock()
		c.sb.settleTransfers(st, now)
		var err error
		body, code, err = c.sb.dispatch(st, c.user, now, req)
		return err
	})
	if err != nil {
		var re *contract.ResultError
		if errors.As(err, &re) {
			return nil, c.fail(req, re)
		}
		return nil, err
	}

	return &contract.Response{
		TransactionID:       req.TransactionID,
		ServerTransactionID: newObjectID("SRV"),
		Code:                code,
		Message:             resultMessage(code),
		Body:                body,
		Raw:                 rawPayload(code, body),
	}, nil
}

func (c *sandboxConn) fail(req *contract.Request, re *contract.ResultError) *contract.ResultError {
	re.Request = rawPayload(0, req)
	re.Response = rawPayload(re.Code, map[string]any{"message": re.Message, "fields": re.Fields})
	return re
}

// Close logs out. A second Close reports the connection as gone.
func (c *sandboxConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	c.closed = true
	c.user = ""
	return nil
}

func (s *Sandbox) snapshot() (*sandboxState, error) {
	var out *sandboxState
	err := s.store.update(func(st *sandboxState) error {
		out = st
		return nil
	})
	return out, err
}

func resultMessage(code int) string {
	switch code {
	case 1001:
		return "Command completed successfully; action pending"
	case 1300:
		return "Command completed successfully; no messages"
	case 1301:
		return "Command completed successfully; ack to dequeue"
	default:
		return "Command completed successfully"
	}
}

func rawPayload(code int, v any) []byte {
	doc := map[string]any{"payload": v}
	if code != 0 {
		doc["code"] = code
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil
	}
	return data
}

func newObjectID(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func newAuthCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func resultErr(code int, message string, fields ...string) *contract.ResultError {
	return &contract.ResultError{Code: code, Message: message, Fields: fields}
}
