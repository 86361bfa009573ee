package contract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

type Command string

const (
	CmdDomainCheck    Command = "domain:check"
	CmdDomainInfo     Command = "domain:info"
	CmdDomainCreate   Command = "domain:create"
	CmdDomainRenew    Command = "domain:renew"
	CmdDomainUpdate   Command = "domain:update"
	CmdDomainTransfer Command = "domain:transfer"
	CmdTransferQuery  Command = "domain:transfer-query"
	CmdHostCheck      Command = "host:check"
	CmdHostCreate     Command = "host:create"
	CmdContactInfo    Command = "contact:info"
	CmdContactCreate  Command = "contact:create"
	CmdPollRequest    Command = "poll:req"
	CmdPollAck        Command = "poll:ack"

	CmdConnect Command = "session:connect"
	CmdLogin   Command = "session:login"
	CmdLogout  Command = "session:logout"
)

// Mutating reports whether the command changes registry objects. Poll
// acknowledgements only change the message queue and are not counted.
func (c Command) Mutating() bool {
	switch c {
	case CmdDomainCreate, CmdDomainRenew, CmdDomainUpdate, CmdDomainTransfer, CmdHostCreate, CmdContactCreate:
		return true
	}
	return false
}

type Credentials struct {
	Username string
	Password string
}

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username), slog.String("password", "***"))
}

type Request struct {
	TransactionID string
	Command       Command
	Body          any
}

type Response struct {
	TransactionID       string
	ServerTransactionID string
	Code                int
	Message             string
	Body                any
	Raw                 []byte
}

// ResultError is an unclassified failure reply from the registry. Any other
// error returned by Conn.Send is treated as a transport failure.
type ResultError struct {
	Code     int
	Message  string
	Fields   []string
	Request  []byte
	Response []byte
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("registry result %d: %s", e.Code, e.Message)
}

// Conn is one connection to a registry. Implementations encode requests on the
// wire; they are never used concurrently.
type Conn interface {
	Login(ctx context.Context, creds Credentials) error
	Send(ctx context.Context, req *Request) (*Response, error)
	// Close logs out and releases the connection.
	Close(ctx context.Context) error
}

// Adapter is the registry-specific part: wire encoding and vocabulary.
type Adapter interface {
	Name() string
	Profile() Profile
	Connect(ctx context.Context, endpoint string) (Conn, error)
}

// Profile carries the per-registry vocabulary the shared services need.
type Profile struct {
	Name                string
	LockedStatuses      entity.StatusSet
	PendingStatuses     entity.StatusSet
	PlaceholderAuthCode string
	MinNameservers      int
	TransferPeriod      int
	ErrorCodes          map[int]domain.ErrorKind
	ErrorMessages       map[string]domain.ErrorKind
	SessionFatalCodes   []int
	NotificationTypes   map[string]entity.NotificationType
	TransferStatuses    map[string]entity.TransferOrderStatus
}

// Sender is what the shared services need from a session.
type Sender interface {
	Send(ctx context.Context, cmd Command, body any) (*Response, error)
}

// Call sends cmd and type-asserts the reply body.
func Call[T any](ctx context.Context, s Sender, cmd Command, body any) (T, error) {
	var zero T
	resp, err := s.Send(ctx, cmd, body)
	if err != nil {
		return zero, err
	}
	if resp == nil || resp.Body == nil {
		return zero, nil
	}
	v, ok := resp.Body.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", domain.ErrUnexpectedReply, cmd, resp.Body)
	}
	return v, nil
}

// Exec sends cmd and discards the reply body.
func Exec(ctx context.Context, s Sender, cmd Command, body any) error {
	_, err := s.Send(ctx, cmd, body)
	return err
}

type DomainCheckBody struct {
	Names []string
}

type CheckItem struct {
	Name      string
	Available bool
	Premium   bool
	Reason    string
}

type DomainInfoBody struct {
	Name     string
	AuthCode string
}

type DomainCreateBody struct {
	Name        string
	Period      int
	AuthCode    string
	Contacts    entity.ResolvedContacts
	Nameservers []string
}

type DomainRenewBody struct {
	Name          string
	Period        int
	CurrentExpiry time.Time
}

type RenewResult struct {
	ExpiresAt time.Time
}

type DomainUpdateBody struct {
	Name           string
	AddHosts       []string
	RemoveHosts    []string
	AddStatuses    entity.StatusSet
	RemoveStatuses entity.StatusSet
	Registrant     string
	AuthCode       string
}

type DomainTransferBody struct {
	Name     string
	Period   int
	AuthCode string
	Contacts entity.ResolvedContacts
}

type TransferQueryBody struct {
	Name string
}

// RawTransferOrder carries the registry's own status vocabulary; the profile
// maps it to entity.TransferOrderStatus.
type RawTransferOrder struct {
	ID          string
	Domain      string
	Status      string
	Message     string
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

type HostCheckBody struct {
	Names []string
}

type HostCheckResult struct {
	Exists map[string]bool
}

type HostCreateBody struct {
	Name      string
	Addresses []string
}

type ContactInfoBody struct {
	ID string
}

type ContactCreateBody struct {
	Fields entity.ContactFields
}

type ContactCreateResult struct {
	ID string
}

type PollRequestBody struct{}

type PollMessage struct {
	ID      string
	Type    string
	Text    string
	Domains []string
	Time    time.Time
	Raw     []byte
}

// PollResult reports the queue depth at dequeue time, including Message.
type PollResult struct {
	Count   int
	Message *PollMessage
}

type PollAckBody struct {
	MessageID string
}
