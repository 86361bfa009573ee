package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

// Ownership is the outcome of looking a domain up as if this account owned it.
type Ownership int

const (
	OwnershipNotFound Ownership = iota
	OwnershipOwned
	OwnershipNotOwned
)

func (o Ownership) String() string {
	switch o {
	case OwnershipOwned:
		return "owned"
	case OwnershipNotOwned:
		return "not-owned"
	default:
		return "not-found"
	}
}

// TransferLedger keeps a local copy of submitted transfer orders. The
// registry stays authoritative; ledger failures are logged, not returned.
type TransferLedger interface {
	Record(ctx context.Context, order *entity.TransferOrder) error
	Latest(ctx context.Context, domainName string) (*entity.TransferOrder, error)
}

type TransferParams struct {
	Domain   string
	AuthCode string
	Period   int
	Contacts entity.ContactSet
}

type TransferWorkflow struct {
	registry string
	sender   contract.Sender
	contacts *ContactResolver
	profile  contract.Profile
	ledger   TransferLedger
	now      func() time.Time
}

type TransferOption func(*TransferWorkflow)

func WithTransferLedger(l TransferLedger) TransferOption {
	return func(w *TransferWorkflow) { w.ledger = l }
}

func WithTransferClock(now func() time.Time) TransferOption {
	return func(w *TransferWorkflow) { w.now = now }
}

func NewTransferWorkflow(registry string, sender contract.Sender, profile contract.Profile, opts ...TransferOption) *TransferWorkflow {
	w := &TransferWorkflow{
		registry: registry,
		sender:   sender,
		contacts: NewContactResolver(sender),
		profile:  profile,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ownership looks the domain up as if it were owned by this account.
func (w *TransferWorkflow) Ownership(ctx context.Context, name string) (Ownership, *entity.DomainRecord, error) {
	rec, err := contract.Call[*entity.DomainRecord](ctx, w.sender, contract.CmdDomainInfo, contract.DomainInfoBody{Name: name})
	switch {
	case err == nil && rec != nil:
		return OwnershipOwned, rec, nil
	case err == nil:
		return OwnershipNotFound, nil, nil
	case domain.IsKind(err, domain.KindObjectNotFound):
		return OwnershipNotFound, nil, nil
	case domain.IsKind(err, domain.KindPermissionDenied):
		return OwnershipNotOwned, nil, nil
	default:
		return OwnershipNotFound, nil, err
	}
}

func (w *TransferWorkflow) Initiate(ctx context.Context, p TransferParams) (*entity.TransferStatus, error) {
	name, err := entity.NormalizeDomainName(p.Domain)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("domain", name)

	own, rec, err := w.Ownership(ctx, name)
	if err != nil {
		return nil, err
	}
	if own == OwnershipOwned && rec.Active(w.profile.PendingStatuses) {
		w.completeLedger(ctx, name)
		return &entity.TransferStatus{
			Domain:  name,
			State:   entity.TransferCompleted,
			Record:  rec,
			Message: "domain is already in this account",
		}, nil
	}

	order, err := w.CurrentOrder(ctx, name)
	if err != nil {
		return nil, err
	}
	if order != nil {
		switch {
		case order.Status.Active():
			w.record(ctx, order)
			pending := order.PendingFor(w.now())
			log.Info("transfer already in progress", "order", order.ID, "status", order.Status)
			return &entity.TransferStatus{
				Domain:     name,
				State:      entity.TransferPending,
				Order:      order,
				PendingFor: pending,
				Message:    fmt.Sprintf("transfer order %s is %s, pending for %s", order.ID, order.Status, pending),
			}, nil
		case order.Status.NeedsAuthCode() && strings.TrimSpace(p.AuthCode) == "":
			return nil, fmt.Errorf("%w: %s (order %s)", domain.ErrTransferAuthCodeRequired, name, order.ID)
		}
	}

	resolved, err := w.contacts.ResolveSet(ctx, p.Contacts)
	if err != nil {
		return nil, err
	}

	authCode := strings.TrimSpace(p.AuthCode)
	if authCode == "" {
		authCode = w.profile.PlaceholderAuthCode
	}
	period := p.Period
	if period <= 0 {
		period = w.profile.TransferPeriod
	}
	if period <= 0 {
		period = domain.DefaultPeriodYears
	}

	raw, err := contract.Call[*contract.RawTransferOrder](ctx, w.sender, contract.CmdDomainTransfer, contract.DomainTransferBody{
		Name:     name,
		Period:   period,
		AuthCode: authCode,
		Contacts: resolved,
	})
	if err != nil {
		return nil, err
	}

	submitted := w.normalizeOrder(name, raw)
	if submitted.Status == "" {
		submitted.Status = entity.OrderRequested
	}
	if submitted.SubmittedAt.IsZero() {
		submitted.SubmittedAt = utcSecond(w.now())
	}
	w.record(ctx, submitted)

	log.Info("transfer requested", "order", submitted.ID)
	return &entity.TransferStatus{
		Domain:  name,
		State:   entity.TransferRequested,
		Order:   submitted,
		Message: fmt.Sprintf("transfer requested, order %s", submitted.ID),
	}, nil
}

// Finish reports where a transfer stands without waiting for it.
func (w *TransferWorkflow) Finish(ctx context.Context, domainName string) (*entity.TransferStatus, error) {
	name, err := entity.NormalizeDomainName(domainName)
	if err != nil {
		return nil, err
	}

	own, rec, err := w.Ownership(ctx, name)
	if err != nil {
		return nil, err
	}
	if own == OwnershipOwned && rec.Active(w.profile.PendingStatuses) {
		w.completeLedger(ctx, name)
		return &entity.TransferStatus{
			Domain:  name,
			State:   entity.TransferCompleted,
			Record:  rec,
			Message: "transfer completed",
		}, nil
	}

	order, err := w.CurrentOrder(ctx, name)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return &entity.TransferStatus{
			Domain:  name,
			State:   entity.TransferNotOwned,
			Message: "no transfer order found",
		}, nil
	}
	w.record(ctx, order)

	status := &entity.TransferStatus{
		Domain:     name,
		Order:      order,
		Record:     rec,
		PendingFor: order.PendingFor(w.now()),
		Message:    order.Message,
	}
	switch order.Status {
	case entity.OrderFailedNeedsAuthCode, entity.OrderCancelled:
		status.State = entity.TransferFailed
		status.PendingFor = 0
	default:
		status.State = entity.TransferPending
	}
	if status.Message == "" {
		status.Message = string(order.Status)
	}
	return status, nil
}

// CurrentOrder returns the registry's order for name, or nil when there is
// none.
func (w *TransferWorkflow) CurrentOrder(ctx context.Context, name string) (*entity.TransferOrder, error) {
	raw, err := contract.Call[*contract.RawTransferOrder](ctx, w.sender, contract.CmdTransferQuery, contract.TransferQueryBody{Name: name})
	if err != nil {
		if domain.IsKind(err, domain.KindObjectNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return w.normalizeOrder(name, raw), nil
}

// normalizeOrder maps the registry's status vocabulary. Unknown statuses are
// treated as in progress so a running order is never resubmitted.
func (w *TransferWorkflow) normalizeOrder(name string, raw *contract.RawTransferOrder) *entity.TransferOrder {
	order := &entity.TransferOrder{Domain: name, Registry: w.registry}
	if raw == nil {
		return order
	}
	order.ID = raw.ID
	order.Message = raw.Message
	order.SubmittedAt = utcSecond(raw.SubmittedAt)
	order.UpdatedAt = utcSecond(raw.UpdatedAt)

	key := strings.ToLower(strings.TrimSpace(raw.Status))
	switch {
	case key == "":
	case w.profile.TransferStatuses[key] != "":
		order.Status = w.profile.TransferStatuses[key]
	case entity.TransferOrderStatus(key).Valid():
		order.Status = entity.TransferOrderStatus(key)
	default:
		order.Status = entity.OrderInProgress
	}
	return order
}

func (w *TransferWorkflow) record(ctx context.Context, order *entity.TransferOrder) {
	if w.ledger == nil || order == nil {
		return
	}
	if err := w.ledger.Record(ctx, order); err != nil {
		logger.FromContext(ctx).Warn("transfer ledger write failed", "domain", order.Domain, "error", err)
	}
}

func (w *TransferWorkflow) completeLedger(ctx context.Context, name string) {
	if w.ledger == nil {
		return
	}
	last, err := w.ledger.Latest(ctx, name)
	if err != nil {
		logger.FromContext(ctx).Warn("transfer ledger read failed", "domain", name, "error", err)
		return
	}
	if last == nil || last.Status == entity.OrderCompleted {
		return
	}
	done := *last
	done.Status = entity.OrderCompleted
	done.UpdatedAt = utcSecond(w.now())
	w.record(ctx, &done)
}

func utcSecond(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}
