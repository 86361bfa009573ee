package registrar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/domain/service"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/session"
)

// NotificationArchive stores notifications once they are gone from the
// registry queue.
type NotificationArchive interface {
	Save(ctx context.Context, notifications []entity.Notification) (int, error)
}

type ProviderConfig struct {
	Handle     *session.Handle
	Glue       contract.GlueResolver
	Ledger     service.TransferLedger
	Archive    NotificationArchive
	PollBudget time.Duration
	Clock      func() time.Time
}

// Provider is the operation surface of one registry account. Every call
// goes through the same session handle.
type Provider struct {
	name      string
	handle    *session.Handle
	profile   contract.Profile
	contacts  *service.ContactResolver
	ns        *service.NameserverReconciler
	locks     *service.LockReconciler
	transfers *service.TransferWorkflow
	poller    *service.NotificationPoller
	archive   NotificationArchive
}

type RegisterParams struct {
	Domain      string               `json:"domain"`
	Period      int                  `json:"period"`
	AuthCode    string               `json:"-"`
	Contacts    entity.ContactSet    `json:"contacts"`
	Nameservers entity.NameserverSet `json:"nameservers"`
}

type TransferParams = service.TransferParams

func NewProvider(cfg *ProviderConfig) (*Provider, error) {
	if cfg == nil || cfg.Handle == nil {
		return nil, fmt.Errorf("%w: session handle", domain.ErrRequired)
	}
	h := cfg.Handle
	profile := h.Profile()

	var transferOpts []service.TransferOption
	var pollOpts []service.PollerOption
	if cfg.Ledger != nil {
		transferOpts = append(transferOpts, service.WithTransferLedger(cfg.Ledger))
	}
	if cfg.Clock != nil {
		transferOpts = append(transferOpts, service.WithTransferClock(cfg.Clock))
		pollOpts = append(pollOpts, service.WithPollClock(cfg.Clock))
	}
	if cfg.PollBudget > 0 {
		pollOpts = append(pollOpts, service.WithPollBudget(cfg.PollBudget))
	}

	return &Provider{
		name:      h.Name(),
		handle:    h,
		profile:   profile,
		contacts:  service.NewContactResolver(h),
		ns:        service.NewNameserverReconciler(h, cfg.Glue, profile.MinNameservers),
		locks:     service.NewLockReconciler(h, profile.LockedStatuses),
		transfers: service.NewTransferWorkflow(h.Name(), h, profile, transferOpts...),
		poller:    service.NewNotificationPoller(h.Name(), h, profile, pollOpts...),
		archive:   cfg.Archive,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) Profile() contract.Profile {
	return p.profile
}

func (p *Provider) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx = logger.WithRegistry(logger.WithOperation(ctx, op), p.name)
	return logger.TimedOperation(ctx, op, func() error {
		return fn(ctx)
	})
}

// CheckAvailability reports, per name, whether it can be registered or
// transferred in. A taken name can be transferred unless this account
// already holds it.
func (p *Provider) CheckAvailability(ctx context.Context, names []string) ([]entity.Availability, error) {
	var out []entity.Availability
	err := p.run(ctx, "check", func(ctx context.Context) error {
		normalized := make([]string, 0, len(names))
		for _, n := range names {
			name, err := entity.NormalizeDomainName(n)
			if err != nil {
				return err
			}
			normalized = append(normalized, name)
		}
		if len(normalized) == 0 {
			return nil
		}

		items, err := contract.Call[[]contract.CheckItem](ctx, p.handle, contract.CmdDomainCheck, contract.DomainCheckBody{Names: normalized})
		if err != nil {
			return err
		}
		byName := make(map[string]contract.CheckItem, len(items))
		for _, it := range items {
			byName[strings.ToLower(it.Name)] = it
		}

		out = make([]entity.Availability, 0, len(normalized))
		for _, name := range normalized {
			it, ok := byName[name]
			if !ok {
				return fmt.Errorf("%w: no check result for %s", domain.ErrUnexpectedReply, name)
			}
			a := entity.Availability{
				Domain:      name,
				CanRegister: it.Available,
				IsPremium:   it.Premium,
				Description: it.Reason,
			}
			if !it.Available {
				own, _, err := p.transfers.Ownership(ctx, name)
				if err != nil {
					return err
				}
				a.CanTransfer = own != service.OwnershipOwned
				if own == service.OwnershipOwned {
					a.Description = "already in this account"
				}
			}
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func (p *Provider) Register(ctx context.Context, params RegisterParams) (*entity.DomainRecord, error) {
	var rec *entity.DomainRecord
	err := p.run(ctx, "register", func(ctx context.Context) error {
		name, err := entity.NormalizeDomainName(params.Domain)
		if err != nil {
			return err
		}
		period := params.Period
		if period == 0 {
			period = domain.DefaultPeriodYears
		}
		if period < 1 || period > domain.MaxPeriodYears {
			return fmt.Errorf("%w: %d", domain.ErrInvalidPeriod, period)
		}
		hosts, err := params.Nameservers.Normalize()
		if err != nil {
			return err
		}
		if len(hosts) < p.profile.MinNameservers {
			return fmt.Errorf("%w: %d given, %d required", domain.ErrTooFewNameservers, len(hosts), p.profile.MinNameservers)
		}

		contacts, err := p.contacts.ResolveSet(ctx, params.Contacts)
		if err != nil {
			return err
		}
		// Glue hosts can only be created under an existing domain, so the
		// domain is created with its external nameservers first.
		external, internal := hosts.Partition(name)
		created, err := p.ns.EnsureHosts(ctx, name, external)
		if err != nil {
			return err
		}

		rec, err = contract.Call[*entity.DomainRecord](ctx, p.handle, contract.CmdDomainCreate, contract.DomainCreateBody{
			Name:        name,
			Period:      period,
			AuthCode:    params.AuthCode,
			Contacts:    contacts,
			Nameservers: external.Hosts(),
		})
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: create %s returned no record", domain.ErrUnexpectedReply, name)
		}

		if len(internal) > 0 {
			glue, err := p.ns.EnsureHosts(ctx, name, internal)
			created = append(created, glue...)
			if err != nil {
				return fmt.Errorf("%s registered without its in-bailiwick nameservers: %w", name, err)
			}
			err = contract.Exec(ctx, p.handle, contract.CmdDomainUpdate, contract.DomainUpdateBody{Name: name, AddHosts: internal.Hosts()})
			if err != nil {
				return fmt.Errorf("%s registered without its in-bailiwick nameservers: %w", name, err)
			}
			if rec, err = p.info(ctx, name); err != nil {
				return err
			}
		}
		rec.NormalizeTimes()
		logger.FromContext(ctx).Info("domain registered", "domain", name, "expires", rec.ExpiresAt, "created_hosts", created)
		return nil
	})
	return rec, err
}

func (p *Provider) InitiateTransfer(ctx context.Context, params TransferParams) (*entity.TransferStatus, error) {
	var st *entity.TransferStatus
	err := p.run(ctx, "transfer-start", func(ctx context.Context) error {
		var err error
		st, err = p.transfers.Initiate(ctx, params)
		return err
	})
	return st, err
}

func (p *Provider) FinishTransfer(ctx context.Context, domainName string) (*entity.TransferStatus, error) {
	var st *entity.TransferStatus
	err := p.run(ctx, "transfer-finish", func(ctx context.Context) error {
		var err error
		st, err = p.transfers.Finish(ctx, domainName)
		return err
	})
	return st, err
}

// Renew extends the registration by years, quoting the current expiry so a
// repeated call cannot renew twice.
func (p *Provider) Renew(ctx context.Context, domainName string, years int) (*entity.DomainRecord, error) {
	var rec *entity.DomainRecord
	err := p.run(ctx, "renew", func(ctx context.Context) error {
		if years < 1 || years > domain.MaxPeriodYears {
			return fmt.Errorf("%w: %d", domain.ErrInvalidPeriod, years)
		}
		current, err := p.info(ctx, domainName)
		if err != nil {
			return err
		}
		res, err := contract.Call[*contract.RenewResult](ctx, p.handle, contract.CmdDomainRenew, contract.DomainRenewBody{
			Name:          current.Name,
			Period:        years,
			CurrentExpiry: current.ExpiresAt,
		})
		if err != nil {
			return err
		}
		rec, err = p.info(ctx, current.Name)
		if err != nil {
			return err
		}
		if res != nil && !res.ExpiresAt.IsZero() {
			rec.ExpiresAt = res.ExpiresAt.UTC().Truncate(time.Second)
		}
		return nil
	})
	return rec, err
}

func (p *Provider) GetInfo(ctx context.Context, domainName string) (*entity.DomainRecord, error) {
	var rec *entity.DomainRecord
	err := p.run(ctx, "info", func(ctx context.Context) error {
		var err error
		rec, err = p.info(ctx, domainName)
		return err
	})
	return rec, err
}

func (p *Provider) info(ctx context.Context, domainName string) (*entity.DomainRecord, error) {
	name, err := entity.NormalizeDomainName(domainName)
	if err != nil {
		return nil, err
	}
	rec, err := contract.Call[*entity.DomainRecord](ctx, p.handle, contract.CmdDomainInfo, contract.DomainInfoBody{Name: name})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: info %s returned no record", domain.ErrUnexpectedReply, name)
	}
	rec.NormalizeTimes()
	return rec, nil
}

func (p *Provider) UpdateNameservers(ctx context.Context, domainName string, set entity.NameserverSet) (*service.NameserverResult, error) {
	var res *service.NameserverResult
	err := p.run(ctx, "ns-set", func(ctx context.Context) error {
		var err error
		res, err = p.ns.Reconcile(ctx, domainName, set)
		return err
	})
	return res, err
}

// UpdateRegistrantContact points the domain at the contact described by ref,
// creating it first when ref carries fields. An unchanged registrant is a
// no-op.
func (p *Provider) UpdateRegistrantContact(ctx context.Context, domainName string, ref entity.ContactRef) (*entity.ContactRecord, error) {
	var contact *entity.ContactRecord
	err := p.run(ctx, "contact-set-registrant", func(ctx context.Context) error {
		current, err := p.info(ctx, domainName)
		if err != nil {
			return err
		}
		id, err := p.contacts.Resolve(ctx, ref, entity.RoleRegistrant)
		if err != nil {
			return err
		}
		log := logger.FromContext(ctx).With("domain", current.Name, "contact", id)
		if id != current.Registrant {
			err = contract.Exec(ctx, p.handle, contract.CmdDomainUpdate, contract.DomainUpdateBody{
				Name:       current.Name,
				Registrant: id,
			})
			if err != nil {
				return err
			}
			log.Info("registrant updated", "previous", current.Registrant)
		} else {
			log.Info("registrant unchanged")
		}
		contact, err = p.contacts.Lookup(ctx, id)
		return err
	})
	return contact, err
}

func (p *Provider) SetLock(ctx context.Context, domainName string, lock bool) (*service.LockResult, error) {
	var res *service.LockResult
	op := "unlock"
	if lock {
		op = "lock"
	}
	err := p.run(ctx, op, func(ctx context.Context) error {
		var err error
		res, err = p.locks.SetLock(ctx, domainName, lock)
		return err
	})
	return res, err
}

func (p *Provider) GetAuthCode(ctx context.Context, domainName string) (string, error) {
	var code string
	err := p.run(ctx, "auth-code", func(ctx context.Context) error {
		rec, err := p.info(ctx, domainName)
		if err != nil {
			return err
		}
		if strings.TrimSpace(rec.AuthCode) == "" {
			return fmt.Errorf("%w: %s", domain.ErrAuthCodeUnavailable, rec.Name)
		}
		code = rec.AuthCode
		return nil
	})
	return code, err
}

// Poll drains up to limit notifications newer than since and archives them.
// Notifications collected before a failure are archived and returned along
// with the error, since the registry no longer has them.
func (p *Provider) Poll(ctx context.Context, limit int, since time.Time) (*service.PollResult, error) {
	var res *service.PollResult
	if limit <= 0 {
		limit = domain.DefaultPollLimit
	}
	err := p.run(ctx, "poll", func(ctx context.Context) error {
		var pollErr error
		res, pollErr = p.poller.Poll(ctx, limit, since)
		if res != nil {
			for _, n := range res.Notifications {
				logger.RecordNotification(p.name, string(n.Type))
			}
			p.archiveNotifications(ctx, res.Notifications)
		}
		return pollErr
	})
	return res, err
}

func (p *Provider) archiveNotifications(ctx context.Context, notifications []entity.Notification) {
	if p.archive == nil || len(notifications) == 0 {
		return
	}
	saved, err := p.archive.Save(ctx, notifications)
	if err != nil {
		logger.FromContext(ctx).Warn("notification archive write failed", "error", err, "count", len(notifications))
		return
	}
	logger.FromContext(ctx).Debug("notifications archived", "saved", saved)
}

// Close logs the session out. It is safe to call more than once.
func (p *Provider) Close(ctx context.Context) error {
	return p.handle.Close(ctx)
}
