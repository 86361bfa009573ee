package service

import (
	"context"
	"fmt"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

type LockResult struct {
	Domain  *entity.DomainRecord `json:"domain"`
	Locked  bool                 `json:"locked"`
	Changed bool                 `json:"changed"`
	Added   entity.StatusSet     `json:"added,omitempty"`
	Removed entity.StatusSet     `json:"removed,omitempty"`
	Message string               `json:"message"`
}

// LockReconciler adds or removes the registry's lock statuses so a domain is
// fully locked or fully unlocked.
type LockReconciler struct {
	sender contract.Sender
	locked entity.StatusSet
}

func NewLockReconciler(sender contract.Sender, lockedStatuses entity.StatusSet) *LockReconciler {
	return &LockReconciler{sender: sender, locked: lockedStatuses}
}

func (r *LockReconciler) SetLock(ctx context.Context, domainName string, lock bool) (*LockResult, error) {
	if len(r.locked) == 0 {
		return nil, fmt.Errorf("%w: no lock statuses configured", domain.ErrRequired)
	}
	name, err := entity.NormalizeDomainName(domainName)
	if err != nil {
		return nil, err
	}
	rec, err := contract.Call[*entity.DomainRecord](ctx, r.sender, contract.CmdDomainInfo, contract.DomainInfoBody{Name: name})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: domain info for %s returned nothing", domain.ErrUnexpectedReply, name)
	}

	var add, remove entity.StatusSet
	if lock {
		add = r.locked.Minus(rec.Statuses)
	} else {
		remove = rec.Statuses.Intersect(r.locked)
	}
	if len(add) == 0 && len(remove) == 0 {
		return &LockResult{Domain: rec, Locked: lock, Message: lockMessage(lock, false)}, nil
	}

	err = contract.Exec(ctx, r.sender, contract.CmdDomainUpdate, contract.DomainUpdateBody{
		Name:           name,
		AddStatuses:    add,
		RemoveStatuses: remove,
	})
	if err != nil {
		return nil, err
	}
	rec.Statuses = rec.Statuses.Apply(add, remove)

	logger.FromContext(ctx).Info("domain lock changed", "domain", name, "locked", lock)
	return &LockResult{
		Domain:  rec,
		Locked:  lock,
		Changed: true,
		Added:   add,
		Removed: remove,
		Message: lockMessage(lock, true),
	}, nil
}

func lockMessage(lock, changed bool) string {
	switch {
	case lock && changed:
		return "domain locked"
	case lock:
		return "domain already locked"
	case changed:
		return "domain unlocked"
	default:
		return "domain already unlocked"
	}
}
