package registry

import (
	"fmt"
	"maps"
	"strings"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

const (
	ProfileEPP     = "epp"
	ProfileSandbox = "sandbox"
)

// eppTransferStatuses maps RFC 5731 trnStatus values, lowercased.
var eppTransferStatuses = map[string]entity.TransferOrderStatus{
	"pending":            entity.OrderPendingRegistrant,
	"clientapproved":     entity.OrderCompleted,
	"serverapproved":     entity.OrderCompleted,
	"clientrejected":     entity.OrderCancelled,
	"clientcancelled":    entity.OrderCancelled,
	"servercancelled":    entity.OrderCancelled,
	"clientrejectedauth": entity.OrderFailedNeedsAuthCode,
}

func eppProfile() contract.Profile {
	return contract.Profile{
		Name: ProfileEPP,
		LockedStatuses: entity.StatusSet{
			entity.StatusClientTransferProhibited,
			entity.StatusClientUpdateProhibited,
			entity.StatusClientDeleteProhibited,
		},
		PendingStatuses: entity.StatusSet{
			entity.StatusPendingCreate,
			entity.StatusPendingTransfer,
			entity.StatusPendingDelete,
		},
		PlaceholderAuthCode: domain.DefaultPlaceholderCode,
		MinNameservers:      domain.DefaultMinNameservers,
		TransferPeriod:      domain.DefaultPeriodYears,
		TransferStatuses:    maps.Clone(eppTransferStatuses),
	}
}

func sandboxProfile() contract.Profile {
	p := eppProfile()
	p.Name = ProfileSandbox
	// Lock stops transfers and deletes but leaves nameserver updates possible.
	p.LockedStatuses = entity.StatusSet{
		entity.StatusClientTransferProhibited,
		entity.StatusClientDeleteProhibited,
	}
	p.NotificationTypes = map[string]entity.NotificationType{
		msgTransferIn:  entity.NotificationTransferIn,
		msgTransferOut: entity.NotificationTransferOut,
		msgRenewed:     entity.NotificationRenewed,
		"SUSPENDED":    entity.NotificationSuspended,
		"DELETED":      entity.NotificationDeleted,
		"DATA_QUALITY": entity.NotificationDataQuality,
	}
	p.ErrorMessages = map[string]domain.ErrorKind{
		"premium name": domain.KindValidationFailure,
	}
	return p
}

var presets = map[string]func() contract.Profile{
	ProfileEPP:     eppProfile,
	ProfileSandbox: sandboxProfile,
}

// ProfileFor builds the profile for a configured registry: the named preset
// (defaulting to the registry type) with the registry's own overrides applied.
func ProfileFor(reg *entity.Registry) (contract.Profile, error) {
	name := reg.Profile
	if name == "" {
		name = string(reg.Type)
	}
	preset, ok := presets[strings.ToLower(name)]
	if !ok {
		preset, ok = presets[ProfileEPP], name == string(reg.Type)
	}
	if !ok {
		return contract.Profile{}, fmt.Errorf("%w: profile %s", domain.ErrUnsupportedProvider, name)
	}

	p := preset()
	if len(reg.LockedStatuses) > 0 {
		p.LockedStatuses = append(entity.StatusSet(nil), reg.LockedStatuses...)
	}
	if reg.PlaceholderAuthCode != "" {
		p.PlaceholderAuthCode = reg.PlaceholderAuthCode
	}
	if reg.MinNameservers > 0 {
		p.MinNameservers = reg.MinNameservers
	}
	return p, nil
}
