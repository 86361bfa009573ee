package service

import (
	"context"
	"fmt"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

// ContactResolver turns contact references into registry contact ids,
// verifying existing ids and creating contacts from raw fields.
type ContactResolver struct {
	sender contract.Sender
}

func NewContactResolver(sender contract.Sender) *ContactResolver {
	return &ContactResolver{sender: sender}
}

func (r *ContactResolver) Resolve(ctx context.Context, ref entity.ContactRef, role entity.ContactRole) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", fmt.Errorf("%s contact: %w", role, err)
	}
	if ref.ID != "" {
		if _, err := r.Lookup(ctx, ref.ID); err != nil {
			return "", fmt.Errorf("%s contact: %w", role, err)
		}
		return ref.ID, nil
	}
	id, err := r.create(ctx, *ref.Fields)
	if err != nil {
		return "", fmt.Errorf("%s contact: %w", role, err)
	}
	return id, nil
}

// Lookup fetches a contact and rejects ids the registry answers with an
// empty record.
func (r *ContactResolver) Lookup(ctx context.Context, id string) (*entity.ContactRecord, error) {
	rec, err := contract.Call[*entity.ContactRecord](ctx, r.sender, contract.CmdContactInfo, contract.ContactInfoBody{ID: id})
	if err != nil {
		if domain.IsKind(err, domain.KindObjectNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidContactReference, id, err)
		}
		return nil, err
	}
	if rec.IsEmpty() {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidContactReference, id, &domain.RegistryError{
			Kind:    domain.KindObjectNotFound,
			Command: string(contract.CmdContactInfo),
			Message: "contact has no data",
		})
	}
	return rec, nil
}

func (r *ContactResolver) create(ctx context.Context, fields entity.ContactFields) (string, error) {
	if err := fields.Validate(); err != nil {
		return "", err
	}
	normalized, err := fields.Normalize()
	if err != nil {
		return "", err
	}
	res, err := contract.Call[*contract.ContactCreateResult](ctx, r.sender, contract.CmdContactCreate, contract.ContactCreateBody{Fields: normalized})
	if err != nil {
		return "", err
	}
	if res == nil || res.ID == "" {
		return "", fmt.Errorf("%w: contact create returned no id", domain.ErrUnexpectedReply)
	}
	logger.FromContext(ctx).Debug("contact created", "id", res.ID)
	return res.ID, nil
}

// ResolveSet resolves all four roles. Roles left empty reuse the registrant;
// a reference shared by several roles is resolved once.
func (r *ContactResolver) ResolveSet(ctx context.Context, set entity.ContactSet) (entity.ResolvedContacts, error) {
	var out entity.ResolvedContacts
	if set.Registrant.IsZero() {
		return out, fmt.Errorf("%s contact: %w", entity.RoleRegistrant, domain.RequiredField("contact id or fields"))
	}

	byID := make(map[string]string)
	byFields := make(map[*entity.ContactFields]string)
	for _, role := range entity.AllContactRoles {
		ref := set.Ref(role)
		if ref.IsZero() {
			out.Set(role, out.Registrant)
			continue
		}
		if ref.ID != "" && ref.Fields == nil {
			if id, ok := byID[ref.ID]; ok {
				out.Set(role, id)
				continue
			}
		}
		if ref.Fields != nil && ref.ID == "" {
			if id, ok := byFields[ref.Fields]; ok {
				out.Set(role, id)
				continue
			}
		}
		id, err := r.Resolve(ctx, ref, role)
		if err != nil {
			return entity.ResolvedContacts{}, err
		}
		if ref.Fields != nil {
			byFields[ref.Fields] = id
		} else {
			byID[ref.ID] = id
		}
		out.Set(role, id)
	}
	return out, nil
}
