package entity

import (
	"fmt"

	"github.com/lite-lake/infra-regsync/internal/domain"
)

// ContactProfile is a named contact in contacts.yaml. It either points at an
// existing registry contact (ID) or describes one to create (Fields).
type ContactProfile struct {
	Name   string         `yaml:"name"`
	ID     string         `yaml:"id,omitempty"`
	Fields *ContactFields `yaml:"fields,omitempty"`
}

func (p *ContactProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: contact name is required", domain.ErrInvalidName)
	}
	ref := p.Ref()
	if err := ref.Validate(); err != nil {
		return err
	}
	if p.Fields != nil {
		if err := p.Fields.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *ContactProfile) Ref() ContactRef {
	return ContactRef{ID: p.ID, Fields: p.Fields}
}
