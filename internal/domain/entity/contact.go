package entity

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/language"

	"github.com/lite-lake/infra-regsync/internal/domain"
)

type ContactRole string

const (
	RoleRegistrant ContactRole = "registrant"
	RoleAdmin      ContactRole = "admin"
	RoleTech       ContactRole = "tech"
	RoleBilling    ContactRole = "billing"
)

var AllContactRoles = []ContactRole{RoleRegistrant, RoleAdmin, RoleTech, RoleBilling}

// ContactFields is the raw data used to create a registry contact object.
type ContactFields struct {
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	Organisation string `yaml:"organisation,omitempty" json:"organisation,omitempty"`
	Email        string `yaml:"email" json:"email"`
	Phone        string `yaml:"phone,omitempty" json:"phone,omitempty"`
	Address1     string `yaml:"address1" json:"address1"`
	Address2     string `yaml:"address2,omitempty" json:"address2,omitempty"`
	Address3     string `yaml:"address3,omitempty" json:"address3,omitempty"`
	City         string `yaml:"city,omitempty" json:"city,omitempty"`
	State        string `yaml:"state,omitempty" json:"state,omitempty"`
	PostCode     string `yaml:"postcode,omitempty" json:"postcode,omitempty"`
	Country      string `yaml:"country" json:"country"`
	Type         string `yaml:"type,omitempty" json:"type,omitempty"`
}

func (f *ContactFields) Validate() error {
	if strings.TrimSpace(f.Name) == "" && strings.TrimSpace(f.Organisation) == "" {
		return domain.RequiredField("name or organisation")
	}
	if strings.TrimSpace(f.Email) == "" {
		return domain.RequiredField("email")
	}
	if _, err := mail.ParseAddress(f.Email); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidEmail, f.Email)
	}
	if strings.TrimSpace(f.Address1) == "" {
		return domain.RequiredField("address1")
	}
	if strings.TrimSpace(f.Country) == "" {
		return domain.RequiredField("country")
	}
	return nil
}

// Normalize returns a copy carrying the wire forms of phone and country.
func (f ContactFields) Normalize() (ContactFields, error) {
	out := f
	out.Name = strings.TrimSpace(f.Name)
	out.Organisation = strings.TrimSpace(f.Organisation)
	out.Email = strings.ToLower(strings.TrimSpace(f.Email))

	country, err := NormalizeCountry(f.Country)
	if err != nil {
		return ContactFields{}, err
	}
	out.Country = country

	phone, err := NormalizePhone(f.Phone, country)
	if err != nil {
		return ContactFields{}, err
	}
	out.Phone = phone
	return out, nil
}

// NormalizeCountry validates an ISO-3166 alpha-2 code and returns it upper-cased.
func NormalizeCountry(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != 2 {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidCountry, code)
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidCountry, code)
	}
	return region.String(), nil
}

// NormalizePhone converts a phone number into the wire form "+44.2079460958".
// Numbers without a leading "+" are read in the dialling plan of region, the
// contact's ISO country code. An empty input stays empty.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", domain.ErrInvalidPhone, raw, err)
	}
	if num.GetExtension() != "" {
		return "", fmt.Errorf("%w: %q carries an extension", domain.ErrInvalidPhone, raw)
	}
	if phonenumbers.IsPossibleNumberWithReason(num) != phonenumbers.IS_POSSIBLE {
		return "", fmt.Errorf("%w: %q has the wrong length", domain.ErrInvalidPhone, raw)
	}
	return fmt.Sprintf("+%d.%s", num.GetCountryCode(), phonenumbers.GetNationalSignificantNumber(num)), nil
}

type ContactRecord struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	Organisation string `yaml:"organisation,omitempty" json:"organisation,omitempty"`
	Email        string `yaml:"email,omitempty" json:"email,omitempty"`
	Phone        string `yaml:"phone,omitempty" json:"phone,omitempty"`
	Address1     string `yaml:"address1,omitempty" json:"address1,omitempty"`
	Address2     string `yaml:"address2,omitempty" json:"address2,omitempty"`
	Address3     string `yaml:"address3,omitempty" json:"address3,omitempty"`
	City         string `yaml:"city,omitempty" json:"city,omitempty"`
	State        string `yaml:"state,omitempty" json:"state,omitempty"`
	PostCode     string `yaml:"postcode,omitempty" json:"postcode,omitempty"`
	Country      string `yaml:"country,omitempty" json:"country,omitempty"`
	Type         string `yaml:"type,omitempty" json:"type,omitempty"`
}

func NewContactRecord(id string, f ContactFields) *ContactRecord {
	return &ContactRecord{
		ID:           id,
		Name:         f.Name,
		Organisation: f.Organisation,
		Email:        f.Email,
		Phone:        f.Phone,
		Address1:     f.Address1,
		Address2:     f.Address2,
		Address3:     f.Address3,
		City:         f.City,
		State:        f.State,
		PostCode:     f.PostCode,
		Country:      f.Country,
		Type:         f.Type,
	}
}

// IsEmpty reports whether every field besides the identifier is blank. Some
// registries answer an info query for an unknown id with such a record
// instead of an error.
func (c *ContactRecord) IsEmpty() bool {
	if c == nil {
		return true
	}
	f := c.Fields()
	return f == ContactFields{}
}

func (c *ContactRecord) Fields() ContactFields {
	return ContactFields{
		Name:         strings.TrimSpace(c.Name),
		Organisation: strings.TrimSpace(c.Organisation),
		Email:        strings.TrimSpace(c.Email),
		Phone:        strings.TrimSpace(c.Phone),
		Address1:     strings.TrimSpace(c.Address1),
		Address2:     strings.TrimSpace(c.Address2),
		Address3:     strings.TrimSpace(c.Address3),
		City:         strings.TrimSpace(c.City),
		State:        strings.TrimSpace(c.State),
		PostCode:     strings.TrimSpace(c.PostCode),
		Country:      strings.TrimSpace(c.Country),
		Type:         strings.TrimSpace(c.Type),
	}
}

// ContactRef points at an existing registry contact or carries the fields for
// a new one. Exactly one of ID and Fields is set.
type ContactRef struct {
	ID     string         `yaml:"id,omitempty" json:"id,omitempty"`
	Fields *ContactFields `yaml:"fields,omitempty" json:"fields,omitempty"`
}

func (r ContactRef) IsZero() bool {
	return r.ID == "" && r.Fields == nil
}

func (r ContactRef) Validate() error {
	if r.ID != "" && r.Fields != nil {
		return fmt.Errorf("%w: carries both an id and fields", domain.ErrInvalidContactReference)
	}
	if r.IsZero() {
		return domain.RequiredField("contact id or fields")
	}
	return nil
}

// ContactSet is the caller's input for the four contact roles. Roles left
// zero fall back to the registrant.
type ContactSet struct {
	Registrant ContactRef `yaml:"registrant" json:"registrant"`
	Admin      ContactRef `yaml:"admin,omitempty" json:"admin,omitempty"`
	Tech       ContactRef `yaml:"tech,omitempty" json:"tech,omitempty"`
	Billing    ContactRef `yaml:"billing,omitempty" json:"billing,omitempty"`
}

func (s ContactSet) Ref(role ContactRole) ContactRef {
	switch role {
	case RoleAdmin:
		return s.Admin
	case RoleTech:
		return s.Tech
	case RoleBilling:
		return s.Billing
	default:
		return s.Registrant
	}
}

// ResolvedContacts holds registry contact identifiers per role.
type ResolvedContacts struct {
	Registrant string `yaml:"registrant" json:"registrant"`
	Admin      string `yaml:"admin" json:"admin"`
	Tech       string `yaml:"tech" json:"tech"`
	Billing    string `yaml:"billing" json:"billing"`
}

func (r *ResolvedContacts) Set(role ContactRole, id string) {
	switch role {
	case RoleRegistrant:
		r.Registrant = id
	case RoleAdmin:
		r.Admin = id
	case RoleTech:
		r.Tech = id
	case RoleBilling:
		r.Billing = id
	}
}
