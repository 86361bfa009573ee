package entity

import (
	"fmt"
	"strings"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/valueobject"
)

type RegistryType string

const (
	RegistryTypeSandbox RegistryType = "sandbox"
)

type RegistryCredentials struct {
	Username valueobject.SecretRef `yaml:"username"`
	Password valueobject.SecretRef `yaml:"password"`
}

func (c *RegistryCredentials) Validate() error {
	if err := c.Username.Validate(); err != nil {
		return fmt.Errorf("username: %w", err)
	}
	if err := c.Password.Validate(); err != nil {
		return fmt.Errorf("password: %w", err)
	}
	return nil
}

// Registry is one registrar account at one registry. Each account gets its
// own session.
type Registry struct {
	Name        string              `yaml:"name"`
	Type        RegistryType        `yaml:"type"`
	Endpoint    string              `yaml:"endpoint"`
	TLDs        []string            `yaml:"tlds"`
	Credentials RegistryCredentials `yaml:"credentials"`
	Profile     string              `yaml:"profile,omitempty"`
	GlueISP     string              `yaml:"glue_isp,omitempty"`
	Options     map[string]string   `yaml:"options,omitempty"`

	LockedStatuses      []string `yaml:"locked_statuses,omitempty"`
	PlaceholderAuthCode string   `yaml:"placeholder_auth_code,omitempty"`
	MinNameservers      int      `yaml:"min_nameservers,omitempty"`
}

func (r *Registry) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: registry name is required", domain.ErrInvalidName)
	}
	if r.Type == "" {
		return domain.RequiredField("type")
	}
	if r.Endpoint == "" {
		return domain.RequiredField("endpoint")
	}
	if len(r.TLDs) == 0 {
		return domain.RequiredField("tlds")
	}
	for _, tld := range r.TLDs {
		if strings.TrimSpace(strings.TrimPrefix(tld, ".")) == "" {
			return fmt.Errorf("%w: empty tld", domain.ErrInvalidDomain)
		}
	}
	if r.MinNameservers < 0 || r.MinNameservers > domain.MaxNameservers {
		return fmt.Errorf("%w: min_nameservers %d", domain.ErrInvalidType, r.MinNameservers)
	}
	if err := r.Credentials.Validate(); err != nil {
		return err
	}
	return nil
}

func (r *Registry) ServesTLD(tld string) bool {
	tld = strings.ToLower(strings.TrimPrefix(tld, "."))
	for _, t := range r.TLDs {
		if strings.ToLower(strings.TrimPrefix(t, ".")) == tld {
			return true
		}
	}
	return false
}

func (r *Registry) Option(key, fallback string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}
