package entity

import (
	"fmt"
	"strings"

	"github.com/lite-lake/infra-regsync/internal/domain"
)

type Config struct {
	Secrets    []Secret         `yaml:"secrets,omitempty"`
	ISPs       []ISP            `yaml:"isps,omitempty"`
	Registries []Registry       `yaml:"registries,omitempty"`
	Contacts   []ContactProfile `yaml:"contacts,omitempty"`
}

func (c *Config) Validate() error {
	for i, s := range c.Secrets {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("secrets[%d]: %w", i, err)
		}
	}
	for i := range c.ISPs {
		if err := c.ISPs[i].Validate(); err != nil {
			return fmt.Errorf("isps[%d]: %w", i, err)
		}
	}
	for i := range c.Registries {
		if err := c.Registries[i].Validate(); err != nil {
			return fmt.Errorf("registries[%d]: %w", i, err)
		}
	}
	for i := range c.Contacts {
		if err := c.Contacts[i].Validate(); err != nil {
			return fmt.Errorf("contacts[%d]: %w", i, err)
		}
	}
	if err := checkUnique(c.Registries, func(r Registry) string { return r.Name }, "registry"); err != nil {
		return err
	}
	if err := checkUnique(c.ISPs, func(i ISP) string { return i.Name }, "isp"); err != nil {
		return err
	}
	return checkUnique(c.Contacts, func(p ContactProfile) string { return p.Name }, "contact")
}

func checkUnique[T any](items []T, getName func(T) string, kind string) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		name := getName(item)
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s %s", domain.ErrDuplicateName, kind, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func toMapPtr[T any](items []T, getName func(T) string) map[string]*T {
	m := make(map[string]*T)
	for i := range items {
		m[getName(items[i])] = &items[i]
	}
	return m
}

func (c *Config) GetSecretsMap() map[string]string {
	m := make(map[string]string)
	for _, s := range c.Secrets {
		m[s.Name] = s.Value
	}
	return m
}

func (c *Config) GetISPMap() map[string]*ISP {
	return toMapPtr(c.ISPs, func(isp ISP) string { return isp.Name })
}

func (c *Config) GetRegistryMap() map[string]*Registry {
	return toMapPtr(c.Registries, func(r Registry) string { return r.Name })
}

func (c *Config) GetContactMap() map[string]*ContactProfile {
	return toMapPtr(c.Contacts, func(p ContactProfile) string { return p.Name })
}

// RegistryForDomain picks the first registry serving the TLD of name.
func (c *Config) RegistryForDomain(name string) (*Registry, error) {
	tld := TLD(strings.ToLower(strings.TrimSuffix(name, ".")))
	for i := range c.Registries {
		if c.Registries[i].ServesTLD(tld) {
			return &c.Registries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: .%s", domain.ErrNoRegistryForTLD, tld)
}

// ContactRef resolves a CLI contact argument: a contacts.yaml name, or a raw
// registry id when no such name exists.
func (c *Config) ContactRef(nameOrID string) ContactRef {
	if p, ok := c.GetContactMap()[nameOrID]; ok {
		return p.Ref()
	}
	return ContactRef{ID: nameOrID}
}
