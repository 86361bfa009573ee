package entity

import (
	"strings"
	"time"
)

// Standard EPP status codes used by the built-in profiles.
const (
	StatusOK                       = "ok"
	StatusClientTransferProhibited = "clientTransferProhibited"
	StatusClientUpdateProhibited   = "clientUpdateProhibited"
	StatusClientDeleteProhibited   = "clientDeleteProhibited"
	StatusPendingCreate            = "pendingCreate"
	StatusPendingTransfer          = "pendingTransfer"
	StatusPendingDelete            = "pendingDelete"
)

// StatusSet is a set of registry status codes. Comparisons are
// case-insensitive; the registry's spelling is kept.
type StatusSet []string

func (s StatusSet) Contains(status string) bool {
	for _, v := range s {
		if strings.EqualFold(v, status) {
			return true
		}
	}
	return false
}

// Intersect returns the members of s that are also in other.
func (s StatusSet) Intersect(other StatusSet) StatusSet {
	var out StatusSet
	for _, v := range s {
		if other.Contains(v) && !out.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// Minus returns the members of s that are not in other.
func (s StatusSet) Minus(other StatusSet) StatusSet {
	var out StatusSet
	for _, v := range s {
		if !other.Contains(v) && !out.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// Apply returns s with add appended and remove taken out.
func (s StatusSet) Apply(add, remove StatusSet) StatusSet {
	out := s.Minus(remove)
	for _, v := range add {
		if !out.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

type DomainRecord struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Statuses    StatusSet     `yaml:"statuses" json:"statuses"`
	Registrant  string        `yaml:"registrant,omitempty" json:"registrant,omitempty"`
	Admin       string        `yaml:"admin,omitempty" json:"admin,omitempty"`
	Tech        string        `yaml:"tech,omitempty" json:"tech,omitempty"`
	Billing     string        `yaml:"billing,omitempty" json:"billing,omitempty"`
	Nameservers NameserverSet `yaml:"nameservers,omitempty" json:"nameservers,omitempty"`
	AuthCode    string        `yaml:"-" json:"-"`
	CreatedAt   time.Time     `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `yaml:"updated_at" json:"updated_at"`
	ExpiresAt   time.Time     `yaml:"expires_at" json:"expires_at"`
}

// Locked is derived from the status set; it is never stored.
func (d *DomainRecord) Locked(lockedStatuses StatusSet) bool {
	return len(d.Statuses.Intersect(lockedStatuses)) > 0
}

// Active reports whether none of the given pending statuses is present.
func (d *DomainRecord) Active(pendingStatuses StatusSet) bool {
	return len(d.Statuses.Intersect(pendingStatuses)) == 0
}

// NormalizeTimes converts all timestamps to UTC at second precision.
func (d *DomainRecord) NormalizeTimes() {
	d.CreatedAt = truncateUTC(d.CreatedAt)
	d.UpdatedAt = truncateUTC(d.UpdatedAt)
	d.ExpiresAt = truncateUTC(d.ExpiresAt)
}

func (d *DomainRecord) ContactID(role ContactRole) string {
	switch role {
	case RoleRegistrant:
		return d.Registrant
	case RoleAdmin:
		return d.Admin
	case RoleTech:
		return d.Tech
	case RoleBilling:
		return d.Billing
	}
	return ""
}

func truncateUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}

type Availability struct {
	Domain      string `yaml:"domain" json:"domain"`
	CanRegister bool   `yaml:"can_register" json:"can_register"`
	CanTransfer bool   `yaml:"can_transfer" json:"can_transfer"`
	IsPremium   bool   `yaml:"is_premium" json:"is_premium"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}
