package entity

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"golang.org/x/net/idna"

	"github.com/lite-lake/infra-regsync/internal/domain"
)

var hostnameRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// NormalizeHostname lowercases name, strips a trailing dot and converts IDN
// labels to their ASCII form.
func NormalizeHostname(name string) (string, error) {
	h := strings.TrimSuffix(strings.TrimSpace(name), ".")
	if h == "" {
		return "", fmt.Errorf("%w: hostname is empty", domain.ErrInvalidHostname)
	}
	ascii, err := idna.Lookup.ToASCII(h)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrInvalidHostname, name, err)
	}
	ascii = strings.ToLower(ascii)
	if len(ascii) > 253 || !hostnameRegex.MatchString(ascii) {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidHostname, name)
	}
	return ascii, nil
}

// NormalizeDomainName is NormalizeHostname with domain-flavoured errors.
func NormalizeDomainName(name string) (string, error) {
	n, err := NormalizeHostname(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidDomain, name)
	}
	return n, nil
}

// TLD returns the last label of an already normalized name.
func TLD(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// InBailiwick reports whether host lives under domainName and therefore needs
// glue addresses at the registry.
func InBailiwick(host, domainName string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domainName = strings.ToLower(strings.TrimSuffix(domainName, "."))
	return host == domainName || strings.HasSuffix(host, "."+domainName)
}

type Nameserver struct {
	Host string `yaml:"host" json:"host"`
	IP   string `yaml:"ip,omitempty" json:"ip,omitempty"`
}

// ParseNameserver accepts "host" or "host=ip".
func ParseNameserver(s string) (Nameserver, error) {
	host, ip, _ := strings.Cut(strings.TrimSpace(s), "=")
	ns := Nameserver{Host: host, IP: strings.TrimSpace(ip)}
	return ns.Normalize()
}

func (n Nameserver) Normalize() (Nameserver, error) {
	host, err := NormalizeHostname(n.Host)
	if err != nil {
		return Nameserver{}, err
	}
	out := Nameserver{Host: host}
	if n.IP != "" {
		addr, err := netip.ParseAddr(n.IP)
		if err != nil {
			return Nameserver{}, fmt.Errorf("%w: %s", domain.ErrInvalidIP, n.IP)
		}
		out.IP = addr.String()
	}
	return out, nil
}

// NameserverSet holds up to MaxNameservers positional slots; index 0 is ns1.
type NameserverSet []Nameserver

func ParseNameserverSet(values []string) (NameserverSet, error) {
	set := make(NameserverSet, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		ns, err := ParseNameserver(v)
		if err != nil {
			return nil, err
		}
		set = append(set, ns)
	}
	return set.Normalize()
}

// Normalize canonicalizes every hostname, drops duplicate hosts (first one
// wins) and enforces the slot limit.
func (s NameserverSet) Normalize() (NameserverSet, error) {
	out := make(NameserverSet, 0, len(s))
	seen := make(map[string]struct{}, len(s))
	for _, ns := range s {
		n, err := ns.Normalize()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n.Host]; dup {
			continue
		}
		seen[n.Host] = struct{}{}
		out = append(out, n)
	}
	if len(out) > domain.MaxNameservers {
		return nil, fmt.Errorf("%w: %d given, at most %d allowed", domain.ErrTooManyNameservers, len(out), domain.MaxNameservers)
	}
	return out, nil
}

func (s NameserverSet) Hosts() []string {
	hosts := make([]string, len(s))
	for i, ns := range s {
		hosts[i] = ns.Host
	}
	return hosts
}

func (s NameserverSet) Lookup(host string) (Nameserver, bool) {
	for _, ns := range s {
		if strings.EqualFold(ns.Host, host) {
			return ns, true
		}
	}
	return Nameserver{}, false
}

func (s NameserverSet) Contains(host string) bool {
	_, ok := s.Lookup(host)
	return ok
}

// Minus returns the hosts of s that are not in other, keeping s's order.
func (s NameserverSet) Minus(other NameserverSet) NameserverSet {
	var out NameserverSet
	for _, ns := range s {
		if !other.Contains(ns.Host) {
			out = append(out, ns)
		}
	}
	return out
}

// Partition splits s into hosts outside domainName and hosts that need glue
// under it, keeping the order of s in both.
func (s NameserverSet) Partition(domainName string) (external, internal NameserverSet) {
	for _, ns := range s {
		if InBailiwick(ns.Host, domainName) {
			internal = append(internal, ns)
		} else {
			external = append(external, ns)
		}
	}
	return external, internal
}

// Equal compares host membership only; order and glue IPs are ignored.
func (s NameserverSet) Equal(other NameserverSet) bool {
	return len(s.Minus(other)) == 0 && len(other.Minus(s)) == 0
}

// Slot returns the host in position 1..MaxNameservers, or "".
func (s NameserverSet) Slot(position int) string {
	if position < 1 || position > len(s) {
		return ""
	}
	return s[position-1].Host
}
