package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

var (
	ErrDomainNotFound  = domain.ErrDNSDomainNotFound
	ErrInvalidResponse = domain.ErrDNSError
)

type DNSRecord = contract.DNSRecord

type RecordLister = contract.RecordLister

var addressTypes = []string{"A", "AAAA"}

// ZoneResolver finds glue addresses in the zones of one DNS hosting account.
type ZoneResolver struct {
	lister RecordLister
	hosts  func(zone string) bool
}

// NewZoneResolver wraps lister. hosts limits lookups to the zones the account
// serves; nil means all.
func NewZoneResolver(lister RecordLister, hosts func(zone string) bool) *ZoneResolver {
	return &ZoneResolver{lister: lister, hosts: hosts}
}

func (r *ZoneResolver) Name() string {
	return r.lister.Name()
}

func (r *ZoneResolver) LookupAddresses(ctx context.Context, host, zone string) ([]string, error) {
	if r.hosts != nil && !r.hosts(zone) {
		return nil, nil
	}
	var addrs []string
	for _, typ := range addressTypes {
		records, err := r.lister.GetRecordsByTypes(ctx, zone, typ)
		if err != nil {
			return nil, fmt.Errorf("%s %s records of %s: %w", r.lister.Name(), typ, zone, err)
		}
		for _, rec := range records {
			if !recordMatches(rec.Name, host, zone) {
				continue
			}
			addr, err := netip.ParseAddr(strings.TrimSpace(rec.Value))
			if err != nil {
				return nil, fmt.Errorf("%w: %s record %s has value %q", ErrInvalidResponse, typ, rec.Name, rec.Value)
			}
			addrs = appendUnique(addrs, addr.String())
		}
	}
	return addrs, nil
}

// recordMatches accepts fully qualified names as well as names relative to
// zone, with "@" for the apex.
func recordMatches(name, host, zone string) bool {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	host = strings.ToLower(host)
	zone = strings.ToLower(zone)
	switch {
	case name == host:
		return true
	case name == "@" || name == "":
		return host == zone
	default:
		return name+"."+zone == host
	}
}

// SystemResolver asks the operating system's resolver. It only sees glue that
// is already published.
type SystemResolver struct {
	resolver *net.Resolver
}

func NewSystemResolver() *SystemResolver {
	return &SystemResolver{resolver: net.DefaultResolver}
}

func (r *SystemResolver) Name() string {
	return "system"
}

func (r *SystemResolver) LookupAddresses(ctx context.Context, host, _ string) ([]string, error) {
	ips, err := r.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, domain.WrapOp("resolve "+host, err)
	}
	var addrs []string
	for _, ip := range ips {
		addrs = appendUnique(addrs, ip.Unmap().String())
	}
	return addrs, nil
}

// NamedResolver is a glue source that can identify itself in logs.
type NamedResolver interface {
	contract.GlueResolver
	Name() string
}

// ChainResolver asks each resolver in turn and returns the first non-empty
// answer. Failures are logged and only surface when no resolver answers.
type ChainResolver struct {
	resolvers []NamedResolver
}

func NewChainResolver(resolvers ...NamedResolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

func (c *ChainResolver) Len() int {
	return len(c.resolvers)
}

func (c *ChainResolver) LookupAddresses(ctx context.Context, host, zone string) ([]string, error) {
	host, err := entity.NormalizeHostname(host)
	if err != nil {
		return nil, err
	}
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))

	var errs []error
	for _, r := range c.resolvers {
		addrs, err := r.LookupAddresses(ctx, host, zone)
		if err != nil {
			logger.Warn("glue lookup failed", "resolver", r.Name(), "host", host, "error", err)
			errs = append(errs, err)
			continue
		}
		if len(addrs) > 0 {
			logger.Debug("glue resolved", "resolver", r.Name(), "host", host, "addresses", addrs)
			return addrs, nil
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidResponse, host, errors.Join(errs...))
	}
	return nil, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
