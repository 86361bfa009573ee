package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

type NameserverResult struct {
	Domain       string               `json:"domain"`
	Nameservers  entity.NameserverSet `json:"nameservers"`
	Added        []string             `json:"added,omitempty"`
	Removed      []string             `json:"removed,omitempty"`
	CreatedHosts []string             `json:"created_hosts,omitempty"`
	Changed      bool                 `json:"changed"`
	Message      string               `json:"message"`
}

// NameserverReconciler makes the set of hosts attached to a domain equal to a
// desired set with a single update, creating missing host objects first.
type NameserverReconciler struct {
	sender contract.Sender
	glue   contract.GlueResolver
	min    int
}

// NewNameserverReconciler builds a reconciler. glue may be nil, in which case
// in-bailiwick hosts must carry their address. minimum <= 0 disables the
// lower bound.
func NewNameserverReconciler(sender contract.Sender, glue contract.GlueResolver, minimum int) *NameserverReconciler {
	return &NameserverReconciler{sender: sender, glue: glue, min: minimum}
}

func (r *NameserverReconciler) Reconcile(ctx context.Context, domainName string, desired entity.NameserverSet) (*NameserverResult, error) {
	name, err := entity.NormalizeDomainName(domainName)
	if err != nil {
		return nil, err
	}
	desired, err = desired.Normalize()
	if err != nil {
		return nil, err
	}
	if r.min > 0 && len(desired) < r.min {
		return nil, fmt.Errorf("%w: %d given, at least %d required", domain.ErrTooFewNameservers, len(desired), r.min)
	}

	rec, err := contract.Call[*entity.DomainRecord](ctx, r.sender, contract.CmdDomainInfo, contract.DomainInfoBody{Name: name})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: domain info for %s returned nothing", domain.ErrUnexpectedReply, name)
	}

	attached := normalizeAttached(rec.Nameservers)
	toRemove := attached.Minus(desired)
	toAdd := desired.Minus(attached)
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return &NameserverResult{
			Domain:      name,
			Nameservers: attached,
			Message:     "nameservers already up to date",
		}, nil
	}

	created, err := r.EnsureHosts(ctx, name, toAdd)
	if err != nil {
		return nil, err
	}

	err = contract.Exec(ctx, r.sender, contract.CmdDomainUpdate, contract.DomainUpdateBody{
		Name:        name,
		AddHosts:    toAdd.Hosts(),
		RemoveHosts: toRemove.Hosts(),
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("nameservers updated",
		"domain", name, "added", len(toAdd), "removed", len(toRemove), "created_hosts", len(created))
	return &NameserverResult{
		Domain:       name,
		Nameservers:  desired,
		Added:        toAdd.Hosts(),
		Removed:      toRemove.Hosts(),
		CreatedHosts: created,
		Changed:      true,
		Message:      fmt.Sprintf("added %d, removed %d nameservers", len(toAdd), len(toRemove)),
	}, nil
}

// EnsureHosts creates the host objects in hosts that the registry does not
// know yet and returns the names it created. In-bailiwick hosts get glue
// addresses from the nameserver entry or the glue resolver; the domain must
// already exist at the registry for those. Other hosts never carry addresses.
func (r *NameserverReconciler) EnsureHosts(ctx context.Context, domainName string, hosts entity.NameserverSet) ([]string, error) {
	if len(hosts) == 0 {
		return nil, nil
	}
	check, err := contract.Call[*contract.HostCheckResult](ctx, r.sender, contract.CmdHostCheck, contract.HostCheckBody{Names: hosts.Hosts()})
	if err != nil {
		return nil, err
	}

	var created []string
	for _, ns := range hosts {
		if check != nil && hostExists(check.Exists, ns.Host) {
			continue
		}
		addrs, err := r.glueFor(ctx, ns, domainName)
		if err != nil {
			return created, err
		}
		err = contract.Exec(ctx, r.sender, contract.CmdHostCreate, contract.HostCreateBody{Name: ns.Host, Addresses: addrs})
		if err != nil {
			return created, err
		}
		created = append(created, ns.Host)
	}
	return created, nil
}

func (r *NameserverReconciler) glueFor(ctx context.Context, ns entity.Nameserver, domainName string) ([]string, error) {
	if !entity.InBailiwick(ns.Host, domainName) {
		return nil, nil
	}
	if ns.IP != "" {
		return []string{ns.IP}, nil
	}
	if r.glue == nil {
		return nil, glueRequired(ns.Host)
	}
	addrs, err := r.glue.LookupAddresses(ctx, ns.Host, domainName)
	if err != nil {
		return nil, fmt.Errorf("glue lookup for %s: %w", ns.Host, err)
	}
	if len(addrs) == 0 {
		return nil, glueRequired(ns.Host)
	}
	return addrs, nil
}

// normalizeAttached canonicalizes what the registry reports, keeping entries
// it cannot parse so they can still be removed.
func normalizeAttached(set entity.NameserverSet) entity.NameserverSet {
	out := make(entity.NameserverSet, 0, len(set))
	for _, ns := range set {
		if n, err := ns.Normalize(); err == nil {
			out = append(out, n)
		} else {
			out = append(out, ns)
		}
	}
	return out
}

func glueRequired(host string) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrGlueAddressRequired, host,
		validationError(contract.CmdHostCreate, "in-bailiwick host needs an address", "addr"))
}

func hostExists(exists map[string]bool, host string) bool {
	if v, ok := exists[host]; ok {
		return v
	}
	for k, v := range exists {
		if strings.EqualFold(strings.TrimSuffix(k, "."), host) {
			return v
		}
	}
	return false
}
