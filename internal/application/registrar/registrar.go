package registrar

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lite-lake/infra-regsync/internal/constants"
	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/domain/retry"
	"github.com/lite-lake/infra-regsync/internal/domain/service"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/dns"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/registry"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/secrets"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/session"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/state"
)

type Config struct {
	Config  *entity.Config
	BaseDir string

	// Optional; defaults are built from Config and BaseDir.
	Adapters     *registry.Factory
	DNS          *dns.Factory
	Ledger       service.TransferLedger
	Archive      NotificationArchive
	ConnectRetry []retry.Option
	PollBudget   time.Duration
	Clock        func() time.Time
}

// Registrar routes domains to the Provider of the registry serving their TLD.
// Providers and their sessions are created on first use and shared.
type Registrar struct {
	cfg       *Config
	secrets   *secrets.SecretResolver
	pool      *session.Pool
	mu        sync.Mutex
	providers map[string]*Provider
}

func New(cfg *Config) (*Registrar, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, domain.ErrConfigNotLoaded
	}
	c := *cfg
	if c.Adapters == nil {
		c.Adapters = registry.NewFactory()
	}
	if c.DNS == nil {
		c.DNS = dns.NewFactory()
	}
	if c.Ledger == nil {
		c.Ledger = state.NewFileStore(filepath.Join(c.BaseDir, constants.StateDir, constants.TransferLedgerFile))
	}

	r := &Registrar{
		cfg:       &c,
		secrets:   secrets.NewSecretResolver(c.Config.Secrets),
		providers: make(map[string]*Provider),
	}
	r.pool = session.NewPool(r.newHandle)
	return r, nil
}

func (r *Registrar) newHandle(name string) (*session.Handle, error) {
	reg, ok := r.cfg.Config.GetRegistryMap()[name]
	if !ok {
		return nil, fmt.Errorf("%w: registry %s", domain.ErrMissingReference, name)
	}
	adapter, err := r.cfg.Adapters.Create(reg, r.cfg.BaseDir)
	if err != nil {
		return nil, domain.WrapEntity("registry", name, err)
	}
	creds, err := r.secrets.RegistryCredentials(reg)
	if err != nil {
		return nil, err
	}
	var opts []session.Option
	if len(r.cfg.ConnectRetry) > 0 {
		opts = append(opts, session.WithConnectRetry(r.cfg.ConnectRetry...))
	}
	return session.New(adapter, session.Account{
		Name:        reg.Name,
		Endpoint:    reg.Endpoint,
		Credentials: creds,
	}, opts...), nil
}

// Provider returns the provider of the named registry account.
func (r *Registrar) Provider(name string) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	reg, ok := r.cfg.Config.GetRegistryMap()[name]
	if !ok {
		return nil, fmt.Errorf("%w: registry %s", domain.ErrMissingReference, name)
	}
	h, err := r.pool.Get(name)
	if err != nil {
		return nil, err
	}
	glue, err := r.glueFor(reg)
	if err != nil {
		return nil, err
	}

	p, err := NewProvider(&ProviderConfig{
		Handle:     h,
		Glue:       glue,
		Ledger:     r.cfg.Ledger,
		Archive:    r.cfg.Archive,
		PollBudget: r.cfg.PollBudget,
		Clock:      r.cfg.Clock,
	})
	if err != nil {
		return nil, err
	}
	r.providers[name] = p
	return p, nil
}

func (r *Registrar) glueFor(reg *entity.Registry) (*dns.ChainResolver, error) {
	var isps []*entity.ISP
	if reg.GlueISP != "" {
		isp, ok := r.cfg.Config.GetISPMap()[reg.GlueISP]
		if !ok {
			return nil, fmt.Errorf("%w: registries[%s].glue_isp %s", domain.ErrMissingReference, reg.Name, reg.GlueISP)
		}
		isps = append(isps, isp)
	}
	return r.cfg.DNS.GlueResolver(isps, r.secrets.Values())
}

// ForDomain returns the provider of the registry serving the TLD of name.
func (r *Registrar) ForDomain(name string) (*Provider, error) {
	normalized, err := entity.NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}
	reg, err := r.cfg.Config.RegistryForDomain(normalized)
	if err != nil {
		return nil, err
	}
	return r.Provider(reg.Name)
}

// Registries lists the configured registry account names in order.
func (r *Registrar) Registries() []string {
	names := make([]string, 0, len(r.cfg.Config.Registries))
	for _, reg := range r.cfg.Config.Registries {
		names = append(names, reg.Name)
	}
	return names
}

// CheckAvailability groups names by registry and checks every group
// concurrently. Each registry still sees its commands one at a time.
// Results keep the order of names.
func (r *Registrar) CheckAvailability(ctx context.Context, names []string) ([]entity.Availability, error) {
	groups := make(map[string][]string)
	var order []string
	for _, n := range names {
		name, err := entity.NormalizeDomainName(n)
		if err != nil {
			return nil, err
		}
		reg, err := r.cfg.Config.RegistryForDomain(name)
		if err != nil {
			return nil, err
		}
		if _, ok := groups[reg.Name]; !ok {
			order = append(order, reg.Name)
		}
		groups[reg.Name] = append(groups[reg.Name], name)
	}

	var mu sync.Mutex
	byName := make(map[string]entity.Availability, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for _, regName := range order {
		batch := groups[regName]
		g.Go(func() error {
			p, err := r.Provider(regName)
			if err != nil {
				return err
			}
			res, err := p.CheckAvailability(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, a := range res {
				byName[a.Domain] = a
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]entity.Availability, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		name, _ := entity.NormalizeDomainName(n)
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, byName[name])
	}
	return out, nil
}

// Providers returns the providers created so far, sorted by name.
func (r *Registrar) Providers() []*Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Close logs every open session out.
func (r *Registrar) Close(ctx context.Context) error {
	r.mu.Lock()
	r.providers = make(map[string]*Provider)
	r.mu.Unlock()
	return r.pool.CloseAll(ctx)
}
