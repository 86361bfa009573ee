package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

// fakeZone is a stateful registry view of one domain and its host objects.
type fakeZone struct {
	attached entity.NameserverSet
	hosts    map[string][]string
}

func (z *fakeZone) sender() *scriptedSender {
	return newScriptedSender().
		on(contract.CmdDomainInfo, func(body any) (any, error) {
			name := body.(contract.DomainInfoBody).Name
			return &entity.DomainRecord{Name: name, Nameservers: append(entity.NameserverSet(nil), z.attached...)}, nil
		}).
		on(contract.CmdHostCheck, func(body any) (any, error) {
			exists := make(map[string]bool)
			for _, n := range body.(contract.HostCheckBody).Names {
				_, ok := z.hosts[n]
				exists[n] = ok
			}
			return &contract.HostCheckResult{Exists: exists}, nil
		}).
		on(contract.CmdHostCreate, func(body any) (any, error) {
			b := body.(contract.HostCreateBody)
			z.hosts[b.Name] = b.Addresses
			return nil, nil
		}).
		on(contract.CmdDomainUpdate, func(body any) (any, error) {
			b := body.(contract.DomainUpdateBody)
			var remove entity.NameserverSet
			for _, h := range b.RemoveHosts {
				remove = append(remove, entity.Nameserver{Host: h})
			}
			z.attached = z.attached.Minus(remove)
			for _, h := range b.AddHosts {
				z.attached = append(z.attached, entity.Nameserver{Host: h})
			}
			return nil, nil
		})
}

func nsSet(hosts ...string) entity.NameserverSet {
	set := make(entity.NameserverSet, len(hosts))
	for i, h := range hosts {
		set[i] = entity.Nameserver{Host: h}
	}
	return set
}

func TestNameserverReconciler_AddAndRemove(t *testing.T) {
	z := &fakeZone{
		attached: nsSet("a.example.com", "c.example.com"),
		hosts:    map[string][]string{"a.example.com": nil, "b.example.com": nil, "c.example.com": nil},
	}
	s := z.sender()
	r := NewNameserverReconciler(s, nil, 2)

	res, err := r.Reconcile(context.Background(), "mydomain.com", nsSet("a.example.com", "b.example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Changed {
		t.Error("expected change")
	}
	if s.count(contract.CmdDomainUpdate) != 1 {
		t.Fatalf("expected exactly 1 update, got %d", s.count(contract.CmdDomainUpdate))
	}
	if s.count(contract.CmdHostCreate) != 0 {
		t.Errorf("expected no host creation, got %d", s.count(contract.CmdHostCreate))
	}
	update := s.bodies(contract.CmdDomainUpdate)[0].(contract.DomainUpdateBody)
	if !reflect.DeepEqual(update.AddHosts, []string{"b.example.com"}) {
		t.Errorf("unexpected add set %v", update.AddHosts)
	}
	if !reflect.DeepEqual(update.RemoveHosts, []string{"c.example.com"}) {
		t.Errorf("unexpected remove set %v", update.RemoveHosts)
	}
}

func TestNameserverReconciler_Idempotent(t *testing.T) {
	z := &fakeZone{
		attached: nsSet("old1.example.net", "old2.example.net"),
		hosts:    map[string][]string{},
	}
	s := z.sender()
	r := NewNameserverReconciler(s, nil, 2)
	desired := nsSet("ns1.example.org", "ns2.example.org")

	first, err := r.Reconcile(context.Background(), "mydomain.com", desired)
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if !first.Changed || len(first.CreatedHosts) != 2 {
		t.Fatalf("expected change with 2 created hosts, got %+v", first)
	}
	afterFirst := s.mutations()

	second, err := r.Reconcile(context.Background(), "mydomain.com", desired)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if second.Changed {
		t.Error("second reconcile must be a no-op")
	}
	if second.Message == "" {
		t.Error("expected a descriptive no-op message")
	}
	if s.mutations() != afterFirst {
		t.Errorf("second reconcile issued %d mutating calls", s.mutations()-afterFirst)
	}
}

func TestNameserverReconciler_CaseInsensitive(t *testing.T) {
	z := &fakeZone{attached: nsSet("NS1.Example.COM.", "ns2.example.com"), hosts: map[string][]string{}}
	s := z.sender()

	res, err := NewNameserverReconciler(s, nil, 0).Reconcile(context.Background(), "MyDomain.com", nsSet("ns2.example.com", "ns1.example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed {
		t.Error("expected no change")
	}
	if len(s.calls) != 1 {
		t.Errorf("expected only the info call, got %d calls", len(s.calls))
	}
}

type fakeGlue struct {
	addrs map[string][]string
	err   error
}

func (g *fakeGlue) LookupAddresses(_ context.Context, host, _ string) ([]string, error) {
	return g.addrs[host], g.err
}

func TestNameserverReconciler_Glue(t *testing.T) {
	desired := entity.NameserverSet{
		{Host: "ns1.mydomain.com"},
		{Host: "ns2.mydomain.com", IP: "2001:db8::53"},
		{Host: "ns.example.net"},
	}

	t.Run("resolved from dns", func(t *testing.T) {
		z := &fakeZone{hosts: map[string][]string{}}
		s := z.sender()
		glue := &fakeGlue{addrs: map[string][]string{"ns1.mydomain.com": {"192.0.2.1"}}}

		_, err := NewNameserverReconciler(s, glue, 2).Reconcile(context.Background(), "mydomain.com", desired)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := z.hosts["ns1.mydomain.com"]; !reflect.DeepEqual(got, []string{"192.0.2.1"}) {
			t.Errorf("ns1 glue = %v", got)
		}
		if got := z.hosts["ns2.mydomain.com"]; !reflect.DeepEqual(got, []string{"2001:db8::53"}) {
			t.Errorf("ns2 glue = %v", got)
		}
		if got := z.hosts["ns.example.net"]; len(got) != 0 {
			t.Errorf("out-of-bailiwick host must not get glue, got %v", got)
		}
	})

	t.Run("missing glue is a validation failure", func(t *testing.T) {
		z := &fakeZone{hosts: map[string][]string{}}
		s := z.sender()

		_, err := NewNameserverReconciler(s, nil, 2).Reconcile(context.Background(), "mydomain.com", desired)
		if !errors.Is(err, domain.ErrGlueAddressRequired) {
			t.Fatalf("expected ErrGlueAddressRequired, got %v", err)
		}
		if domain.KindOf(err) != domain.KindValidationFailure {
			t.Errorf("expected validation kind, got %s", domain.KindOf(err))
		}
		if s.count(contract.CmdDomainUpdate) != 0 {
			t.Error("update must not be sent")
		}
	})

	t.Run("empty lookup", func(t *testing.T) {
		z := &fakeZone{hosts: map[string][]string{}}
		_, err := NewNameserverReconciler(z.sender(), &fakeGlue{}, 2).Reconcile(context.Background(), "mydomain.com", desired)
		if !errors.Is(err, domain.ErrGlueAddressRequired) {
			t.Fatalf("expected ErrGlueAddressRequired, got %v", err)
		}
	})
}

func TestNameserverReconciler_FailuresSurface(t *testing.T) {
	z := &fakeZone{attached: nsSet("a.example.com", "b.example.com"), hosts: map[string][]string{}}
	s := z.sender().on(contract.CmdHostCreate, func(body any) (any, error) {
		return nil, registryErr(domain.KindValidationFailure, contract.CmdHostCreate, 2005)
	})

	_, err := NewNameserverReconciler(s, nil, 2).Reconcile(context.Background(), "mydomain.com", nsSet("x.example.org", "y.example.org"))
	if !errors.Is(err, domain.ErrValidationFailure) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if s.count(contract.CmdHostCreate) != 1 {
		t.Errorf("expected a single create attempt, got %d", s.count(contract.CmdHostCreate))
	}
	if s.count(contract.CmdDomainUpdate) != 0 {
		t.Error("update must not follow a failed host create")
	}
}

func TestNameserverReconciler_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		desired entity.NameserverSet
		wantErr error
	}{
		{"too few", nsSet("ns1.example.com"), domain.ErrTooFewNameservers},
		{"too many", nsSet("a.example.com", "b.example.com", "c.example.com", "d.example.com", "e.example.com", "f.example.com"), domain.ErrTooManyNameservers},
		{"bad hostname", nsSet("-bad-.example.com", "ns.example.com"), domain.ErrInvalidHostname},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScriptedSender()
			_, err := NewNameserverReconciler(s, nil, 2).Reconcile(context.Background(), "mydomain.com", tt.desired)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if len(s.calls) != 0 {
				t.Errorf("expected no registry calls, got %d", len(s.calls))
			}
		})
	}
}
