package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestSandbox(t *testing.T, opts ...SandboxOption) (*Sandbox, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]SandboxOption{WithSandboxClock(clock.Now)}, opts...)
	sb := NewSandbox(filepath.Join(t.TempDir(), "sandbox.yaml"), sandboxProfile(), opts...)
	ctx := context.Background()
	for _, user := range []string{"alice", "bob"} {
		if err := sb.AddAccount(ctx, user, user+"-pw"); err != nil {
			t.Fatalf("add account %s: %v", user, err)
		}
	}
	return sb, clock
}

func login(t *testing.T, sb *Sandbox, user string) contract.Conn {
	t.Helper()
	conn, err := sb.Connect(context.Background(), "")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := conn.Login(context.Background(), contract.Credentials{Username: user, Password: user + "-pw"}); err != nil {
		t.Fatalf("login %s: %v", user, err)
	}
	return conn
}

func send(conn contract.Conn, cmd contract.Command, body any) (*contract.Response, error) {
	return conn.Send(context.Background(), &contract.Request{TransactionID: "tx", Command: cmd, Body: body})
}

func resultCode(err error) int {
	var re *contract.ResultError
	if errors.As(err, &re) {
		return re.Code
	}
	return 0
}

func TestSandbox_Login(t *testing.T) {
	sb, _ := newTestSandbox(t)
	conn, _ := sb.Connect(context.Background(), "")

	err := conn.Login(context.Background(), contract.Credentials{Username: "alice", Password: "wrong"})
	if resultCode(err) != 2200 {
		t.Fatalf("expected 2200, got %v", err)
	}
	if _, err := send(conn, contract.CmdDomainCheck, contract.DomainCheckBody{}); resultCode(err) != 2002 {
		t.Errorf("expected 2002 before login, got %v", err)
	}

	conn = login(t, sb, "alice")
	if err := conn.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := send(conn, contract.CmdDomainCheck, contract.DomainCheckBody{}); !errors.Is(err, errConnClosed) {
		t.Errorf("expected transport error after close, got %v", err)
	}
}

func TestSandbox_DomainLifecycle(t *testing.T) {
	sb, _ := newTestSandbox(t)
	conn := login(t, sb, "alice")

	resp, err := send(conn, contract.CmdContactCreate, contract.ContactCreateBody{Fields: entity.ContactFields{
		Name: "Alice", Email: "alice@example.com", Address1: "1 Main St", Country: "GB",
	}})
	if err != nil {
		t.Fatalf("contact create: %v", err)
	}
	cid := resp.Body.(*contract.ContactCreateResult).ID
	contacts := entity.ResolvedContacts{Registrant: cid, Admin: cid, Tech: cid, Billing: cid}

	for _, h := range []string{"ns1.host.net", "ns2.host.net"} {
		if _, err := send(conn, contract.CmdHostCreate, contract.HostCreateBody{Name: h}); err != nil {
			t.Fatalf("host create %s: %v", h, err)
		}
	}

	resp, err = send(conn, contract.CmdDomainCreate, contract.DomainCreateBody{
		Name: "example.com", Period: 2, Contacts: contacts, Nameservers: []string{"ns1.host.net"},
	})
	if err != nil {
		t.Fatalf("domain create: %v", err)
	}
	rec := resp.Body.(*entity.DomainRecord)
	if rec.AuthCode == "" || rec.ExpiresAt.Year() != 2028 {
		t.Errorf("unexpected record %+v", rec)
	}

	if _, err := send(conn, contract.CmdDomainCreate, contract.DomainCreateBody{Name: "example.com", Period: 1, Contacts: contacts}); resultCode(err) != 2302 {
		t.Errorf("expected 2302 on duplicate, got %v", err)
	}

	if _, err := send(conn, contract.CmdDomainUpdate, contract.DomainUpdateBody{
		Name: "example.com", AddHosts: []string{"ns2.host.net"}, RemoveHosts: []string{"ns1.host.net"},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	resp, _ = send(conn, contract.CmdDomainInfo, contract.DomainInfoBody{Name: "example.com"})
	got := resp.Body.(*entity.DomainRecord)
	if len(got.Nameservers) != 1 || got.Nameservers[0].Host != "ns2.host.net" {
		t.Errorf("expected ns2 only, got %v", got.Nameservers)
	}

	resp, err = send(conn, contract.CmdDomainRenew, contract.DomainRenewBody{Name: "example.com", Period: 1, CurrentExpiry: got.ExpiresAt})
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if resp.Body.(*contract.RenewResult).ExpiresAt.Year() != 2029 {
		t.Errorf("unexpected expiry %v", resp.Body)
	}
	if _, err := send(conn, contract.CmdDomainRenew, contract.DomainRenewBody{Name: "example.com", Period: 1, CurrentExpiry: got.ExpiresAt}); resultCode(err) != 2004 {
		t.Errorf("expected 2004 on stale expiry, got %v", err)
	}

	other := login(t, sb, "bob")
	if _, err := send(other, contract.CmdDomainInfo, contract.DomainInfoBody{Name: "example.com"}); resultCode(err) != 2201 {
		t.Errorf("expected 2201 for non-owner, got %v", err)
	}
	if _, err := send(other, contract.CmdDomainInfo, contract.DomainInfoBody{Name: "missing.com"}); resultCode(err) != 2303 {
		t.Errorf("expected 2303 for missing domain, got %v", err)
	}
}

func TestSandbox_HostCreateRequiresGlueInBailiwick(t *testing.T) {
	sb, _ := newTestSandbox(t)
	if err := sb.SeedDomain(context.Background(), "alice", "example.com", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	conn := login(t, sb, "alice")

	_, err := send(conn, contract.CmdHostCreate, contract.HostCreateBody{Name: "ns1.example.com"})
	var re *contract.ResultError
	if !errors.As(err, &re) || re.Code != 2003 || len(re.Fields) != 1 || re.Fields[0] != "addr" {
		t.Fatalf("expected 2003 on addr, got %v", err)
	}
	if len(re.Request) == 0 || len(re.Response) == 0 {
		t.Error("expected raw payloads on the error")
	}
	if _, err := send(conn, contract.CmdHostCreate, contract.HostCreateBody{Name: "ns1.example.com", Addresses: []string{"bad"}}); resultCode(err) != 2005 {
		t.Errorf("expected 2005 on bad address, got %v", err)
	}
	if _, err := send(conn, contract.CmdHostCreate, contract.HostCreateBody{Name: "ns1.example.com", Addresses: []string{"192.0.2.1"}}); err != nil {
		t.Fatalf("host create: %v", err)
	}
	if _, err := send(conn, contract.CmdHostCreate, contract.HostCreateBody{Name: "ns1.unregistered.com", Addresses: []string{"192.0.2.2"}}); resultCode(err) != 2305 {
		t.Errorf("expected 2305 for glue without its domain, got %v", err)
	}
	if _, err := send(conn, contract.CmdHostCreate, contract.HostCreateBody{Name: "ns.external.net"}); err != nil {
		t.Errorf("external host create: %v", err)
	}
	bob := login(t, sb, "bob")
	if _, err := send(bob, contract.CmdHostCreate, contract.HostCreateBody{Name: "ns2.example.com", Addresses: []string{"192.0.2.3"}}); resultCode(err) != 2201 {
		t.Errorf("expected 2201 for glue under a foreign domain, got %v", err)
	}
	resp, _ := send(conn, contract.CmdHostCheck, contract.HostCheckBody{Names: []string{"ns1.example.com", "ns9.example.com"}})
	exists := resp.Body.(*contract.HostCheckResult).Exists
	if !exists["ns1.example.com"] || exists["ns9.example.com"] {
		t.Errorf("unexpected host check %v", exists)
	}
}

func TestSandbox_TransferApproval(t *testing.T) {
	sb, clock := newTestSandbox(t, WithApproveAfter(time.Hour))
	ctx := context.Background()
	if err := sb.SeedDomain(ctx, "alice", "example.com", "secret-code"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	bob := login(t, sb, "bob")

	if _, err := send(bob, contract.CmdDomainTransfer, contract.DomainTransferBody{Name: "example.com", AuthCode: "wrong"}); resultCode(err) != 2202 {
		t.Fatalf("expected 2202, got %v", err)
	}
	resp, err := send(bob, contract.CmdTransferQuery, contract.TransferQueryBody{Name: "example.com"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := resp.Body.(*contract.RawTransferOrder).Status; got != trnClientRejectedAuth {
		t.Errorf("rejected order should be kept, got %s", got)
	}

	resp, err = send(bob, contract.CmdDomainTransfer, contract.DomainTransferBody{Name: "example.com", AuthCode: "secret-code"})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if resp.Code != 1001 || resp.Body.(*contract.RawTransferOrder).Status != trnPending {
		t.Fatalf("expected pending order, got %d %+v", resp.Code, resp.Body)
	}
	if _, err := send(bob, contract.CmdDomainTransfer, contract.DomainTransferBody{Name: "example.com", AuthCode: "secret-code"}); resultCode(err) != 2300 {
		t.Errorf("expected 2300 on resubmission, got %v", err)
	}

	clock.now = clock.now.Add(2 * time.Hour)
	resp, err = send(bob, contract.CmdDomainInfo, contract.DomainInfoBody{Name: "example.com"})
	if err != nil {
		t.Fatalf("info after approval: %v", err)
	}
	rec := resp.Body.(*entity.DomainRecord)
	if rec.Statuses.Contains(entity.StatusPendingTransfer) {
		t.Errorf("pendingTransfer should be cleared, got %v", rec.Statuses)
	}
	if rec.AuthCode == "secret-code" {
		t.Error("auth code should rotate after transfer")
	}

	resp, _ = send(bob, contract.CmdPollRequest, contract.PollRequestBody{})
	poll := resp.Body.(*contract.PollResult)
	if poll.Count != 1 || poll.Message.Type != msgTransferIn {
		t.Errorf("expected one TRANSFER_IN message, got %+v", poll)
	}

	alice := login(t, sb, "alice")
	resp, _ = send(alice, contract.CmdPollRequest, contract.PollRequestBody{})
	poll = resp.Body.(*contract.PollResult)
	if poll.Count != 2 || poll.Message.Type != msgTransferRequested {
		t.Errorf("expected requested then out messages, got %+v", poll)
	}
}

func TestSandbox_PollQueue(t *testing.T) {
	sb, _ := newTestSandbox(t)
	if err := sb.SeedDomain(context.Background(), "alice", "example.com", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	conn := login(t, sb, "alice")

	resp, _ := send(conn, contract.CmdPollRequest, contract.PollRequestBody{})
	if resp.Code != 1300 || resp.Body.(*contract.PollResult).Count != 0 {
		t.Fatalf("expected empty queue, got %+v", resp)
	}

	for i := 0; i < 2; i++ {
		if _, err := send(conn, contract.CmdDomainRenew, contract.DomainRenewBody{Name: "example.com", Period: 1}); err != nil {
			t.Fatalf("renew: %v", err)
		}
	}

	resp, _ = send(conn, contract.CmdPollRequest, contract.PollRequestBody{})
	first := resp.Body.(*contract.PollResult)
	if first.Count != 2 || first.Message.ID != "1" {
		t.Fatalf("expected FIFO head 1 of 2, got %+v", first)
	}
	if _, err := send(conn, contract.CmdPollAck, contract.PollAckBody{MessageID: first.Message.ID}); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if _, err := send(conn, contract.CmdPollAck, contract.PollAckBody{MessageID: first.Message.ID}); resultCode(err) != 2303 {
		t.Errorf("expected 2303 on second ack, got %v", err)
	}
	resp, _ = send(conn, contract.CmdPollRequest, contract.PollRequestBody{})
	if next := resp.Body.(*contract.PollResult); next.Count != 1 || next.Message.ID != "2" {
		t.Errorf("expected message 2 of 1, got %+v", next)
	}
}

func TestSandbox_ContactInfo(t *testing.T) {
	tests := []struct {
		name     string
		opts     []SandboxOption
		wantCode int
		wantBody bool
	}{
		{"unknown id is an error", nil, 2303, false},
		{"unknown id answers an empty record", []SandboxOption{WithEmptyContactInfo(true)}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb, _ := newTestSandbox(t, tt.opts...)
			conn := login(t, sb, "alice")
			resp, err := send(conn, contract.CmdContactInfo, contract.ContactInfoBody{ID: "C-NOPE"})
			if resultCode(err) != tt.wantCode {
				t.Fatalf("expected code %d, got %v", tt.wantCode, err)
			}
			if tt.wantBody && !resp.Body.(*entity.ContactRecord).IsEmpty() {
				t.Errorf("expected empty record, got %+v", resp.Body)
			}
		})
	}
}

func TestSandbox_StatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sandbox.yaml")
	sb := NewSandbox(path, sandboxProfile())
	ctx := context.Background()
	if err := sb.AddAccount(ctx, "alice", "alice-pw"); err != nil {
		t.Fatalf("add account: %v", err)
	}
	if err := sb.SeedDomain(ctx, "alice", "Example.COM", "code"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reopened := NewSandbox(path, sandboxProfile())
	conn := login(t, reopened, "alice")
	resp, err := send(conn, contract.CmdDomainInfo, contract.DomainInfoBody{Name: "example.com"})
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if rec := resp.Body.(*entity.DomainRecord); rec.Name != "example.com" || rec.AuthCode != "code" {
		t.Errorf("unexpected record %+v", rec)
	}
	if err := reopened.SeedDomain(ctx, "alice", "example.com", ""); err == nil {
		t.Error("expected duplicate seed to fail")
	}
}
