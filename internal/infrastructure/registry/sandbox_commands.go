package registry

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

// dispatch executes one command for user against st. It returns the reply
// body and result code, or a *contract.ResultError.
func (s *Sandbox) dispatch(st *sandboxState, user string, now time.Time, req *contract.Request) (any, int, error) {
	switch req.Command {
	case contract.CmdDomainCheck:
		return withCode(s.domainCheck(st, req.Body))
	case contract.CmdDomainInfo:
		return withCode(s.domainInfo(st, user, req.Body))
	case contract.CmdDomainCreate:
		return withCode(s.domainCreate(st, user, now, req.Body))
	case contract.CmdDomainRenew:
		return withCode(s.domainRenew(st, user, now, req.Body))
	case contract.CmdDomainUpdate:
		return withCode(s.domainUpdate(st, user, now, req.Body))
	case contract.CmdDomainTransfer:
		body, err := s.domainTransfer(st, user, now, req.Body)
		return body, 1001, err
	case contract.CmdTransferQuery:
		return withCode(s.transferQuery(st, user, req.Body))
	case contract.CmdHostCheck:
		return withCode(s.hostCheck(st, req.Body))
	case contract.CmdHostCreate:
		return withCode(s.hostCreate(st, user, req.Body))
	case contract.CmdContactInfo:
		return withCode(s.contactInfo(st, user, req.Body))
	case contract.CmdContactCreate:
		return withCode(s.contactCreate(st, user, req.Body))
	case contract.CmdPollRequest:
		return s.pollRequest(st, user)
	case contract.CmdPollAck:
		return withCode(s.pollAck(st, user, req.Body))
	}
	return nil, 0, resultErr(2101, "Unimplemented command: "+string(req.Command))
}

func withCode(body any, err error) (any, int, error) {
	return body, 1000, err
}

func bodyAs[T any](v any) (T, error) {
	switch b := v.(type) {
	case T:
		return b, nil
	case *T:
		if b != nil {
			return *b, nil
		}
	}
	var zero T
	return zero, resultErr(2001, fmt.Sprintf("Command syntax error: unexpected body %T", v))
}

func (s *Sandbox) ownedDomain(st *sandboxState, user, name string) (*sandboxDomain, error) {
	d := st.domain(name)
	if d == nil {
		return nil, resultErr(2303, "Object does not exist", "name")
	}
	if d.Owner != user {
		return nil, resultErr(2201, "Authorization error")
	}
	return d, nil
}

func (s *Sandbox) domainCheck(st *sandboxState, raw any) (any, error) {
	b, err := bodyAs[contract.DomainCheckBody](raw)
	if err != nil {
		return nil, err
	}
	items := make([]contract.CheckItem, 0, len(b.Names))
	for _, name := range b.Names {
		item := contract.CheckItem{Name: name, Available: st.domain(name) == nil}
		if !item.Available {
			item.Reason = "In use"
		} else if label, _, _ := strings.Cut(name, "."); len(label) <= 3 {
			item.Premium = true
			item.Reason = "Premium name"
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Sandbox) domainInfo(st *sandboxState, user string, raw any) (any, error) {
	b, err := bodyAs[contract.DomainInfoBody](raw)
	if err != nil {
		return nil, err
	}
	d := st.domain(b.Name)
	if d == nil {
		return nil, resultErr(2303, "Object does not exist", "name")
	}
	if d.Owner != user && (b.AuthCode == "" || b.AuthCode != d.AuthCode) {
		return nil, resultErr(2201, "Authorization error")
	}
	rec := d.Record
	rec.Statuses = append(entity.StatusSet(nil), d.Record.Statuses...)
	rec.Nameservers = append(entity.NameserverSet(nil), d.Record.Nameservers...)
	if d.Owner == user {
		rec.AuthCode = d.AuthCode
	}
	return &rec, nil
}

func (s *Sandbox) domainCreate(st *sandboxState, user string, now time.Time, raw any) (any, error) {
	b, err := bodyAs[contract.DomainCreateBody](raw)
	if err != nil {
		return nil, err
	}
	if st.domain(b.Name) != nil {
		return nil, resultErr(2302, "Object exists", "name")
	}
	if b.Period < 1 || b.Period > domain.MaxPeriodYears {
		return nil, resultErr(2004, "Parameter value range error", "period")
	}
	var missing []string
	for _, role := range entity.AllContactRoles {
		id := contactIDFor(b.Contacts, role)
		if id == "" || st.contact(id) == nil {
			missing = append(missing, string(role))
		}
	}
	if len(missing) > 0 {
		return nil, resultErr(2303, "Contact does not exist", missing...)
	}
	nameservers := make(entity.NameserverSet, 0, len(b.Nameservers))
	for _, h := range b.Nameservers {
		if st.host(h) == nil {
			return nil, resultErr(2303, "Host does not exist", "ns")
		}
		nameservers = append(nameservers, entity.Nameserver{Host: strings.ToLower(h)})
	}
	authCode := b.AuthCode
	if authCode == "" {
		authCode = newAuthCode()
	}
	d := &sandboxDomain{
		Owner:    user,
		AuthCode: authCode,
		Record: entity.DomainRecord{
			ID:          newObjectID("D"),
			Name:        strings.ToLower(b.Name),
			Statuses:    entity.StatusSet{entity.StatusOK},
			Registrant:  b.Contacts.Registrant,
			Admin:       b.Contacts.Admin,
			Tech:        b.Contacts.Tech,
			Billing:     b.Contacts.Billing,
			Nameservers: nameservers,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.AddDate(b.Period, 0, 0),
		},
	}
	st.Domains = append(st.Domains, d)
	st.touch()
	rec := d.Record
	rec.AuthCode = authCode
	return &rec, nil
}

func (s *Sandbox) domainRenew(st *sandboxState, user string, now time.Time, raw any) (any, error) {
	b, err := bodyAs[contract.DomainRenewBody](raw)
	if err != nil {
		return nil, err
	}
	d, err := s.ownedDomain(st, user, b.Name)
	if err != nil {
		return nil, err
	}
	if b.Period < 1 || b.Period > domain.MaxPeriodYears {
		return nil, resultErr(2004, "Parameter value range error", "period")
	}
	if !b.CurrentExpiry.IsZero() && !sameDay(b.CurrentExpiry, d.Record.ExpiresAt) {
		return nil, resultErr(2004, "Parameter value range error: curExpDate does not match", "curExpDate")
	}
	d.Record.ExpiresAt = d.Record.ExpiresAt.AddDate(b.Period, 0, 0)
	d.Record.UpdatedAt = now
	st.enqueue(user, msgRenewed, "Domain "+d.Record.Name+" renewed", now, d.Record.Name)
	st.touch()
	return &contract.RenewResult{ExpiresAt: d.Record.ExpiresAt}, nil
}

func (s *Sandbox) domainUpdate(st *sandboxState, user string, now time.Time, raw any) (any, error) {
	b, err := bodyAs[contract.DomainUpdateBody](raw)
	if err != nil {
		return nil, err
	}
	d, err := s.ownedDomain(st, user, b.Name)
	if err != nil {
		return nil, err
	}
	// Removing the prohibition itself is the one change allowed on a locked domain.
	if d.Record.Statuses.Contains(entity.StatusClientUpdateProhibited) &&
		!b.RemoveStatuses.Contains(entity.StatusClientUpdateProhibited) {
		return nil, resultErr(2304, "Object status prohibits operation")
	}
	for _, status := range append(append(entity.StatusSet{}, b.AddStatuses...), b.RemoveStatuses...) {
		if !strings.HasPrefix(status, "client") {
			return nil, resultErr(2306, "Parameter value policy error: only client statuses may be set", "status")
		}
	}

	nameservers := d.Record.Nameservers
	for _, h := range b.RemoveHosts {
		nameservers = nameservers.Minus(entity.NameserverSet{{Host: h}})
	}
	for _, h := range b.AddHosts {
		if st.host(h) == nil {
			return nil, resultErr(2303, "Host does not exist", "ns")
		}
		if !nameservers.Contains(h) {
			nameservers = append(nameservers, entity.Nameserver{Host: strings.ToLower(h)})
		}
	}
	if len(nameservers) > domain.MaxNameservers {
		return nil, resultErr(2306, "Parameter value policy error: too many nameservers", "ns")
	}
	if b.Registrant != "" && st.contact(b.Registrant) == nil {
		return nil, resultErr(2303, "Contact does not exist", "registrant")
	}

	d.Record.Nameservers = nameservers
	statuses := d.Record.Statuses.Minus(entity.StatusSet{entity.StatusOK}).Apply(b.AddStatuses, b.RemoveStatuses)
	if len(statuses) == 0 {
		statuses = entity.StatusSet{entity.StatusOK}
	}
	d.Record.Statuses = statuses
	if b.Registrant != "" {
		d.Record.Registrant = b.Registrant
	}
	if b.AuthCode != "" {
		d.AuthCode = b.AuthCode
	}
	d.Record.UpdatedAt = now
	st.touch()
	return nil, nil
}

func (s *Sandbox) domainTransfer(st *sandboxState, user string, now time.Time, raw any) (any, error) {
	b, err := bodyAs[contract.DomainTransferBody](raw)
	if err != nil {
		return nil, err
	}
	d := st.domain(b.Name)
	if d == nil {
		return nil, resultErr(2303, "Object does not exist", "name")
	}
	if d.Owner == user {
		return nil, resultErr(2106, "Object is not eligible for transfer")
	}
	if d.Record.Statuses.Contains(entity.StatusClientTransferProhibited) {
		return nil, resultErr(2304, "Object status prohibits operation")
	}
	if t := st.latestTransfer(d.Record.Name, user); t != nil && t.Status == trnPending {
		return nil, resultErr(2300, "Object pending transfer")
	}
	period := b.Period
	if period < 1 {
		period = domain.DefaultPeriodYears
	}

	t := &sandboxTransfer{
		ID:          newObjectID("T"),
		Domain:      d.Record.Name,
		Gaining:     user,
		Losing:      d.Owner,
		Period:      period,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	st.Transfers = append(st.Transfers, t)
	st.touch()

	if b.AuthCode != d.AuthCode {
		t.Status = trnClientRejectedAuth
		t.Message = "invalid authorization information"
		return nil, resultErr(2202, "Invalid authorization information", "authInfo")
	}

	t.Status = trnPending
	t.Message = "awaiting losing registrar"
	d.Record.Statuses = d.Record.Statuses.Minus(entity.StatusSet{entity.StatusOK}).
		Apply(entity.StatusSet{entity.StatusPendingTransfer}, nil)
	d.Record.UpdatedAt = now
	st.enqueue(d.Owner, msgTransferRequested, "Transfer of "+d.Record.Name+" requested", now, d.Record.Name)
	return rawOrder(t), nil
}

func (s *Sandbox) transferQuery(st *sandboxState, user string, raw any) (any, error) {
	b, err := bodyAs[contract.TransferQueryBody](raw)
	if err != nil {
		return nil, err
	}
	t := st.latestTransfer(b.Name, user)
	if t == nil {
		return nil, resultErr(2303, "No transfer order exists", "name")
	}
	return rawOrder(t), nil
}

func rawOrder(t *sandboxTransfer) *contract.RawTransferOrder {
	return &contract.RawTransferOrder{
		ID:          t.ID,
		Domain:      t.Domain,
		Status:      t.Status,
		Message:     t.Message,
		SubmittedAt: t.SubmittedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (s *Sandbox) hostCheck(st *sandboxState, raw any) (any, error) {
	b, err := bodyAs[contract.HostCheckBody](raw)
	if err != nil {
		return nil, err
	}
	res := &contract.HostCheckResult{Exists: make(map[string]bool, len(b.Names))}
	for _, name := range b.Names {
		res.Exists[name] = st.host(name) != nil
	}
	return res, nil
}

func (s *Sandbox) hostCreate(st *sandboxState, user string, raw any) (any, error) {
	b, err := bodyAs[contract.HostCreateBody](raw)
	if err != nil {
		return nil, err
	}
	if st.host(b.Name) != nil {
		return nil, resultErr(2302, "Object exists", "name")
	}
	// Glue belongs to the superordinate domain, which must already exist
	// and be sponsored by the caller.
	var parent *sandboxDomain
	for _, d := range st.Domains {
		if entity.InBailiwick(b.Name, d.Record.Name) {
			parent = d
			break
		}
	}
	switch {
	case parent == nil && len(b.Addresses) > 0:
		return nil, resultErr(2305, "Object association prohibits operation", "addr")
	case parent != nil && parent.Owner != user:
		return nil, resultErr(2201, "Authorization error", "name")
	case parent != nil && len(b.Addresses) == 0:
		return nil, resultErr(2003, "Required parameter missing", "addr")
	}
	addrs := make([]string, 0, len(b.Addresses))
	for _, a := range b.Addresses {
		ip, err := netip.ParseAddr(a)
		if err != nil {
			return nil, resultErr(2005, "Parameter value syntax error", "addr")
		}
		addrs = append(addrs, ip.String())
	}
	st.Hosts = append(st.Hosts, &sandboxHost{Name: strings.ToLower(b.Name), Owner: user, Addresses: addrs})
	st.touch()
	return nil, nil
}

func (s *Sandbox) contactInfo(st *sandboxState, user string, raw any) (any, error) {
	b, err := bodyAs[contract.ContactInfoBody](raw)
	if err != nil {
		return nil, err
	}
	c := st.contact(b.ID)
	if c == nil {
		if s.emptyContact {
			return &entity.ContactRecord{ID: b.ID}, nil
		}
		return nil, resultErr(2303, "Object does not exist", "id")
	}
	if c.Owner != user {
		return nil, resultErr(2201, "Authorization error")
	}
	rec := c.Record
	return &rec, nil
}

func (s *Sandbox) contactCreate(st *sandboxState, user string, raw any) (any, error) {
	b, err := bodyAs[contract.ContactCreateBody](raw)
	if err != nil {
		return nil, err
	}
	var missing []string
	if b.Fields.Name == "" && b.Fields.Organisation == "" {
		missing = append(missing, "name")
	}
	if b.Fields.Email == "" {
		missing = append(missing, "email")
	}
	if b.Fields.Address1 == "" {
		missing = append(missing, "street")
	}
	if b.Fields.Country == "" {
		missing = append(missing, "cc")
	}
	if len(missing) > 0 {
		return nil, resultErr(2003, "Required parameter missing", missing...)
	}
	id := newObjectID("C")
	st.Contacts = append(st.Contacts, &sandboxContact{Owner: user, Record: *entity.NewContactRecord(id, b.Fields)})
	st.touch()
	return &contract.ContactCreateResult{ID: id}, nil
}

func (s *Sandbox) pollRequest(st *sandboxState, user string) (any, int, error) {
	q := st.queue(user)
	if len(q) == 0 {
		return &contract.PollResult{}, 1300, nil
	}
	m := q[0]
	return &contract.PollResult{
		Count: len(q),
		Message: &contract.PollMessage{
			ID:      strconv.FormatInt(m.ID, 10),
			Type:    m.Type,
			Text:    m.Text,
			Domains: append([]string(nil), m.Domains...),
			Time:    m.Time,
			Raw:     rawPayload(1301, m),
		},
	}, 1301, nil
}

func (s *Sandbox) pollAck(st *sandboxState, user string, raw any) (any, error) {
	b, err := bodyAs[contract.PollAckBody](raw)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(b.MessageID, 10, 64)
	if err != nil {
		return nil, resultErr(2005, "Parameter value syntax error", "msgID")
	}
	for i, m := range st.Messages {
		if m.ID == id && m.Account == user {
			st.Messages = append(st.Messages[:i], st.Messages[i+1:]...)
			st.touch()
			return nil, nil
		}
	}
	return nil, resultErr(2303, "Message does not exist", "msgID")
}

func contactIDFor(c entity.ResolvedContacts, role entity.ContactRole) string {
	switch role {
	case entity.RoleRegistrant:
		return c.Registrant
	case entity.RoleAdmin:
		return c.Admin
	case entity.RoleTech:
		return c.Tech
	case entity.RoleBilling:
		return c.Billing
	}
	return ""
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
