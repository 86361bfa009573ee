package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

var pollProfile = contract.Profile{
	NotificationTypes: map[string]entity.NotificationType{
		"TRANSFER_IN":  entity.NotificationTransferIn,
		"TRANSFER_OUT": entity.NotificationTransferOut,
		"RENEWAL":      entity.NotificationRenewed,
	},
}

// fakeQueue is a registry message queue. Dequeue peeks at the head; only an
// acknowledgement removes it.
type fakeQueue struct {
	messages []contract.PollMessage
	acked    []string
	onPoll   func()
	failAt   int
	polls    int
}

func (q *fakeQueue) sender() *scriptedSender {
	return newScriptedSender().
		on(contract.CmdPollRequest, func(body any) (any, error) {
			q.polls++
			if q.onPoll != nil {
				q.onPoll()
			}
			if q.failAt > 0 && q.polls == q.failAt {
				return nil, registryErr(domain.KindUnknown, contract.CmdPollRequest, 2400)
			}
			if len(q.messages) == 0 {
				return &contract.PollResult{Count: 0}, nil
			}
			head := q.messages[0]
			return &contract.PollResult{Count: len(q.messages), Message: &head}, nil
		}).
		on(contract.CmdPollAck, func(body any) (any, error) {
			id := body.(contract.PollAckBody).MessageID
			q.acked = append(q.acked, id)
			if len(q.messages) > 0 && q.messages[0].ID == id {
				q.messages = q.messages[1:]
			}
			return nil, nil
		})
}

func msgs(types ...string) []contract.PollMessage {
	out := make([]contract.PollMessage, len(types))
	for i, typ := range types {
		out[i] = contract.PollMessage{
			ID:      fmt.Sprintf("M-%d", i+1),
			Type:    typ,
			Text:    typ + " message",
			Domains: []string{"Example.com."},
			Time:    fixedNow.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestNotificationPoller_FiltersButAcknowledges(t *testing.T) {
	q := &fakeQueue{messages: msgs("CONTACT_CHANGE", "transfer_in", "HOST_DELETED")}
	q.messages[1].Type = "TRANSFER_IN"
	s := q.sender()

	res, err := NewNotificationPoller("test", s, pollProfile).Poll(context.Background(), 10, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(res.Notifications))
	}
	n := res.Notifications[0]
	if n.Type != entity.NotificationTransferIn || n.ID != "M-2" || n.Registry != "test" {
		t.Errorf("unexpected notification %+v", n)
	}
	if len(n.Domains) != 1 || n.Domains[0] != "example.com" {
		t.Errorf("expected normalized domain, got %v", n.Domains)
	}
	if res.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", res.Remaining)
	}
	if s.count(contract.CmdPollAck) != 3 || res.Acknowledged != 3 || res.Skipped != 2 {
		t.Errorf("expected 3 acks and 2 skips, got %d/%d/%d", s.count(contract.CmdPollAck), res.Acknowledged, res.Skipped)
	}
}

func TestNotificationPoller_Limit(t *testing.T) {
	q := &fakeQueue{messages: msgs("RENEWAL", "RENEWAL", "RENEWAL", "RENEWAL", "RENEWAL")}
	s := q.sender()

	res, err := NewNotificationPoller("test", s, pollProfile).Poll(context.Background(), 2, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Notifications) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(res.Notifications))
	}
	if res.Remaining != 4 {
		t.Errorf("expected last observed count 4, got %d", res.Remaining)
	}
	if len(q.messages) != 3 {
		t.Errorf("expected 3 messages left in queue, got %d", len(q.messages))
	}
}

func TestNotificationPoller_StaleRemainingIsPreserved(t *testing.T) {
	q := &fakeQueue{messages: msgs("RENEWAL", "CONTACT_CHANGE", "CONTACT_CHANGE")}

	res, err := NewNotificationPoller("test", q.sender(), pollProfile).Poll(context.Background(), 1, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Remaining != 3 {
		t.Errorf("expected the count reported at dequeue time, got %d", res.Remaining)
	}
}

func TestNotificationPoller_Budget(t *testing.T) {
	now := fixedNow
	q := &fakeQueue{
		messages: msgs("RENEWAL", "RENEWAL", "RENEWAL", "RENEWAL", "RENEWAL", "RENEWAL"),
		onPoll:   func() { now = now.Add(25 * time.Second) },
	}
	s := q.sender()
	p := NewNotificationPoller("test", s, pollProfile, WithPollClock(func() time.Time { return now }))

	res, err := p.Poll(context.Background(), 10, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Notifications) != 3 {
		t.Errorf("expected 3 notifications before the budget ran out, got %d", len(res.Notifications))
	}
	if s.count(contract.CmdPollRequest) != 3 {
		t.Errorf("expected no request after the budget, got %d", s.count(contract.CmdPollRequest))
	}
}

func TestNotificationPoller_Since(t *testing.T) {
	q := &fakeQueue{messages: msgs("RENEWAL", "RENEWAL", "RENEWAL")}

	res, err := NewNotificationPoller("test", q.sender(), pollProfile).Poll(context.Background(), 10, fixedNow.Add(90*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Notifications) != 1 || res.Notifications[0].ID != "M-3" {
		t.Errorf("expected only M-3, got %+v", res.Notifications)
	}
	if len(q.acked) != 3 {
		t.Errorf("expected every message acknowledged, got %v", q.acked)
	}
}

func TestNotificationPoller_AcknowledgesEachMessageOnce(t *testing.T) {
	q := &fakeQueue{messages: msgs("RENEWAL", "CONTACT_CHANGE", "TRANSFER_OUT", "CONTACT_CHANGE")}

	if _, err := NewNotificationPoller("test", q.sender(), pollProfile).Poll(context.Background(), 10, time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[string]int)
	for _, id := range q.acked {
		seen[id]++
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 distinct acks, got %v", q.acked)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("%s acknowledged %d times", id, n)
		}
	}
}

func TestNotificationPoller_ErrorReturnsPartial(t *testing.T) {
	q := &fakeQueue{messages: msgs("RENEWAL", "RENEWAL", "RENEWAL"), failAt: 2}

	res, err := NewNotificationPoller("test", q.sender(), pollProfile).Poll(context.Background(), 10, time.Time{})
	if !errors.Is(err, domain.ErrRegistryUnknown) {
		t.Fatalf("expected registry error, got %v", err)
	}
	if res == nil || len(res.Notifications) != 1 {
		t.Fatalf("expected the already acknowledged notification, got %+v", res)
	}
}

func TestNotificationPoller_ZeroLimit(t *testing.T) {
	q := &fakeQueue{messages: msgs("RENEWAL")}
	s := q.sender()

	res, err := NewNotificationPoller("test", s, pollProfile).Poll(context.Background(), 0, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Notifications) != 0 || len(s.calls) != 0 {
		t.Errorf("expected no work, got %d notifications and %d calls", len(res.Notifications), len(s.calls))
	}
}
