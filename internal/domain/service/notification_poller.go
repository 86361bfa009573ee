package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/contract"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

type PollResult struct {
	Notifications []entity.Notification `json:"notifications"`
	// Remaining is the queue depth reported by the last dequeue. It still
	// counts the message dequeued by that call and any messages skipped
	// afterwards, so it may be higher than the real depth.
	Remaining    int `json:"remaining"`
	Acknowledged int `json:"acknowledged"`
	Skipped      int `json:"skipped"`
}

// NotificationPoller drains the registry message queue. Every dequeued
// message is acknowledged whether it is returned or not.
type NotificationPoller struct {
	registry string
	sender   contract.Sender
	types    map[string]entity.NotificationType
	budget   time.Duration
	now      func() time.Time
}

type PollerOption func(*NotificationPoller)

func WithPollBudget(d time.Duration) PollerOption {
	return func(p *NotificationPoller) { p.budget = d }
}

func WithPollClock(now func() time.Time) PollerOption {
	return func(p *NotificationPoller) { p.now = now }
}

func NewNotificationPoller(registry string, sender contract.Sender, profile contract.Profile, opts ...PollerOption) *NotificationPoller {
	types := make(map[string]entity.NotificationType, len(profile.NotificationTypes))
	for k, v := range profile.NotificationTypes {
		types[strings.ToLower(k)] = v
	}
	p := &NotificationPoller{
		registry: registry,
		sender:   sender,
		types:    types,
		budget:   domain.PollBudget,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll collects at most limit notifications newer than since. The budget is
// checked between iterations only; a request in flight is never abandoned.
// On error the notifications collected so far are returned with it, since
// they are already gone from the registry.
func (p *NotificationPoller) Poll(ctx context.Context, limit int, since time.Time) (*PollResult, error) {
	log := logger.FromContext(ctx).With("registry", p.registry)
	res := &PollResult{Notifications: []entity.Notification{}}
	start := p.now()

	for len(res.Notifications) < limit && p.now().Sub(start) < p.budget {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		msg, err := contract.Call[*contract.PollResult](ctx, p.sender, contract.CmdPollRequest, contract.PollRequestBody{})
		if err != nil {
			return res, err
		}
		if msg == nil || msg.Count == 0 || msg.Message == nil {
			res.Remaining = 0
			break
		}
		res.Remaining = msg.Count

		if err := contract.Exec(ctx, p.sender, contract.CmdPollAck, contract.PollAckBody{MessageID: msg.Message.ID}); err != nil {
			return res, fmt.Errorf("ack message %s: %w", msg.Message.ID, err)
		}
		res.Acknowledged++

		n, ok := p.normalize(msg.Message)
		if !ok || (!since.IsZero() && !n.Time.IsZero() && n.Time.Before(since)) {
			res.Skipped++
			log.Debug("notification skipped", "id", msg.Message.ID, "type", msg.Message.Type)
			continue
		}
		res.Notifications = append(res.Notifications, n)
	}

	log.Info("notifications polled",
		"returned", len(res.Notifications), "acknowledged", res.Acknowledged,
		"skipped", res.Skipped, "remaining", res.Remaining)
	return res, nil
}

// normalize maps the registry message type; false means the message is not
// about domain names.
func (p *NotificationPoller) normalize(m *contract.PollMessage) (entity.Notification, bool) {
	key := strings.ToLower(strings.TrimSpace(m.Type))
	t, ok := p.types[key]
	if !ok {
		if candidate := entity.NotificationType(key); candidate.Valid() {
			t, ok = candidate, true
		}
	}
	if !ok || !t.Valid() {
		return entity.Notification{}, false
	}

	domains := make([]string, 0, len(m.Domains))
	for _, d := range m.Domains {
		if name, err := entity.NormalizeDomainName(d); err == nil {
			domains = append(domains, name)
		} else {
			domains = append(domains, strings.ToLower(strings.TrimSpace(d)))
		}
	}
	return entity.Notification{
		ID:       m.ID,
		Registry: p.registry,
		Type:     t,
		Message:  m.Text,
		Domains:  domains,
		Time:     utcSecond(m.Time),
		Raw:      m.Raw,
	}, true
}
