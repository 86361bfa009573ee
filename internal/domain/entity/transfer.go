package entity

import (
	"fmt"
	"time"
)

type TransferOrderStatus string

const (
	OrderRequested           TransferOrderStatus = "requested"
	OrderPendingRegistrant   TransferOrderStatus = "pending-registrant"
	OrderPendingRegistry     TransferOrderStatus = "pending-registry"
	OrderInProgress          TransferOrderStatus = "in-progress"
	OrderFailedNeedsAuthCode TransferOrderStatus = "failed-needs-auth-code"
	OrderCompleted           TransferOrderStatus = "completed"
	OrderCancelled           TransferOrderStatus = "cancelled"
)

func (s TransferOrderStatus) Valid() bool {
	switch s {
	case OrderRequested, OrderPendingRegistrant, OrderPendingRegistry, OrderInProgress,
		OrderFailedNeedsAuthCode, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Active orders block a new transfer request for the same domain.
func (s TransferOrderStatus) Active() bool {
	switch s {
	case OrderRequested, OrderPendingRegistrant, OrderPendingRegistry, OrderInProgress:
		return true
	}
	return false
}

func (s TransferOrderStatus) NeedsAuthCode() bool {
	return s == OrderFailedNeedsAuthCode
}

type TransferOrder struct {
	ID          string              `yaml:"id" json:"id"`
	Domain      string              `yaml:"domain" json:"domain"`
	Registry    string              `yaml:"registry,omitempty" json:"registry,omitempty"`
	Status      TransferOrderStatus `yaml:"status" json:"status"`
	Message     string              `yaml:"message,omitempty" json:"message,omitempty"`
	SubmittedAt time.Time           `yaml:"submitted_at" json:"submitted_at"`
	UpdatedAt   time.Time           `yaml:"updated_at" json:"updated_at"`
}

func (o *TransferOrder) PendingFor(now time.Time) time.Duration {
	if o.SubmittedAt.IsZero() || now.Before(o.SubmittedAt) {
		return 0
	}
	return now.Sub(o.SubmittedAt).Truncate(time.Second)
}

type TransferState string

const (
	TransferNotOwned  TransferState = "not-owned"
	TransferRequested TransferState = "transfer-requested"
	TransferPending   TransferState = "pending"
	TransferCompleted TransferState = "completed"
	TransferFailed    TransferState = "failed"
)

// TransferStatus is the outcome of one step of the transfer workflow.
type TransferStatus struct {
	Domain     string         `yaml:"domain" json:"domain"`
	State      TransferState  `yaml:"state" json:"state"`
	Order      *TransferOrder `yaml:"order,omitempty" json:"order,omitempty"`
	Record     *DomainRecord  `yaml:"record,omitempty" json:"record,omitempty"`
	PendingFor time.Duration  `yaml:"pending_for,omitempty" json:"pending_for,omitempty"`
	Message    string         `yaml:"message" json:"message"`
}

func (s *TransferStatus) String() string {
	if s.Order != nil {
		return fmt.Sprintf("%s: %s (order %s, %s)", s.Domain, s.State, s.Order.ID, s.Order.Status)
	}
	return fmt.Sprintf("%s: %s", s.Domain, s.State)
}
