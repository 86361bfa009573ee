package entity

import "time"

type NotificationType string

const (
	NotificationTransferIn  NotificationType = "transfer-in"
	NotificationTransferOut NotificationType = "transfer-out"
	NotificationRenewed     NotificationType = "renewed"
	NotificationSuspended   NotificationType = "suspended"
	NotificationDeleted     NotificationType = "deleted"
	NotificationDataQuality NotificationType = "data-quality"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTransferIn, NotificationTransferOut, NotificationRenewed,
		NotificationSuspended, NotificationDeleted, NotificationDataQuality:
		return true
	}
	return false
}

// Notification is a registry queue message that has already been
// acknowledged and therefore no longer exists at the registry.
type Notification struct {
	ID       string           `yaml:"id" json:"id"`
	Registry string           `yaml:"registry" json:"registry"`
	Type     NotificationType `yaml:"type" json:"type"`
	Message  string           `yaml:"message" json:"message"`
	Domains  []string         `yaml:"domains" json:"domains"`
	Time     time.Time        `yaml:"time" json:"time"`
	Raw      []byte           `yaml:"-" json:"-"`
}
