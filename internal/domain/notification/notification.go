// Package notification holds the resident inbox written after billing and payment events.
package notification

import (
	"context"
	"time"
)

// NotificationType classifies inbox entries
type NotificationType string

const (
	NotificationTypeNewBill       NotificationType = "NEW_BILL"
	NotificationTypePaymentResult NotificationType = "PAYMENT_RESULT"
	NotificationTypeGeneral       NotificationType = "GENERAL"
)

// Notification is one inbox entry for a resident
type Notification struct {
	ID         int64
	ResidentID int64
	Type       NotificationType
	Title      string
	Content    string
	// RelatedID is the bill or transaction the entry is about
	RelatedID int64
	// SourceEventID deduplicates entries produced by redelivered events
	SourceEventID string
	IsRead        bool
	CreatedAt     time.Time
}

// NotificationRepository defines the interface for notification persistence
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	FindByResident(ctx context.Context, residentID int64, limit int) ([]Notification, error)
}
