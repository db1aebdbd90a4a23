package models

import (
	"time"

	"github.com/condo/backend/internal/domain/notification"
)

// NotificationModel is one resident inbox entry
type NotificationModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	ResidentID    int64     `gorm:"not null;index;uniqueIndex:idx_notification_source,priority:2"`
	Type          string    `gorm:"type:varchar(20);not null"`
	Title         string    `gorm:"type:varchar(200);not null"`
	Content       string    `gorm:"type:text;not null"`
	RelatedID     int64     `gorm:"not null;default:0"`
	SourceEventID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_notification_source,priority:1"`
	IsRead        bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the model to a domain Notification
func (m *NotificationModel) ToDomain() *notification.Notification {
	return &notification.Notification{
		ID:            m.ID,
		ResidentID:    m.ResidentID,
		Type:          notification.NotificationType(m.Type),
		Title:         m.Title,
		Content:       m.Content,
		RelatedID:     m.RelatedID,
		SourceEventID: m.SourceEventID,
		IsRead:        m.IsRead,
		CreatedAt:     m.CreatedAt,
	}
}

// NotificationModelFromDomain creates a persistence model from a domain Notification
func NotificationModelFromDomain(n *notification.Notification) *NotificationModel {
	return &NotificationModel{
		ID:            n.ID,
		ResidentID:    n.ResidentID,
		Type:          string(n.Type),
		Title:         n.Title,
		Content:       n.Content,
		RelatedID:     n.RelatedID,
		SourceEventID: n.SourceEventID,
		IsRead:        n.IsRead,
		CreatedAt:     n.CreatedAt,
	}
}
