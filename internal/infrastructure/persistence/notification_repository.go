package persistence

import (
	"context"

	"github.com/condo/backend/internal/domain/notification"
	"github.com/condo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNotificationRepository implements notification.NotificationRepository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create inserts the entry; a redelivered event for the same resident is ignored
func (r *GormNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	model := models.NotificationModelFromDomain(n)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_event_id"}, {Name: "resident_id"}},
			DoNothing: true,
		}).
		Create(model).Error; err != nil {
		return err
	}
	n.ID = model.ID
	return nil
}

// FindByResident returns the newest entries first
func (r *GormNotificationRepository) FindByResident(ctx context.Context, residentID int64, limit int) ([]notification.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("resident_id = ?", residentID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var notifModels []models.NotificationModel
	if err := query.Find(&notifModels).Error; err != nil {
		return nil, err
	}
	out := make([]notification.Notification, len(notifModels))
	for i := range notifModels {
		out[i] = *notifModels[i].ToDomain()
	}
	return out, nil
}

var _ notification.NotificationRepository = (*GormNotificationRepository)(nil)
