package persistence

import (
	"context"
	"errors"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMeterReadingRepository implements billing.MeterReadingRepository using GORM
type GormMeterReadingRepository struct {
	db *gorm.DB
}

// NewGormMeterReadingRepository creates a new GormMeterReadingRepository
func NewGormMeterReadingRepository(db *gorm.DB) *GormMeterReadingRepository {
	return &GormMeterReadingRepository{db: db}
}

// FindByPeriod returns every reading recorded for the period, ordered by apartment
func (r *GormMeterReadingRepository) FindByPeriod(ctx context.Context, period billing.Period) ([]billing.MeterReading, error) {
	var readingModels []models.MeterReadingModel
	if err := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", period.Year, period.Month).
		Order("apartment_id").
		Find(&readingModels).Error; err != nil {
		return nil, err
	}
	readings := make([]billing.MeterReading, len(readingModels))
	for i := range readingModels {
		readings[i] = *readingModels[i].ToDomain()
	}
	return readings, nil
}

// FindByApartmentAndPeriod finds the reading of one apartment
func (r *GormMeterReadingRepository) FindByApartmentAndPeriod(ctx context.Context, apartmentID string, period billing.Period) (*billing.MeterReading, error) {
	var model models.MeterReadingModel
	if err := r.db.WithContext(ctx).
		Where("apartment_id = ? AND year = ? AND month = ?", apartmentID, period.Year, period.Month).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert creates the reading or replaces the indices of the existing one
func (r *GormMeterReadingRepository) Upsert(ctx context.Context, reading *billing.MeterReading) error {
	model := models.MeterReadingModelFromDomain(reading)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "apartment_id"}, {Name: "year"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"electricity_old", "electricity_new", "water_old", "water_new", "updated_at",
			}),
		}).
		Create(model).Error; err != nil {
		return err
	}
	if model.ID != 0 {
		reading.ID = model.ID
	}
	return nil
}

var _ billing.MeterReadingRepository = (*GormMeterReadingRepository)(nil)
