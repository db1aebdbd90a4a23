package persistence

import (
	"context"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormServiceFeeRepository implements billing.ServiceFeeRepository using GORM
type GormServiceFeeRepository struct {
	db *gorm.DB
}

// NewGormServiceFeeRepository creates a new GormServiceFeeRepository
func NewGormServiceFeeRepository(db *gorm.DB) *GormServiceFeeRepository {
	return &GormServiceFeeRepository{db: db}
}

// FindAll returns the fee schedules of every building
func (r *GormServiceFeeRepository) FindAll(ctx context.Context) ([]billing.ServiceFee, error) {
	return r.find(r.db.WithContext(ctx))
}

// FindByBuilding returns one building's fee schedule
func (r *GormServiceFeeRepository) FindByBuilding(ctx context.Context, buildingID string) ([]billing.ServiceFee, error) {
	return r.find(r.db.WithContext(ctx).Where("building_id = ?", buildingID))
}

func (r *GormServiceFeeRepository) find(query *gorm.DB) ([]billing.ServiceFee, error) {
	var feeModels []models.ServiceFeeModel
	if err := query.Order("building_id").Order("name").Find(&feeModels).Error; err != nil {
		return nil, err
	}
	fees := make([]billing.ServiceFee, len(feeModels))
	for i := range feeModels {
		fees[i] = *feeModels[i].ToDomain()
	}
	return fees, nil
}

// Upsert creates the fee or updates the one with the same building and name
func (r *GormServiceFeeRepository) Upsert(ctx context.Context, fee *billing.ServiceFee) error {
	model := models.ServiceFeeModelFromDomain(fee)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "building_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"unit_price", "kind", "updated_at"}),
		}).
		Create(model).Error; err != nil {
		return err
	}
	if model.ID != 0 {
		fee.ID = model.ID
	}
	return nil
}

var _ billing.ServiceFeeRepository = (*GormServiceFeeRepository)(nil)
