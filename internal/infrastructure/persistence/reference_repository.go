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

// GormApartmentRepository implements billing.ApartmentRepository using GORM
type GormApartmentRepository struct {
	db *gorm.DB
}

// NewGormApartmentRepository creates a new GormApartmentRepository
func NewGormApartmentRepository(db *gorm.DB) *GormApartmentRepository {
	return &GormApartmentRepository{db: db}
}

// FindAll returns every apartment ordered by ID
func (r *GormApartmentRepository) FindAll(ctx context.Context) ([]billing.Apartment, error) {
	var aptModels []models.ApartmentModel
	if err := r.db.WithContext(ctx).Order("id").Find(&aptModels).Error; err != nil {
		return nil, err
	}
	apartments := make([]billing.Apartment, len(aptModels))
	for i := range aptModels {
		apartments[i] = *aptModels[i].ToDomain()
	}
	return apartments, nil
}

// FindByID finds an apartment by its code
func (r *GormApartmentRepository) FindByID(ctx context.Context, id string) (*billing.Apartment, error) {
	var model models.ApartmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or replaces an apartment; used by seeding and tests
func (r *GormApartmentRepository) Save(ctx context.Context, apt *billing.Apartment) error {
	model := models.ApartmentModel{ID: apt.ID, BuildingID: apt.BuildingID}
	if apt.Area.IsPositive() {
		model.Area.Decimal = apt.Area
		model.Area.Valid = true
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&model).Error
}

// GormResidentRepository implements billing.ResidentRepository using GORM
type GormResidentRepository struct {
	db *gorm.DB
}

// NewGormResidentRepository creates a new GormResidentRepository
func NewGormResidentRepository(db *gorm.DB) *GormResidentRepository {
	return &GormResidentRepository{db: db}
}

// FindByID finds a resident by ID
func (r *GormResidentRepository) FindByID(ctx context.Context, id int64) (*billing.Resident, error) {
	var model models.ResidentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOwner returns the apartment owner, falling back to the longest-registered resident
func (r *GormResidentRepository) FindOwner(ctx context.Context, apartmentID string) (*billing.Resident, error) {
	var model models.ResidentModel
	if err := r.db.WithContext(ctx).
		Where("apartment_id = ?", apartmentID).
		Order("is_owner DESC").
		Order("id").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a resident and assigns its ID; used by seeding and tests
func (r *GormResidentRepository) Create(ctx context.Context, res *billing.Resident) error {
	model := models.ResidentModel{
		ApartmentID: res.ApartmentID,
		FullName:    res.FullName,
		IsOwner:     res.IsOwner,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	res.ID = model.ID
	return nil
}

var (
	_ billing.ApartmentRepository = (*GormApartmentRepository)(nil)
	_ billing.ResidentRepository  = (*GormResidentRepository)(nil)
)
