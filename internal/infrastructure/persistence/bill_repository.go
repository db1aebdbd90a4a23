package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBillRepository implements billing.BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormBillRepository) WithTx(tx *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: tx}
}

// Create inserts the bill and assigns its ID
func (r *GormBillRepository) Create(ctx context.Context, bill *billing.Bill) error {
	model := models.BillModelFromDomain(bill)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	bill.ID = model.ID
	return nil
}

// FindByID finds a bill by its ID
func (r *GormBillRepository) FindByID(ctx context.Context, id int64) (*billing.Bill, error) {
	var model models.BillModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds bills by ID, ordered by ID
func (r *GormBillRepository) FindByIDs(ctx context.Context, ids []int64) ([]billing.Bill, error) {
	if len(ids) == 0 {
		return []billing.Bill{}, nil
	}
	var billModels []models.BillModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id").
		Find(&billModels).Error; err != nil {
		return nil, err
	}
	return toDomainBills(billModels), nil
}

// FindByDeadline finds bills of the given types due on the deadline date
func (r *GormBillRepository) FindByDeadline(ctx context.Context, deadline time.Time, types []billing.BillType) ([]billing.Bill, error) {
	query := r.db.WithContext(ctx).Where("deadline = ?", deadline)
	if len(types) > 0 {
		query = query.Where("type IN ?", billTypeStrings(types))
	}
	var billModels []models.BillModel
	if err := query.Order("id").Find(&billModels).Error; err != nil {
		return nil, err
	}
	return toDomainBills(billModels), nil
}

// DeleteByIDs deletes bills and returns the number removed
func (r *GormBillRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.BillModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkPaid flips UNPAID bills to PAID and returns the number of rows changed
func (r *GormBillRepository) MarkPaid(ctx context.Context, ids []int64, method billing.PaymentMethod, paidAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where("id IN ? AND status = ?", ids, string(billing.BillStatusUnpaid)).
		Updates(map[string]any{
			"status":         string(billing.BillStatusPaid),
			"payment_method": string(method),
			"paid_at":        paidAt,
			"updated_at":     paidAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List returns a page of bills and the total count
func (r *GormBillRepository) List(ctx context.Context, filter billing.BillFilter) ([]billing.Bill, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BillModel{})
	if filter.ApartmentID != "" {
		query = query.Where("apartment_id = ?", filter.ApartmentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	orderBy := ValidateSortField(filter.OrderBy, BillSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir).Order("id " + orderDir)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var billModels []models.BillModel
	if err := query.Find(&billModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainBills(billModels), total, nil
}

func toDomainBills(billModels []models.BillModel) []billing.Bill {
	bills := make([]billing.Bill, len(billModels))
	for i := range billModels {
		bills[i] = *billModels[i].ToDomain()
	}
	return bills
}

func billTypeStrings(types []billing.BillType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// Ensure GormBillRepository implements BillRepository
var _ billing.BillRepository = (*GormBillRepository)(nil)
