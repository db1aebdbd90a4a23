package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransactionRepository implements payment.TransactionRepository using GORM.
// Status changes are single conditional UPDATEs on status = 'PENDING'.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormTransactionRepository) WithTx(tx *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: tx}
}

// Create inserts the transaction row and assigns its ID
func (r *GormTransactionRepository) Create(ctx context.Context, t *payment.PaymentTransaction) error {
	model := models.PaymentTransactionModelFromDomain(t)
	if err := r.db.WithContext(ctx).Omit("Details").Create(model).Error; err != nil {
		return err
	}
	t.ID = model.ID
	return nil
}

// UpdateContent stores the correlation code
func (r *GormTransactionRepository) UpdateContent(ctx context.Context, id int64, content string) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentTransactionModel{}).
		Where("id = ?", id).
		Update("content", content)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateDetails inserts the bill links of a transaction
func (r *GormTransactionRepository) CreateDetails(ctx context.Context, details []payment.TransactionDetail) error {
	if len(details) == 0 {
		return nil
	}
	detailModels := make([]models.TransactionDetailModel, len(details))
	for i := range details {
		detailModels[i] = models.TransactionDetailModelFromDomain(details[i])
	}
	if err := r.db.WithContext(ctx).Create(&detailModels).Error; err != nil {
		return err
	}
	for i := range details {
		details[i].ID = detailModels[i].ID
	}
	return nil
}

// FindByID finds a transaction with its details
func (r *GormTransactionRepository) FindByID(ctx context.Context, id int64) (*payment.PaymentTransaction, error) {
	var model models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds transactions without their details
func (r *GormTransactionRepository) FindByIDs(ctx context.Context, ids []int64) ([]payment.PaymentTransaction, error) {
	if len(ids) == 0 {
		return []payment.PaymentTransaction{}, nil
	}
	var txModels []models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(txModels), nil
}

// FindStalePending returns up to limit PENDING transactions created before cutoff, oldest first
func (r *GormTransactionRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]payment.PaymentTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(payment.TransactionStatusPending), cutoff).
		Order("created_at").
		Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var txModels []models.PaymentTransactionModel
	if err := query.Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(txModels), nil
}

// SettleIfPending sets SUCCESS when the row is still PENDING
func (r *GormTransactionRepository) SettleIfPending(ctx context.Context, id int64, gatewayCode string, gatewaySettledAt *time.Time, paidAt time.Time) (bool, error) {
	return r.transitionIfPending(ctx, id, map[string]any{
		"status":             string(payment.TransactionStatusSuccess),
		"paid_at":            paidAt,
		"gateway_code":       gatewayCode,
		"gateway_settled_at": gatewaySettledAt,
		"updated_at":         paidAt,
	})
}

// FailIfPending sets FAILED when the row is still PENDING
func (r *GormTransactionRepository) FailIfPending(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.transitionIfPending(ctx, id, map[string]any{
		"status":     string(payment.TransactionStatusFailed),
		"updated_at": at,
	})
}

func (r *GormTransactionRepository) transitionIfPending(ctx context.Context, id int64, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentTransactionModel{}).
		Where("id = ? AND status = ?", id, string(payment.TransactionStatusPending)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindIDsByBillIDs returns the distinct transactions that reference any of the bills
func (r *GormTransactionRepository) FindIDsByBillIDs(ctx context.Context, billIDs []int64) ([]int64, error) {
	if len(billIDs) == 0 {
		return []int64{}, nil
	}
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionDetailModel{}).
		Where("bill_id IN ?", billIDs).
		Distinct("transaction_id").
		Order("transaction_id").
		Pluck("transaction_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteDetailsByBillIDs removes detail rows referencing the bills
func (r *GormTransactionRepository) DeleteDetailsByBillIDs(ctx context.Context, billIDs []int64) (int64, error) {
	if len(billIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("bill_id IN ?", billIDs).Delete(&models.TransactionDetailModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func toDomainTransactions(txModels []models.PaymentTransactionModel) []payment.PaymentTransaction {
	txs := make([]payment.PaymentTransaction, len(txModels))
	for i := range txModels {
		txs[i] = *txModels[i].ToDomain()
	}
	return txs
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ payment.TransactionRepository = (*GormTransactionRepository)(nil)
