package persistence

import (
	"context"

	"github.com/condo/backend/internal/application/ledger"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"gorm.io/gorm"
)

// GormTransactionScope implements ledger.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn in one database transaction, rolling back when it returns an error.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos ledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// BillRepo returns the bill repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BillRepo() billing.BillRepository {
	return NewGormBillRepository(r.tx)
}

// TransactionRepo returns the payment transaction repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TransactionRepo() payment.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

var (
	_ ledger.TransactionScope          = (*GormTransactionScope)(nil)
	_ ledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
