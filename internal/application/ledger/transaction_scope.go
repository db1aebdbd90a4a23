// Package ledger defines the atomic unit of work shared by billing and payment services.
package ledger

import (
	"context"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
)

// TransactionScope provides transactional access to the bill and payment ledgers.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledgers within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	BillRepo() billing.BillRepository
	TransactionRepo() payment.TransactionRepository
}
