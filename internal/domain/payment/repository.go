package payment

import (
	"context"
	"time"
)

// TransactionRepository defines the interface for payment transaction persistence.
//
// State changes go through compare-and-set methods that only touch PENDING rows,
// so concurrent webhook deliveries and the expiry sweeper can race safely:
// the loser sees zero affected rows and treats it as a no-op.
type TransactionRepository interface {
	// Create inserts the transaction row (without details) and assigns its ID
	Create(ctx context.Context, t *PaymentTransaction) error

	// UpdateContent stores the correlation code of a freshly created transaction
	UpdateContent(ctx context.Context, id int64, content string) error

	// CreateDetails inserts the transaction's bill links
	CreateDetails(ctx context.Context, details []TransactionDetail) error

	// FindByID finds a transaction with its details
	FindByID(ctx context.Context, id int64) (*PaymentTransaction, error)

	// FindByIDs finds transactions (without details)
	FindByIDs(ctx context.Context, ids []int64) ([]PaymentTransaction, error)

	// FindStalePending returns up to limit PENDING transactions created before cutoff, oldest first
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]PaymentTransaction, error)

	// SettleIfPending sets SUCCESS when the row is still PENDING; false means nothing changed
	SettleIfPending(ctx context.Context, id int64, gatewayCode string, gatewaySettledAt *time.Time, paidAt time.Time) (bool, error)

	// FailIfPending sets FAILED when the row is still PENDING; false means nothing changed
	FailIfPending(ctx context.Context, id int64, at time.Time) (bool, error)

	// FindIDsByBillIDs returns the distinct transactions that reference any of the bills
	FindIDsByBillIDs(ctx context.Context, billIDs []int64) ([]int64, error)

	// DeleteDetailsByBillIDs removes detail rows referencing the bills
	DeleteDetailsByBillIDs(ctx context.Context, billIDs []int64) (int64, error)
}
