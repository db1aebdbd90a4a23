package payment

import (
	"context"
	"fmt"

	"github.com/condo/backend/internal/application/ledger"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OfflinePaymentCommand records bills collected at the management office
type OfflinePaymentCommand struct {
	ResidentID   int64                 `json:"resident_id" validate:"gt=0"`
	AccountantID int64                 `json:"accountant_id" validate:"gte=0"`
	BillIDs      []int64               `json:"bill_ids" validate:"required,min=1,dive,gt=0"`
	Method       billing.PaymentMethod `json:"method" validate:"required,oneof=CASH OFFLINE_TRANSFER"`
}

// OfflinePaymentResult describes the recorded collection
type OfflinePaymentResult struct {
	TransactionID int64           `json:"transaction_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BillIDs       []int64         `json:"bill_ids"`
}

// CollectOfflinePayment records a cash or counter payment: it creates a SUCCESS
// transaction for the bills and marks them PAID in one store transaction. If any
// bill was paid concurrently the whole collection is rolled back.
func (s *PaymentService) CollectOfflinePayment(ctx context.Context, cmd OfflinePaymentCommand) (*OfflinePaymentResult, error) {
	if err := ledger.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	billIDs := uniqueIDs(cmd.BillIDs)

	if err := s.ensureResident(ctx, cmd.ResidentID); err != nil {
		return nil, err
	}

	now := s.now()
	var tx *payment.PaymentTransaction
	err := s.txScope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		found, err := repos.BillRepo().FindByIDs(ctx, billIDs)
		if err != nil {
			return fmt.Errorf("failed to load bills: %w", err)
		}
		bills, err := loadPayableBills(found, billIDs)
		if err != nil {
			return err
		}

		tx, err = payment.NewPendingTransaction(cmd.ResidentID, bills, cmd.Method, now)
		if err != nil {
			return err
		}
		if err := s.persistNewTransaction(ctx, repos, tx); err != nil {
			return err
		}
		if _, err := repos.TransactionRepo().SettleIfPending(ctx, tx.ID, "", nil, now); err != nil {
			return fmt.Errorf("failed to settle transaction: %w", err)
		}
		marked, err := repos.BillRepo().MarkPaid(ctx, billIDs, cmd.Method, now)
		if err != nil {
			return fmt.Errorf("failed to mark bills paid: %w", err)
		}
		if int(marked) != len(billIDs) {
			return shared.NewInvalidStateError("only %d of %d bills could be marked paid", marked, len(billIDs))
		}
		return tx.Settle("", nil, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Offline payment collected",
		zap.Int64("transaction_id", tx.ID),
		zap.Int64("resident_id", tx.ResidentID),
		zap.Int64("accountant_id", cmd.AccountantID),
		zap.String("method", string(cmd.Method)),
		zap.String("amount", tx.Amount.String()))

	ledger.PublishCommitted(ctx, s.eventPublisher, s.logger,
		[]shared.DomainEvent{payment.NewPaymentSettledEvent(tx)})

	return &OfflinePaymentResult{
		TransactionID: tx.ID,
		TotalAmount:   tx.Amount,
		BillIDs:       tx.BillIDs(),
	}, nil
}
