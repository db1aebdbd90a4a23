package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/condo/backend/internal/application/ledger"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateQrCommand requests a QR transfer for a set of bills
type CreateQrCommand struct {
	ResidentID int64   `json:"resident_id" validate:"gt=0"`
	BillIDs    []int64 `json:"bill_ids" validate:"required,min=1,dive,gt=0"`
}

// QrTransactionResult is what the resident needs to pay
type QrTransactionResult struct {
	TransactionID   int64                `json:"transaction_id"`
	CorrelationCode string               `json:"correlation_code"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	QR              payment.QRDescriptor `json:"qr"`
}

// CreateQrTransaction creates a PENDING transaction for the bills and the QR
// descriptor that embeds its correlation code. The transaction and its details
// are written atomically.
func (s *PaymentService) CreateQrTransaction(ctx context.Context, cmd CreateQrCommand) (*QrTransactionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create_qr", telemetry.SpanAttrBillCount, len(cmd.BillIDs))
	defer span.End()

	res, err := s.createQrTransaction(ctx, cmd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrTransactionID, res.TransactionID)
	return res, nil
}

func (s *PaymentService) createQrTransaction(ctx context.Context, cmd CreateQrCommand) (*QrTransactionResult, error) {
	if err := ledger.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	billIDs := uniqueIDs(cmd.BillIDs)

	if err := s.ensureResident(ctx, cmd.ResidentID); err != nil {
		return nil, err
	}

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

		tx, err = payment.NewPendingTransaction(cmd.ResidentID, bills, billing.PaymentMethodOnlineQR, s.now())
		if err != nil {
			return err
		}
		return s.persistNewTransaction(ctx, repos, tx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("QR payment transaction created",
		zap.Int64("transaction_id", tx.ID),
		zap.Int64("resident_id", tx.ResidentID),
		zap.String("correlation_code", tx.Content),
		zap.String("amount", tx.Amount.String()),
		zap.Int("bills", len(tx.Details)))

	ledger.PublishCommitted(ctx, s.eventPublisher, s.logger,
		[]shared.DomainEvent{payment.NewPaymentRequestedEvent(tx)})

	return &QrTransactionResult{
		TransactionID:   tx.ID,
		CorrelationCode: tx.Content,
		TotalAmount:     tx.Amount,
		QR:              s.qrTemplate.Build(tx.Amount, tx.Content),
	}, nil
}

// persistNewTransaction inserts the transaction, derives its correlation code from
// the assigned ID and inserts the details
func (s *PaymentService) persistNewTransaction(ctx context.Context, repos ledger.TransactionalRepositories, tx *payment.PaymentTransaction) error {
	if err := repos.TransactionRepo().Create(ctx, tx); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	tx.AttachID(tx.ID)
	tx.Content = s.codec.Encode(tx.ID)
	if err := repos.TransactionRepo().UpdateContent(ctx, tx.ID, tx.Content); err != nil {
		return fmt.Errorf("failed to store correlation code: %w", err)
	}
	if err := repos.TransactionRepo().CreateDetails(ctx, tx.Details); err != nil {
		return fmt.Errorf("failed to create transaction details: %w", err)
	}
	return nil
}

func (s *PaymentService) ensureResident(ctx context.Context, residentID int64) error {
	if s.residentRepo == nil {
		return nil
	}
	if _, err := s.residentRepo.FindByID(ctx, residentID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewNotFoundError("resident %d not found", residentID)
		}
		return fmt.Errorf("failed to load resident: %w", err)
	}
	return nil
}
