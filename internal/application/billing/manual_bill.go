package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/condo/backend/internal/application/ledger"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ManualBillCommand creates a one-off bill entered by an accountant
type ManualBillCommand struct {
	ApartmentID string          `json:"apartment_id" validate:"required"`
	ActorID     int64           `json:"actor_id" validate:"gte=0"`
	Deadline    time.Time       `json:"deadline" validate:"required"`
	TypeTag     string          `json:"type_tag" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

// CreateManualBill creates a single unpaid bill. The amount must be a positive whole
// currency amount and the bill total always equals it. Manual bills are always OTHER
// bills labelled by the tag, so monthly generation never conflicts with or replaces them.
func (s *BillingService) CreateManualBill(ctx context.Context, cmd ManualBillCommand) (*billing.Bill, error) {
	if err := ledger.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	if !cmd.Amount.IsPositive() {
		return nil, shared.NewValidationError("amount must be greater than zero, got %s", cmd.Amount.String())
	}

	deadline := time.Date(cmd.Deadline.Year(), cmd.Deadline.Month(), cmd.Deadline.Day(), 0, 0, 0, 0, time.UTC)

	bill, err := billing.NewBill(cmd.ApartmentID, cmd.ActorID, deadline, billing.BillTypeOther, cmd.TypeTag, cmd.Amount, s.now())
	if err != nil {
		return nil, err
	}

	if _, err := s.apartmentRepo.FindByID(ctx, cmd.ApartmentID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("apartment %s not found", cmd.ApartmentID)
		}
		return nil, fmt.Errorf("failed to load apartment: %w", err)
	}

	err = s.txScope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		return repos.BillRepo().Create(ctx, bill)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create manual bill: %w", err)
	}

	s.logger.Info("Manual bill created",
		zap.Int64("bill_id", bill.ID),
		zap.String("apartment_id", bill.ApartmentID),
		zap.String("type", string(bill.Type)),
		zap.String("amount", bill.Amount.String()))

	ledger.PublishCommitted(ctx, s.eventPublisher, s.logger,
		[]shared.DomainEvent{billing.NewBillCreatedEvent(bill, nil, nil)})
	return bill, nil
}
