package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/condo/backend/internal/application/ledger"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GenerateBillsCommand requests the automated bills of one month
type GenerateBillsCommand struct {
	Month       int   `json:"month" validate:"min=1,max=12"`
	Year        int   `json:"year" validate:"min=2000,max=9999"`
	DeadlineDay int   `json:"deadline_day" validate:"min=1,max=31"`
	ActorID     int64 `json:"actor_id" validate:"gte=0"`
	Overwrite   bool  `json:"overwrite"`
}

// GenerateBillsResult summarizes a generation run
type GenerateBillsResult struct {
	Period             billing.Period           `json:"period"`
	Deadline           time.Time                `json:"deadline"`
	Created            int                      `json:"created"`
	Replaced           int                      `json:"replaced"`
	FailedTransactions int                      `json:"failed_transactions"`
	ByType             map[billing.BillType]int `json:"by_type"`
	Total              decimal.Decimal          `json:"total"`
}

// billDraft is a bill computed from reference data, not yet persisted
type billDraft struct {
	bill    *billing.Bill
	reading *billing.ReadingDetail
}

// GenerateMonthlyBills creates the electricity, water and fixed-service bills of a month.
//
// Existing automated bills with the same deadline cause a conflict unless Overwrite is set,
// in which case they are replaced. Every bill of the run is committed in one transaction;
// BillCreated events are published only after the commit.
func (s *BillingService) GenerateMonthlyBills(ctx context.Context, cmd GenerateBillsCommand) (*GenerateBillsResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "generate_monthly_bills",
		telemetry.SpanAttrPeriod, fmt.Sprintf("%02d/%d", cmd.Month, cmd.Year))
	defer span.End()

	result, err := s.generateMonthlyBills(ctx, cmd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "bills_created", result.Created, "bills_replaced", result.Replaced)
	return result, nil
}

func (s *BillingService) generateMonthlyBills(ctx context.Context, cmd GenerateBillsCommand) (*GenerateBillsResult, error) {
	if err := ledger.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	period := billing.Period{Month: cmd.Month, Year: cmd.Year}
	deadline := period.Deadline(cmd.DeadlineDay)
	now := s.now()

	drafts, err := s.draftBills(ctx, period, deadline, cmd.ActorID, now)
	if err != nil {
		return nil, err
	}

	result := &GenerateBillsResult{
		Period:   period,
		Deadline: deadline,
		ByType:   make(map[billing.BillType]int),
		Total:    decimal.Zero,
	}
	var events []shared.DomainEvent

	err = s.txScope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		events = events[:0]
		result.Replaced, result.FailedTransactions = 0, 0

		replaced, failedEvents, err := s.clearPeriod(ctx, repos, period, deadline, cmd.Overwrite, now)
		if err != nil {
			return err
		}
		result.Replaced = replaced
		result.FailedTransactions = len(failedEvents)
		events = append(events, failedEvents...)

		for _, draft := range drafts {
			if err := repos.BillRepo().Create(ctx, draft.bill); err != nil {
				return fmt.Errorf("failed to create %s bill for apartment %s: %w",
					draft.bill.Type, draft.bill.ApartmentID, err)
			}
			events = append(events, billing.NewBillCreatedEvent(draft.bill, &period, draft.reading))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Monthly bill generation failed",
			zap.String("period", period.String()),
			zap.Bool("overwrite", cmd.Overwrite),
			zap.Error(err))
		return nil, err
	}

	for _, draft := range drafts {
		result.Created++
		result.ByType[draft.bill.Type]++
		result.Total = result.Total.Add(draft.bill.Total)
	}

	s.logger.Info("Monthly bills generated",
		zap.String("period", period.String()),
		zap.Time("deadline", deadline),
		zap.Int("created", result.Created),
		zap.Int("replaced", result.Replaced),
		zap.Int("failed_transactions", result.FailedTransactions),
		zap.String("total", result.Total.String()))

	ledger.PublishCommitted(ctx, s.eventPublisher, s.logger, events)
	return result, nil
}

// draftBills computes every bill of the period from readings, tariffs and fees
func (s *BillingService) draftBills(ctx context.Context, period billing.Period, deadline time.Time, actorID int64, now time.Time) ([]billDraft, error) {
	apartments, err := s.apartmentRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load apartments: %w", err)
	}
	readings, err := s.readingRepo.FindByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load meter readings: %w", err)
	}
	fees, err := s.feeRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load service fees: %w", err)
	}

	readingByApartment := make(map[string]*billing.MeterReading, len(readings))
	for i := range readings {
		readingByApartment[readings[i].ApartmentID] = &readings[i]
	}

	sort.Slice(apartments, func(i, j int) bool { return apartments[i].ID < apartments[j].ID })

	drafts := make([]billDraft, 0, len(apartments)*3)
	for i := range apartments {
		apt := &apartments[i]

		if reading, ok := readingByApartment[apt.ID]; ok {
			if cost := billing.ElectricityCost(reading.ElectricityConsumption()); cost.IsPositive() {
				b, err := billing.NewBill(apt.ID, actorID, deadline, billing.BillTypeElectricity, "", cost, now)
				if err != nil {
					return nil, err
				}
				drafts = append(drafts, billDraft{bill: b, reading: reading.ElectricityDetail()})
			}
			if cost := billing.WaterCost(reading.WaterConsumption()); cost.IsPositive() {
				b, err := billing.NewBill(apt.ID, actorID, deadline, billing.BillTypeWater, "", cost, now)
				if err != nil {
					return nil, err
				}
				drafts = append(drafts, billDraft{bill: b, reading: reading.WaterDetail()})
			}
		}

		if total := billing.FixedServiceTotal(fees, apt); total.IsPositive() {
			b, err := billing.NewBill(apt.ID, actorID, deadline, billing.BillTypeService, "", total, now)
			if err != nil {
				return nil, err
			}
			drafts = append(drafts, billDraft{bill: b})
		}
	}
	return drafts, nil
}

// clearPeriod enforces the overwrite rule. With overwrite it deletes the period's
// automated bills, their payment details, and fails pending transactions that paid for them.
func (s *BillingService) clearPeriod(
	ctx context.Context,
	repos ledger.TransactionalRepositories,
	period billing.Period,
	deadline time.Time,
	overwrite bool,
	now time.Time,
) (int, []shared.DomainEvent, error) {
	existing, err := repos.BillRepo().FindByDeadline(ctx, deadline, billing.AutomatedBillTypes())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to check existing bills: %w", err)
	}
	if len(existing) == 0 {
		return 0, nil, nil
	}
	if !overwrite {
		return 0, nil, shared.NewConflictError("bills for period %s (deadline %s) already exist",
			period.String(), deadline.Format(time.DateOnly))
	}
	for i := range existing {
		if existing[i].IsPaid() {
			return 0, nil, shared.NewInvalidStateError("bill %d for period %s is already paid and cannot be regenerated",
				existing[i].ID, period.String())
		}
	}

	billIDs := billing.BillIDs(existing)
	txIDs, err := repos.TransactionRepo().FindIDsByBillIDs(ctx, billIDs)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to find linked transactions: %w", err)
	}
	linked, err := repos.TransactionRepo().FindByIDs(ctx, txIDs)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load linked transactions: %w", err)
	}
	if _, err := repos.TransactionRepo().DeleteDetailsByBillIDs(ctx, billIDs); err != nil {
		return 0, nil, fmt.Errorf("failed to delete transaction details: %w", err)
	}
	deleted, err := repos.BillRepo().DeleteByIDs(ctx, billIDs)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to delete bills: %w", err)
	}

	var events []shared.DomainEvent
	for i := range linked {
		t := &linked[i]
		changed, err := repos.TransactionRepo().FailIfPending(ctx, t.ID, now)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to fail transaction %d: %w", t.ID, err)
		}
		if changed {
			events = append(events, payment.NewPaymentFailedEvent(t, payment.FailureReasonRegenerated))
		}
	}

	s.logger.Info("Replacing existing bills",
		zap.String("period", period.String()),
		zap.Int64("deleted", deleted),
		zap.Int("failed_transactions", len(events)))

	return int(deleted), events, nil
}
