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
	"go.uber.org/zap"
)

// HandleGatewayCallback verifies a raw webhook with the gateway's parser and reconciles it.
// Verification failures are returned as errors; everything after that is an outcome.
func (s *PaymentService) HandleGatewayCallback(ctx context.Context, parser payment.InboundPaymentParser, payload []byte, authorization string) (*payment.ReconcileOutcome, error) {
	inbound, err := parser.Parse(ctx, payload, authorization)
	if err != nil {
		if errors.Is(err, payment.ErrGatewayIgnoredCallback) {
			s.logger.Debug("Ignoring gateway callback",
				zap.String("gateway", parser.Gateway()),
				zap.Error(err))
			return payment.IgnoredOutcome(err.Error()), nil
		}
		s.logger.Warn("Gateway callback rejected",
			zap.String("gateway", parser.Gateway()),
			zap.Error(err))
		return nil, err
	}
	return s.ReconcileInboundPayment(ctx, *inbound)
}

// ReconcileInboundPayment matches a bank transfer to a PENDING transaction and settles it.
//
// Settlement is a compare-and-set on the transaction status followed by marking every
// linked bill PAID, all in one store transaction. A concurrent settlement or sweep that
// wins the race turns this call into a no-op outcome instead of an error.
func (s *PaymentService) ReconcileInboundPayment(ctx context.Context, in payment.InboundPayment) (*payment.ReconcileOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "reconcile",
		telemetry.SpanAttrAmount, in.AmountReceived.String())
	defer span.End()

	outcome, err := s.reconcile(ctx, in)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOutcome, string(outcome.Code),
		telemetry.SpanAttrTransactionID, outcome.TransactionID)
	return outcome, nil
}

func (s *PaymentService) reconcile(ctx context.Context, in payment.InboundPayment) (*payment.ReconcileOutcome, error) {
	logger := s.logger.With(
		zap.String("gateway_reference", in.GatewayReference),
		zap.String("amount_received", in.AmountReceived.String()))

	id, ok := s.codec.Extract(in.Memo)
	if !ok {
		logger.Info("Inbound payment has no correlation code", zap.String("memo", in.Memo))
		return payment.NoMatchOutcome(), nil
	}
	logger = logger.With(zap.Int64("transaction_id", id))

	tx, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			logger.Info("Inbound payment references unknown transaction")
			return payment.UnknownTransactionOutcome(id), nil
		}
		return nil, fmt.Errorf("failed to load transaction %d: %w", id, err)
	}

	if outcome := terminalOutcome(tx, tx.Status); outcome != nil {
		logger.Info("Inbound payment for finished transaction", zap.String("outcome", string(outcome.Code)))
		return outcome, nil
	}

	if !tx.Covers(in.AmountReceived) {
		logger.Warn("Inbound payment is short", zap.String("expected", tx.Amount.String()))
		ledger.PublishCommitted(ctx, s.eventPublisher, s.logger,
			[]shared.DomainEvent{payment.NewPaymentUnderpaidEvent(tx, in.AmountReceived)})
		return payment.InsufficientFundsOutcome(tx, in.AmountReceived), nil
	}

	now := s.now()
	var (
		raced       *payment.ReconcileOutcome
		alreadyPaid []int64
	)
	err = s.txScope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		raced, alreadyPaid = nil, nil
		changed, err := repos.TransactionRepo().SettleIfPending(ctx, tx.ID, in.GatewayReference, in.SettledAt, now)
		if err != nil {
			return fmt.Errorf("failed to settle transaction: %w", err)
		}
		if !changed {
			current, err := repos.TransactionRepo().FindByID(ctx, tx.ID)
			if err != nil {
				return fmt.Errorf("failed to reload transaction: %w", err)
			}
			raced = terminalOutcome(tx, current.Status)
			return nil
		}

		billIDs := tx.BillIDs()
		bills, err := repos.BillRepo().FindByIDs(ctx, billIDs)
		if err != nil {
			return fmt.Errorf("failed to load bills: %w", err)
		}
		for i := range bills {
			if bills[i].IsPaid() {
				alreadyPaid = append(alreadyPaid, bills[i].ID)
			}
		}
		// the transfer is kept even if a bill was collected another way
		if _, err := repos.BillRepo().MarkPaid(ctx, billIDs, billing.PaymentMethodOnlineQR, now); err != nil {
			return fmt.Errorf("failed to mark bills paid: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("Settlement rolled back", zap.Error(err))
		return nil, err
	}
	if raced != nil {
		logger.Info("Transaction finished concurrently", zap.String("outcome", string(raced.Code)))
		return raced, nil
	}

	if err := tx.Settle(in.GatewayReference, in.SettledAt, now); err != nil {
		return nil, err
	}
	settled := payment.NewPaymentSettledEvent(tx)
	outcome := payment.SettledOutcome(tx, in.AmountReceived)
	if len(alreadyPaid) > 0 {
		settled.AlreadyPaidBillIDs = alreadyPaid
		settled.RefundDue = tx.AmountFor(alreadyPaid)
		outcome = payment.SettledRefundDueOutcome(tx, in.AmountReceived, alreadyPaid)
		logger.Warn("Payment settled bills that were already paid",
			zap.Int64s("bill_ids", alreadyPaid),
			zap.String("refund_due", settled.RefundDue.String()))
	}
	logger.Info("Payment settled", zap.Int("bills", len(tx.Details)))
	ledger.PublishCommitted(ctx, s.eventPublisher, s.logger, []shared.DomainEvent{settled})
	return outcome, nil
}

// terminalOutcome maps a finished status to its outcome; nil means still PENDING
func terminalOutcome(tx *payment.PaymentTransaction, status payment.TransactionStatus) *payment.ReconcileOutcome {
	switch status {
	case payment.TransactionStatusSuccess:
		return payment.AlreadySettledOutcome(tx)
	case payment.TransactionStatusFailed, payment.TransactionStatusExpired:
		return payment.NotPayableOutcome(tx, status)
	default:
		return nil
	}
}
