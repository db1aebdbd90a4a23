package telemetry

import (
	"context"
	"errors"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when PaymentMetrics is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// PaymentMetrics counts billing and payment events as they are committed.
// It subscribes to the event bus like any other post-commit handler.
type PaymentMetrics struct {
	billsCreated      *Counter
	billedAmount      *Histogram
	paymentsRequested *Counter
	paymentsSettled   *Counter
	paymentsRefundDue *Counter
	settledAmount     *Histogram
	paymentsUnderpaid *Counter
	paymentsFailed    *Counter
	webhookOutcomes   *Counter
}

// NewPaymentMetrics registers the instruments on meter
func NewPaymentMetrics(meter metric.Meter) (*PaymentMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		pm  PaymentMetrics
		err error
	)
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&pm.billsCreated, "condo_bills_created_total", "Bills committed", "{bills}"},
		{&pm.paymentsRequested, "condo_payments_requested_total", "QR payment transactions created", "{transactions}"},
		{&pm.paymentsSettled, "condo_payments_settled_total", "Payment transactions settled", "{transactions}"},
		{&pm.paymentsRefundDue, "condo_payments_refund_due_total", "Settlements that paid for bills already collected another way", "{transactions}"},
		{&pm.paymentsUnderpaid, "condo_payments_underpaid_total", "Inbound transfers short of the expected amount", "{transfers}"},
		{&pm.paymentsFailed, "condo_payments_failed_total", "Pending transactions failed by expiry or regeneration", "{transactions}"},
		{&pm.webhookOutcomes, "condo_webhook_outcomes_total", "Reconciliation outcomes of gateway webhooks", "{callbacks}"},
	}
	for _, c := range counters {
		if *c.dst, err = NewCounter(meter, c.name, c.desc, c.unit); err != nil {
			return nil, err
		}
	}

	if pm.billedAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "condo_billed_amount",
		Description: "Total of each committed bill",
		Unit:        "VND",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if pm.settledAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "condo_settled_amount",
		Description: "Amount of each settled transaction",
		Unit:        "VND",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	return &pm, nil
}

// EventTypes returns the events counted
func (m *PaymentMetrics) EventTypes() []string {
	return []string{
		billing.EventTypeBillCreated,
		payment.EventTypePaymentRequested,
		payment.EventTypePaymentSettled,
		payment.EventTypePaymentUnderpaid,
		payment.EventTypePaymentFailed,
	}
}

// Handle records one event; unknown events are ignored
func (m *PaymentMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *billing.BillCreatedEvent:
		attr := AttrBillType.String(string(e.BillType))
		m.billsCreated.Inc(ctx, attr)
		m.billedAmount.Record(ctx, e.Total.InexactFloat64(), attr)
	case *payment.PaymentRequestedEvent:
		m.paymentsRequested.Inc(ctx)
	case *payment.PaymentSettledEvent:
		attr := AttrPaymentMethod.String(string(e.Method))
		m.paymentsSettled.Inc(ctx, attr)
		m.settledAmount.Record(ctx, e.Amount.InexactFloat64(), attr)
		if len(e.AlreadyPaidBillIDs) > 0 {
			m.paymentsRefundDue.Inc(ctx, attr)
		}
	case *payment.PaymentUnderpaidEvent:
		m.paymentsUnderpaid.Inc(ctx)
	case *payment.PaymentFailedEvent:
		m.paymentsFailed.Inc(ctx, AttrFailureReason.String(e.Reason))
	}
	return nil
}

// RecordWebhookOutcome counts what a gateway callback resolved to
func (m *PaymentMetrics) RecordWebhookOutcome(ctx context.Context, gateway string, code payment.OutcomeCode) {
	m.webhookOutcomes.Inc(ctx, AttrGateway.String(gateway), AttrOutcome.String(string(code)))
}

var _ shared.EventHandler = (*PaymentMetrics)(nil)
