package payment

import (
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypePaymentRequested = "PaymentRequested"
	EventTypePaymentSettled   = "PaymentSettled"
	EventTypePaymentUnderpaid = "PaymentUnderpaid"
	EventTypePaymentFailed    = "PaymentFailed"
)

// PaymentRequestedEvent is raised when a QR transaction is created
type PaymentRequestedEvent struct {
	shared.BaseDomainEvent
	TransactionID int64           `json:"transaction_id"`
	ResidentID    int64           `json:"resident_id"`
	Amount        decimal.Decimal `json:"amount"`
	Content       string          `json:"content"`
	BillIDs       []int64         `json:"bill_ids"`
}

// NewPaymentRequestedEvent creates a new PaymentRequestedEvent
func NewPaymentRequestedEvent(t *PaymentTransaction) *PaymentRequestedEvent {
	return &PaymentRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRequested, AggregateTypePaymentTransaction, t.ID),
		TransactionID:   t.ID,
		ResidentID:      t.ResidentID,
		Amount:          t.Amount,
		Content:         t.Content,
		BillIDs:         t.BillIDs(),
	}
}

// EventType returns the event type name
func (e *PaymentRequestedEvent) EventType() string {
	return EventTypePaymentRequested
}

// PaymentSettledEvent is raised once a transaction and its bills are committed as paid
type PaymentSettledEvent struct {
	shared.BaseDomainEvent
	TransactionID int64                 `json:"transaction_id"`
	ResidentID    int64                 `json:"resident_id"`
	Amount        decimal.Decimal       `json:"amount"`
	Method        billing.PaymentMethod `json:"method"`
	GatewayCode   string                `json:"gateway_code,omitempty"`
	BillIDs       []int64               `json:"bill_ids"`
	// AlreadyPaidBillIDs were settled another way before this payment arrived
	AlreadyPaidBillIDs []int64         `json:"already_paid_bill_ids,omitempty"`
	RefundDue          decimal.Decimal `json:"refund_due"`
}

// NewPaymentSettledEvent creates a new PaymentSettledEvent
func NewPaymentSettledEvent(t *PaymentTransaction) *PaymentSettledEvent {
	return &PaymentSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentSettled, AggregateTypePaymentTransaction, t.ID),
		TransactionID:   t.ID,
		ResidentID:      t.ResidentID,
		Amount:          t.Amount,
		Method:          t.Method,
		GatewayCode:     t.GatewayCode,
		BillIDs:         t.BillIDs(),
	}
}

// EventType returns the event type name
func (e *PaymentSettledEvent) EventType() string {
	return EventTypePaymentSettled
}

// PaymentUnderpaidEvent is raised when a transfer is short of the transaction amount
type PaymentUnderpaidEvent struct {
	shared.BaseDomainEvent
	TransactionID int64           `json:"transaction_id"`
	ResidentID    int64           `json:"resident_id"`
	Expected      decimal.Decimal `json:"expected"`
	Received      decimal.Decimal `json:"received"`
}

// NewPaymentUnderpaidEvent creates a new PaymentUnderpaidEvent
func NewPaymentUnderpaidEvent(t *PaymentTransaction, received decimal.Decimal) *PaymentUnderpaidEvent {
	return &PaymentUnderpaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentUnderpaid, AggregateTypePaymentTransaction, t.ID),
		TransactionID:   t.ID,
		ResidentID:      t.ResidentID,
		Expected:        t.Amount,
		Received:        received,
	}
}

// EventType returns the event type name
func (e *PaymentUnderpaidEvent) EventType() string {
	return EventTypePaymentUnderpaid
}

// PaymentFailedEvent is raised when a pending transaction is failed (expiry or bill regeneration)
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	TransactionID int64           `json:"transaction_id"`
	ResidentID    int64           `json:"resident_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
}

// Failure reasons
const (
	FailureReasonExpired     = "expired"
	FailureReasonRegenerated = "bills_regenerated"
)

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(t *PaymentTransaction, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, AggregateTypePaymentTransaction, t.ID),
		TransactionID:   t.ID,
		ResidentID:      t.ResidentID,
		Amount:          t.Amount,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *PaymentFailedEvent) EventType() string {
	return EventTypePaymentFailed
}
