package payment

import (
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypePaymentTransaction = "PaymentTransaction"

// TransactionStatus is the state of a payment transaction.
// Transitions only move forward: PENDING -> {SUCCESS, FAILED, EXPIRED}.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
	TransactionStatusExpired TransactionStatus = "EXPIRED"
)

// IsValid returns true if the status is known
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusExpired:
		return true
	}
	return false
}

// IsFinal returns true if the status is terminal
func (s TransactionStatus) IsFinal() bool {
	return s != TransactionStatusPending
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// TransactionDetail links a transaction to one bill with the amount attributed to it
type TransactionDetail struct {
	ID            int64
	TransactionID int64
	BillID        int64
	Amount        decimal.Decimal
}

// PaymentTransaction is a resident's attempt to pay a bundle of bills
type PaymentTransaction struct {
	shared.BaseEntity
	ResidentID      int64
	Amount          decimal.Decimal
	Content         string
	Method          billing.PaymentMethod
	Status          TransactionStatus
	PaidAt          *time.Time
	GatewayCode     string
	GatewaySettleAt *time.Time
	Details         []TransactionDetail
}

// NewPendingTransaction creates a PENDING transaction covering the bills.
// The total is the exact sum of the bill totals, which are already whole units.
func NewPendingTransaction(residentID int64, bills []billing.Bill, method billing.PaymentMethod, now time.Time) (*PaymentTransaction, error) {
	if len(bills) == 0 {
		return nil, shared.NewValidationError("at least one bill is required")
	}
	details := make([]TransactionDetail, 0, len(bills))
	for i := range bills {
		if bills[i].IsPaid() {
			return nil, shared.NewInvalidStateError("bill %d is already paid", bills[i].ID)
		}
		details = append(details, TransactionDetail{BillID: bills[i].ID, Amount: bills[i].Total})
	}
	return &PaymentTransaction{
		BaseEntity: shared.NewBaseEntity(now),
		ResidentID: residentID,
		Amount:     billing.SumTotals(bills),
		Method:     method,
		Status:     TransactionStatusPending,
		Details:    details,
	}, nil
}

// BillIDs returns the IDs of the bills covered by the transaction
func (t *PaymentTransaction) BillIDs() []int64 {
	ids := make([]int64, len(t.Details))
	for i := range t.Details {
		ids[i] = t.Details[i].BillID
	}
	return ids
}

// AmountFor sums the detail amounts attributed to billIDs
func (t *PaymentTransaction) AmountFor(billIDs []int64) decimal.Decimal {
	total := decimal.Zero
	for _, id := range billIDs {
		for i := range t.Details {
			if t.Details[i].BillID == id {
				total = total.Add(t.Details[i].Amount)
			}
		}
	}
	return total
}

// AttachID records the store-assigned ID on the transaction and its details
func (t *PaymentTransaction) AttachID(id int64) {
	t.ID = id
	for i := range t.Details {
		t.Details[i].TransactionID = id
	}
}

// IsPending returns true if the transaction can still be settled or failed
func (t *PaymentTransaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// Covers reports whether the received amount pays the transaction in full
func (t *PaymentTransaction) Covers(received decimal.Decimal) bool {
	return received.GreaterThanOrEqual(t.Amount)
}

// Settle moves a PENDING transaction to SUCCESS
func (t *PaymentTransaction) Settle(gatewayCode string, gatewaySettledAt *time.Time, now time.Time) error {
	if !t.IsPending() {
		return shared.NewInvalidStateError("transaction %d is %s, cannot settle", t.ID, t.Status)
	}
	t.Status = TransactionStatusSuccess
	t.PaidAt = &now
	t.GatewayCode = gatewayCode
	t.GatewaySettleAt = gatewaySettledAt
	t.UpdatedAt = now
	return nil
}

// Fail moves a PENDING transaction to FAILED
func (t *PaymentTransaction) Fail(now time.Time) error {
	if !t.IsPending() {
		return shared.NewInvalidStateError("transaction %d is %s, cannot fail", t.ID, t.Status)
	}
	t.Status = TransactionStatusFailed
	t.UpdatedAt = now
	return nil
}

// IsStale reports whether a PENDING transaction was created before now - timeout
func (t *PaymentTransaction) IsStale(now time.Time, timeout time.Duration) bool {
	return t.IsPending() && t.CreatedAt.Before(now.Add(-timeout))
}
