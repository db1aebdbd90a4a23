package billing

import (
	"strings"
	"time"

	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeBill = "Bill"

// BillType tags what a bill charges for
type BillType string

const (
	BillTypeElectricity BillType = "ELECTRICITY"
	BillTypeWater       BillType = "WATER"
	BillTypeService     BillType = "SERVICE"
	// BillTypeOther is a manual bill; its Description carries the free-form label
	BillTypeOther BillType = "OTHER"
)

// AutomatedBillTypes are the types produced by monthly generation
func AutomatedBillTypes() []BillType {
	return []BillType{BillTypeElectricity, BillTypeWater, BillTypeService}
}

// IsValid returns true if the bill type is known
func (t BillType) IsValid() bool {
	switch t {
	case BillTypeElectricity, BillTypeWater, BillTypeService, BillTypeOther:
		return true
	}
	return false
}

// IsAutomated reports whether monthly generation owns bills of this type
func (t BillType) IsAutomated() bool {
	return t == BillTypeElectricity || t == BillTypeWater || t == BillTypeService
}

// BillStatus is the settlement state of a bill
type BillStatus string

const (
	BillStatusUnpaid BillStatus = "UNPAID"
	BillStatusPaid   BillStatus = "PAID"
)

// IsValid returns true if the status is known
func (s BillStatus) IsValid() bool {
	return s == BillStatusUnpaid || s == BillStatusPaid
}

// PaymentMethod records how a bill or transaction was settled
type PaymentMethod string

const (
	PaymentMethodOnlineQR        PaymentMethod = "ONLINE_QR"
	PaymentMethodCash            PaymentMethod = "CASH"
	PaymentMethodOfflineTransfer PaymentMethod = "OFFLINE_TRANSFER"
)

// IsValid returns true if the method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodOnlineQR, PaymentMethodCash, PaymentMethodOfflineTransfer:
		return true
	}
	return false
}

// IsOffline reports whether the method is collected at the office
func (m PaymentMethod) IsOffline() bool {
	return m == PaymentMethodCash || m == PaymentMethodOfflineTransfer
}

// Bill is a charge against one apartment. Bills are settled all-or-nothing:
// Total always equals Amount and is never decremented.
type Bill struct {
	shared.BaseEntity
	ApartmentID   string
	AccountantID  int64
	Deadline      time.Time
	Type          BillType
	Description   string
	Amount        decimal.Decimal
	Total         decimal.Decimal
	Status        BillStatus
	PaymentMethod PaymentMethod
	PaidAt        *time.Time
}

// NewBill creates an unpaid bill. Amount must be strictly positive.
func NewBill(apartmentID string, accountantID int64, deadline time.Time, billType BillType, description string, amount decimal.Decimal, now time.Time) (*Bill, error) {
	if strings.TrimSpace(apartmentID) == "" {
		return nil, shared.NewValidationError("apartment id is required")
	}
	if !billType.IsValid() {
		return nil, shared.NewValidationError("unknown bill type %q", billType)
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("bill amount must be greater than zero, got %s", amount.String())
	}
	if !IsWholeAmount(amount) {
		return nil, shared.NewValidationError("bill amount must be a whole currency amount, got %s", amount.String())
	}
	if deadline.IsZero() {
		return nil, shared.NewValidationError("bill deadline is required")
	}
	return &Bill{
		BaseEntity:   shared.NewBaseEntity(now),
		ApartmentID:  apartmentID,
		AccountantID: accountantID,
		Deadline:     deadline,
		Type:         billType,
		Description:  strings.TrimSpace(description),
		Amount:       amount,
		Total:        amount,
		Status:       BillStatusUnpaid,
	}, nil
}

// IsWholeAmount reports whether v has no fractional currency unit
func IsWholeAmount(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(0))
}

// IsPaid returns true if the bill has been settled
func (b *Bill) IsPaid() bool {
	return b.Status == BillStatusPaid
}

// Label returns the human-facing name of the bill
func (b *Bill) Label() string {
	if b.Type == BillTypeOther && b.Description != "" {
		return b.Description
	}
	return string(b.Type)
}

// MarkPaid settles the bill
func (b *Bill) MarkPaid(method PaymentMethod, at time.Time) error {
	if b.IsPaid() {
		return shared.NewInvalidStateError("bill %d is already paid", b.ID)
	}
	b.Status = BillStatusPaid
	b.PaymentMethod = method
	b.PaidAt = &at
	b.UpdatedAt = at
	return nil
}

// SumTotals adds up bill totals exactly; no rounding is applied
func SumTotals(bills []Bill) decimal.Decimal {
	sum := decimal.Zero
	for i := range bills {
		sum = sum.Add(bills[i].Total)
	}
	return sum
}

// BillIDs returns the IDs of the bills in order
func BillIDs(bills []Bill) []int64 {
	ids := make([]int64, len(bills))
	for i := range bills {
		ids[i] = bills[i].ID
	}
	return ids
}
