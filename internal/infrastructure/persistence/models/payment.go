package models

import (
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// PaymentTransactionModel is the persistence model for the PaymentTransaction aggregate root
type PaymentTransactionModel struct {
	BaseModel
	ResidentID       int64                    `gorm:"not null;index"`
	Amount           decimal.Decimal          `gorm:"type:numeric(18,0);not null"`
	Content          string                   `gorm:"type:varchar(50)"`
	Method           string                   `gorm:"type:varchar(20);not null"`
	Status           string                   `gorm:"type:varchar(10);not null;default:'PENDING';index"`
	GatewayCode      string                   `gorm:"type:varchar(100)"`
	Details          []TransactionDetailModel `gorm:"foreignKey:TransactionID"`
	PaidAt           *time.Time
	GatewaySettledAt *time.Time
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the model and any loaded details to a domain PaymentTransaction
func (m *PaymentTransactionModel) ToDomain() *payment.PaymentTransaction {
	t := &payment.PaymentTransaction{
		BaseEntity:      m.BaseModel.ToDomain(),
		ResidentID:      m.ResidentID,
		Amount:          m.Amount,
		Content:         m.Content,
		Method:          billing.PaymentMethod(m.Method),
		Status:          payment.TransactionStatus(m.Status),
		PaidAt:          m.PaidAt,
		GatewayCode:     m.GatewayCode,
		GatewaySettleAt: m.GatewaySettledAt,
	}
	if len(m.Details) > 0 {
		t.Details = make([]payment.TransactionDetail, len(m.Details))
		for i := range m.Details {
			t.Details[i] = m.Details[i].ToDomain()
		}
	}
	return t
}

// PaymentTransactionModelFromDomain creates a persistence model without details;
// details are written separately once the transaction ID is known.
func PaymentTransactionModelFromDomain(t *payment.PaymentTransaction) *PaymentTransactionModel {
	m := &PaymentTransactionModel{
		ResidentID:       t.ResidentID,
		Amount:           t.Amount,
		Content:          t.Content,
		Method:           string(t.Method),
		Status:           string(t.Status),
		PaidAt:           t.PaidAt,
		GatewayCode:      t.GatewayCode,
		GatewaySettledAt: t.GatewaySettleAt,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// TransactionDetailModel links one bill to a payment transaction
type TransactionDetailModel struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	TransactionID int64           `gorm:"not null;index"`
	BillID        int64           `gorm:"not null;index"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,0);not null"`
}

// TableName returns the table name for GORM
func (TransactionDetailModel) TableName() string {
	return "transaction_details"
}

// ToDomain converts the model to a domain TransactionDetail
func (m *TransactionDetailModel) ToDomain() payment.TransactionDetail {
	return payment.TransactionDetail{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		BillID:        m.BillID,
		Amount:        m.Amount,
	}
}

// TransactionDetailModelFromDomain creates a persistence model from a domain TransactionDetail
func TransactionDetailModelFromDomain(d payment.TransactionDetail) TransactionDetailModel {
	return TransactionDetailModel{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		BillID:        d.BillID,
		Amount:        d.Amount,
	}
}
