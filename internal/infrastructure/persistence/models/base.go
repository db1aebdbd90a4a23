package models

import (
	"time"

	"github.com/condo/backend/internal/domain/shared"
)

// BaseModel provides the auto-increment key and timestamps shared by all tables
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to a domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from a domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// All returns every model in dependency order, for AutoMigrate in tests and tooling
func All() []any {
	return []any{
		&ApartmentModel{},
		&ResidentModel{},
		&BillModel{},
		&MeterReadingModel{},
		&ServiceFeeModel{},
		&PaymentTransactionModel{},
		&TransactionDetailModel{},
		&NotificationModel{},
	}
}
