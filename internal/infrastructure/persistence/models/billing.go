package models

import (
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// ApartmentModel is reference data maintained by property management
type ApartmentModel struct {
	ID         string              `gorm:"type:varchar(20);primaryKey"`
	BuildingID string              `gorm:"type:varchar(20);not null;index"`
	Area       decimal.NullDecimal `gorm:"type:numeric(10,2)"`
}

// TableName returns the table name for GORM
func (ApartmentModel) TableName() string {
	return "apartments"
}

// ToDomain converts the model to a domain Apartment
func (m *ApartmentModel) ToDomain() *billing.Apartment {
	apt := &billing.Apartment{ID: m.ID, BuildingID: m.BuildingID}
	if m.Area.Valid {
		apt.Area = m.Area.Decimal
	}
	return apt
}

// ResidentModel is a person living in an apartment
type ResidentModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ApartmentID string `gorm:"type:varchar(20);not null;index"`
	FullName    string `gorm:"type:varchar(200);not null"`
	IsOwner     bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ResidentModel) TableName() string {
	return "residents"
}

// ToDomain converts the model to a domain Resident
func (m *ResidentModel) ToDomain() *billing.Resident {
	return &billing.Resident{
		ID:          m.ID,
		ApartmentID: m.ApartmentID,
		FullName:    m.FullName,
		IsOwner:     m.IsOwner,
	}
}

// BillModel is the persistence model for the Bill aggregate root
type BillModel struct {
	BaseModel
	ApartmentID   string          `gorm:"type:varchar(20);not null;index:idx_bill_apartment_deadline,priority:1"`
	AccountantID  int64           `gorm:"not null;default:0"`
	Deadline      time.Time       `gorm:"type:date;not null;index:idx_bill_apartment_deadline,priority:2;index"`
	Type          string          `gorm:"type:varchar(20);not null"`
	Description   string          `gorm:"type:varchar(255)"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,0);not null"`
	Total         decimal.Decimal `gorm:"type:numeric(18,0);not null"`
	Status        string          `gorm:"type:varchar(10);not null;default:'UNPAID';index"`
	PaymentMethod string          `gorm:"type:varchar(20)"`
	PaidAt        *time.Time
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the model to a domain Bill
func (m *BillModel) ToDomain() *billing.Bill {
	return &billing.Bill{
		BaseEntity:    m.BaseModel.ToDomain(),
		ApartmentID:   m.ApartmentID,
		AccountantID:  m.AccountantID,
		Deadline:      m.Deadline.UTC(),
		Type:          billing.BillType(m.Type),
		Description:   m.Description,
		Amount:        m.Amount,
		Total:         m.Total,
		Status:        billing.BillStatus(m.Status),
		PaymentMethod: billing.PaymentMethod(m.PaymentMethod),
		PaidAt:        m.PaidAt,
	}
}

// BillModelFromDomain creates a persistence model from a domain Bill
func BillModelFromDomain(b *billing.Bill) *BillModel {
	m := &BillModel{
		ApartmentID:   b.ApartmentID,
		AccountantID:  b.AccountantID,
		Deadline:      b.Deadline,
		Type:          string(b.Type),
		Description:   b.Description,
		Amount:        b.Amount,
		Total:         b.Total,
		Status:        string(b.Status),
		PaymentMethod: string(b.PaymentMethod),
		PaidAt:        b.PaidAt,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// MeterReadingModel stores one apartment's meter indices for a month
type MeterReadingModel struct {
	BaseModel
	ApartmentID    string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_reading_apartment_period,priority:1"`
	Year           int             `gorm:"not null;uniqueIndex:idx_reading_apartment_period,priority:2;index:idx_reading_period,priority:1"`
	Month          int             `gorm:"not null;uniqueIndex:idx_reading_apartment_period,priority:3;index:idx_reading_period,priority:2"`
	ElectricityOld decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	ElectricityNew decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	WaterOld       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	WaterNew       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

// TableName returns the table name for GORM
func (MeterReadingModel) TableName() string {
	return "meter_readings"
}

// ToDomain converts the model to a domain MeterReading
func (m *MeterReadingModel) ToDomain() *billing.MeterReading {
	return &billing.MeterReading{
		BaseEntity:     m.BaseModel.ToDomain(),
		ApartmentID:    m.ApartmentID,
		Period:         billing.Period{Month: m.Month, Year: m.Year},
		ElectricityOld: m.ElectricityOld,
		ElectricityNew: m.ElectricityNew,
		WaterOld:       m.WaterOld,
		WaterNew:       m.WaterNew,
	}
}

// MeterReadingModelFromDomain creates a persistence model from a domain MeterReading
func MeterReadingModelFromDomain(r *billing.MeterReading) *MeterReadingModel {
	m := &MeterReadingModel{
		ApartmentID:    r.ApartmentID,
		Year:           r.Period.Year,
		Month:          r.Period.Month,
		ElectricityOld: r.ElectricityOld,
		ElectricityNew: r.ElectricityNew,
		WaterOld:       r.WaterOld,
		WaterNew:       r.WaterNew,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// ServiceFeeModel is one fee line of a building's fee schedule
type ServiceFeeModel struct {
	BaseModel
	BuildingID string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_fee_building_name,priority:1"`
	Name       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_fee_building_name,priority:2"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Kind       string          `gorm:"type:varchar(20);not null;default:'FIXED'"`
}

// TableName returns the table name for GORM
func (ServiceFeeModel) TableName() string {
	return "service_fees"
}

// ToDomain converts the model to a domain ServiceFee
func (m *ServiceFeeModel) ToDomain() *billing.ServiceFee {
	return &billing.ServiceFee{
		BaseEntity: m.BaseModel.ToDomain(),
		BuildingID: m.BuildingID,
		Name:       m.Name,
		UnitPrice:  m.UnitPrice,
		Kind:       billing.FeeKind(m.Kind),
	}
}

// ServiceFeeModelFromDomain creates a persistence model from a domain ServiceFee
func ServiceFeeModelFromDomain(f *billing.ServiceFee) *ServiceFeeModel {
	m := &ServiceFeeModel{
		BuildingID: f.BuildingID,
		Name:       f.Name,
		UnitPrice:  f.UnitPrice,
		Kind:       string(f.Kind),
	}
	m.FromDomainBaseEntity(f.BaseEntity)
	return m
}
