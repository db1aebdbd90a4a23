package billing

import (
	"time"

	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MeterReading holds one apartment's old/new electricity and water readings for a period.
// There is at most one reading per (apartment, month, year).
type MeterReading struct {
	shared.BaseEntity
	ApartmentID    string
	Period         Period
	ElectricityOld decimal.Decimal
	ElectricityNew decimal.Decimal
	WaterOld       decimal.Decimal
	WaterNew       decimal.Decimal
}

// NewMeterReading validates and creates a reading
func NewMeterReading(apartmentID string, period Period, elecOld, elecNew, waterOld, waterNew decimal.Decimal, now time.Time) (*MeterReading, error) {
	if apartmentID == "" {
		return nil, shared.NewValidationError("apartment id is required")
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	for _, v := range []decimal.Decimal{elecOld, elecNew, waterOld, waterNew} {
		if v.IsNegative() {
			return nil, shared.NewValidationError("meter readings must not be negative")
		}
	}
	return &MeterReading{
		BaseEntity:     shared.NewBaseEntity(now),
		ApartmentID:    apartmentID,
		Period:         period,
		ElectricityOld: elecOld,
		ElectricityNew: elecNew,
		WaterOld:       waterOld,
		WaterNew:       waterNew,
	}, nil
}

// Consumption returns new - old, clamped at zero for meter resets or typos
func Consumption(oldValue, newValue decimal.Decimal) decimal.Decimal {
	delta := newValue.Sub(oldValue)
	if delta.IsNegative() {
		return decimal.Zero
	}
	return delta
}

// ElectricityConsumption returns the clamped kWh used in the period
func (r *MeterReading) ElectricityConsumption() decimal.Decimal {
	return Consumption(r.ElectricityOld, r.ElectricityNew)
}

// WaterConsumption returns the clamped m3 used in the period
func (r *MeterReading) WaterConsumption() decimal.Decimal {
	return Consumption(r.WaterOld, r.WaterNew)
}

// ReadingDetail is the meter context attached to a utility bill notification
type ReadingDetail struct {
	OldValue    decimal.Decimal `json:"old_value"`
	NewValue    decimal.Decimal `json:"new_value"`
	Consumption decimal.Decimal `json:"consumption"`
}

// ElectricityDetail returns the electricity reading context
func (r *MeterReading) ElectricityDetail() *ReadingDetail {
	return &ReadingDetail{OldValue: r.ElectricityOld, NewValue: r.ElectricityNew, Consumption: r.ElectricityConsumption()}
}

// WaterDetail returns the water reading context
func (r *MeterReading) WaterDetail() *ReadingDetail {
	return &ReadingDetail{OldValue: r.WaterOld, NewValue: r.WaterNew, Consumption: r.WaterConsumption()}
}
