package dto

import (
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// BillResponse is the API view of a bill
type BillResponse struct {
	ID            int64           `json:"id"`
	ApartmentID   string          `json:"apartment_id"`
	AccountantID  int64           `json:"accountant_id,omitempty"`
	Type          string          `json:"type"`
	Label         string          `json:"label"`
	Description   string          `json:"description,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Deadline      string          `json:"deadline"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToBillResponse converts a domain bill to its API view
func ToBillResponse(b *billing.Bill) BillResponse {
	return BillResponse{
		ID:            b.ID,
		ApartmentID:   b.ApartmentID,
		AccountantID:  b.AccountantID,
		Type:          string(b.Type),
		Label:         b.Label(),
		Description:   b.Description,
		Amount:        b.Amount,
		Total:         b.Total,
		Status:        string(b.Status),
		PaymentMethod: string(b.PaymentMethod),
		Deadline:      b.Deadline.Format(DateLayout),
		PaidAt:        b.PaidAt,
		CreatedAt:     b.CreatedAt,
	}
}

// ToBillResponses converts a slice of bills
func ToBillResponses(bills []billing.Bill) []BillResponse {
	out := make([]BillResponse, len(bills))
	for i := range bills {
		out[i] = ToBillResponse(&bills[i])
	}
	return out
}

// MeterReadingResponse is the API view of a meter reading
type MeterReadingResponse struct {
	ID                     int64           `json:"id"`
	ApartmentID            string          `json:"apartment_id"`
	Month                  int             `json:"month"`
	Year                   int             `json:"year"`
	ElectricityOld         decimal.Decimal `json:"electricity_old"`
	ElectricityNew         decimal.Decimal `json:"electricity_new"`
	ElectricityConsumption decimal.Decimal `json:"electricity_consumption"`
	WaterOld               decimal.Decimal `json:"water_old"`
	WaterNew               decimal.Decimal `json:"water_new"`
	WaterConsumption       decimal.Decimal `json:"water_consumption"`
}

// ToMeterReadingResponse converts a domain reading to its API view
func ToMeterReadingResponse(r *billing.MeterReading) MeterReadingResponse {
	return MeterReadingResponse{
		ID:                     r.ID,
		ApartmentID:            r.ApartmentID,
		Month:                  r.Period.Month,
		Year:                   r.Period.Year,
		ElectricityOld:         r.ElectricityOld,
		ElectricityNew:         r.ElectricityNew,
		ElectricityConsumption: r.ElectricityConsumption(),
		WaterOld:               r.WaterOld,
		WaterNew:               r.WaterNew,
		WaterConsumption:       r.WaterConsumption(),
	}
}

// ServiceFeeResponse is the API view of a service fee
type ServiceFeeResponse struct {
	ID         int64           `json:"id"`
	BuildingID string          `json:"building_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Kind       string          `json:"kind"`
}

// ToServiceFeeResponse converts a domain fee to its API view
func ToServiceFeeResponse(f *billing.ServiceFee) ServiceFeeResponse {
	return ServiceFeeResponse{
		ID:         f.ID,
		BuildingID: f.BuildingID,
		Name:       f.Name,
		UnitPrice:  f.UnitPrice,
		Kind:       string(f.Kind),
	}
}

// DateLayout is the calendar date format used for deadlines
const DateLayout = "2006-01-02"
