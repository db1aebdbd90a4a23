package billing

import "github.com/shopspring/decimal"

// DefaultApartmentArea is used for per-area fees when an apartment has no recorded area
var DefaultApartmentArea = decimal.NewFromInt(70)

// Apartment is reference data owned by property management
type Apartment struct {
	ID         string
	BuildingID string
	Area       decimal.Decimal
}

// EffectiveArea returns the floor area used for per-area fees
func (a *Apartment) EffectiveArea() decimal.Decimal {
	if a.Area.IsPositive() {
		return a.Area
	}
	return DefaultApartmentArea
}

// Resident lives in an apartment; the owner receives billing notifications
type Resident struct {
	ID          int64
	ApartmentID string
	FullName    string
	IsOwner     bool
}
