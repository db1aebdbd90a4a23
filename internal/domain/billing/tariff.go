package billing

import (
	"github.com/shopspring/decimal"
)

// Tier is one consumption bracket of a progressive tariff.
// A zero Block marks the open-ended last bracket.
type Tier struct {
	Block     decimal.Decimal
	UnitPrice decimal.Decimal
}

// TariffSchedule prices consumption progressively: cheaper brackets are exhausted
// before more expensive ones apply. Surcharges are percentages of the tier subtotal
// and are never compounded on each other.
type TariffSchedule struct {
	Name       string
	Tiers      []Tier
	Surcharges []decimal.Decimal
}

func tier(block, price int64) Tier {
	return Tier{Block: decimal.NewFromInt(block), UnitPrice: decimal.NewFromInt(price)}
}

// ElectricitySchedule is the residential electricity tariff (VND per kWh) with 8% VAT.
var ElectricitySchedule = TariffSchedule{
	Name: "electricity",
	Tiers: []Tier{
		tier(50, 1984),
		tier(50, 2050),
		tier(100, 2380),
		tier(100, 2998),
		tier(100, 3350),
		tier(0, 3460),
	},
	Surcharges: []decimal.Decimal{decimal.RequireFromString("0.08")},
}

// WaterSchedule is the residential water tariff (VND per m3) with a 10%
// environmental protection fee and 5% VAT.
var WaterSchedule = TariffSchedule{
	Name: "water",
	Tiers: []Tier{
		tier(10, 8500),
		tier(10, 9900),
		tier(10, 16000),
		tier(0, 27000),
	},
	Surcharges: []decimal.Decimal{
		decimal.RequireFromString("0.10"),
		decimal.RequireFromString("0.05"),
	},
}

// Subtotal returns the tier sum before surcharges
func (s TariffSchedule) Subtotal(consumption decimal.Decimal) decimal.Decimal {
	subtotal := decimal.Zero
	if !consumption.IsPositive() {
		return subtotal
	}
	remaining := consumption
	for _, t := range s.Tiers {
		if !remaining.IsPositive() {
			break
		}
		used := remaining
		if t.Block.IsPositive() && remaining.GreaterThan(t.Block) {
			used = t.Block
		}
		subtotal = subtotal.Add(used.Mul(t.UnitPrice))
		remaining = remaining.Sub(used)
	}
	return subtotal
}

// Cost returns the payable amount for the consumption, rounded half away from
// zero to a whole currency unit. Non-positive consumption costs exactly zero.
func (s TariffSchedule) Cost(consumption decimal.Decimal) decimal.Decimal {
	if !consumption.IsPositive() {
		return decimal.Zero
	}
	subtotal := s.Subtotal(consumption)
	total := subtotal
	for _, rate := range s.Surcharges {
		total = total.Add(subtotal.Mul(rate))
	}
	return total.Round(0)
}

// ElectricityCost prices kWh consumption with the default electricity schedule
func ElectricityCost(kwh decimal.Decimal) decimal.Decimal {
	return ElectricitySchedule.Cost(kwh)
}

// WaterCost prices m3 consumption with the default water schedule
func WaterCost(m3 decimal.Decimal) decimal.Decimal {
	return WaterSchedule.Cost(m3)
}
