package billing

import (
	"strings"
	"time"

	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeeKind determines how a service fee is charged to an apartment
type FeeKind string

const (
	// FeeKindFixed is a flat amount per apartment
	FeeKindFixed FeeKind = "FIXED"
	// FeeKindPerArea is multiplied by the apartment floor area (management, cleaning)
	FeeKindPerArea FeeKind = "PER_AREA"
	// FeeKindUtility is a metered fee priced by the tariff schedules, never by the fee table
	FeeKindUtility FeeKind = "UTILITY"
)

// IsValid returns true if the kind is known
func (k FeeKind) IsValid() bool {
	return k == FeeKindFixed || k == FeeKindPerArea || k == FeeKindUtility
}

// ServiceFee is a per-building charge
type ServiceFee struct {
	shared.BaseEntity
	BuildingID string
	Name       string
	UnitPrice  decimal.Decimal
	Kind       FeeKind
}

// NewServiceFee validates and creates a service fee
func NewServiceFee(buildingID, name string, unitPrice decimal.Decimal, kind FeeKind, now time.Time) (*ServiceFee, error) {
	if buildingID == "" {
		return nil, shared.NewValidationError("building id is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("service fee name is required")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("service fee unit price must not be negative")
	}
	if kind == "" {
		kind = FeeKindFixed
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("unknown fee kind %q", kind)
	}
	if kind == FeeKindFixed && !IsWholeAmount(unitPrice) {
		return nil, shared.NewValidationError("fixed service fee must be a whole currency amount, got %s", unitPrice.String())
	}
	return &ServiceFee{
		BaseEntity: shared.NewBaseEntity(now),
		BuildingID: buildingID,
		Name:       strings.TrimSpace(name),
		UnitPrice:  unitPrice,
		Kind:       kind,
	}, nil
}

// ChargeFor returns what the fee costs the apartment in whole currency units.
// Utility fees are zero here.
func (f *ServiceFee) ChargeFor(apt *Apartment) decimal.Decimal {
	switch f.Kind {
	case FeeKindFixed:
		return f.UnitPrice.Round(0)
	case FeeKindPerArea:
		return f.UnitPrice.Mul(apt.EffectiveArea()).Round(0)
	default:
		return decimal.Zero
	}
}

// FixedServiceTotal sums the non-utility fees of the apartment's building
func FixedServiceTotal(fees []ServiceFee, apt *Apartment) decimal.Decimal {
	total := decimal.Zero
	for i := range fees {
		if fees[i].BuildingID != apt.BuildingID {
			continue
		}
		total = total.Add(fees[i].ChargeFor(apt))
	}
	return total
}
