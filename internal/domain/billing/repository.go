package billing

import (
	"context"
	"time"

	"github.com/condo/backend/internal/domain/shared"
)

// BillFilter narrows bill listings
type BillFilter struct {
	shared.Filter
	ApartmentID string
	Status      BillStatus
}

// BillRepository defines the interface for bill persistence
type BillRepository interface {
	// Create inserts the bill and assigns its ID
	Create(ctx context.Context, bill *Bill) error

	// FindByID finds a bill by its ID
	FindByID(ctx context.Context, id int64) (*Bill, error)

	// FindByIDs finds bills by ID; missing IDs are simply absent from the result
	FindByIDs(ctx context.Context, ids []int64) ([]Bill, error)

	// FindByDeadline finds bills of the given types due on the deadline date
	FindByDeadline(ctx context.Context, deadline time.Time, types []BillType) ([]Bill, error)

	// DeleteByIDs deletes bills and returns the number removed
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)

	// MarkPaid flips UNPAID bills to PAID and returns the number of rows changed.
	// Bills that are already paid are left untouched.
	MarkPaid(ctx context.Context, ids []int64, method PaymentMethod, paidAt time.Time) (int64, error)

	// List returns a page of bills and the total count
	List(ctx context.Context, filter BillFilter) ([]Bill, int64, error)
}

// MeterReadingRepository defines the interface for meter reading persistence
type MeterReadingRepository interface {
	// FindByPeriod returns every reading recorded for the period
	FindByPeriod(ctx context.Context, period Period) ([]MeterReading, error)

	// FindByApartmentAndPeriod finds the reading of one apartment
	FindByApartmentAndPeriod(ctx context.Context, apartmentID string, period Period) (*MeterReading, error)

	// Upsert creates the reading or replaces the one for the same apartment and period
	Upsert(ctx context.Context, reading *MeterReading) error
}

// ServiceFeeRepository defines the interface for service fee persistence
type ServiceFeeRepository interface {
	FindAll(ctx context.Context) ([]ServiceFee, error)
	FindByBuilding(ctx context.Context, buildingID string) ([]ServiceFee, error)
	// Upsert creates the fee or updates the one with the same building and name
	Upsert(ctx context.Context, fee *ServiceFee) error
}

// ApartmentRepository reads apartment reference data
type ApartmentRepository interface {
	FindAll(ctx context.Context) ([]Apartment, error)
	FindByID(ctx context.Context, id string) (*Apartment, error)
}

// ResidentRepository reads resident reference data
type ResidentRepository interface {
	FindByID(ctx context.Context, id int64) (*Resident, error)
	// FindOwner returns the owner of the apartment, or the first resident if no owner is flagged
	FindOwner(ctx context.Context, apartmentID string) (*Resident, error)
}
