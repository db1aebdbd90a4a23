package billing

import (
	"time"

	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeBillCreated = "BillCreated"
)

// BillCreatedEvent is raised once a bill has been committed
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID      int64           `json:"bill_id"`
	ApartmentID string          `json:"apartment_id"`
	BillType    BillType        `json:"bill_type"`
	Label       string          `json:"label"`
	Total       decimal.Decimal `json:"total"`
	Deadline    time.Time       `json:"deadline"`
	Period      *Period         `json:"period,omitempty"`
	Reading     *ReadingDetail  `json:"reading,omitempty"`
}

// NewBillCreatedEvent creates a new BillCreatedEvent. Period and reading are
// optional and only set for generated bills.
func NewBillCreatedEvent(b *Bill, period *Period, reading *ReadingDetail) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillCreated, AggregateTypeBill, b.ID),
		BillID:          b.ID,
		ApartmentID:     b.ApartmentID,
		BillType:        b.Type,
		Label:           b.Label(),
		Total:           b.Total,
		Deadline:        b.Deadline,
		Period:          period,
		Reading:         reading,
	}
}

// EventType returns the event type name
func (e *BillCreatedEvent) EventType() string {
	return EventTypeBillCreated
}
