// Package notification writes resident inbox entries for billing and payment events.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/notification"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotificationHandler turns committed domain events into notifications.
// It runs after the billing or settlement transaction, so a failure here
// never affects financial state.
type NotificationHandler struct {
	residentRepo     billing.ResidentRepository
	notificationRepo notification.NotificationRepository
	printer          *message.Printer
	now              func() time.Time
	logger           *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(
	residentRepo billing.ResidentRepository,
	notificationRepo notification.NotificationRepository,
	logger *zap.Logger,
) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		residentRepo:     residentRepo,
		notificationRepo: notificationRepo,
		printer:          message.NewPrinter(language.English),
		now:              time.Now,
		logger:           logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		billing.EventTypeBillCreated,
		payment.EventTypePaymentSettled,
		payment.EventTypePaymentUnderpaid,
		payment.EventTypePaymentFailed,
	}
}

// Handle processes a domain event
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *billing.BillCreatedEvent:
		return h.notifyNewBill(ctx, e)
	case *payment.PaymentSettledEvent:
		return h.notifyPaymentResult(ctx, e.EventID().String(), e.ResidentID, e.TransactionID,
			"Payment successful",
			fmt.Sprintf("Payment #%d of %s VND has been received. Thank you!", e.TransactionID, h.money(e.Amount)))
	case *payment.PaymentUnderpaidEvent:
		return h.notifyPaymentResult(ctx, e.EventID().String(), e.ResidentID, e.TransactionID,
			"Payment incomplete",
			fmt.Sprintf("Payment #%d received %s VND but %s VND is due. Please transfer the full amount or contact the management office.",
				e.TransactionID, h.money(e.Received), h.money(e.Expected)))
	case *payment.PaymentFailedEvent:
		return h.notifyPaymentResult(ctx, e.EventID().String(), e.ResidentID, e.TransactionID,
			"Payment failed",
			fmt.Sprintf("Payment #%d of %s VND was not completed (%s). Please create a new payment.",
				e.TransactionID, h.money(e.Amount), strings.ReplaceAll(e.Reason, "_", " ")))
	default:
		h.logger.Debug("Notification handler ignoring event", zap.String("event_type", event.EventType()))
		return nil
	}
}

func (h *NotificationHandler) notifyNewBill(ctx context.Context, e *billing.BillCreatedEvent) error {
	owner, err := h.residentRepo.FindOwner(ctx, e.ApartmentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Info("No resident to notify for bill",
				zap.Int64("bill_id", e.BillID),
				zap.String("apartment_id", e.ApartmentID))
			return nil
		}
		return fmt.Errorf("failed to find apartment owner: %w", err)
	}

	title, content := h.composeNewBill(e)
	return h.notificationRepo.Create(ctx, &notification.Notification{
		ResidentID:    owner.ID,
		Type:          notification.NotificationTypeNewBill,
		Title:         title,
		Content:       content,
		RelatedID:     e.BillID,
		SourceEventID: e.EventID().String(),
		CreatedAt:     h.now(),
	})
}

func (h *NotificationHandler) composeNewBill(e *billing.BillCreatedEvent) (string, string) {
	period := ""
	if e.Period != nil {
		period = " " + e.Period.String()
	}
	deadline := e.Deadline.Format("02/01/2006")

	var b strings.Builder
	var title string
	switch e.BillType {
	case billing.BillTypeElectricity:
		title = "Electricity bill" + period
		fmt.Fprintf(&b, "Electricity bill for apartment %s:\n", e.ApartmentID)
		if e.Reading != nil {
			fmt.Fprintf(&b, "- Meter: %s -> %s\n- Consumption: %s kWh\n",
				e.Reading.OldValue.String(), e.Reading.NewValue.String(), e.Reading.Consumption.String())
		}
	case billing.BillTypeWater:
		title = "Water bill" + period
		fmt.Fprintf(&b, "Water bill for apartment %s:\n", e.ApartmentID)
		if e.Reading != nil {
			fmt.Fprintf(&b, "- Meter: %s -> %s\n- Consumption: %s m3\n",
				e.Reading.OldValue.String(), e.Reading.NewValue.String(), e.Reading.Consumption.String())
		}
	case billing.BillTypeService:
		title = "Service fees" + period
		fmt.Fprintf(&b, "Service fees for apartment %s (management, parking, cleaning):\n", e.ApartmentID)
	default:
		title = "New bill: " + e.Label
		fmt.Fprintf(&b, "New bill for apartment %s: %s\n", e.ApartmentID, e.Label)
	}
	fmt.Fprintf(&b, "- Total: %s VND\n- Due: %s", h.money(e.Total), deadline)
	return title, b.String()
}

func (h *NotificationHandler) notifyPaymentResult(ctx context.Context, eventID string, residentID, transactionID int64, title, content string) error {
	if residentID == 0 {
		return nil
	}
	return h.notificationRepo.Create(ctx, &notification.Notification{
		ResidentID:    residentID,
		Type:          notification.NotificationTypePaymentResult,
		Title:         title,
		Content:       content,
		RelatedID:     transactionID,
		SourceEventID: eventID,
		CreatedAt:     h.now(),
	})
}

// money renders whole currency units with thousands separators
func (h *NotificationHandler) money(amount decimal.Decimal) string {
	return h.printer.Sprintf("%d", amount.Round(0).IntPart())
}

var _ shared.EventHandler = (*NotificationHandler)(nil)
