package handler

import (
	paymentapp "github.com/condo/backend/internal/application/payment"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles QR payment requests, counter collections and manual sweeps
type PaymentHandler struct {
	BaseHandler
	paymentService *paymentapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *paymentapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateQrRequest selects the bills a resident wants to pay by bank transfer
type CreateQrRequest struct {
	ResidentID int64   `json:"resident_id" binding:"required,gt=0"`
	BillIDs    []int64 `json:"bill_ids" binding:"required,min=1,dive,gt=0"`
}

// CreateQr opens a PENDING transaction and returns the QR the resident scans.
// POST /api/v1/payments/qr
func (h *PaymentHandler) CreateQr(c *gin.Context) {
	var req CreateQrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.paymentService.CreateQrTransaction(c.Request.Context(), paymentapp.CreateQrCommand{
		ResidentID: req.ResidentID,
		BillIDs:    req.BillIDs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// OfflinePaymentRequest records bills paid at the management office
type OfflinePaymentRequest struct {
	ResidentID int64   `json:"resident_id" binding:"required,gt=0"`
	BillIDs    []int64 `json:"bill_ids" binding:"required,min=1,dive,gt=0"`
	Method     string  `json:"method" binding:"omitempty,oneof=CASH OFFLINE_TRANSFER"`
}

// CollectOffline records a cash or counter-transfer collection by the acting accountant.
// POST /api/v1/payments/offline
func (h *PaymentHandler) CollectOffline(c *gin.Context) {
	var req OfflinePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	method := billing.PaymentMethod(req.Method)
	if method == "" {
		method = billing.PaymentMethodCash
	}

	result, err := h.paymentService.CollectOfflinePayment(c.Request.Context(), paymentapp.OfflinePaymentCommand{
		ResidentID:   req.ResidentID,
		AccountantID: middleware.GetActorID(c),
		BillIDs:      req.BillIDs,
		Method:       method,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// TriggerSweep runs one expiry sweep with the configured timeout.
// POST /api/v1/payments/expiry/sweep
func (h *PaymentHandler) TriggerSweep(c *gin.Context) {
	stats, err := h.paymentService.SweepExpired(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
