package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	paymentapp "github.com/condo/backend/internal/application/payment"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/infrastructure/logger"
	"github.com/condo/backend/internal/interfaces/http/dto"
	"github.com/condo/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookOutcomeRecorder counts webhook outcomes per gateway
type WebhookOutcomeRecorder interface {
	RecordWebhookOutcome(ctx context.Context, gateway string, code payment.OutcomeCode)
}

// WebhookHandler receives bank-transfer notifications from a payment gateway
type WebhookHandler struct {
	BaseHandler
	paymentService *paymentapp.PaymentService
	parser         payment.InboundPaymentParser
	recorder       WebhookOutcomeRecorder
}

// NewWebhookHandler creates a handler for one gateway. recorder may be nil.
func NewWebhookHandler(paymentService *paymentapp.PaymentService, parser payment.InboundPaymentParser, recorder WebhookOutcomeRecorder) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
		parser:         parser,
		recorder:       recorder,
	}
}

// Receive verifies and reconciles a gateway callback.
// Every reconciliation outcome is acknowledged with 200; only store failures answer
// 500 so the gateway retries.
// POST /api/v1/payments/webhook/{gateway}
func (h *WebhookHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BindError(c, err)
		return
	}

	outcome, err := h.paymentService.HandleGatewayCallback(ctx, h.parser, payload, c.GetHeader("Authorization"))
	switch {
	case errors.Is(err, payment.ErrGatewayInvalidCallback):
		h.Error(c, dto.ErrCodeGatewayUnauthorized, "webhook authentication failed")
		return
	case errors.Is(err, payment.ErrGatewayMalformedPayload):
		h.Error(c, dto.ErrCodeGatewayPayload, err.Error())
		return
	case err != nil:
		logger.L(ctx).Error("Webhook reconciliation failed",
			zap.String("gateway", h.parser.Gateway()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.WebhookResponse{
			Success: false,
			Message: "temporary failure, retry later",
		})
		return
	}

	if h.recorder != nil {
		h.recorder.RecordWebhookOutcome(ctx, h.parser.Gateway(), outcome.Code)
	}
	c.JSON(http.StatusOK, dto.WebhookResponse{
		Success:       outcome.Settled() || outcome.Code == payment.OutcomeIgnored,
		Outcome:       string(outcome.Code),
		TransactionID: outcome.TransactionID,
		Message:       outcome.Message,
	})
}
