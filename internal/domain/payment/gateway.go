package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrGatewayInvalidCallback  = errors.New("payment: invalid callback signature")
	ErrGatewayMalformedPayload = errors.New("payment: malformed callback payload")
	// ErrGatewayIgnoredCallback marks notifications that are valid but irrelevant (e.g. outgoing transfers)
	ErrGatewayIgnoredCallback = errors.New("payment: callback ignored")
)

// InboundPayment is a normalized bank-transfer notification
type InboundPayment struct {
	Memo             string
	AmountReceived   decimal.Decimal
	GatewayReference string
	SettledAt        *time.Time
}

// InboundPaymentParser verifies and decodes one gateway's webhook format
type InboundPaymentParser interface {
	// Gateway returns the gateway name used in logs and metrics
	Gateway() string

	// Parse verifies the authorization header and decodes the payload
	Parse(ctx context.Context, payload []byte, authorization string) (*InboundPayment, error)
}
