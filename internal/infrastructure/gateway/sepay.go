// Package gateway decodes bank-transfer webhooks into inbound payments.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/condo/backend/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// SePayGateway is the gateway name reported in logs
const SePayGateway = "sepay"

// sePayTimeLayout is the layout SePay uses for transactionDate, in bank local time
const sePayTimeLayout = "2006-01-02 15:04:05"

// ErrSePayMissingAPIKey is returned when the parser is built without a key
var ErrSePayMissingAPIKey = errors.New("sepay: missing webhook API key")

// sePayWebhook is the flat notification SePay posts for every account movement
type sePayWebhook struct {
	ID              json.RawMessage  `json:"id"`
	Gateway         string           `json:"gateway"`
	TransactionDate string           `json:"transactionDate"`
	AccountNumber   string           `json:"accountNumber"`
	Content         string           `json:"content"`
	TransferType    string           `json:"transferType"`
	TransferAmount  *decimal.Decimal `json:"transferAmount"`
	ReferenceCode   string           `json:"referenceCode"`

	// Transaction is the older envelope still sent by some bank integrations
	Transaction *sePayLegacyTransaction `json:"transaction"`
}

type sePayLegacyTransaction struct {
	ID                 json.RawMessage  `json:"id"`
	TransactionDate    string           `json:"transaction_date"`
	TransactionContent string           `json:"transaction_content"`
	AmountIn           *decimal.Decimal `json:"amount_in"`
	ReferenceNumber    string           `json:"reference_number"`
}

// SePayParser verifies and decodes SePay webhooks
type SePayParser struct {
	apiKey   string
	location *time.Location
}

// SePayOption configures a SePayParser
type SePayOption func(*SePayParser)

// WithLocation sets the zone transactionDate is interpreted in (default UTC)
func WithLocation(loc *time.Location) SePayOption {
	return func(p *SePayParser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// NewSePayParser creates a parser that accepts requests carrying "Apikey <apiKey>"
func NewSePayParser(apiKey string, opts ...SePayOption) (*SePayParser, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrSePayMissingAPIKey
	}
	p := &SePayParser{apiKey: apiKey, location: time.UTC}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Gateway returns the gateway name
func (p *SePayParser) Gateway() string {
	return SePayGateway
}

// Parse verifies the Authorization header and decodes the webhook body.
// Outgoing transfers are reported as payment.ErrGatewayIgnoredCallback.
func (p *SePayParser) Parse(ctx context.Context, payload []byte, authorization string) (*payment.InboundPayment, error) {
	if !p.authorized(authorization) {
		return nil, payment.ErrGatewayInvalidCallback
	}

	var hook sePayWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayMalformedPayload, err)
	}

	if hook.Transaction != nil {
		return p.fromLegacy(hook.Transaction)
	}

	if hook.TransferType != "" && !strings.EqualFold(hook.TransferType, "in") {
		return nil, fmt.Errorf("%w: transfer type %q", payment.ErrGatewayIgnoredCallback, hook.TransferType)
	}

	amount, err := requirePositive(hook.TransferAmount, "transferAmount")
	if err != nil {
		return nil, err
	}

	reference := hook.ReferenceCode
	if reference == "" {
		reference = rawID(hook.ID)
	}

	return &payment.InboundPayment{
		Memo:             hook.Content,
		AmountReceived:   amount,
		GatewayReference: reference,
		SettledAt:        p.parseTime(hook.TransactionDate),
	}, nil
}

func (p *SePayParser) fromLegacy(tx *sePayLegacyTransaction) (*payment.InboundPayment, error) {
	amount, err := requirePositive(tx.AmountIn, "transaction.amount_in")
	if err != nil {
		return nil, err
	}

	reference := tx.ReferenceNumber
	if reference == "" {
		reference = rawID(tx.ID)
	}

	return &payment.InboundPayment{
		Memo:             tx.TransactionContent,
		AmountReceived:   amount,
		GatewayReference: reference,
		SettledAt:        p.parseTime(tx.TransactionDate),
	}, nil
}

func (p *SePayParser) authorized(header string) bool {
	scheme, key, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Apikey") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(key)), []byte(p.apiKey)) == 1
}

// parseTime returns nil for missing or unparseable dates; the reconciler then stamps its own clock
func (p *SePayParser) parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.ParseInLocation(sePayTimeLayout, value, p.location)
	if err != nil {
		return nil
	}
	return &t
}

func requirePositive(amount *decimal.Decimal, field string) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, fmt.Errorf("%w: %s is required", payment.ErrGatewayMalformedPayload, field)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive", payment.ErrGatewayMalformedPayload, field)
	}
	return *amount, nil
}

func rawID(raw json.RawMessage) string {
	id := strings.Trim(string(raw), `"`)
	if id == "null" {
		return ""
	}
	return id
}

var _ payment.InboundPaymentParser = (*SePayParser)(nil)
