package payment

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// QRDescriptor is what a banking app needs to prefill a transfer
type QRDescriptor struct {
	BankID      string          `json:"bank_id"`
	AccountNo   string          `json:"account_no"`
	AccountName string          `json:"account_name,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Content     string          `json:"content"`
	ImageURL    string          `json:"image_url"`
}

// QRTemplate renders VietQR quick-link image URLs for one receiving account
type QRTemplate struct {
	BankID      string
	AccountNo   string
	AccountName string
	Template    string
	BaseURL     string
}

// DefaultQRBaseURL is the public VietQR image endpoint
const DefaultQRBaseURL = "https://img.vietqr.io/image"

// Build returns the descriptor for an amount and correlation code. It does no I/O.
func (q QRTemplate) Build(amount decimal.Decimal, content string) QRDescriptor {
	base := q.BaseURL
	if base == "" {
		base = DefaultQRBaseURL
	}
	template := q.Template
	if template == "" {
		template = "compact2"
	}
	query := url.Values{}
	query.Set("amount", amount.Truncate(0).String())
	query.Set("addInfo", content)
	if q.AccountName != "" {
		query.Set("accountName", q.AccountName)
	}
	return QRDescriptor{
		BankID:      q.BankID,
		AccountNo:   q.AccountNo,
		AccountName: q.AccountName,
		Amount:      amount,
		Content:     content,
		ImageURL: fmt.Sprintf("%s/%s-%s-%s.png?%s",
			base, url.PathEscape(q.BankID), url.PathEscape(q.AccountNo), url.PathEscape(template), query.Encode()),
	}
}
