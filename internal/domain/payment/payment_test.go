package payment

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unpaidBill(id int64, amount int64) billing.Bill {
	return billing.Bill{
		BaseEntity:  shared.BaseEntity{ID: id},
		ApartmentID: "A101",
		Type:        billing.BillTypeService,
		Amount:      decimal.NewFromInt(amount),
		Total:       decimal.NewFromInt(amount),
		Status:      billing.BillStatusUnpaid,
	}
}

func TestCorrelationCodec_Extract(t *testing.T) {
	codec := NewCorrelationCodec("")

	tests := []struct {
		name   string
		memo   string
		wantID int64
		wantOK bool
	}{
		{"exact code", "BM42", 42, true},
		{"embedded in bank memo", "MBVCB.123456.NGUYEN VAN A chuyen tien BM1007 thanh toan", 1007, true},
		{"lowercase", "thanh toan bm15", 15, true},
		{"space separator", "BM 77 tien dien", 77, true},
		{"dash separator", "BM-8", 8, true},
		{"first match wins", "BM5 BM6", 5, true},
		{"no code", "chuyen tien dien thang 3", 0, false},
		{"prefix without digits", "BM thang ba", 0, false},
		{"zero id", "BM0", 0, false},
		{"prefix inside a word", "THANH TOAN ABM 5 BM42", 42, true},
		{"prefix after digits", "1BM7", 0, false},
		{"after punctuation", "CT.BM19.A101", 19, true},
		{"id overflows", "BM12345678901234567890", 0, false},
		{"nineteen digits", "BM1234567890123456789", 1234567890123456789, true},
		{"empty memo", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := codec.Extract(tt.memo)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestCorrelationCodec_RoundTrip(t *testing.T) {
	codec := NewCorrelationCodec("cd")
	code := codec.Encode(12345)
	assert.Equal(t, "CD12345", code)

	id, ok := codec.Extract("IBFT " + code + " apartment A101")
	require.True(t, ok)
	assert.Equal(t, int64(12345), id)
}

func TestNewPendingTransaction(t *testing.T) {
	now := time.Now()

	t.Run("sums bill totals", func(t *testing.T) {
		tx, err := NewPendingTransaction(9, []billing.Bill{unpaidBill(1, 500000), unpaidBill(2, 300000)}, billing.PaymentMethodOnlineQR, now)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(800000).Equal(tx.Amount))
		assert.Equal(t, TransactionStatusPending, tx.Status)
		assert.Equal(t, []int64{1, 2}, tx.BillIDs())

		tx.AttachID(55)
		assert.Equal(t, int64(55), tx.Details[0].TransactionID)
		assert.Equal(t, int64(55), tx.Details[1].TransactionID)
	})

	t.Run("rejects empty bill list", func(t *testing.T) {
		_, err := NewPendingTransaction(9, nil, billing.PaymentMethodOnlineQR, now)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("rejects paid bill", func(t *testing.T) {
		paid := unpaidBill(3, 1000)
		paid.Status = billing.BillStatusPaid
		_, err := NewPendingTransaction(9, []billing.Bill{unpaidBill(1, 10), paid}, billing.PaymentMethodOnlineQR, now)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
}

func TestPaymentTransaction_StateMachine(t *testing.T) {
	now := time.Now()
	newTx := func() *PaymentTransaction {
		tx, err := NewPendingTransaction(1, []billing.Bill{unpaidBill(1, 1000)}, billing.PaymentMethodOnlineQR, now)
		require.NoError(t, err)
		return tx
	}

	t.Run("settle then fail is rejected", func(t *testing.T) {
		tx := newTx()
		require.NoError(t, tx.Settle("FT123", nil, now))
		assert.Equal(t, TransactionStatusSuccess, tx.Status)
		assert.Equal(t, "FT123", tx.GatewayCode)
		assert.True(t, errors.Is(tx.Fail(now), shared.ErrInvalidState))
		assert.True(t, errors.Is(tx.Settle("FT124", nil, now), shared.ErrInvalidState))
	})

	t.Run("fail then settle is rejected", func(t *testing.T) {
		tx := newTx()
		require.NoError(t, tx.Fail(now))
		assert.True(t, tx.Status.IsFinal())
		assert.True(t, errors.Is(tx.Settle("FT1", nil, now), shared.ErrInvalidState))
	})

	t.Run("covers uses exact comparison", func(t *testing.T) {
		tx := newTx()
		assert.True(t, tx.Covers(decimal.NewFromInt(1000)))
		assert.True(t, tx.Covers(decimal.NewFromInt(1001)))
		assert.False(t, tx.Covers(decimal.RequireFromString("999.99")))
	})

	t.Run("stale detection", func(t *testing.T) {
		tx := newTx()
		assert.False(t, tx.IsStale(now.Add(10*time.Minute), 15*time.Minute))
		assert.True(t, tx.IsStale(now.Add(16*time.Minute), 15*time.Minute))
		require.NoError(t, tx.Fail(now))
		assert.False(t, tx.IsStale(now.Add(time.Hour), 15*time.Minute))
	})
}

func TestQRTemplate_Build(t *testing.T) {
	q := QRTemplate{BankID: "MB", AccountNo: "0123456789", Template: "compact2"}
	desc := q.Build(decimal.NewFromInt(800000), "BM12")

	assert.Equal(t, "BM12", desc.Content)
	assert.True(t, strings.HasPrefix(desc.ImageURL, "https://img.vietqr.io/image/MB-0123456789-compact2.png?"))
	assert.Contains(t, desc.ImageURL, "amount=800000")
	assert.Contains(t, desc.ImageURL, "addInfo=BM12")
}

func TestReconcileOutcome_Settled(t *testing.T) {
	tx := &PaymentTransaction{Amount: decimal.NewFromInt(10)}
	assert.True(t, SettledOutcome(tx, decimal.NewFromInt(10)).Settled())
	assert.True(t, AlreadySettledOutcome(tx).Settled())
	assert.False(t, InsufficientFundsOutcome(tx, decimal.NewFromInt(5)).Settled())
	assert.False(t, NoMatchOutcome().Settled())
}
