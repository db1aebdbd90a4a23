package payment_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	paymentapp "github.com/condo/backend/internal/application/payment"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var startTime = time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	now       time.Time
	publisher *recordingPublisher
	bills     *persistence.GormBillRepository
	txs       *persistence.GormTransactionRepository
	residents *persistence.GormResidentRepository
	resident  *billing.Resident
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, persistence.AutoMigrate(db))

	f := &fixture{
		db:        db,
		now:       startTime,
		publisher: &recordingPublisher{},
		bills:     persistence.NewGormBillRepository(db),
		txs:       persistence.NewGormTransactionRepository(db),
		residents: persistence.NewGormResidentRepository(db),
	}
	f.resident = &billing.Resident{ApartmentID: "A101", FullName: "Nguyen Van An", IsOwner: true}
	require.NoError(t, f.residents.Create(context.Background(), f.resident))
	return f
}

func (f *fixture) service(opts ...func(*paymentapp.PaymentServiceConfig)) *paymentapp.PaymentService {
	cfg := paymentapp.PaymentServiceConfig{
		BillRepo:       f.bills,
		TxRepo:         f.txs,
		ResidentRepo:   f.residents,
		TxScope:        persistence.NewGormTransactionScope(f.db),
		EventPublisher: f.publisher,
		QRTemplate:     payment.QRTemplate{BankID: "MB", AccountNo: "0123456789", AccountName: "BLUEMOON"},
		Clock:          func() time.Time { return f.now },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return paymentapp.NewPaymentService(cfg)
}

func (f *fixture) bill(t *testing.T, billType billing.BillType, amount int64) *billing.Bill {
	t.Helper()
	b, err := billing.NewBill("A101", 1, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), billType, "", decimal.NewFromInt(amount), f.now)
	require.NoError(t, err)
	require.NoError(t, f.bills.Create(context.Background(), b))
	return b
}

func (f *fixture) qr(t *testing.T, svc *paymentapp.PaymentService, bills ...*billing.Bill) *paymentapp.QrTransactionResult {
	t.Helper()
	ids := make([]int64, len(bills))
	for i, b := range bills {
		ids[i] = b.ID
	}
	res, err := svc.CreateQrTransaction(context.Background(), paymentapp.CreateQrCommand{ResidentID: f.resident.ID, BillIDs: ids})
	require.NoError(t, err)
	return res
}

func inbound(memo string, amount int64) payment.InboundPayment {
	return payment.InboundPayment{
		Memo:             memo,
		AmountReceived:   decimal.NewFromInt(amount),
		GatewayReference: "FT24123887766",
	}
}

func TestCreateQrTransaction(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()
	elec := f.bill(t, billing.BillTypeElectricity, 217836)
	water := f.bill(t, billing.BillTypeWater, 97750)

	res, err := svc.CreateQrTransaction(ctx, paymentapp.CreateQrCommand{
		ResidentID: f.resident.ID,
		BillIDs:    []int64{elec.ID, water.ID, elec.ID},
	})
	require.NoError(t, err)
	assert.NotZero(t, res.TransactionID)
	assert.Equal(t, fmt.Sprintf("BM%d", res.TransactionID), res.CorrelationCode)
	assert.True(t, decimal.NewFromInt(315586).Equal(res.TotalAmount))
	assert.Equal(t, res.CorrelationCode, res.QR.Content)
	assert.Contains(t, res.QR.ImageURL, "https://img.vietqr.io/image/MB-0123456789-compact2.png?")
	assert.Contains(t, res.QR.ImageURL, "amount=315586")
	assert.Contains(t, res.QR.ImageURL, "addInfo="+res.CorrelationCode)

	stored, err := f.txs.FindByID(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, payment.TransactionStatusPending, stored.Status)
	assert.Equal(t, res.CorrelationCode, stored.Content)
	assert.ElementsMatch(t, []int64{elec.ID, water.ID}, stored.BillIDs(), "duplicate bill ids collapse")

	requested := f.publisher.ofType(payment.EventTypePaymentRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, res.TransactionID, requested[0].(*payment.PaymentRequestedEvent).TransactionID)
}

func TestCreateQrTransaction_Rejections(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()
	open := f.bill(t, billing.BillTypeWater, 50000)
	paid := f.bill(t, billing.BillTypeService, 450000)
	_, err := f.bills.MarkPaid(ctx, []int64{paid.ID}, billing.PaymentMethodCash, f.now)
	require.NoError(t, err)

	tests := []struct {
		name   string
		cmd    paymentapp.CreateQrCommand
		target error
	}{
		{"no bills", paymentapp.CreateQrCommand{ResidentID: f.resident.ID}, shared.ErrValidation},
		{"unknown resident", paymentapp.CreateQrCommand{ResidentID: 999, BillIDs: []int64{open.ID}}, shared.ErrNotFound},
		{"unknown bill", paymentapp.CreateQrCommand{ResidentID: f.resident.ID, BillIDs: []int64{open.ID, 4242}}, shared.ErrNotFound},
		{"paid bill", paymentapp.CreateQrCommand{ResidentID: f.resident.ID, BillIDs: []int64{open.ID, paid.ID}}, shared.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateQrTransaction(ctx, tt.cmd)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	stale, err := f.txs.FindStalePending(ctx, f.now.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, stale, "rejected requests leave no transaction behind")
}

func TestReconcileInboundPayment_Settles(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()
	elec := f.bill(t, billing.BillTypeElectricity, 217836)
	water := f.bill(t, billing.BillTypeWater, 97750)
	qr := f.qr(t, svc, elec, water)

	settledAt := time.Date(2024, 5, 2, 8, 41, 0, 0, time.UTC)
	in := inbound("CHUYEN TIEN "+strings.ToLower(qr.CorrelationCode)+" THANH TOAN", 320000)
	in.SettledAt = &settledAt
	f.now = startTime.Add(12 * time.Minute)

	outcome, err := svc.ReconcileInboundPayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, payment.OutcomeSettled, outcome.Code)
	assert.True(t, outcome.Settled())
	assert.Equal(t, qr.TransactionID, outcome.TransactionID)

	stored, err := f.txs.FindByID(ctx, qr.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, payment.TransactionStatusSuccess, stored.Status)
	assert.Equal(t, in.GatewayReference, stored.GatewayCode)
	require.NotNil(t, stored.PaidAt)

	for _, id := range []int64{elec.ID, water.ID} {
		b, err := f.bills.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, billing.BillStatusPaid, b.Status)
		assert.Equal(t, billing.PaymentMethodOnlineQR, b.PaymentMethod)
	}

	settled := f.publisher.ofType(payment.EventTypePaymentSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, f.resident.ID, settled[0].(*payment.PaymentSettledEvent).ResidentID)

	t.Run("replay is acknowledged without side effects", func(t *testing.T) {
		again, err := svc.ReconcileInboundPayment(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, payment.OutcomeAlreadySettled, again.Code)
		assert.Len(t, f.publisher.ofType(payment.EventTypePaymentSettled), 1)
	})
}

func TestReconcileInboundPayment_Outcomes(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()
	bill := f.bill(t, billing.BillTypeWater, 97750)
	qr := f.qr(t, svc, bill)

	t.Run("memo without code", func(t *testing.T) {
		outcome, err := svc.ReconcileInboundPayment(ctx, inbound("tien nha thang 5", 97750))
		require.NoError(t, err)
		assert.Equal(t, payment.OutcomeNoMatch, outcome.Code)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		outcome, err := svc.ReconcileInboundPayment(ctx, inbound("BM999999", 97750))
		require.NoError(t, err)
		assert.Equal(t, payment.OutcomeUnknownTransaction, outcome.Code)
		assert.Equal(t, int64(999999), outcome.TransactionID)
	})

	t.Run("short transfer keeps the transaction pending", func(t *testing.T) {
		outcome, err := svc.ReconcileInboundPayment(ctx, inbound(qr.CorrelationCode, 97000))
		require.NoError(t, err)
		assert.Equal(t, payment.OutcomeInsufficientFunds, outcome.Code)
		assert.True(t, decimal.NewFromInt(97750).Equal(outcome.Expected))
		assert.True(t, decimal.NewFromInt(97000).Equal(outcome.Received))

		stored, err := f.txs.FindByID(ctx, qr.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, payment.TransactionStatusPending, stored.Status)

		b, err := f.bills.FindByID(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.BillStatusUnpaid, b.Status)
		assert.Len(t, f.publisher.ofType(payment.EventTypePaymentUnderpaid), 1)
	})

	t.Run("failed transaction is never resurrected", func(t *testing.T) {
		_, err := f.txs.FailIfPending(ctx, qr.TransactionID, f.now)
		require.NoError(t, err)

		outcome, err := svc.ReconcileInboundPayment(ctx, inbound(qr.CorrelationCode, 97750))
		require.NoError(t, err)
		assert.Equal(t, payment.OutcomeNotPayable, outcome.Code)
		assert.Equal(t, payment.TransactionStatusFailed, outcome.Status)

		b, err := f.bills.FindByID(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.BillStatusUnpaid, b.Status)
	})
}

// sweepingRepo fails the transaction right after the reconciler read it as PENDING
type sweepingRepo struct {
	*persistence.GormTransactionRepository
	now time.Time
}

func (r *sweepingRepo) FindByID(ctx context.Context, id int64) (*payment.PaymentTransaction, error) {
	tx, err := r.GormTransactionRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.GormTransactionRepository.FailIfPending(ctx, id, r.now); err != nil {
		return nil, err
	}
	return tx, nil
}

func TestReconcileInboundPayment_LosesRaceToSweeper(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.bill(t, billing.BillTypeService, 450000)
	qr := f.qr(t, f.service(), bill)

	svc := f.service(func(cfg *paymentapp.PaymentServiceConfig) {
		cfg.TxRepo = &sweepingRepo{GormTransactionRepository: f.txs, now: f.now}
	})
	outcome, err := svc.ReconcileInboundPayment(ctx, inbound(qr.CorrelationCode, 450000))
	require.NoError(t, err)
	assert.Equal(t, payment.OutcomeNotPayable, outcome.Code)

	b, err := f.bills.FindByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusUnpaid, b.Status)
	assert.Empty(t, f.publisher.ofType(payment.EventTypePaymentSettled))
}

func TestReconcileInboundPayment_BillCollectedMeanwhile(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()
	elec := f.bill(t, billing.BillTypeElectricity, 217836)
	water := f.bill(t, billing.BillTypeWater, 97750)
	qr := f.qr(t, svc, elec, water)

	_, err := f.bills.MarkPaid(ctx, []int64{water.ID}, billing.PaymentMethodCash, f.now)
	require.NoError(t, err)

	outcome, err := svc.ReconcileInboundPayment(ctx, inbound(qr.CorrelationCode, 315586))
	require.NoError(t, err)
	assert.Equal(t, payment.OutcomeSettledRefundDue, outcome.Code)
	assert.True(t, outcome.Settled())
	assert.Equal(t, []int64{water.ID}, outcome.RefundBillIDs)
	assert.Contains(t, outcome.Message, "97750")

	stored, err := f.txs.FindByID(ctx, qr.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, payment.TransactionStatusSuccess, stored.Status)

	e, err := f.bills.FindByID(ctx, elec.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusPaid, e.Status)
	assert.Equal(t, billing.PaymentMethodOnlineQR, e.PaymentMethod)
	w, err := f.bills.FindByID(ctx, water.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentMethodCash, w.PaymentMethod, "earlier collection is kept")

	settled := f.publisher.ofType(payment.EventTypePaymentSettled)
	require.Len(t, settled, 1)
	ev := settled[0].(*payment.PaymentSettledEvent)
	assert.Equal(t, []int64{water.ID}, ev.AlreadyPaidBillIDs)
	assert.True(t, decimal.NewFromInt(97750).Equal(ev.RefundDue))
}

type stubParser struct {
	in  *payment.InboundPayment
	err error
}

func (p stubParser) Gateway() string { return "stub" }

func (p stubParser) Parse(context.Context, []byte, string) (*payment.InboundPayment, error) {
	return p.in, p.err
}

func TestHandleGatewayCallback(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()
	qr := f.qr(t, svc, f.bill(t, billing.BillTypeWater, 97750))

	t.Run("rejected signature is an error", func(t *testing.T) {
		_, err := svc.HandleGatewayCallback(ctx, stubParser{err: payment.ErrGatewayInvalidCallback}, nil, "")
		assert.ErrorIs(t, err, payment.ErrGatewayInvalidCallback)
	})

	t.Run("ignored callback is an outcome", func(t *testing.T) {
		outcome, err := svc.HandleGatewayCallback(ctx, stubParser{err: payment.ErrGatewayIgnoredCallback}, nil, "")
		require.NoError(t, err)
		assert.Equal(t, payment.OutcomeIgnored, outcome.Code)
	})

	t.Run("parsed payment is reconciled", func(t *testing.T) {
		in := inbound(qr.CorrelationCode, 97750)
		outcome, err := svc.HandleGatewayCallback(ctx, stubParser{in: &in}, []byte("{}"), "Apikey k")
		require.NoError(t, err)
		assert.Equal(t, payment.OutcomeSettled, outcome.Code)
	})
}

func TestCollectOfflinePayment(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()
	elec := f.bill(t, billing.BillTypeElectricity, 217836)
	service := f.bill(t, billing.BillTypeService, 450000)

	res, err := svc.CollectOfflinePayment(ctx, paymentapp.OfflinePaymentCommand{
		ResidentID:   f.resident.ID,
		AccountantID: 2,
		BillIDs:      []int64{elec.ID, service.ID},
		Method:       billing.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(667836).Equal(res.TotalAmount))
	assert.ElementsMatch(t, []int64{elec.ID, service.ID}, res.BillIDs)

	stored, err := f.txs.FindByID(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, payment.TransactionStatusSuccess, stored.Status)
	assert.Equal(t, billing.PaymentMethodCash, stored.Method)

	b, err := f.bills.FindByID(ctx, elec.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusPaid, b.Status)
	assert.Equal(t, billing.PaymentMethodCash, b.PaymentMethod)

	settled := f.publisher.ofType(payment.EventTypePaymentSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, billing.PaymentMethodCash, settled[0].(*payment.PaymentSettledEvent).Method)

	t.Run("already paid bill is refused", func(t *testing.T) {
		water := f.bill(t, billing.BillTypeWater, 97750)
		_, err := svc.CollectOfflinePayment(ctx, paymentapp.OfflinePaymentCommand{
			ResidentID: f.resident.ID,
			BillIDs:    []int64{water.ID, elec.ID},
			Method:     billing.PaymentMethodOfflineTransfer,
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))

		w, err := f.bills.FindByID(ctx, water.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.BillStatusUnpaid, w.Status)
	})

	t.Run("online method is not an offline payment", func(t *testing.T) {
		_, err := svc.CollectOfflinePayment(ctx, paymentapp.OfflinePaymentCommand{
			ResidentID: f.resident.ID,
			BillIDs:    []int64{elec.ID},
			Method:     billing.PaymentMethodOnlineQR,
		})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	svc := f.service(func(cfg *paymentapp.PaymentServiceConfig) {
		cfg.SweepBatchSize = 1
	})
	ctx := context.Background()

	oldest := f.qr(t, svc, f.bill(t, billing.BillTypeElectricity, 100000))
	older := f.qr(t, svc, f.bill(t, billing.BillTypeWater, 50000))
	paid := f.qr(t, svc, f.bill(t, billing.BillTypeService, 450000))
	_, err := svc.ReconcileInboundPayment(ctx, inbound(paid.CorrelationCode, 450000))
	require.NoError(t, err)

	f.now = startTime.Add(10 * time.Minute)
	fresh := f.qr(t, svc, f.bill(t, billing.BillTypeOther, 20000))

	f.now = startTime.Add(16 * time.Minute)
	stats, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Expired)
	assert.Zero(t, stats.LostRace)
	assert.True(t, stats.Cutoff.Equal(startTime.Add(time.Minute)))

	status := func(id int64) payment.TransactionStatus {
		tx, err := f.txs.FindByID(ctx, id)
		require.NoError(t, err)
		return tx.Status
	}
	assert.Equal(t, payment.TransactionStatusFailed, status(oldest.TransactionID))
	assert.Equal(t, payment.TransactionStatusFailed, status(older.TransactionID))
	assert.Equal(t, payment.TransactionStatusSuccess, status(paid.TransactionID))
	assert.Equal(t, payment.TransactionStatusPending, status(fresh.TransactionID))

	failed := f.publisher.ofType(payment.EventTypePaymentFailed)
	require.Len(t, failed, 2)
	for _, e := range failed {
		assert.Equal(t, payment.FailureReasonExpired, e.(*payment.PaymentFailedEvent).Reason)
	}

	t.Run("second sweep is a no-op", func(t *testing.T) {
		n, err := svc.SweepExpiredTransactions(ctx, f.now, paymentapp.DefaultPendingTimeout)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("explicit timeout widens the window", func(t *testing.T) {
		n, err := svc.SweepExpiredTransactions(ctx, f.now, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, payment.TransactionStatusFailed, status(fresh.TransactionID))
	})
}
