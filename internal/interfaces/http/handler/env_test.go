package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	billingapp "github.com/condo/backend/internal/application/billing"
	paymentapp "github.com/condo/backend/internal/application/payment"
	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/infrastructure/event"
	"github.com/condo/backend/internal/infrastructure/gateway"
	"github.com/condo/backend/internal/infrastructure/persistence"
	"github.com/condo/backend/internal/interfaces/http/dto"
	"github.com/condo/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const webhookKey = "sepay-secret"

var testNow = time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type outcomeRecorder struct {
	outcomes []payment.OutcomeCode
}

func (r *outcomeRecorder) RecordWebhookOutcome(_ context.Context, _ string, code payment.OutcomeCode) {
	r.outcomes = append(r.outcomes, code)
}

// testEnv wires the real services over an in-memory sqlite store
type testEnv struct {
	db        *gorm.DB
	now       time.Time
	router    *gin.Engine
	bills     *persistence.GormBillRepository
	txs       *persistence.GormTransactionRepository
	residents *persistence.GormResidentRepository
	payments  *paymentapp.PaymentService
	recorder  *outcomeRecorder
	resident  *billing.Resident
}

func newTestEnv(t *testing.T) *testEnv {
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

	env := &testEnv{
		db:        db,
		now:       testNow,
		bills:     persistence.NewGormBillRepository(db),
		txs:       persistence.NewGormTransactionRepository(db),
		residents: persistence.NewGormResidentRepository(db),
		recorder:  &outcomeRecorder{},
	}
	clock := func() time.Time { return env.now }
	bus := event.NewInMemoryEventBus(nil)
	scope := persistence.NewGormTransactionScope(db)

	billingService := billingapp.NewBillingService(billingapp.BillingServiceConfig{
		ApartmentRepo:  persistence.NewGormApartmentRepository(db),
		ReadingRepo:    persistence.NewGormMeterReadingRepository(db),
		FeeRepo:        persistence.NewGormServiceFeeRepository(db),
		BillRepo:       env.bills,
		TxScope:        scope,
		EventPublisher: bus,
		Clock:          clock,
	})
	env.payments = paymentapp.NewPaymentService(paymentapp.PaymentServiceConfig{
		BillRepo:       env.bills,
		TxRepo:         env.txs,
		ResidentRepo:   env.residents,
		TxScope:        scope,
		EventPublisher: bus,
		QRTemplate:     payment.QRTemplate{BankID: "MB", AccountNo: "0123456789", AccountName: "BLUEMOON"},
		Clock:          clock,
	})
	parser, err := gateway.NewSePayParser(webhookKey)
	require.NoError(t, err)

	billingHandler := NewBillingHandler(billingService, 15)
	paymentHandler := NewPaymentHandler(env.payments)
	webhookHandler := NewWebhookHandler(env.payments, parser, env.recorder)
	systemHandler := NewSystemHandler(&persistence.Database{DB: db}, "test")

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Actor())
	r.GET("/health", systemHandler.Health)
	api := r.Group("/api/v1")
	api.POST("/billing/bills/generate", billingHandler.GenerateBills)
	api.POST("/billing/bills", billingHandler.CreateManualBill)
	api.GET("/billing/bills", billingHandler.ListBills)
	api.POST("/billing/meter-readings", billingHandler.RecordMeterReading)
	api.PUT("/billing/service-fees", billingHandler.UpsertServiceFee)
	api.POST("/payments/qr", paymentHandler.CreateQr)
	api.POST("/payments/offline", paymentHandler.CollectOffline)
	api.POST("/payments/expiry/sweep", paymentHandler.TriggerSweep)
	api.POST("/payments/webhook/sepay", webhookHandler.Receive)
	env.router = r

	ctx := context.Background()
	require.NoError(t, persistence.NewGormApartmentRepository(db).Save(ctx,
		&billing.Apartment{ID: "A101", BuildingID: "B1", Area: decimal.NewFromInt(50)}))
	env.resident = &billing.Resident{ApartmentID: "A101", FullName: "Nguyen Van An", IsOwner: true}
	require.NoError(t, env.residents.Create(ctx, env.resident))
	return env
}

// do sends a request with an optional JSON body and extra headers (name, value pairs)
func (e *testEnv) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) bill(t *testing.T, billType billing.BillType, amount int64) *billing.Bill {
	t.Helper()
	b, err := billing.NewBill("A101", 1, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), billType, "", decimal.NewFromInt(amount), e.now)
	require.NoError(t, err)
	require.NoError(t, e.bills.Create(context.Background(), b))
	return b
}

// decode unmarshals the response envelope and its data into out (when non-nil)
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var envelope struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Response
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
