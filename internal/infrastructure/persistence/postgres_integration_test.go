//go:build integration

package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupPostgres starts a throwaway postgres and applies the embedded migrations
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("condo_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)

	m, err := migration.New(sqlDB, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	return db
}

func TestPostgres_ConcurrentSettleAndExpire(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, NewGormApartmentRepository(db).Save(ctx, &billing.Apartment{
		ID: "A101", BuildingID: "A", Area: decimal.NewFromInt(70),
	}))
	billRepo := NewGormBillRepository(db)
	txRepo := NewGormTransactionRepository(db)

	const rounds = 20
	for i := 0; i < rounds; i++ {
		deadline := may2024.AddDate(0, i, 0)
		b := createBill(t, billRepo, "A101", billing.BillTypeService, deadline, 500000)
		tx := createPendingTransaction(t, txRepo, testNow, *b)

		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for _, settle := range []bool{true, false} {
			wg.Add(1)
			go func(settle bool) {
				defer wg.Done()
				<-start
				var ok bool
				var err error
				if settle {
					ok, err = txRepo.SettleIfPending(ctx, tx.ID, "FT123", nil, testNow)
				} else {
					ok, err = txRepo.FailIfPending(ctx, tx.ID, testNow)
				}
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}(settle)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load(), "round %d", i)
		found, err := txRepo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.NotEqual(t, payment.TransactionStatusPending, found.Status)
	}
}

func TestPostgres_AutomatedBillUniqueness(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, NewGormApartmentRepository(db).Save(ctx, &billing.Apartment{ID: "A101", BuildingID: "A"}))
	billRepo := NewGormBillRepository(db)

	createBill(t, billRepo, "A101", billing.BillTypeWater, may2024, 50000)

	dup, err := billing.NewBill("A101", 1, may2024, billing.BillTypeWater, "", decimal.NewFromInt(60000), testNow)
	require.NoError(t, err)
	assert.Error(t, billRepo.Create(ctx, dup))

	// manual bills may repeat within a period
	createBill(t, billRepo, "A101", billing.BillTypeOther, may2024, 10000)
	createBill(t, billRepo, "A101", billing.BillTypeOther, may2024, 20000)
}
