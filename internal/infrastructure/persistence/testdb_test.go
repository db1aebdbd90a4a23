package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database with the full schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

var (
	may2024  = time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	june2024 = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	testNow  = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
)

func createBill(t *testing.T, repo *GormBillRepository, apartmentID string, billType billing.BillType, deadline time.Time, amount int64) *billing.Bill {
	t.Helper()
	b, err := billing.NewBill(apartmentID, 1, deadline, billType, "", decimal.NewFromInt(amount), testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}
