package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/condo/backend/internal/domain/billing"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createPendingTransaction persists a PENDING transaction with details for the bills
func createPendingTransaction(t *testing.T, repo *GormTransactionRepository, createdAt time.Time, bills ...billing.Bill) *payment.PaymentTransaction {
	t.Helper()
	ctx := context.Background()
	tx, err := payment.NewPendingTransaction(7, bills, billing.PaymentMethodOnlineQR, createdAt)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx))
	tx.AttachID(tx.ID)
	require.NoError(t, repo.CreateDetails(ctx, tx.Details))
	return tx
}

func TestGormTransactionRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	billRepo := NewGormBillRepository(db)
	repo := NewGormTransactionRepository(db)
	ctx := context.Background()

	b1 := createBill(t, billRepo, "A101", billing.BillTypeElectricity, may2024, 100000)
	b2 := createBill(t, billRepo, "A101", billing.BillTypeWater, may2024, 50000)
	tx := createPendingTransaction(t, repo, testNow, *b1, *b2)

	require.NoError(t, repo.UpdateContent(ctx, tx.ID, "BM42"))

	found, err := repo.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.TransactionStatusPending, found.Status)
	assert.Equal(t, "BM42", found.Content)
	assert.Equal(t, "150000", found.Amount.String())
	require.Len(t, found.Details, 2)
	assert.Equal(t, []int64{b1.ID, b2.ID}, found.BillIDs())
	assert.Equal(t, tx.ID, found.Details[0].TransactionID)

	_, err = repo.FindByID(ctx, tx.ID+1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateContent(ctx, tx.ID+1, "BM0"), shared.ErrNotFound)
}

func TestGormTransactionRepository_CompareAndSet(t *testing.T) {
	db := setupTestDB(t)
	billRepo := NewGormBillRepository(db)
	repo := NewGormTransactionRepository(db)
	ctx := context.Background()
	b := createBill(t, billRepo, "A101", billing.BillTypeService, may2024, 500000)

	t.Run("settle wins once", func(t *testing.T) {
		tx := createPendingTransaction(t, repo, testNow, *b)
		settledAt := testNow.Add(time.Minute)

		changed, err := repo.SettleIfPending(ctx, tx.ID, "FT123", &settledAt, testNow.Add(2*time.Minute))
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.SettleIfPending(ctx, tx.ID, "FT124", nil, testNow.Add(3*time.Minute))
		require.NoError(t, err)
		assert.False(t, changed)

		changed, err = repo.FailIfPending(ctx, tx.ID, testNow.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)

		found, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.TransactionStatusSuccess, found.Status)
		assert.Equal(t, "FT123", found.GatewayCode)
		require.NotNil(t, found.PaidAt)
		require.NotNil(t, found.GatewaySettleAt)
	})

	t.Run("fail blocks later settlement", func(t *testing.T) {
		tx := createPendingTransaction(t, repo, testNow, *b)

		changed, err := repo.FailIfPending(ctx, tx.ID, testNow.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.SettleIfPending(ctx, tx.ID, "FT125", nil, testNow.Add(2*time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)

		found, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.TransactionStatusFailed, found.Status)
		assert.Nil(t, found.PaidAt)
	})
}

func TestGormTransactionRepository_FindStalePending(t *testing.T) {
	db := setupTestDB(t)
	billRepo := NewGormBillRepository(db)
	repo := NewGormTransactionRepository(db)
	ctx := context.Background()
	b := createBill(t, billRepo, "A101", billing.BillTypeService, may2024, 500000)

	oldest := createPendingTransaction(t, repo, testNow.Add(-40*time.Minute), *b)
	older := createPendingTransaction(t, repo, testNow.Add(-20*time.Minute), *b)
	createPendingTransaction(t, repo, testNow.Add(-5*time.Minute), *b)
	settled := createPendingTransaction(t, repo, testNow.Add(-50*time.Minute), *b)
	_, err := repo.SettleIfPending(ctx, settled.ID, "", nil, testNow)
	require.NoError(t, err)

	cutoff := testNow.Add(-15 * time.Minute)
	stale, err := repo.FindStalePending(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, oldest.ID, stale[0].ID)
	assert.Equal(t, older.ID, stale[1].ID)

	limited, err := repo.FindStalePending(ctx, cutoff, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, oldest.ID, limited[0].ID)
}

func TestGormTransactionRepository_BillLinks(t *testing.T) {
	db := setupTestDB(t)
	billRepo := NewGormBillRepository(db)
	repo := NewGormTransactionRepository(db)
	ctx := context.Background()

	b1 := createBill(t, billRepo, "A101", billing.BillTypeElectricity, may2024, 100)
	b2 := createBill(t, billRepo, "A101", billing.BillTypeWater, may2024, 200)
	b3 := createBill(t, billRepo, "A102", billing.BillTypeWater, may2024, 300)
	tx1 := createPendingTransaction(t, repo, testNow, *b1, *b2)
	tx2 := createPendingTransaction(t, repo, testNow, *b2)
	createPendingTransaction(t, repo, testNow, *b3)

	ids, err := repo.FindIDsByBillIDs(ctx, []int64{b1.ID, b2.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{tx1.ID, tx2.ID}, ids)

	found, err := repo.FindByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	deleted, err := repo.DeleteDetailsByBillIDs(ctx, []int64{b1.ID, b2.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	ids, err = repo.FindIDsByBillIDs(ctx, []int64{b1.ID, b2.ID})
	require.NoError(t, err)
	assert.Empty(t, ids)
}
