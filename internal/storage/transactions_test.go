package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/service"
)

func testTransaction(id string, date time.Time, description, account string, amount float64) model.Transaction {
	txn := model.Transaction{
		ID:          id,
		Date:        date,
		Description: description,
		MerchantKey: description,
		AccountID:   account,
		Amount:      amount,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

func TestSaveTransactionsDeduplicates(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	txns := []model.Transaction{
		testTransaction("t1", date, "NETFLIX.COM", "checking", -15.49),
	}

	require.NoError(t, store.SaveTransactions(ctx, txns))
	// Re-importing the same rows must not duplicate them.
	require.NoError(t, store.SaveTransactions(ctx, txns))

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetTransactionsFilters(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		testTransaction("t1", base, "NETFLIX.COM", "checking", -15.49),
		testTransaction("t2", base.AddDate(0, 1, 0), "NETFLIX.COM", "checking", -15.49),
		testTransaction("t3", base, "SPOTIFY USA", "credit", -10.99),
	}))

	t.Run("by account", func(t *testing.T) {
		got, err := store.GetTransactions(ctx, service.TransactionFilter{AccountID: "credit"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "SPOTIFY USA", got[0].MerchantKey)
	})

	t.Run("by merchant", func(t *testing.T) {
		got, err := store.GetTransactions(ctx, service.TransactionFilter{MerchantKey: "NETFLIX.COM"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by date range", func(t *testing.T) {
		start := base.AddDate(0, 0, 15)
		got, err := store.GetTransactions(ctx, service.TransactionFilter{StartDate: &start})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "t2", got[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := store.GetTransactions(ctx, service.TransactionFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("ordered by date ascending", func(t *testing.T) {
		got, err := store.GetTransactions(ctx, service.TransactionFilter{MerchantKey: "NETFLIX.COM"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].Date.Before(got[1].Date))
	})
}

func TestGetTransactionByID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	txn := testTransaction("t1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "NETFLIX.COM", "checking", -15.49)
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "NETFLIX.COM", got.MerchantKey)
	assert.InDelta(t, -15.49, got.Amount, 0.001)

	_, err = store.GetTransactionByID(ctx, "missing")
	assert.Error(t, err)
}

func TestGetSpendingSummary(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		testTransaction("t1", base, "NETFLIX.COM", "checking", -15.49),
		testTransaction("t2", base.AddDate(0, 1, 0), "NETFLIX.COM", "checking", -15.49),
		testTransaction("t3", base, "SPOTIFY USA", "checking", -10.99),
	}))

	summary, err := store.GetSpendingSummary(ctx, "NETFLIX.COM", base.AddDate(0, 0, -1), base.AddDate(0, 2, 0))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 30.98, summary.Total, 0.001)
	assert.InDelta(t, 15.49, summary.Average, 0.001)
}
