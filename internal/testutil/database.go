// Package testutil provides test utilities for subhound: in-memory
// database setup and seed data helpers.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/service"
	"github.com/subhound/subhound/internal/storage"
)

// TestDB wraps an in-memory storage instance for tests.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database and registers cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedTransactions writes the given transactions or fails the test.
func (db *TestDB) SeedTransactions(transactions []model.Transaction) {
	db.t.Helper()
	if err := db.Storage.SaveTransactions(context.Background(), transactions); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
}

// MonthlySeries builds one monthly charge per amount for one merchant,
// starting at start and stepping a calendar month at a time.
func MonthlySeries(merchant, accountID string, start time.Time, amounts ...float64) []model.Transaction {
	txns := make([]model.Transaction, len(amounts))
	for i, amount := range amounts {
		date := start.AddDate(0, i, 0)
		txns[i] = model.Transaction{
			ID:          merchant + "-" + date.Format("2006-01-02"),
			Date:        date,
			Description: merchant,
			AccountID:   accountID,
			Amount:      -amount,
		}
	}
	return txns
}
