package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single imported financial transaction.
// The detection engine treats transactions as read-only once imported.
type Transaction struct {
	Date        time.Time
	ID          string
	Description string // Raw transaction description
	MerchantKey string // Normalized merchant key, set by the series builder
	AccountID   string
	Hash        string
	Amount      float64 // Signed; negative values are expenses
	Archived    bool
}

// GenerateHash creates a unique hash for duplicate detection on import.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsExpense reports whether the transaction is money leaving the account.
func (t *Transaction) IsExpense() bool {
	return t.Amount < 0
}
