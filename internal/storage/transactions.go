package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/subhound/subhound/internal/common"
	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/service"
)

// SaveTransactions saves multiple transactions to the database. Existing
// rows (same hash) are left untouched so re-imports are idempotent.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, date, description, merchant_key, amount, account_id, archived
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		if _, err := stmt.ExecContext(ctx,
			txn.ID,
			txn.Hash,
			txn.Date,
			txn.Description,
			txn.MerchantKey,
			txn.Amount,
			txn.AccountID,
			boolToInt(txn.Archived),
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactions returns transactions matching the filter, ordered
// ascending by date. Archived transactions are excluded unless requested.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, hash, date, description, merchant_key, amount, account_id, archived
		FROM transactions
	`
	var conditions []string
	var args []any

	if !filter.IncludeArchived {
		conditions = append(conditions, "archived = 0")
	}
	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.MerchantKey != "" {
		conditions = append(conditions, "merchant_key = ?")
		args = append(args, filter.MerchantKey)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, *filter.EndDate)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var txn model.Transaction
	var archived int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, hash, date, description, merchant_key, amount, account_id, archived
		FROM transactions
		WHERE id = ?
	`, id).Scan(
		&txn.ID,
		&txn.Hash,
		&txn.Date,
		&txn.Description,
		&txn.MerchantKey,
		&txn.Amount,
		&txn.AccountID,
		&archived,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	txn.Archived = archived != 0
	return &txn, nil
}

// GetSpendingSummary aggregates spend for one merchant over a period.
func (s *SQLiteStorage) GetSpendingSummary(ctx context.Context, merchantKey string, start, end time.Time) (*service.SpendingSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchantKey, "merchantKey"); err != nil {
		return nil, err
	}

	summary := service.SpendingSummary{
		MerchantKey: merchantKey,
		Start:       start,
		End:         end,
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(ABS(amount)), 0)
		FROM transactions
		WHERE merchant_key = ? AND date >= ? AND date <= ? AND archived = 0
	`, merchantKey, start, end).Scan(&summary.Count, &summary.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to compute spending summary: %w", err)
	}

	if summary.Count > 0 {
		summary.Average = summary.Total / float64(summary.Count)
	}

	return &summary, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var archived int
		if err := rows.Scan(
			&txn.ID,
			&txn.Hash,
			&txn.Date,
			&txn.Description,
			&txn.MerchantKey,
			&txn.Amount,
			&txn.AccountID,
			&archived,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Archived = archived != 0
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return transactions, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
