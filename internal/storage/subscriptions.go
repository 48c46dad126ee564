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
)

// GetSubscription retrieves a subscription by merchant key and account.
func (s *SQLiteStorage) GetSubscription(ctx context.Context, merchantKey, accountID string) (*model.Subscription, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchantKey, "merchantKey"); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}

	return s.scanSubscriptionRow(s.db.QueryRowContext(ctx, `
		SELECT id, merchant_key, account_id, amount, periodicity, status,
		       category, confidence, first_seen, last_seen, last_updated
		FROM subscriptions
		WHERE merchant_key = ? AND account_id = ?
	`, merchantKey, accountID))
}

// GetSubscriptionByID retrieves a subscription by its identifier.
func (s *SQLiteStorage) GetSubscriptionByID(ctx context.Context, id string) (*model.Subscription, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	return s.scanSubscriptionRow(s.db.QueryRowContext(ctx, `
		SELECT id, merchant_key, account_id, amount, periodicity, status,
		       category, confidence, first_seen, last_seen, last_updated
		FROM subscriptions
		WHERE id = ?
	`, id))
}

// GetSubscriptions returns subscriptions, optionally filtered by status.
func (s *SQLiteStorage) GetSubscriptions(ctx context.Context, statuses ...model.SubscriptionStatus) ([]model.Subscription, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, merchant_key, account_id, amount, periodicity, status,
		       category, confidence, first_seen, last_seen, last_updated
		FROM subscriptions
	`
	var args []any
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			if err := validateStatus(status); err != nil {
				return nil, err
			}
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY merchant_key ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		sub, scanErr := scanSubscription(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		subs = append(subs, *sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return subs, nil
}

// SaveSubscription inserts or updates a subscription row.
func (s *SQLiteStorage) SaveSubscription(ctx context.Context, sub *model.Subscription) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSubscription(sub); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (
			id, merchant_key, account_id, amount, periodicity, status,
			category, confidence, first_seen, last_seen, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(merchant_key, account_id) DO UPDATE SET
			amount = excluded.amount,
			periodicity = excluded.periodicity,
			status = excluded.status,
			category = excluded.category,
			confidence = excluded.confidence,
			last_seen = excluded.last_seen,
			last_updated = excluded.last_updated
	`,
		sub.ID,
		sub.MerchantKey,
		sub.AccountID,
		sub.Amount,
		string(sub.Periodicity),
		string(sub.Status),
		sub.Category,
		sub.Confidence,
		sub.FirstSeen,
		sub.LastSeen,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save subscription %s: %w", sub.MerchantKey, err)
	}

	return nil
}

// UpdateSubscriptionStatus changes the status of one subscription.
func (s *SQLiteStorage) UpdateSubscriptionStatus(ctx context.Context, id string, status model.SubscriptionStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = ?, last_updated = ?
		WHERE id = ?
	`, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (s *SQLiteStorage) scanSubscriptionRow(row *sql.Row) (*model.Subscription, error) {
	var sub model.Subscription
	var periodicity, status string
	var category sql.NullString

	err := row.Scan(
		&sub.ID,
		&sub.MerchantKey,
		&sub.AccountID,
		&sub.Amount,
		&periodicity,
		&status,
		&category,
		&sub.Confidence,
		&sub.FirstSeen,
		&sub.LastSeen,
		&sub.LastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	sub.Periodicity = model.Periodicity(periodicity)
	sub.Status = model.SubscriptionStatus(status)
	sub.Category = category.String
	return &sub, nil
}

func scanSubscription(rows *sql.Rows) (*model.Subscription, error) {
	var sub model.Subscription
	var periodicity, status string
	var category sql.NullString

	if err := rows.Scan(
		&sub.ID,
		&sub.MerchantKey,
		&sub.AccountID,
		&sub.Amount,
		&periodicity,
		&status,
		&category,
		&sub.Confidence,
		&sub.FirstSeen,
		&sub.LastSeen,
		&sub.LastUpdated,
	); err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}

	sub.Periodicity = model.Periodicity(periodicity)
	sub.Status = model.SubscriptionStatus(status)
	sub.Category = category.String
	return &sub, nil
}
