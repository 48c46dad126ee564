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

// SaveAlert inserts an alert. A newer alert of the same kind for the same
// subscription replaces the existing row rather than duplicating it.
func (s *SQLiteStorage) SaveAlert(ctx context.Context, alert *model.Alert) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlert(alert); err != nil {
		return err
	}

	createdAt := alert.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (
			id, kind, subscription_id, related_ids, evidence, explanation,
			old_amount, new_amount, confidence, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, subscription_id) DO UPDATE SET
			id = excluded.id,
			related_ids = excluded.related_ids,
			evidence = excluded.evidence,
			explanation = excluded.explanation,
			old_amount = excluded.old_amount,
			new_amount = excluded.new_amount,
			confidence = excluded.confidence,
			created_at = excluded.created_at
	`,
		alert.ID,
		string(alert.Kind),
		alert.SubscriptionID,
		strings.Join(alert.RelatedIDs, ","),
		alert.Evidence,
		alert.Explanation,
		alert.OldAmount,
		alert.NewAmount,
		alert.Confidence,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert for %s: %w", alert.SubscriptionID, err)
	}

	return nil
}

// GetAlerts returns alerts, optionally filtered by kind, newest first.
func (s *SQLiteStorage) GetAlerts(ctx context.Context, kinds ...model.AlertKind) ([]model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, kind, subscription_id, related_ids, evidence, explanation,
		       old_amount, new_amount, confidence, created_at
		FROM alerts
	`
	var args []any
	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, kind := range kinds {
			placeholders[i] = "?"
			args = append(args, string(kind))
		}
		query += " WHERE kind IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.Alert
	for rows.Next() {
		alert, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, *alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return alerts, nil
}

// GetAlertForSubscription returns the alert of one kind for a subscription,
// or common.ErrNotFound.
func (s *SQLiteStorage) GetAlertForSubscription(ctx context.Context, subscriptionID string, kind model.AlertKind) (*model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(subscriptionID, "subscriptionID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, subscription_id, related_ids, evidence, explanation,
		       old_amount, new_amount, confidence, created_at
		FROM alerts
		WHERE subscription_id = ? AND kind = ?
	`, subscriptionID, string(kind))

	var alert model.Alert
	var kindStr, relatedIDs string
	err := row.Scan(
		&alert.ID,
		&kindStr,
		&alert.SubscriptionID,
		&relatedIDs,
		&alert.Evidence,
		&alert.Explanation,
		&alert.OldAmount,
		&alert.NewAmount,
		&alert.Confidence,
		&alert.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	alert.Kind = model.AlertKind(kindStr)
	alert.RelatedIDs = splitRelatedIDs(relatedIDs)
	return &alert, nil
}

func scanAlert(rows *sql.Rows) (*model.Alert, error) {
	var alert model.Alert
	var kindStr, relatedIDs string
	if err := rows.Scan(
		&alert.ID,
		&kindStr,
		&alert.SubscriptionID,
		&relatedIDs,
		&alert.Evidence,
		&alert.Explanation,
		&alert.OldAmount,
		&alert.NewAmount,
		&alert.Confidence,
		&alert.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	alert.Kind = model.AlertKind(kindStr)
	alert.RelatedIDs = splitRelatedIDs(relatedIDs)
	return &alert, nil
}

func splitRelatedIDs(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}
