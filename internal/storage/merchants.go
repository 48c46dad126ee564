package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/subhound/subhound/internal/common"
	"github.com/subhound/subhound/internal/model"
)

// GetMerchantClassification retrieves the cached classification for a
// merchant key. Returns common.ErrNotFound when the merchant has never
// been evaluated.
func (s *SQLiteStorage) GetMerchantClassification(ctx context.Context, merchantKey string) (*model.MerchantClassification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchantKey, "merchantKey"); err != nil {
		return nil, err
	}

	var mc model.MerchantClassification
	var isSubscription int
	var source, override string
	var category, reason, fingerprint sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT merchant_key, is_subscription, confidence, source, override,
		       category, reason, fingerprint, last_updated
		FROM merchant_classifications
		WHERE merchant_key = ?
	`, merchantKey).Scan(
		&mc.MerchantKey,
		&isSubscription,
		&mc.Confidence,
		&source,
		&override,
		&category,
		&reason,
		&fingerprint,
		&mc.LastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant classification: %w", err)
	}

	mc.IsSubscription = isSubscription != 0
	mc.Source = model.ClassificationSource(source)
	mc.Override = model.UserOverride(override)
	mc.Category = category.String
	mc.Reason = reason.String
	mc.Fingerprint = fingerprint.String
	return &mc, nil
}

// SaveMerchantClassification inserts or refreshes a cache entry. The
// user override column is preserved on refresh: the engine never clears a
// user decision when it recomputes statistics.
func (s *SQLiteStorage) SaveMerchantClassification(ctx context.Context, mc *model.MerchantClassification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if mc == nil {
		return fmt.Errorf("%w: classification", ErrNilParameter)
	}
	if err := validateString(mc.MerchantKey, "merchantKey"); err != nil {
		return err
	}
	override := mc.Override
	if override == "" {
		override = model.OverrideNone
	}
	if err := validateOverride(override); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_classifications (
			merchant_key, is_subscription, confidence, source, override,
			category, reason, fingerprint, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(merchant_key) DO UPDATE SET
			is_subscription = excluded.is_subscription,
			confidence = excluded.confidence,
			source = excluded.source,
			category = excluded.category,
			reason = excluded.reason,
			fingerprint = excluded.fingerprint,
			last_updated = excluded.last_updated
	`,
		mc.MerchantKey,
		boolToInt(mc.IsSubscription),
		mc.Confidence,
		string(mc.Source),
		string(override),
		mc.Category,
		mc.Reason,
		mc.Fingerprint,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save merchant classification %s: %w", mc.MerchantKey, err)
	}

	return nil
}

// SetMerchantOverride records a user decision for a merchant key. A row is
// created if the merchant has never been classified.
func (s *SQLiteStorage) SetMerchantOverride(ctx context.Context, merchantKey string, override model.UserOverride) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(merchantKey, "merchantKey"); err != nil {
		return err
	}
	if err := validateOverride(override); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_classifications (
			merchant_key, is_subscription, confidence, source, override, last_updated
		) VALUES (?, 0, 0, ?, ?, ?)
		ON CONFLICT(merchant_key) DO UPDATE SET
			override = excluded.override,
			last_updated = excluded.last_updated
	`,
		merchantKey,
		string(model.SourceUser),
		string(override),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set override for %s: %w", merchantKey, err)
	}

	return nil
}
