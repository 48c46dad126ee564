package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/subhound/subhound/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrEmptySlice          = errors.New("slice cannot be empty")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrInvalidAlert        = errors.New("invalid alert")
	ErrInvalidStatus       = errors.New("invalid subscription status")
	ErrInvalidOverride     = errors.New("invalid user override")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if txn.AccountID == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidTransaction)
	}
	return nil
}

// validateSubscription validates a subscription.
func validateSubscription(sub *model.Subscription) error {
	if sub == nil {
		return fmt.Errorf("%w: subscription", ErrNilParameter)
	}
	if sub.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidSubscription)
	}
	if strings.TrimSpace(sub.MerchantKey) == "" {
		return fmt.Errorf("%w: missing merchant key", ErrInvalidSubscription)
	}
	if sub.AccountID == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidSubscription)
	}
	return validateStatus(sub.Status)
}

// validateStatus validates a subscription status value.
func validateStatus(status model.SubscriptionStatus) error {
	switch status {
	case model.StatusActive, model.StatusZombie, model.StatusCancelled, model.StatusExcluded:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
}

// validateOverride validates a user override value.
func validateOverride(override model.UserOverride) error {
	switch override {
	case model.OverrideNone, model.OverrideExcluded, model.OverrideUnexcluded:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOverride, override)
	}
}

// validateAlert validates an alert.
func validateAlert(alert *model.Alert) error {
	if alert == nil {
		return fmt.Errorf("%w: alert", ErrNilParameter)
	}
	if alert.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidAlert)
	}
	if alert.SubscriptionID == "" {
		return fmt.Errorf("%w: missing subscription ID", ErrInvalidAlert)
	}
	switch alert.Kind {
	case model.AlertZombie, model.AlertPriceIncrease, model.AlertDuplicate:
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidAlert, alert.Kind)
	}
	if alert.Confidence < 0 || alert.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidAlert)
	}
	return nil
}
