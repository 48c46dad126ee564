// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/subhound/subhound/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AccountID string
	// MerchantKey restricts results to one normalized merchant; used by
	// the agentic verifier's search tool.
	MerchantKey     string
	IncludeArchived bool
	Limit           int
}

// Storage defines the contract for the persistence layer. The detection
// engine consumes transactions read-only and owns the subscription,
// merchant classification cache, and alert tables.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetSpendingSummary(ctx context.Context, merchantKey string, start, end time.Time) (*SpendingSummary, error)

	// Subscription operations
	GetSubscription(ctx context.Context, merchantKey, accountID string) (*model.Subscription, error)
	GetSubscriptionByID(ctx context.Context, id string) (*model.Subscription, error)
	GetSubscriptions(ctx context.Context, statuses ...model.SubscriptionStatus) ([]model.Subscription, error)
	SaveSubscription(ctx context.Context, sub *model.Subscription) error
	UpdateSubscriptionStatus(ctx context.Context, id string, status model.SubscriptionStatus) error

	// Merchant classification cache operations
	GetMerchantClassification(ctx context.Context, merchantKey string) (*model.MerchantClassification, error)
	SaveMerchantClassification(ctx context.Context, mc *model.MerchantClassification) error
	SetMerchantOverride(ctx context.Context, merchantKey string, override model.UserOverride) error

	// Alert operations
	SaveAlert(ctx context.Context, alert *model.Alert) error
	GetAlerts(ctx context.Context, kinds ...model.AlertKind) ([]model.Alert, error)
	GetAlertForSubscription(ctx context.Context, subscriptionID string, kind model.AlertKind) (*model.Alert, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// SpendingSummary aggregates spend for one merchant over a period. It is
// produced for the verifier's read-only tool calls.
type SpendingSummary struct {
	Start       time.Time
	End         time.Time
	MerchantKey string
	Count       int
	Total       float64
	Average     float64
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
