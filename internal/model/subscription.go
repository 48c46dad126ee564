// Package model defines the core domain models used throughout the application.
package model

import "time"

// SubscriptionStatus indicates the lifecycle state of a detected subscription.
type SubscriptionStatus string

// Subscription status constants.
const (
	// StatusActive is a subscription whose charges are still arriving on schedule.
	StatusActive SubscriptionStatus = "ACTIVE"
	// StatusZombie is a subscription flagged for user review as potentially forgotten.
	StatusZombie SubscriptionStatus = "ZOMBIE"
	// StatusCancelled is set by an explicit user action, never by the engine.
	StatusCancelled SubscriptionStatus = "CANCELLED"
	// StatusExcluded is set when the user marks a merchant as not-a-subscription.
	StatusExcluded SubscriptionStatus = "EXCLUDED"
)

// IsTerminal reports whether the status is sticky against automatic
// reassignment. Cancelled and Excluded are user decisions; detectors must
// never overwrite them.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExcluded
}

// Subscription represents a persisted recurring charge.
type Subscription struct {
	FirstSeen   time.Time
	LastSeen    time.Time
	LastUpdated time.Time
	ID          string
	MerchantKey string
	AccountID   string
	Periodicity Periodicity
	Status      SubscriptionStatus
	Category    string
	Amount      float64 // Median charge amount; 0 when irregular
	Confidence  float64
}
