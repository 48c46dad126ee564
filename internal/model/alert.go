package model

import "time"

// AlertKind identifies the detector that produced an alert.
type AlertKind string

// Alert kind constants.
const (
	AlertZombie        AlertKind = "ZOMBIE"
	AlertPriceIncrease AlertKind = "PRICE_INCREASE"
	AlertDuplicate     AlertKind = "DUPLICATE"
)

// Alert represents a single detection result. Alerts are immutable once
// created; a newer alert of the same kind for the same subscription
// replaces the older one rather than duplicating it.
type Alert struct {
	CreatedAt      time.Time
	ID             string
	Kind           AlertKind
	SubscriptionID string
	// RelatedIDs holds the other subscriptions involved in a duplicate
	// alert; empty for zombie and price-increase alerts.
	RelatedIDs []string
	Evidence   string
	// Explanation is the optional AI verifier annotation.
	Explanation string
	OldAmount   float64
	NewAmount   float64
	Confidence  float64
}

// DuplicateAnalysis is the AI-tier enrichment attached to a duplicate
// alert: an overlap description plus the features unique to each service.
type DuplicateAnalysis struct {
	Overlap        string
	UniqueFeatures map[string]string
}

// DetectionResults aggregates the outcome of a detection run. It is a pure
// summary and is not persisted.
type DetectionResults struct {
	SubscriptionsFound     int
	ZombiesDetected        int
	PriceIncreasesDetected int
	DuplicatesDetected     int
}
