package model

import "time"

// ClassificationSource indicates how a merchant classification verdict was
// produced.
type ClassificationSource string

// Classification source constants.
const (
	// SourceRule indicates the verdict came from statistical fit alone.
	SourceRule ClassificationSource = "RULE"
	// SourceAI indicates the verdict came from an AI classification call.
	SourceAI ClassificationSource = "AI"
	// SourceUser indicates the verdict was forced by a user override.
	SourceUser ClassificationSource = "USER"
)

// UserOverride is the persisted user decision for a merchant. It is three
// valued because "previously excluded, now re-enabled" must remain
// distinguishable from "never evaluated".
type UserOverride string

// User override constants.
const (
	OverrideNone       UserOverride = "NONE"
	OverrideExcluded   UserOverride = "EXCLUDED"
	OverrideUnexcluded UserOverride = "UNEXCLUDED"
)

// MerchantClassification is a persisted cache entry for a merchant key.
// It avoids re-invoking AI classification for a merchant already seen, and
// carries the user's override which takes precedence over any statistical
// or AI signal.
type MerchantClassification struct {
	LastUpdated    time.Time
	MerchantKey    string
	Source         ClassificationSource
	Override       UserOverride
	Category       string // AI-assigned category when available
	Reason         string
	Fingerprint    string // Profile fingerprint the verdict was computed for
	Confidence     float64
	IsSubscription bool
}
