package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Periodicity classifies the cadence of a recurring-charge series.
type Periodicity string

// Periodicity constants with their canonical interval in days.
const (
	PeriodWeekly    Periodicity = "WEEKLY"
	PeriodMonthly   Periodicity = "MONTHLY"
	PeriodQuarterly Periodicity = "QUARTERLY"
	PeriodAnnual    Periodicity = "ANNUAL"
	PeriodIrregular Periodicity = "IRREGULAR"
)

// Days returns the canonical day count for the periodicity, or 0 for irregular.
func (p Periodicity) Days() int {
	switch p {
	case PeriodWeekly:
		return 7
	case PeriodMonthly:
		return 30
	case PeriodQuarterly:
		return 91
	case PeriodAnnual:
		return 365
	default:
		return 0
	}
}

// CandidateSeries is a transient grouping of transactions sharing a
// normalized merchant key and account, ordered ascending by date. It is
// rebuilt on every detection run and never persisted.
type CandidateSeries struct {
	MerchantKey  string
	AccountID    string
	Transactions []Transaction
}

// SeriesProfile holds derived statistics over a candidate series. It is a
// pure function of the series: identical input always yields an identical
// profile.
type SeriesProfile struct {
	FirstSeen       time.Time
	LastSeen        time.Time
	MerchantKey     string
	AccountID       string
	Periodicity     Periodicity
	Occurrences     int
	MedianIntervalD float64 // Median days between consecutive charges
	IntervalCV      float64 // Coefficient of variation of the intervals
	MedianAmount    float64 // Median absolute charge amount
	AmountDeviation float64 // Max abs deviation from median, as a fraction of median
	TrendIncreasing bool    // Last three amounts non-decreasing beyond the increase threshold
	TrendOldAmount  float64 // Pre-trend baseline amount when TrendIncreasing
	TrendNewAmount  float64 // Latest amount when TrendIncreasing
}

// Eligible reports whether the profile qualifies as subscription-eligible:
// at least three occurrences to establish periodicity, and a periodicity
// that landed inside one of the canonical tolerance bands.
func (p *SeriesProfile) Eligible() bool {
	return p.Occurrences >= 3 && p.Periodicity != PeriodIrregular
}

// Fingerprint returns a stable digest of the statistics that drive
// classification. A cache entry computed for the same fingerprint can be
// reused without re-invoking an AI backend.
func (p *SeriesProfile) Fingerprint() string {
	data := fmt.Sprintf("%s:%d:%s:%.2f",
		p.MerchantKey,
		p.Occurrences,
		p.Periodicity,
		p.MedianAmount)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:8])
}
