package series

import (
	"math"
	"sort"

	"github.com/subhound/subhound/internal/model"
)

// AnalyzerConfig holds the thresholds for profile computation.
type AnalyzerConfig struct {
	// IntervalTolerance is the fractional band around a canonical interval
	// within which a median interval still counts as that periodicity.
	IntervalTolerance float64
	// IncreaseThreshold is the fractional amount rise that flips the trend
	// flag.
	IncreaseThreshold float64
}

// DefaultAnalyzerConfig returns the default thresholds.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		IntervalTolerance: 0.20,
		IncreaseThreshold: 0.05,
	}
}

var canonicalPeriods = []model.Periodicity{
	model.PeriodWeekly,
	model.PeriodMonthly,
	model.PeriodQuarterly,
	model.PeriodAnnual,
}

// Analyze computes a SeriesProfile for a candidate series. It is a pure
// function: the same series always yields the same profile. Series with
// fewer than three transactions get an irregular profile and are never
// subscription-eligible.
func Analyze(s model.CandidateSeries, cfg AnalyzerConfig) model.SeriesProfile {
	profile := model.SeriesProfile{
		MerchantKey: s.MerchantKey,
		AccountID:   s.AccountID,
		Occurrences: len(s.Transactions),
		Periodicity: model.PeriodIrregular,
	}

	if len(s.Transactions) == 0 {
		return profile
	}

	profile.FirstSeen = s.Transactions[0].Date
	profile.LastSeen = s.Transactions[len(s.Transactions)-1].Date

	amounts := make([]float64, len(s.Transactions))
	for i, txn := range s.Transactions {
		amounts[i] = math.Abs(txn.Amount)
	}
	profile.MedianAmount = median(amounts)
	profile.AmountDeviation = maxDeviationFraction(amounts, profile.MedianAmount)

	if len(s.Transactions) < 3 {
		return profile
	}

	intervals := make([]float64, 0, len(s.Transactions)-1)
	for i := 1; i < len(s.Transactions); i++ {
		delta := s.Transactions[i].Date.Sub(s.Transactions[i-1].Date).Hours() / 24
		intervals = append(intervals, delta)
	}
	profile.MedianIntervalD = median(intervals)
	profile.IntervalCV = coefficientOfVariation(intervals)

	profile.Periodicity = classifyPeriodicity(profile.MedianIntervalD, profile.IntervalCV, cfg.IntervalTolerance)
	applyTrend(&profile, amounts, cfg.IncreaseThreshold)

	return profile
}

// classifyPeriodicity matches the median interval against the canonical day
// counts (7, 30, 91, 365). Outside every tolerance band, or with interval
// variance beyond the tolerance, the series is irregular.
func classifyPeriodicity(medianInterval, intervalCV, tolerance float64) model.Periodicity {
	if medianInterval <= 0 || intervalCV > tolerance {
		return model.PeriodIrregular
	}

	best := model.PeriodIrregular
	bestDistance := math.MaxFloat64
	for _, period := range canonicalPeriods {
		canonical := float64(period.Days())
		distance := math.Abs(medianInterval - canonical)
		if distance <= canonical*tolerance && distance < bestDistance {
			best = period
			bestDistance = distance
		}
	}

	return best
}

// applyTrend sets the trend flag when the last three amounts are
// non-decreasing and the final amount exceeds the first of those three by
// more than the increase threshold.
func applyTrend(profile *model.SeriesProfile, amounts []float64, threshold float64) {
	if len(amounts) < 3 {
		return
	}

	last3 := amounts[len(amounts)-3:]
	if last3[1] < last3[0] || last3[2] < last3[1] {
		return
	}

	baseline := last3[0]
	if baseline <= 0 {
		return
	}

	increase := (last3[2] - baseline) / baseline
	if increase > threshold {
		profile.TrendIncreasing = true
		profile.TrendOldAmount = baseline
		profile.TrendNewAmount = last3[2]
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return math.Sqrt(variance) / mean
}

func maxDeviationFraction(values []float64, med float64) float64 {
	if med == 0 {
		return 0
	}

	var maxDev float64
	for _, v := range values {
		dev := math.Abs(v - med)
		if dev > maxDev {
			maxDev = dev
		}
	}
	return maxDev / med
}
