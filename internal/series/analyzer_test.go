package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subhound/subhound/internal/model"
)

// monthlyCandidate builds a candidate with one charge every 30 days.
func monthlyCandidate(merchant string, amounts ...float64) model.CandidateSeries {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	txns := make([]model.Transaction, len(amounts))
	for i, amount := range amounts {
		txns[i] = model.Transaction{
			ID:          merchant + string(rune('a'+i)),
			Date:        start.AddDate(0, 0, 30*i),
			Description: merchant,
			MerchantKey: merchant,
			AccountID:   "checking",
			Amount:      -amount,
		}
	}
	return model.CandidateSeries{
		MerchantKey:  merchant,
		AccountID:    "checking",
		Transactions: txns,
	}
}

func TestAnalyzeMonthlyCadence(t *testing.T) {
	cfg := DefaultAnalyzerConfig()

	tests := []struct {
		name     string
		merchant string
		amounts  []float64
	}{
		{name: "netflix", merchant: "NETFLIX.COM", amounts: []float64{15.49, 15.49, 15.49, 15.49}},
		{name: "spotify", merchant: "SPOTIFY USA", amounts: []float64{10.99, 10.99, 10.99, 10.99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := Analyze(monthlyCandidate(tt.merchant, tt.amounts...), cfg)

			assert.Equal(t, model.PeriodMonthly, profile.Periodicity)
			assert.True(t, profile.Eligible())
			assert.Equal(t, len(tt.amounts), profile.Occurrences)
			assert.InDelta(t, tt.amounts[0], profile.MedianAmount, 0.001)
			assert.InDelta(t, 30.0, profile.MedianIntervalD, 0.001)
			assert.False(t, profile.TrendIncreasing)
		})
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	candidate := monthlyCandidate("NETFLIX.COM", 15.49, 15.49, 17.99, 17.99)
	cfg := DefaultAnalyzerConfig()

	first := Analyze(candidate, cfg)
	second := Analyze(candidate, cfg)

	assert.Equal(t, first, second)
}

func TestAnalyzeBelowSampleFloor(t *testing.T) {
	cfg := DefaultAnalyzerConfig()

	tests := []struct {
		name    string
		amounts []float64
	}{
		{name: "empty", amounts: nil},
		{name: "single charge", amounts: []float64{15.49}},
		{name: "two charges", amounts: []float64{15.49, 15.49}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := Analyze(monthlyCandidate("NETFLIX.COM", tt.amounts...), cfg)

			assert.Equal(t, model.PeriodIrregular, profile.Periodicity)
			assert.False(t, profile.Eligible(), "fewer than three charges must never be eligible")
		})
	}
}

func TestAnalyzePeriodicityClassification(t *testing.T) {
	cfg := DefaultAnalyzerConfig()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		intervalDays int
		count        int
		want         model.Periodicity
	}{
		{name: "weekly", intervalDays: 7, count: 5, want: model.PeriodWeekly},
		{name: "monthly calendar drift", intervalDays: 31, count: 4, want: model.PeriodMonthly},
		{name: "quarterly", intervalDays: 91, count: 4, want: model.PeriodQuarterly},
		{name: "annual", intervalDays: 365, count: 3, want: model.PeriodAnnual},
		{name: "between bands", intervalDays: 18, count: 4, want: model.PeriodIrregular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns := make([]model.Transaction, tt.count)
			for i := range txns {
				txns[i] = model.Transaction{
					ID:          "t" + string(rune('a'+i)),
					Date:        start.AddDate(0, 0, tt.intervalDays*i),
					MerchantKey: "ACME",
					AccountID:   "checking",
					Amount:      -9.99,
				}
			}

			profile := Analyze(model.CandidateSeries{
				MerchantKey:  "ACME",
				AccountID:    "checking",
				Transactions: txns,
			}, cfg)

			assert.Equal(t, tt.want, profile.Periodicity)
		})
	}
}

func TestAnalyzeErraticIntervalsAreIrregular(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	offsets := []int{0, 5, 45, 50, 110}

	txns := make([]model.Transaction, len(offsets))
	for i, offset := range offsets {
		txns[i] = model.Transaction{
			ID:          "t" + string(rune('a'+i)),
			Date:        start.AddDate(0, 0, offset),
			MerchantKey: "CORNER STORE",
			AccountID:   "checking",
			Amount:      -12.00,
		}
	}

	profile := Analyze(model.CandidateSeries{
		MerchantKey:  "CORNER STORE",
		AccountID:    "checking",
		Transactions: txns,
	}, DefaultAnalyzerConfig())

	assert.Equal(t, model.PeriodIrregular, profile.Periodicity)
	assert.False(t, profile.Eligible())
}

func TestAnalyzeTrendDetection(t *testing.T) {
	cfg := DefaultAnalyzerConfig()

	tests := []struct {
		name    string
		amounts []float64
		want    bool
		oldAmt  float64
		newAmt  float64
	}{
		{
			name:    "single step increase",
			amounts: []float64{15.49, 15.49, 15.49, 17.99},
			want:    true,
			oldAmt:  15.49,
			newAmt:  17.99,
		},
		{
			name:    "flat amounts",
			amounts: []float64{15.49, 15.49, 15.49, 15.49},
			want:    false,
		},
		{
			name:    "rise below threshold",
			amounts: []float64{10.00, 10.00, 10.00, 10.40},
			want:    false,
		},
		{
			name:    "decrease never trends",
			amounts: []float64{17.99, 17.99, 15.49, 15.49},
			want:    false,
		},
		{
			name:    "old increase outside window",
			amounts: []float64{12.99, 15.49, 15.49, 15.49, 15.49},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := Analyze(monthlyCandidate("NETFLIX.COM", tt.amounts...), cfg)

			require.Equal(t, tt.want, profile.TrendIncreasing)
			if tt.want {
				assert.InDelta(t, tt.oldAmt, profile.TrendOldAmount, 0.001)
				assert.InDelta(t, tt.newAmt, profile.TrendNewAmount, 0.001)
			}
		})
	}
}

func TestAnalyzeFingerprintStability(t *testing.T) {
	cfg := DefaultAnalyzerConfig()

	same1 := Analyze(monthlyCandidate("NETFLIX.COM", 15.49, 15.49, 15.49), cfg)
	same2 := Analyze(monthlyCandidate("NETFLIX.COM", 15.49, 15.49, 15.49), cfg)
	changed := Analyze(monthlyCandidate("NETFLIX.COM", 15.49, 15.49, 15.49, 17.99), cfg)

	assert.Equal(t, same1.Fingerprint(), same2.Fingerprint())
	assert.NotEqual(t, same1.Fingerprint(), changed.Fingerprint())
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single", values: []float64{5}, want: 5},
		{name: "odd count", values: []float64{3, 1, 2}, want: 2},
		{name: "even count", values: []float64{4, 1, 3, 2}, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, median(tt.values), 0.001)
		})
	}
}
