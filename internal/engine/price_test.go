package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/testutil"
)

func TestPriceIncreaseDetected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedTransactions(testutil.MonthlySeries("NETFLIX.COM", "checking", seriesStart,
		15.49, 15.49, 15.49, 17.99))

	e := newTestEngine(t, db)
	ctx := context.Background()

	results, err := e.DetectIncreasesOnly(ctx, RunScope{})
	require.NoError(t, err)
	assert.Equal(t, 1, results.PriceIncreasesDetected)

	alerts, err := db.Storage.GetAlerts(ctx, model.AlertPriceIncrease)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	assert.InDelta(t, 15.49, alerts[0].OldAmount, 0.001)
	assert.InDelta(t, 17.99, alerts[0].NewAmount, 0.001)
	assert.Contains(t, alerts[0].Evidence, "NETFLIX.COM")
}

func TestPriceIncreaseNotFlagged(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
	}{
		{name: "flat amounts", amounts: []float64{15.49, 15.49, 15.49, 15.49}},
		{name: "rise below threshold", amounts: []float64{10.00, 10.00, 10.00, 10.40}},
		{name: "price decrease", amounts: []float64{17.99, 17.99, 15.49, 15.49}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			db.SeedTransactions(testutil.MonthlySeries("NETFLIX.COM", "checking", seriesStart, tt.amounts...))

			e := newTestEngine(t, db)
			ctx := context.Background()

			results, err := e.DetectIncreasesOnly(ctx, RunScope{})
			require.NoError(t, err)
			assert.Equal(t, 0, results.PriceIncreasesDetected)

			alerts, err := db.Storage.GetAlerts(ctx, model.AlertPriceIncrease)
			require.NoError(t, err)
			assert.Empty(t, alerts)
		})
	}
}

func TestPriceIncreaseRerunSupersedes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedTransactions(testutil.MonthlySeries("NETFLIX.COM", "checking", seriesStart,
		15.49, 15.49, 15.49, 17.99))

	e := newTestEngine(t, db)
	ctx := context.Background()

	_, err := e.DetectIncreasesOnly(ctx, RunScope{})
	require.NoError(t, err)

	results, err := e.DetectIncreasesOnly(ctx, RunScope{})
	require.NoError(t, err)
	assert.Equal(t, 1, results.PriceIncreasesDetected)

	// The re-run replaces the alert instead of stacking a second one.
	alerts, err := db.Storage.GetAlerts(ctx, model.AlertPriceIncrease)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}
