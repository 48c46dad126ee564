package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subhound/subhound/internal/ai"
	"github.com/subhound/subhound/internal/common"
	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/testutil"
)

// erraticSeries builds charges at irregular intervals so the profile needs
// the AI tier.
func erraticSeries(merchant, account string, amount float64) []model.Transaction {
	offsets := []int{0, 5, 50, 61}
	txns := make([]model.Transaction, len(offsets))
	for i, offset := range offsets {
		date := seriesStart.AddDate(0, 0, offset)
		txns[i] = model.Transaction{
			ID:          merchant + "-" + date.Format("2006-01-02"),
			Date:        date,
			Description: merchant,
			AccountID:   account,
			Amount:      -amount,
		}
	}
	return txns
}

func TestExcludedMerchantNeverFlagged(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedTransactions(testutil.MonthlySeries("NETFLIX.COM", "checking", seriesStart, repeat(15.49, 5)...))
	db.SeedTransactions(testutil.MonthlySeries("SPOTIFY USA", "checking", seriesStart, repeat(10.99, 5)...))

	ctx := context.Background()
	require.NoError(t, db.Storage.SetMerchantOverride(ctx, "NETFLIX.COM", model.OverrideExcluded))

	client := ai.NewMockClient()
	e := newTestEngine(t, db, WithAIClient(client))

	results, err := e.DetectAll(ctx, RunScope{})
	require.NoError(t, err)

	// Spotify only; the exclusion beats a textbook-regular profile.
	assert.Equal(t, 1, results.SubscriptionsFound)

	_, err = db.Storage.GetSubscription(ctx, "NETFLIX.COM", "checking")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// An excluded merchant is not worth AI spend either.
	for _, call := range client.Calls() {
		assert.NotEqual(t, "NETFLIX.COM", call.MerchantKey)
	}

	// The exclusion itself survives the run.
	cached, err := db.Storage.GetMerchantClassification(ctx, "NETFLIX.COM")
	require.NoError(t, err)
	assert.Equal(t, model.OverrideExcluded, cached.Override)
}

func TestUnexcludedMerchantEvaluatedAgain(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedTransactions(testutil.MonthlySeries("NETFLIX.COM", "checking", seriesStart, repeat(15.49, 5)...))

	ctx := context.Background()
	require.NoError(t, db.Storage.SetMerchantOverride(ctx, "NETFLIX.COM", model.OverrideExcluded))
	require.NoError(t, db.Storage.SetMerchantOverride(ctx, "NETFLIX.COM", model.OverrideUnexcluded))

	e := newTestEngine(t, db)
	results, err := e.DetectIncreasesOnly(ctx, RunScope{})
	require.NoError(t, err)

	assert.Equal(t, 1, results.SubscriptionsFound)

	sub, err := db.Storage.GetSubscription(ctx, "NETFLIX.COM", "checking")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, sub.Status)
}

func TestFingerprintCacheSkipsAI(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedTransactions(erraticSeries("MYSTERY BOX", "checking", 19.99))

	client := ai.NewMockClient()
	e := newTestEngine(t, db, WithAIClient(client))
	ctx := context.Background()

	_, err := e.DetectAll(ctx, RunScope{})
	require.NoError(t, err)
	require.Len(t, client.Calls(), 1)

	// Unchanged profile: the cached verdict is reused and the backend is
	// not consulted again.
	_, err = e.DetectAll(ctx, RunScope{})
	require.NoError(t, err)
	assert.Len(t, client.Calls(), 1)
}

func TestChangedProfileInvalidatesCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedTransactions(erraticSeries("MYSTERY BOX", "checking", 19.99))

	client := ai.NewMockClient()
	e := newTestEngine(t, db, WithAIClient(client))
	ctx := context.Background()

	_, err := e.DetectAll(ctx, RunScope{})
	require.NoError(t, err)
	require.Len(t, client.Calls(), 1)

	// A new charge shifts the occurrence count, so the fingerprint no
	// longer matches and the merchant is re-evaluated.
	extra := seriesStart.AddDate(0, 0, 90)
	db.SeedTransactions([]model.Transaction{{
		ID:          "MYSTERY BOX-" + extra.Format("2006-01-02"),
		Date:        extra,
		Description: "MYSTERY BOX",
		AccountID:   "checking",
		Amount:      -19.99,
	}})

	_, err = e.DetectAll(ctx, RunScope{})
	require.NoError(t, err)
	assert.Len(t, client.Calls(), 2)
}

func TestCancelledSubscriptionStaysCancelled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedTransactions(testutil.MonthlySeries("NETFLIX.COM", "checking", seriesStart, repeat(15.49, 5)...))

	ctx := context.Background()
	cancelled := model.Subscription{
		ID:          "existing",
		MerchantKey: "NETFLIX.COM",
		AccountID:   "checking",
		Periodicity: model.PeriodMonthly,
		Status:      model.StatusCancelled,
		Amount:      15.49,
		FirstSeen:   seriesStart,
		LastSeen:    seriesStart.AddDate(0, 4, 0),
	}
	require.NoError(t, db.Storage.SaveSubscription(ctx, &cancelled))

	e := newTestEngine(t, db)
	_, err := e.DetectAll(ctx, RunScope{})
	require.NoError(t, err)

	// The charges still fit a subscription perfectly, but the user's
	// cancellation is never overturned by statistics.
	sub, err := db.Storage.GetSubscription(ctx, "NETFLIX.COM", "checking")
	require.NoError(t, err)
	assert.Equal(t, "existing", sub.ID)
	assert.Equal(t, model.StatusCancelled, sub.Status)

	alerts, err := db.Storage.GetAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestMalformedAIResponseFallsBackToRuleVerdict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedTransactions(erraticSeries("MYSTERY BOX", "checking", 19.99))

	client := ai.NewMockClient()
	client.FailFor["MYSTERY BOX"] = common.ErrMalformedResponse

	e := newTestEngine(t, db, WithAIClient(client))

	start := time.Now()
	_, err := e.DetectAll(context.Background(), RunScope{})
	require.NoError(t, err)

	// Malformed output is not retried; the degradation is immediate.
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, client.Calls(), 1)

	cached, err := db.Storage.GetMerchantClassification(context.Background(), "MYSTERY BOX")
	require.NoError(t, err)
	assert.Equal(t, model.SourceRule, cached.Source)
	assert.False(t, cached.IsSubscription)
}
