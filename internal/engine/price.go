package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/subhound/subhound/internal/model"
)

// detectPriceIncreases emits one alert per detected step increase. The
// analyzer already collapses consecutive rises into a single trend with
// the latest step's old/new amounts, so a run never floods alerts for one
// subscription.
func (e *DetectionEngine) detectPriceIncreases(ctx context.Context, outcomes map[string]*classificationOutcome) (int, []model.Alert, error) {
	count := 0
	var emitted []model.Alert

	for _, outcome := range outcomes {
		sub := outcome.subscription
		if sub == nil || sub.Status.IsTerminal() {
			continue
		}

		profile := outcome.profile
		if !profile.TrendIncreasing || profile.TrendOldAmount <= 0 {
			continue
		}

		increase := (profile.TrendNewAmount - profile.TrendOldAmount) / profile.TrendOldAmount
		if increase <= e.cfg.IncreaseThreshold {
			continue
		}

		alert := model.Alert{
			ID:             uuid.New().String(),
			Kind:           model.AlertPriceIncrease,
			SubscriptionID: sub.ID,
			Evidence: fmt.Sprintf("%s rose from %.2f to %.2f (%.1f%%)",
				sub.MerchantKey,
				profile.TrendOldAmount,
				profile.TrendNewAmount,
				increase*100),
			OldAmount:  profile.TrendOldAmount,
			NewAmount:  profile.TrendNewAmount,
			Confidence: outcome.verdict.Confidence,
			CreatedAt:  e.now().UTC(),
		}
		if err := e.storage.SaveAlert(ctx, &alert); err != nil {
			return count, emitted, fmt.Errorf("failed to save price alert for %s: %w", sub.MerchantKey, err)
		}

		slog.Info("Price increase detected",
			"merchant", sub.MerchantKey,
			"old", profile.TrendOldAmount,
			"new", profile.TrendNewAmount)

		count++
		emitted = append(emitted, alert)
	}

	return count, emitted, nil
}
