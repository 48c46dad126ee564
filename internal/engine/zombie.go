package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/subhound/subhound/internal/model"
)

// detectZombies flags long-running, still-charging subscriptions that the
// user has never acted on. Cancelled and Excluded subscriptions are
// skipped unconditionally; a subscription already Zombie stays Zombie, so
// re-running is idempotent.
func (e *DetectionEngine) detectZombies(ctx context.Context, outcomes map[string]*classificationOutcome) (int, []model.Alert, error) {
	now := e.now()
	count := 0
	var emitted []model.Alert

	for _, outcome := range outcomes {
		sub := outcome.subscription
		if sub == nil {
			continue
		}
		if sub.Status.IsTerminal() {
			continue
		}

		profile := outcome.profile

		// A series with no charges in twice the expected interval has
		// effectively stopped; marking it Cancelled is a user workflow
		// decision, not this engine's.
		if seriesStopped(profile, now) {
			if sub.Status == model.StatusZombie {
				slog.Info("Zombie series went quiet, leaving for review",
					"merchant", sub.MerchantKey)
			}
			continue
		}

		if sub.Status == model.StatusZombie {
			count++
			continue
		}

		if !profile.Eligible() {
			continue
		}
		if now.Sub(sub.FirstSeen) < e.cfg.ZombieAfter {
			continue
		}

		if err := e.storage.UpdateSubscriptionStatus(ctx, sub.ID, model.StatusZombie); err != nil {
			return count, emitted, fmt.Errorf("failed to flag zombie %s: %w", sub.MerchantKey, err)
		}
		sub.Status = model.StatusZombie

		alert := model.Alert{
			ID:             uuid.New().String(),
			Kind:           model.AlertZombie,
			SubscriptionID: sub.ID,
			Evidence: fmt.Sprintf("charging %s since %s with no user action (%.2f per %s)",
				sub.MerchantKey,
				sub.FirstSeen.Format("2006-01-02"),
				profile.MedianAmount,
				profile.Periodicity),
			Confidence: outcome.verdict.Confidence,
			CreatedAt:  now.UTC(),
		}
		if err := e.storage.SaveAlert(ctx, &alert); err != nil {
			return count, emitted, fmt.Errorf("failed to save zombie alert for %s: %w", sub.MerchantKey, err)
		}

		slog.Info("Zombie subscription flagged",
			"merchant", sub.MerchantKey,
			"first_seen", sub.FirstSeen)

		count++
		emitted = append(emitted, alert)
	}

	return count, emitted, nil
}

// seriesStopped reports whether the series has gone quiet: no charge in
// twice the expected interval.
func seriesStopped(profile model.SeriesProfile, now time.Time) bool {
	expected := profile.Periodicity.Days()
	if expected == 0 {
		return false
	}
	return now.Sub(profile.LastSeen) > time.Duration(2*expected)*24*time.Hour
}
