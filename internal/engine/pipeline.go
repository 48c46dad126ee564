package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/subhound/subhound/internal/ai"
	"github.com/subhound/subhound/internal/common"
	"github.com/subhound/subhound/internal/model"
)

// classificationOutcome is the per-series result of the pipeline: the
// profile, the verdict recorded in the merchant cache, and the persisted
// subscription row when the verdict is positive.
type classificationOutcome struct {
	subscription *model.Subscription
	verdict      model.MerchantClassification
	profile      model.SeriesProfile
}

// classifyProfiles decides, per merchant, whether a profile represents a
// subscription, and persists/refreshes the subscription rows. Profiles are
// classified concurrently up to MaxConcurrent, but classification of the
// same merchant key is serialized and each merchant's classify-then-write
// step is the unit of atomicity.
func (e *DetectionEngine) classifyProfiles(ctx context.Context, profiles []model.SeriesProfile) (map[string]*classificationOutcome, error) {
	outcomes := make(map[string]*classificationOutcome, len(profiles))
	var outcomesMu sync.Mutex

	sem := make(chan struct{}, e.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	fatal := make([]error, len(profiles))

	for i, profile := range profiles {
		wg.Add(1)
		go func(idx int, p model.SeriesProfile) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				fatal[idx] = ctx.Err()
				return
			}

			// At most one in-flight classification per merchant key.
			unlock := e.keyLocks.lock(p.MerchantKey)
			defer unlock()

			outcome, err := e.classifyOne(ctx, p)
			if err != nil {
				fatal[idx] = err
				return
			}

			outcomesMu.Lock()
			outcomes[outcomeKey(p.MerchantKey, p.AccountID)] = outcome
			outcomesMu.Unlock()
		}(i, profile)
	}

	wg.Wait()

	for _, err := range fatal {
		if err != nil {
			return nil, err
		}
	}

	return outcomes, nil
}

// classifyOne runs the tiered decision for a single series and commits the
// cache refresh and subscription write together.
func (e *DetectionEngine) classifyOne(ctx context.Context, profile model.SeriesProfile) (*classificationOutcome, error) {
	outcome := &classificationOutcome{profile: profile}

	cached, err := e.storage.GetMerchantClassification(ctx, profile.MerchantKey)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to read merchant cache for %s: %w", profile.MerchantKey, err)
	}

	// A user exclusion beats every statistical or AI signal.
	if cached != nil && cached.Override == model.OverrideExcluded {
		outcome.verdict = *cached
		outcome.verdict.IsSubscription = false
		outcome.verdict.Source = model.SourceUser
		return outcome, nil
	}

	fingerprint := profile.Fingerprint()

	// An unchanged profile reuses the cached verdict to avoid redundant
	// AI spend.
	if cached != nil && cached.Fingerprint == fingerprint {
		outcome.verdict = *cached
		return e.persistOutcome(ctx, outcome)
	}

	verdict := e.ruleVerdict(profile)

	if e.capability.HasAI() && e.needsAI(profile) {
		aiVerdict, aiErr := e.classifyWithAI(ctx, profile)
		if aiErr != nil {
			// Degrade to the rule verdict; one merchant's AI failure
			// never aborts the run.
			slog.Warn("AI classification failed, using rule verdict",
				"merchant", profile.MerchantKey,
				"error", aiErr)
		} else {
			verdict = aiVerdict
		}
	}

	verdict.Fingerprint = fingerprint
	if cached != nil {
		verdict.Override = cached.Override
	}
	outcome.verdict = verdict

	return e.persistOutcome(ctx, outcome)
}

// persistOutcome refreshes the cache entry and writes the subscription row
// for a positive verdict. Sticky terminal states are honored: a Cancelled
// or Excluded subscription keeps its status and is not re-flagged.
func (e *DetectionEngine) persistOutcome(ctx context.Context, outcome *classificationOutcome) (*classificationOutcome, error) {
	if err := e.storage.SaveMerchantClassification(ctx, &outcome.verdict); err != nil {
		return nil, fmt.Errorf("failed to refresh merchant cache for %s: %w", outcome.verdict.MerchantKey, err)
	}

	if !outcome.verdict.IsSubscription {
		return outcome, nil
	}

	profile := outcome.profile

	existing, err := e.storage.GetSubscription(ctx, profile.MerchantKey, profile.AccountID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to read subscription for %s: %w", profile.MerchantKey, err)
	}

	sub := model.Subscription{
		ID:          uuid.New().String(),
		MerchantKey: profile.MerchantKey,
		AccountID:   profile.AccountID,
		Periodicity: profile.Periodicity,
		Status:      model.StatusActive,
		Category:    outcome.verdict.Category,
		Confidence:  outcome.verdict.Confidence,
		Amount:      profile.MedianAmount,
		FirstSeen:   profile.FirstSeen,
		LastSeen:    profile.LastSeen,
	}
	if profile.Periodicity == model.PeriodIrregular {
		sub.Amount = 0
	}

	if existing != nil {
		sub.ID = existing.ID
		sub.FirstSeen = existing.FirstSeen
		sub.Status = existing.Status
		if sub.Category == "" {
			sub.Category = existing.Category
		}
	}

	if err := e.storage.SaveSubscription(ctx, &sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription for %s: %w", profile.MerchantKey, err)
	}

	outcome.subscription = &sub
	return outcome, nil
}

// ruleVerdict is the statistical tier: an eligible profile is a
// subscription with full confidence in its own fit.
func (e *DetectionEngine) ruleVerdict(profile model.SeriesProfile) model.MerchantClassification {
	verdict := model.MerchantClassification{
		MerchantKey: profile.MerchantKey,
		Source:      model.SourceRule,
		Override:    model.OverrideNone,
	}

	if profile.Eligible() {
		verdict.IsSubscription = true
		verdict.Confidence = 1.0
		verdict.Reason = fmt.Sprintf("%d charges at a stable %s cadence",
			profile.Occurrences, profile.Periodicity)
		if match := e.categories.Categorize(profile.MerchantKey); match != nil {
			verdict.Category = match.Category
		}
	}

	return verdict
}

// needsAI reports whether a profile is rule-ineligible or ambiguous enough
// to be worth an AI call: irregular cadence, or a regular cadence with
// amounts wobbling beyond the tolerance band.
func (e *DetectionEngine) needsAI(profile model.SeriesProfile) bool {
	if !profile.Eligible() {
		return true
	}
	return profile.AmountDeviation > e.cfg.IntervalTolerance
}

// aiCallTimeout bounds each individual call to the AI backend.
const aiCallTimeout = 30 * time.Second

// classifyWithAI submits a profile to the AI backend with bounded retries.
// Malformed responses are not retried.
func (e *DetectionEngine) classifyWithAI(ctx context.Context, profile model.SeriesProfile) (model.MerchantClassification, error) {
	req := ai.ClassificationRequest{
		MerchantKey:  profile.MerchantKey,
		Periodicity:  profile.Periodicity,
		Occurrences:  profile.Occurrences,
		MedianAmount: profile.MedianAmount,
		FirstSeen:    profile.FirstSeen,
		LastSeen:     profile.LastSeen,
	}

	var result ai.ClassificationResult

	callCtx, cancel := context.WithTimeout(ctx, aiCallTimeout)
	defer cancel()

	err := common.WithRetry(callCtx, func() error {
		response, callErr := e.client.ClassifySubscription(callCtx, req)
		if callErr != nil {
			return &common.RetryableError{Err: callErr, Retryable: common.IsRetryable(callErr)}
		}
		result = response
		return nil
	}, e.cfg.AIRetry)
	if err != nil {
		return model.MerchantClassification{}, err
	}

	return model.MerchantClassification{
		MerchantKey:    profile.MerchantKey,
		IsSubscription: result.IsSubscription,
		Confidence:     result.Confidence,
		Source:         model.SourceAI,
		Override:       model.OverrideNone,
		Category:       result.Category,
		Reason:         result.Reason,
	}, nil
}

// keyMutex serializes work per merchant key.
type keyMutex struct {
	locks map[string]*sync.Mutex
	mu    sync.Mutex
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for a key, creating it on first use, and returns
// the unlock function.
func (k *keyMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
