// Package engine implements the recurring-charge detection engine: series
// construction, subscription classification, and the zombie,
// price-increase, and duplicate-service detectors.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subhound/subhound/internal/ai"
	"github.com/subhound/subhound/internal/classification"
	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/series"
	"github.com/subhound/subhound/internal/service"
)

// Config holds configuration options for the detection engine.
type Config struct {
	// MinOccurrences is the sample floor below which a series is never
	// considered for classification.
	MinOccurrences int
	// IntervalTolerance is the fractional band for periodicity matching.
	IntervalTolerance float64
	// IncreaseThreshold is the fractional rise that counts as a price
	// increase.
	IncreaseThreshold float64
	// ZombieAfter is how long a subscription may keep charging without any
	// user action before it is flagged for review.
	ZombieAfter time.Duration
	// MaxConcurrent bounds concurrent AI classification calls.
	MaxConcurrent int
	// AIRetry configures retry behavior for AI classification calls.
	AIRetry service.RetryOptions
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MinOccurrences:    3,
		IntervalTolerance: 0.20,
		IncreaseThreshold: 0.05,
		ZombieAfter:       90 * 24 * time.Hour,
		MaxConcurrent:     4,
		AIRetry: service.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: time.Second,
		},
	}
}

// DetectionEngine orchestrates a detection run. Its capability tier is
// fixed at construction.
type DetectionEngine struct {
	storage      service.Storage
	client       ai.Client
	orchestrator ai.Orchestrator
	categories   *classification.CategoryDetector
	keyLocks     *keyMutex
	now          func() time.Time
	cfg          Config
	capability   Capability
}

// Option configures optional engine collaborators.
type Option func(*DetectionEngine)

// WithAIClient attaches an AI classification backend.
func WithAIClient(client ai.Client) Option {
	return func(e *DetectionEngine) {
		e.client = client
	}
}

// WithOrchestrator attaches an agentic verification backend.
func WithOrchestrator(orchestrator ai.Orchestrator) Option {
	return func(e *DetectionEngine) {
		e.orchestrator = orchestrator
	}
}

// withClock overrides the engine clock; used by tests.
func withClock(now func() time.Time) Option {
	return func(e *DetectionEngine) {
		e.now = now
	}
}

// New creates a detection engine. The capability tier is derived once from
// the options and never changes afterwards.
func New(storage service.Storage, cfg Config, opts ...Option) (*DetectionEngine, error) {
	if cfg.MinOccurrences <= 0 {
		cfg.MinOccurrences = DefaultConfig().MinOccurrences
	}
	if cfg.IntervalTolerance <= 0 {
		cfg.IntervalTolerance = DefaultConfig().IntervalTolerance
	}
	if cfg.IncreaseThreshold <= 0 {
		cfg.IncreaseThreshold = DefaultConfig().IncreaseThreshold
	}
	if cfg.ZombieAfter <= 0 {
		cfg.ZombieAfter = DefaultConfig().ZombieAfter
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}

	categories, err := classification.NewCategoryDetector(classification.DefaultPatterns())
	if err != nil {
		return nil, fmt.Errorf("failed to build category detector: %w", err)
	}

	e := &DetectionEngine{
		storage:    storage,
		categories: categories,
		keyLocks:   newKeyMutex(),
		now:        time.Now,
		cfg:        cfg,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.capability = capabilityFor(e.client, e.orchestrator)

	slog.Info("Detection engine constructed", "capability", e.capability.String())

	return e, nil
}

// Capability returns the engine's fixed operating tier.
func (e *DetectionEngine) Capability() Capability {
	return e.capability
}

// RunScope narrows a detection run to one account when set.
type RunScope struct {
	AccountID string
}

// runKinds selects which detectors a run executes.
type runKinds struct {
	zombies    bool
	increases  bool
	duplicates bool
}

// DetectAll runs the full pipeline: classification plus all three
// detectors, with the verification pass when the tier allows it.
func (e *DetectionEngine) DetectAll(ctx context.Context, scope RunScope) (model.DetectionResults, error) {
	return e.run(ctx, scope, runKinds{zombies: true, increases: true, duplicates: true})
}

// DetectZombiesOnly runs classification and the zombie detector.
func (e *DetectionEngine) DetectZombiesOnly(ctx context.Context, scope RunScope) (model.DetectionResults, error) {
	return e.run(ctx, scope, runKinds{zombies: true})
}

// DetectIncreasesOnly runs classification and the price-increase detector.
func (e *DetectionEngine) DetectIncreasesOnly(ctx context.Context, scope RunScope) (model.DetectionResults, error) {
	return e.run(ctx, scope, runKinds{increases: true})
}

// DetectDuplicatesOnly runs classification and the duplicate detector.
func (e *DetectionEngine) DetectDuplicatesOnly(ctx context.Context, scope RunScope) (model.DetectionResults, error) {
	return e.run(ctx, scope, runKinds{duplicates: true})
}

// run is the single logical detection operation. Storage errors are fatal;
// per-merchant AI failures degrade and the run completes.
func (e *DetectionEngine) run(ctx context.Context, scope RunScope, kinds runKinds) (model.DetectionResults, error) {
	var results model.DetectionResults

	slog.Info("Starting detection run",
		"capability", e.capability.String(),
		"account", scope.AccountID)

	transactions, err := e.storage.GetTransactions(ctx, service.TransactionFilter{
		AccountID: scope.AccountID,
	})
	if err != nil {
		return results, fmt.Errorf("failed to load transactions: %w", err)
	}

	// Subscriptions are charges, not deposits.
	expenses := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if txn.IsExpense() {
			expenses = append(expenses, txn)
		}
	}

	if len(expenses) == 0 {
		slog.Info("No expense transactions to analyze")
		return results, nil
	}

	candidates := series.Build(expenses)
	analyzerCfg := series.AnalyzerConfig{
		IntervalTolerance: e.cfg.IntervalTolerance,
		IncreaseThreshold: e.cfg.IncreaseThreshold,
	}

	profiles := make([]model.SeriesProfile, 0, len(candidates))
	for _, candidate := range candidates {
		if len(candidate.Transactions) < e.cfg.MinOccurrences {
			continue
		}
		profiles = append(profiles, series.Analyze(candidate, analyzerCfg))
	}

	slog.Info("Built candidate series",
		"series", len(candidates),
		"profiled", len(profiles))

	outcomes, err := e.classifyProfiles(ctx, profiles)
	if err != nil {
		return results, err
	}

	for _, outcome := range outcomes {
		if outcome.subscription != nil {
			results.SubscriptionsFound++
		}
	}

	var emitted []model.Alert

	if kinds.zombies {
		count, alerts, zErr := e.detectZombies(ctx, outcomes)
		if zErr != nil {
			return results, zErr
		}
		results.ZombiesDetected = count
		emitted = append(emitted, alerts...)
	}

	if kinds.increases {
		count, alerts, pErr := e.detectPriceIncreases(ctx, outcomes)
		if pErr != nil {
			return results, pErr
		}
		results.PriceIncreasesDetected = count
		emitted = append(emitted, alerts...)
	}

	if kinds.duplicates {
		count, alerts, groups, dErr := e.detectDuplicates(ctx, outcomes)
		if dErr != nil {
			return results, dErr
		}
		results.DuplicatesDetected = count
		emitted = append(emitted, alerts...)

		if e.capability.HasAI() && len(groups) > 0 {
			e.enrichDuplicateAlerts(ctx, emitted, groups)
		}
	}

	if e.capability.HasOrchestrator() && len(emitted) > 0 {
		e.verifyAlerts(ctx, emitted)
	}

	slog.Info("Detection run complete",
		"subscriptions", results.SubscriptionsFound,
		"zombies", results.ZombiesDetected,
		"price_increases", results.PriceIncreasesDetected,
		"duplicates", results.DuplicatesDetected)

	return results, nil
}

// outcomeKey identifies one classified series within a run.
func outcomeKey(merchantKey, accountID string) string {
	return merchantKey + "\x00" + accountID
}
