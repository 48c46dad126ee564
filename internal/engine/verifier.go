package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/subhound/subhound/internal/ai"
	"github.com/subhound/subhound/internal/common"
	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/service"
)

// storeTools exposes the read-only transaction-store view the orchestrator
// may query during verification.
type storeTools struct {
	storage   service.Storage
	accountID string
}

var _ ai.ToolExecutor = (*storeTools)(nil)

func (t *storeTools) SearchTransactions(ctx context.Context, merchantKey string, limit int) ([]model.Transaction, error) {
	return t.storage.GetTransactions(ctx, service.TransactionFilter{
		MerchantKey: merchantKey,
		AccountID:   t.accountID,
		Limit:       limit,
	})
}

func (t *storeTools) SpendingSummary(ctx context.Context, merchantKey string, start, end time.Time) (*service.SpendingSummary, error) {
	return t.storage.GetSpendingSummary(ctx, merchantKey, start, end)
}

// verifyAlerts runs the agentic verification pass over the alerts emitted
// this run. Orchestrator failures are swallowed into "no annotation"; the
// rule verdict underneath is never overridden.
func (e *DetectionEngine) verifyAlerts(ctx context.Context, alerts []model.Alert) {
	for i := range alerts {
		alert := &alerts[i]

		sub, err := e.storage.GetSubscriptionByID(ctx, alert.SubscriptionID)
		if err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				slog.Warn("Failed to load subscription for verification",
					"subscription_id", alert.SubscriptionID,
					"error", err)
			}
			continue
		}

		req := ai.VerificationRequest{
			MerchantKey: sub.MerchantKey,
			AccountID:   sub.AccountID,
			Kind:        alert.Kind,
			Evidence:    alert.Evidence,
		}
		tools := &storeTools{storage: e.storage, accountID: sub.AccountID}

		result, err := e.orchestrator.Verify(ctx, req, tools)
		if err != nil {
			slog.Warn("Verification pass failed, alert kept without annotation",
				"merchant", sub.MerchantKey,
				"kind", alert.Kind,
				"error", err)
			continue
		}
		if result.Annotation == "" {
			continue
		}

		alert.Explanation = result.Annotation
		if err := e.storage.SaveAlert(ctx, alert); err != nil {
			slog.Warn("Failed to store alert annotation",
				"merchant", sub.MerchantKey,
				"error", err)
			continue
		}

		slog.Info("Alert annotated by verifier",
			"merchant", sub.MerchantKey,
			"kind", alert.Kind,
			"tool_calls", result.ToolCalls)
	}
}

// enrichDuplicateAlerts attaches the AI overlap analysis to the duplicate
// alerts emitted this run. Failures leave the category match as the only
// evidence.
func (e *DetectionEngine) enrichDuplicateAlerts(ctx context.Context, alerts []model.Alert, groups map[string]*duplicateGroup) {
	for i := range alerts {
		alert := &alerts[i]
		group, ok := groups[alert.ID]
		if !ok {
			continue
		}

		merchants := make([]string, len(group.members))
		for j, member := range group.members {
			merchants[j] = member.MerchantKey
		}

		analysis, err := e.analyzeDuplicates(ctx, group.category, merchants)
		if err != nil {
			slog.Warn("Duplicate analysis failed, keeping category evidence only",
				"category", group.category,
				"error", err)
			continue
		}

		var b strings.Builder
		b.WriteString(analysis.Overlap)
		for _, merchant := range merchants {
			if feature, ok := analysis.UniqueFeatures[merchant]; ok {
				fmt.Fprintf(&b, "; %s: %s", merchant, feature)
			}
		}
		alert.Explanation = b.String()

		if err := e.storage.SaveAlert(ctx, alert); err != nil {
			slog.Warn("Failed to store duplicate analysis",
				"category", group.category,
				"error", err)
		}
	}
}

// analyzeDuplicates submits one overlap request with its own timeout and
// bounded retries. Malformed responses are not retried.
func (e *DetectionEngine) analyzeDuplicates(ctx context.Context, category string, merchants []string) (model.DuplicateAnalysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, aiCallTimeout)
	defer cancel()

	var analysis model.DuplicateAnalysis

	err := common.WithRetry(callCtx, func() error {
		result, callErr := e.client.AnalyzeDuplicates(callCtx, ai.DuplicateRequest{
			Category:  category,
			Merchants: merchants,
		})
		if callErr != nil {
			return &common.RetryableError{Err: callErr, Retryable: common.IsRetryable(callErr)}
		}
		analysis = result
		return nil
	}, e.cfg.AIRetry)

	return analysis, err
}
