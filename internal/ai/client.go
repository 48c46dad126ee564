// Package ai provides the capability contract for optional AI backends:
// a classification client and a tool-calling orchestrator. Backends are
// consumed through these narrow interfaces; a detection run works at full
// rule-tier fidelity when neither is configured.
package ai

import (
	"context"
	"time"

	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/service"
)

// Client defines the interface for AI classification backends.
type Client interface {
	// ClassifySubscription decides whether a merchant's charge profile
	// looks like a subscription. Backend unreachability surfaces as
	// common.ErrAIUnavailable; unparsable output as
	// common.ErrMalformedResponse. Callers degrade to their rule verdict
	// on either.
	ClassifySubscription(ctx context.Context, req ClassificationRequest) (ClassificationResult, error)
	// AnalyzeDuplicates describes the overlap between services suspected
	// of duplicating each other.
	AnalyzeDuplicates(ctx context.Context, req DuplicateRequest) (model.DuplicateAnalysis, error)
	// Complete runs a free-form prompt; used by the tool orchestrator.
	Complete(ctx context.Context, prompt string) (string, error)
}

// ClassificationRequest carries the profile context for one merchant.
type ClassificationRequest struct {
	MerchantKey  string
	Periodicity  model.Periodicity
	Occurrences  int
	MedianAmount float64
	FirstSeen    time.Time
	LastSeen     time.Time
}

// ClassificationResult is the backend's verdict for one merchant.
type ClassificationResult struct {
	Reason         string
	Category       string
	Confidence     float64
	IsSubscription bool
}

// DuplicateRequest names the services suspected of overlapping.
type DuplicateRequest struct {
	Category  string
	Merchants []string
}

// ToolExecutor is the read-only view of the transaction store that the
// orchestrator may query during verification.
type ToolExecutor interface {
	SearchTransactions(ctx context.Context, merchantKey string, limit int) ([]model.Transaction, error)
	SpendingSummary(ctx context.Context, merchantKey string, start, end time.Time) (*service.SpendingSummary, error)
}

// VerificationRequest describes the alert the orchestrator should
// corroborate.
type VerificationRequest struct {
	MerchantKey string
	AccountID   string
	Kind        model.AlertKind
	Evidence    string
}

// VerificationResult is the orchestrator's annotation for an alert.
type VerificationResult struct {
	Annotation string
	ToolCalls  int
}

// Orchestrator runs a bounded verification pass over an alert, issuing
// read-only tool calls through the executor.
type Orchestrator interface {
	Verify(ctx context.Context, req VerificationRequest, tools ToolExecutor) (VerificationResult, error)
}

// Config holds configuration for AI backends.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}
