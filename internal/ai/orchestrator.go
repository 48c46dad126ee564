package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/subhound/subhound/internal/common"
)

// OrchestratorConfig bounds a single verification pass.
type OrchestratorConfig struct {
	// MaxToolCalls is the tool-call budget per verification.
	MaxToolCalls int
	// Timeout covers the whole pass, tool calls included.
	Timeout time.Duration
	// LookbackDays limits how far back the spending-summary tool reaches.
	LookbackDays int
}

// DefaultOrchestratorConfig returns the default bounds.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxToolCalls: 5,
		Timeout:      60 * time.Second,
		LookbackDays: 365,
	}
}

// toolOrchestrator drives a bounded agent loop: it prompts the backend,
// executes any requested read-only tool call against the transaction
// store, feeds the result back, and stops at an ANNOTATION line or when
// the budget runs out.
type toolOrchestrator struct {
	client Client
	cfg    OrchestratorConfig
}

// NewOrchestrator creates a tool-calling orchestrator over a client.
func NewOrchestrator(client Client, cfg OrchestratorConfig) Orchestrator {
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = DefaultOrchestratorConfig().MaxToolCalls
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOrchestratorConfig().Timeout
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultOrchestratorConfig().LookbackDays
	}

	return &toolOrchestrator{client: client, cfg: cfg}
}

// Verify corroborates an alert with bounded read-only tool calls.
func (o *toolOrchestrator) Verify(ctx context.Context, req VerificationRequest, tools ToolExecutor) (VerificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	transcript := o.buildVerifyPrompt(req)
	result := VerificationResult{}

	for {
		content, err := o.client.Complete(ctx, transcript)
		if err != nil {
			return VerificationResult{}, err
		}

		annotation, toolCall := parseVerifierTurn(content)
		if annotation != "" {
			result.Annotation = annotation
			return result, nil
		}
		if toolCall == nil {
			return VerificationResult{}, fmt.Errorf("%w: neither ANNOTATION nor TOOL line in response", common.ErrMalformedResponse)
		}

		if result.ToolCalls >= o.cfg.MaxToolCalls {
			return VerificationResult{}, fmt.Errorf("%w: %d calls used", common.ErrToolBudgetExceeded, result.ToolCalls)
		}
		result.ToolCalls++

		observation, err := o.executeTool(ctx, *toolCall, req, tools)
		if err != nil {
			return VerificationResult{}, fmt.Errorf("tool %s failed: %w", toolCall.name, err)
		}

		transcript += fmt.Sprintf("\n\nTOOL RESULT (%s):\n%s\n\nContinue. Remaining tool calls: %d.",
			toolCall.name, observation, o.cfg.MaxToolCalls-result.ToolCalls)
	}
}

type toolCall struct {
	name string
	arg  string
}

// parseVerifierTurn extracts either a final annotation or a tool request
// from one model turn.
func parseVerifierTurn(content string) (annotation string, call *toolCall) {
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ANNOTATION:"):
			return strings.TrimSpace(strings.TrimPrefix(line, "ANNOTATION:")), nil
		case strings.HasPrefix(line, "TOOL:"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "TOOL:"))
			parts := strings.SplitN(rest, " ", 2)
			call = &toolCall{name: parts[0]}
			if len(parts) > 1 {
				call.arg = strings.TrimSpace(parts[1])
			}
			return "", call
		}
	}
	return "", nil
}

func (o *toolOrchestrator) executeTool(ctx context.Context, call toolCall, req VerificationRequest, tools ToolExecutor) (string, error) {
	switch call.name {
	case "search_transactions":
		limit := 10
		if call.arg != "" {
			if parsed, err := strconv.Atoi(call.arg); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		txns, err := tools.SearchTransactions(ctx, req.MerchantKey, limit)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, txn := range txns {
			fmt.Fprintf(&b, "%s  %.2f  %s\n", txn.Date.Format("2006-01-02"), txn.Amount, txn.Description)
		}
		if b.Len() == 0 {
			return "no matching transactions", nil
		}
		return b.String(), nil

	case "spending_summary":
		end := time.Now()
		start := end.AddDate(0, 0, -o.cfg.LookbackDays)
		summary, err := tools.SpendingSummary(ctx, req.MerchantKey, start, end)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("charges=%d total=%.2f average=%.2f over %s..%s",
			summary.Count, summary.Total, summary.Average,
			start.Format("2006-01-02"), end.Format("2006-01-02")), nil

	default:
		return "", fmt.Errorf("unknown tool %q", call.name)
	}
}

func (o *toolOrchestrator) buildVerifyPrompt(req VerificationRequest) string {
	return fmt.Sprintf(`You are verifying a detection result against the transaction store.

Alert kind: %s
Merchant: %s
Evidence: %s

You may issue read-only tool calls, one per turn, at most %d total:
TOOL: search_transactions <limit>
TOOL: spending_summary

When you have enough information, finish with exactly one line:
ANNOTATION: <one or two sentences explaining whether the evidence holds and why>

Respond with exactly one TOOL line or one ANNOTATION line.`,
		req.Kind,
		req.MerchantKey,
		req.Evidence,
		o.cfg.MaxToolCalls)
}
