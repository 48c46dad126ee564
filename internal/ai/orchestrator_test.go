package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subhound/subhound/internal/common"
	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/service"
)

// scriptedClient plays back canned Complete responses in order. The
// classification methods are never used by the orchestrator.
type scriptedClient struct {
	MockClient
	responses []string
	turn      int
}

func (s *scriptedClient) Complete(_ context.Context, _ string) (string, error) {
	if s.turn >= len(s.responses) {
		return "", common.ErrAIUnavailable
	}
	response := s.responses[s.turn]
	s.turn++
	return response, nil
}

// recordingTools serves canned data and records what was asked.
type recordingTools struct {
	searches  []string
	summaries []string
}

func (r *recordingTools) SearchTransactions(_ context.Context, merchantKey string, _ int) ([]model.Transaction, error) {
	r.searches = append(r.searches, merchantKey)
	return []model.Transaction{
		{ID: "t1", Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Description: "NETFLIX.COM", Amount: -15.49},
	}, nil
}

func (r *recordingTools) SpendingSummary(_ context.Context, merchantKey string, start, end time.Time) (*service.SpendingSummary, error) {
	r.summaries = append(r.summaries, merchantKey)
	return &service.SpendingSummary{
		MerchantKey: merchantKey,
		Start:       start,
		End:         end,
		Count:       6,
		Total:       92.94,
		Average:     15.49,
	}, nil
}

func verifyRequest() VerificationRequest {
	return VerificationRequest{
		MerchantKey: "NETFLIX.COM",
		AccountID:   "checking",
		Kind:        model.AlertZombie,
		Evidence:    "charging since 2024-01-15 with no user action",
	}
}

func TestVerifyImmediateAnnotation(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"ANNOTATION: evidence holds without further lookup",
	}}

	orchestrator := NewOrchestrator(client, DefaultOrchestratorConfig())
	result, err := orchestrator.Verify(context.Background(), verifyRequest(), &recordingTools{})

	require.NoError(t, err)
	assert.Equal(t, "evidence holds without further lookup", result.Annotation)
	assert.Equal(t, 0, result.ToolCalls)
}

func TestVerifyToolLoop(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"TOOL: search_transactions 5",
		"TOOL: spending_summary",
		"ANNOTATION: six charges over six months corroborate the alert",
	}}
	tools := &recordingTools{}

	orchestrator := NewOrchestrator(client, DefaultOrchestratorConfig())
	result, err := orchestrator.Verify(context.Background(), verifyRequest(), tools)

	require.NoError(t, err)
	assert.Equal(t, 2, result.ToolCalls)
	assert.Equal(t, "six charges over six months corroborate the alert", result.Annotation)
	assert.Equal(t, []string{"NETFLIX.COM"}, tools.searches)
	assert.Equal(t, []string{"NETFLIX.COM"}, tools.summaries)
}

func TestVerifyToolBudgetExceeded(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"TOOL: search_transactions",
		"TOOL: search_transactions",
		"TOOL: search_transactions",
	}}

	orchestrator := NewOrchestrator(client, OrchestratorConfig{MaxToolCalls: 2, Timeout: time.Second})
	_, err := orchestrator.Verify(context.Background(), verifyRequest(), &recordingTools{})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrToolBudgetExceeded)
}

func TestVerifyMalformedTurn(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"I will think about this some more.",
	}}

	orchestrator := NewOrchestrator(client, DefaultOrchestratorConfig())
	_, err := orchestrator.Verify(context.Background(), verifyRequest(), &recordingTools{})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}

func TestVerifyUnknownTool(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"TOOL: drop_tables",
	}}

	orchestrator := NewOrchestrator(client, DefaultOrchestratorConfig())
	_, err := orchestrator.Verify(context.Background(), verifyRequest(), &recordingTools{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}
