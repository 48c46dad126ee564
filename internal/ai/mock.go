package ai

import (
	"context"
	"strings"
	"sync"

	"github.com/subhound/subhound/internal/model"
)

// MockClient is a test implementation of the Client interface. It returns
// deterministic verdicts based on merchant name, and can be forced to fail
// for specific merchants to exercise degradation paths.
type MockClient struct {
	// FailFor makes ClassifySubscription return the given error for
	// matching merchant keys.
	FailFor map[string]error
	calls   []ClassificationRequest
	mu      sync.Mutex
}

// NewMockClient creates a new mock AI client.
func NewMockClient() *MockClient {
	return &MockClient{
		FailFor: make(map[string]error),
	}
}

// ClassifySubscription provides deterministic verdicts based on merchant
// name patterns.
func (m *MockClient) ClassifySubscription(_ context.Context, req ClassificationRequest) (ClassificationResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	err := m.FailFor[req.MerchantKey]
	m.mu.Unlock()

	if err != nil {
		return ClassificationResult{}, err
	}

	merchantLower := strings.ToLower(req.MerchantKey)

	switch {
	case strings.Contains(merchantLower, "netflix") || strings.Contains(merchantLower, "hulu"):
		return ClassificationResult{
			IsSubscription: true,
			Confidence:     0.97,
			Category:       "Streaming",
			Reason:         "Video streaming service with fixed monthly billing",
		}, nil
	case strings.Contains(merchantLower, "spotify"):
		return ClassificationResult{
			IsSubscription: true,
			Confidence:     0.96,
			Category:       "Music",
			Reason:         "Music streaming service with fixed monthly billing",
		}, nil
	case strings.Contains(merchantLower, "gym") || strings.Contains(merchantLower, "fitness"):
		return ClassificationResult{
			IsSubscription: true,
			Confidence:     0.85,
			Category:       "Fitness",
			Reason:         "Membership billed on a recurring schedule",
		}, nil
	case strings.Contains(merchantLower, "grocery") || strings.Contains(merchantLower, "market"):
		return ClassificationResult{
			IsSubscription: false,
			Confidence:     0.90,
			Reason:         "Variable-amount retail purchases, not a recurring service",
		}, nil
	default:
		if req.Occurrences >= 3 && req.Periodicity != model.PeriodIrregular {
			return ClassificationResult{
				IsSubscription: true,
				Confidence:     0.70,
				Reason:         "Regular cadence and stable amount suggest a subscription",
			}, nil
		}
		return ClassificationResult{
			IsSubscription: false,
			Confidence:     0.60,
			Reason:         "Insufficient regularity to call this a subscription",
		}, nil
	}
}

// AnalyzeDuplicates returns a canned overlap description.
func (m *MockClient) AnalyzeDuplicates(_ context.Context, req DuplicateRequest) (model.DuplicateAnalysis, error) {
	analysis := model.DuplicateAnalysis{
		Overlap:        "Both services provide " + strings.ToLower(req.Category) + " content",
		UniqueFeatures: make(map[string]string),
	}
	for _, merchant := range req.Merchants {
		analysis.UniqueFeatures[merchant] = "catalog exclusive to " + merchant
	}
	return analysis, nil
}

// Complete returns an immediate annotation so verifier tests terminate
// without tool calls unless a test substitutes its own Client.
func (m *MockClient) Complete(_ context.Context, _ string) (string, error) {
	return "ANNOTATION: evidence corroborated by charge history", nil
}

// Calls returns the classification requests seen so far.
func (m *MockClient) Calls() []ClassificationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ClassificationRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockOrchestrator is a test implementation of the Orchestrator interface.
type MockOrchestrator struct {
	// Err, when set, is returned from every Verify call.
	Err        error
	Annotation string
	mu         sync.Mutex
	verified   []VerificationRequest
}

// NewMockOrchestrator creates a mock orchestrator returning the given
// annotation.
func NewMockOrchestrator(annotation string) *MockOrchestrator {
	return &MockOrchestrator{Annotation: annotation}
}

// Verify records the request and returns the configured annotation.
func (m *MockOrchestrator) Verify(_ context.Context, req VerificationRequest, _ ToolExecutor) (VerificationResult, error) {
	m.mu.Lock()
	m.verified = append(m.verified, req)
	m.mu.Unlock()

	if m.Err != nil {
		return VerificationResult{}, m.Err
	}
	return VerificationResult{Annotation: m.Annotation, ToolCalls: 1}, nil
}

// Verified returns the verification requests seen so far.
func (m *MockOrchestrator) Verified() []VerificationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]VerificationRequest, len(m.verified))
	copy(out, m.verified)
	return out
}
