package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/subhound/subhound/internal/common"
	"github.com/subhound/subhound/internal/model"
)

// compatClient implements the Client interface against any chat-completions
// compatible endpoint. Pointing BaseURL at a local model server or a hosted
// API is the same client.
type compatClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	limiter     *rateLimiter
}

// NewClient creates a classification client for a chat-completions
// compatible backend.
func NewClient(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: ai base URL is required", common.ErrMissingConfig)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &compatClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
		limiter:     newRateLimiter(cfg.RateLimit),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// ClassifySubscription sends a classification request to the backend.
func (c *compatClient) ClassifySubscription(ctx context.Context, req ClassificationRequest) (ClassificationResult, error) {
	prompt := buildClassificationPrompt(req)

	content, err := c.Complete(ctx, prompt)
	if err != nil {
		return ClassificationResult{}, err
	}

	return parseClassification(content)
}

// AnalyzeDuplicates asks the backend to describe the overlap between
// suspected duplicate services.
func (c *compatClient) AnalyzeDuplicates(ctx context.Context, req DuplicateRequest) (model.DuplicateAnalysis, error) {
	prompt := buildDuplicatePrompt(req)

	content, err := c.Complete(ctx, prompt)
	if err != nil {
		return model.DuplicateAnalysis{}, err
	}

	return parseDuplicateAnalysis(content)
}

// Complete runs a single chat completion and returns the raw content.
func (c *compatClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are a recurring-charge analyst. Respond ONLY in the exact line format requested. No markdown, no commentary.",
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrAIUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", common.ErrRateLimit
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: backend error (status %d): %s", common.ErrAIUnavailable, resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", common.ErrMalformedResponse)
	}

	return response.Choices[0].Message.Content, nil
}

func buildClassificationPrompt(req ClassificationRequest) string {
	return fmt.Sprintf(`Decide whether this merchant's charge history represents a subscription (a recurring service the user pays for automatically).

Merchant: %s
Charge count: %d
Cadence: %s
Typical amount: $%.2f
First seen: %s
Last seen: %s

Respond in this exact format:
SUBSCRIPTION: <yes|no>
CONFIDENCE: <0.0-1.0>
CATEGORY: <one short category label, e.g. Streaming, Fitness, Cloud Storage>
REASON: <one sentence>`,
		req.MerchantKey,
		req.Occurrences,
		strings.ToLower(string(req.Periodicity)),
		req.MedianAmount,
		req.FirstSeen.Format("2006-01-02"),
		req.LastSeen.Format("2006-01-02"))
}

func buildDuplicatePrompt(req DuplicateRequest) string {
	return fmt.Sprintf(`These active subscriptions share the category %q and may duplicate each other:
%s

Describe the overlap and what is unique about each service.

Respond in this exact format:
OVERLAP: <one sentence describing the shared functionality>
UNIQUE %s: <what only this service offers>
(one UNIQUE line per service, using the exact merchant name)`,
		req.Category,
		"- "+strings.Join(req.Merchants, "\n- "),
		req.Merchants[0])
}

// chatResponse represents a chat-completions API response.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
}
