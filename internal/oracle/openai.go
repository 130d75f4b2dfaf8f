// Package oracle turns a clause plus its surviving evidence into a
// schema-validated structured judgment. The adapter is the only
// high-latency, failure-prone stage of the pipeline: it fails closed, so a
// malformed response, a timeout, or an exhausted retry budget always yields a
// terminal needs_review verdict and never a crash or a silent pass-through.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/config"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

// Client implements port.JudgmentOracle using the OpenAI Chat Completions API.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates an oracle client from config.
func NewClient(cfg *config.OracleConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	return newClient(cfg, endpoint)
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.OracleConfig, endpoint string) *Client {
	return newClient(cfg, endpoint)
}

func newClient(cfg *config.OracleConfig, endpoint string) *Client {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Judge sends one clause judgment request and validates the response against
// the fixed verdict schema.
func (c *Client) Judge(ctx context.Context, req port.JudgeRequest) (*domain.OracleVerdict, error) {
	prompt := BuildJudgePrompt(req)

	reqBody := map[string]interface{}{
		"model":                 c.model,
		"max_completion_tokens": 4096,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"response_format": map[string]interface{}{
			"type": "json_object",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling oracle API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("oracle API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, NewRateLimitError("openai", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseVerdict(respBody, req)
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// rawVerdict uses pointers so absent required fields are distinguishable from
// empty ones.
type rawVerdict struct {
	Status     *string  `json:"status"`
	Expected   *string  `json:"expected"`
	Actual     *string  `json:"actual"`
	Evidence   *[]int   `json:"evidence"`
	Fix        *string  `json:"fix"`
	Severity   *string  `json:"severity"`
	Confidence *float64 `json:"confidence"`
}

func parseVerdict(body []byte, req port.JudgeRequest) (*domain.OracleVerdict, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}
	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length)")
	}

	text := resp.Choices[0].Message.Content
	var raw rawVerdict
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing verdict JSON: %v (raw: %s)", domain.ErrOracleSchema, err, truncate(text, 500))
	}

	if raw.Status == nil || raw.Expected == nil || raw.Actual == nil ||
		raw.Evidence == nil || raw.Fix == nil || raw.Severity == nil {
		return nil, fmt.Errorf("%w: verdict missing required fields (raw: %s)", domain.ErrOracleSchema, truncate(text, 500))
	}

	status := domain.VerdictStatus(*raw.Status)
	switch status {
	case domain.VerdictMatch, domain.VerdictMismatch, domain.VerdictMissing, domain.VerdictNeedsReview:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrOracleSchema, *raw.Status)
	}

	severity := domain.Severity(*raw.Severity)
	switch severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh:
	default:
		return nil, fmt.Errorf("%w: unknown severity %q", domain.ErrOracleSchema, *raw.Severity)
	}

	anchors := make([]domain.EvidenceAnchor, 0, len(*raw.Evidence))
	for _, idx := range *raw.Evidence {
		if idx < 0 || idx >= len(req.Evidence) {
			return nil, fmt.Errorf("%w: evidence index %d out of range (%d excerpts)", domain.ErrOracleSchema, idx, len(req.Evidence))
		}
		anchors = append(anchors, req.Evidence[idx].Anchor)
	}

	confidence := 1.0
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}

	return &domain.OracleVerdict{
		ClauseID:   req.ClauseID,
		Status:     status,
		Expected:   *raw.Expected,
		Actual:     *raw.Actual,
		Evidence:   anchors,
		Fix:        *raw.Fix,
		Severity:   severity,
		Confidence: confidence,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
